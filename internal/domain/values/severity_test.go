package values

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/change-risk-gate/internal/domain/errors"
)

func TestNewSeverity(t *testing.T) {
	tests := []struct {
		input   string
		want    Severity
		wantErr bool
	}{
		{input: "low", want: SeverityLow},
		{input: "MEDIUM", want: SeverityMedium},
		{input: " High ", want: SeverityHigh},
		{input: "critical", want: SeverityCritical},
		{input: "severe", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NewSeverity(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSeverity_AtLeast(t *testing.T) {
	assert.True(t, SeverityCritical.AtLeast(SeverityHigh))
	assert.True(t, SeverityHigh.AtLeast(SeverityHigh))
	assert.False(t, SeverityMedium.AtLeast(SeverityHigh))
	assert.False(t, Severity("unknown").AtLeast(SeverityLow))
}

func TestSeverity_UnmarshalJSON(t *testing.T) {
	var factors []struct {
		Severity Severity `json:"severity"`
	}
	err := json.Unmarshal([]byte(`[{"severity":"HIGH"},{"severity":"bogus"}]`), &factors)
	require.NoError(t, err)

	assert.Equal(t, SeverityHigh, factors[0].Severity)
	assert.Equal(t, Severity("bogus"), factors[1].Severity)
	assert.False(t, factors[1].Severity.IsValid())
}
