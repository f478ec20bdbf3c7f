package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetermineLevel(t *testing.T) {
	tests := []struct {
		score int
		want  Level
	}{
		{score: 0, want: LevelLow},
		{score: 29, want: LevelLow},
		{score: 30, want: LevelMedium},
		{score: 59, want: LevelMedium},
		{score: 60, want: LevelHigh},
		{score: 79, want: LevelHigh},
		{score: 80, want: LevelCritical},
		{score: 100, want: LevelCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DetermineLevel(tt.score), "score %d", tt.score)
	}
}

func TestLevel_RequiresReview(t *testing.T) {
	assert.False(t, LevelLow.RequiresReview())
	assert.False(t, LevelMedium.RequiresReview())
	assert.True(t, LevelHigh.RequiresReview())
	assert.True(t, LevelCritical.RequiresReview())
}
