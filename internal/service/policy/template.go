package policy

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)

// Interpolate replaces {{key}} and {{nested.key}} placeholders with values
// looked up in data. Placeholders that cannot be resolved are left verbatim.
func Interpolate(template string, data interface{}) string {
	if !strings.Contains(template, "{{") || data == nil {
		return template
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return template
	}

	return placeholderPattern.ReplaceAllStringFunc(template, func(placeholder string) string {
		key := placeholderPattern.FindStringSubmatch(placeholder)[1]
		value := gjson.GetBytes(raw, key)
		if !value.Exists() {
			return placeholder
		}
		return value.String()
	})
}
