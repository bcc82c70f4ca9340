package tagging

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Resolve substitutes every {{name}} occurrence in text with the
// stringified placeholder value. Placeholders without a value are
// left untouched; callers validate before resolving.
func Resolve(text string, placeholders map[string]interface{}) string {
	resolved := text
	for name, value := range placeholders {
		resolved = strings.ReplaceAll(resolved, "{{"+name+"}}", Stringify(value))
	}
	return resolved
}

// Stringify renders a placeholder value the way it appears in the
// delivered message. Whole-number floats render without a decimal
// point, so JSON-decoded 5 becomes "5" rather than "5.000000".
func Stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
