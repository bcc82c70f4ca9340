package tagging

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"notification-service/internal/common/errors"
	"notification-service/internal/models"
)

// Validate checks the provided placeholder values against the
// template's declared tags. All missing tags and type mismatches are
// aggregated before reporting; values for undeclared tags are
// rejected. A blank string counts as missing.
func Validate(declared []models.TemplateTag, placeholders map[string]interface{}) error {
	var missing []string
	var typeIssues []string

	declaredNames := make(map[string]struct{}, len(declared))
	for _, tag := range declared {
		declaredNames[tag.Name] = struct{}{}

		value, present := placeholders[tag.Name]
		if !present || value == nil || isBlankString(value) {
			missing = append(missing, tag.Name)
			continue
		}
		if !matchesDatatype(value, tag.Datatype) {
			typeIssues = append(typeIssues, fmt.Sprintf("Tag '%s' expects %s but got '%v'", tag.Name, tag.Datatype, value))
		}
	}

	var issues []string
	if len(missing) > 0 {
		issues = append(issues, "Missing required tags: "+strings.Join(missing, ", "))
	}
	issues = append(issues, typeIssues...)
	if len(issues) > 0 {
		return errors.NewTagValidationError(strings.Join(issues, "; "))
	}

	var extras []string
	for name := range placeholders {
		if _, ok := declaredNames[name]; !ok {
			extras = append(extras, name)
		}
	}
	if len(extras) > 0 {
		sort.Strings(extras)
		return errors.NewTagValidationError("Unknown tags provided: " + strings.Join(extras, ", "))
	}

	return nil
}

func isBlankString(value interface{}) bool {
	s, ok := value.(string)
	return ok && strings.TrimSpace(s) == ""
}

func matchesDatatype(value interface{}, datatype string) bool {
	switch datatype {
	case models.DatatypeString:
		_, ok := value.(string)
		return ok
	case models.DatatypeNumber:
		switch value.(type) {
		case float64, float32, int, int32, int64, json.Number:
			return true
		}
		return false
	case models.DatatypeBoolean:
		_, ok := value.(bool)
		return ok
	}
	return false
}
