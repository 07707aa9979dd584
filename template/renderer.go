// Package template provides template rendering and variable substitution
// for authored system context and lore text. It supports:
//   - Variable substitution with {variable} syntax
//   - Recursive template resolution up to a bounded depth (variables can
//     contain other variables; cycles are truncated rather than looped)
//   - Validation of required variables
//   - Detection of unresolved placeholders (left literal in the output)
package template

import (
	"fmt"
	"strings"
)

// Renderer handles variable substitution in templates
type Renderer struct {
	// Future: Add configuration options like template engine type, custom functions, etc.
}

// NewRenderer creates a new template renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// maxRenderDepth bounds recursive resolution: a variable whose value
// itself contains a placeholder is re-resolved up to this many times,
// after which any remaining placeholder is left literal rather than
// looping on a circular reference.
const maxRenderDepth = 8

// Render applies {name} variable substitution to the template, resolving
// recursively up to maxRenderDepth passes so a variable's value may itself
// contain another placeholder. Unresolved placeholders (no matching key in
// vars) are left literal in the output rather than erroring.
func (r *Renderer) Render(templateText string, vars map[string]string) (string, error) {
	result := templateText
	for pass := 0; pass < maxRenderDepth; pass++ {
		changed := false
		for key, value := range vars {
			placeholder := fmt.Sprintf("{%s}", key)
			if strings.Contains(result, placeholder) {
				result = strings.ReplaceAll(result, placeholder, value)
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return result, nil
}

// ValidateRequiredVars checks that all required variables are provided and non-empty.
// Returns an error listing any missing variables.
func (r *Renderer) ValidateRequiredVars(requiredVars []string, vars map[string]string) error {
	var missing []string
	for _, required := range requiredVars {
		if value, exists := vars[required]; !exists || value == "" {
			missing = append(missing, required)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required variables: %v", missing)
	}

	return nil
}

// MergeVars merges multiple variable maps with later maps taking precedence.
// This is useful for combining default values, context variables, and overrides.
//
// Example:
//
//	defaults := map[string]string{"color": "blue", "size": "medium"}
//	overrides := map[string]string{"color": "red"}
//	result := MergeVars(defaults, overrides)
//	// result = {"color": "red", "size": "medium"}
func (r *Renderer) MergeVars(varMaps ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, vars := range varMaps {
		for k, v := range vars {
			result[k] = v
		}
	}
	return result
}

// FindUnresolvedPlaceholders extracts unresolved {name} placeholders left
// in text after rendering, for callers that want to log or surface them.
func (r *Renderer) FindUnresolvedPlaceholders(text string) []string {
	var placeholders []string
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		end := strings.IndexByte(text[i:], '}')
		if end < 0 {
			break
		}
		placeholders = append(placeholders, text[i:i+end+1])
		i += end
	}
	return placeholders
}

// GetUsedVars returns a list of variable names that had non-empty values.
// This is useful for debugging and logging which variables were actually used.
func GetUsedVars(vars map[string]string) []string {
	var used []string
	for key, val := range vars {
		if val != "" {
			used = append(used, key)
		}
	}
	return used
}
