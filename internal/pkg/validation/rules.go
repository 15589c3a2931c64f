package validation

import (
	"regexp"
)

// Validation rule patterns
var (
	EmailPattern = `^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`

	// Student numbers differ between universities; accept short alphanumeric IDs
	StudentNumberPattern = `^[0-9A-Za-z\-]{4,20}$`

	// Course codes are a single token such as CS211 or COMP-101
	CourseCodePattern = `^\S+$`

	PasswordMinLength   = 8
	CourseCodeMaxLength = 50
	NameMaxLength       = 255
	MaxCredits          = 30
)

// CompiledPatterns caches compiled regex patterns
var CompiledPatterns = struct {
	Email         *regexp.Regexp
	StudentNumber *regexp.Regexp
	CourseCode    *regexp.Regexp
}{
	Email:         regexp.MustCompile(EmailPattern),
	StudentNumber: regexp.MustCompile(StudentNumberPattern),
	CourseCode:    regexp.MustCompile(CourseCodePattern),
}

// StringValidation checks a single string value
type StringValidation struct {
	Value    string
	MinLen   int
	MaxLen   int
	Required bool
	Pattern  *regexp.Regexp
}

// NewStringValidation creates a new string validation
func NewStringValidation(value string) *StringValidation {
	return &StringValidation{
		Value:    value,
		Required: true,
	}
}

// WithMinLength sets minimum length
func (v *StringValidation) WithMinLength(min int) *StringValidation {
	v.MinLen = min
	return v
}

// WithMaxLength sets maximum length
func (v *StringValidation) WithMaxLength(max int) *StringValidation {
	v.MaxLen = max
	return v
}

// WithPattern sets regex pattern
func (v *StringValidation) WithPattern(pattern *regexp.Regexp) *StringValidation {
	v.Pattern = pattern
	return v
}

// WithRequired sets if field is required
func (v *StringValidation) WithRequired(required bool) *StringValidation {
	v.Required = required
	return v
}

// Validate performs validation
func (v *StringValidation) Validate() bool {
	if v.Value == "" {
		return !v.Required
	}
	if v.MinLen > 0 && len(v.Value) < v.MinLen {
		return false
	}
	if v.MaxLen > 0 && len(v.Value) > v.MaxLen {
		return false
	}
	if v.Pattern != nil && !v.Pattern.MatchString(v.Value) {
		return false
	}
	return true
}

// NumericValidation checks an integer against an inclusive range. A zero
// bound is not enforced.
type NumericValidation struct {
	Value int
	Min   int
	Max   int
}

// NewNumericValidation creates a new numeric validation
func NewNumericValidation(value int) *NumericValidation {
	return &NumericValidation{Value: value}
}

// WithMin sets minimum value
func (v *NumericValidation) WithMin(min int) *NumericValidation {
	v.Min = min
	return v
}

// WithMax sets maximum value
func (v *NumericValidation) WithMax(max int) *NumericValidation {
	v.Max = max
	return v
}

// Validate performs validation
func (v *NumericValidation) Validate() bool {
	if v.Min != 0 && v.Value < v.Min {
		return false
	}
	if v.Max != 0 && v.Value > v.Max {
		return false
	}
	return true
}
