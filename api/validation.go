package api

import "fmt"

// ValidationError is one rule violation found by the validator engine.
type ValidationError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (v ValidationError) String() string {
	if v.Field == "" {
		return fmt.Sprintf("%s: %s", v.Code, v.Message)
	}
	return fmt.Sprintf("%s (%s): %s", v.Code, v.Field, v.Message)
}

// ValidationReport is the full result of running a document through the
// validator engine. All violations are listed, not just the first.
type ValidationReport struct {
	OK     bool              `json:"ok"`
	Errors []ValidationError `json:"errors,omitempty"`
}

func (r *ValidationReport) Add(code, field, message string) {
	r.Errors = append(r.Errors, ValidationError{Code: code, Field: field, Message: message})
}

func (r *ValidationReport) Merge(other ValidationReport) {
	r.Errors = append(r.Errors, other.Errors...)
}

// Finalize sets OK from the collected errors and returns the report by value.
func (r *ValidationReport) Finalize() ValidationReport {
	r.OK = len(r.Errors) == 0
	return *r
}
