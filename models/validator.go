package models

import (
	"fmt"

	"github.com/equitrack/partnership-api/api"
)

// Validation error codes carried in ValidationReport entries
const (
	ValidationCodeFailed          = "VALIDATION_FAILED"
	ValidationCodeRigidField      = "RIGID_FIELD_VIOLATION"
	ValidationCodeTransition      = "TRANSITION_NOT_ALLOWED"
	ValidationCodeFundsMismatch   = "FUNDS_MISMATCH"
	ValidationCodeAmendmentOpen   = "AMENDMENT_ALREADY_OPEN"
	ValidationCodeAmendmentMerged = "AMENDMENT_ALREADY_MERGED"
)

// checkRigidFields rejects changes to fields the mask locks. Inside an open
// amendment copy, fields on the amendment-editable list pass anyway.
func checkRigidFields(report *api.ValidationReport, mask PermissionMask, changedFields []string,
	amendmentEditable map[string]struct{}, inAmendmentCopy bool) {

	for _, field := range changedFields {
		if mask.CanEdit(field) {
			continue
		}
		if inAmendmentCopy {
			if _, ok := amendmentEditable[field]; ok {
				continue
			}
		}
		report.Add(ValidationCodeRigidField, field, fmt.Sprintf("field %s cannot be edited in this state", field))
	}
}

// checkRequiredFields rejects a document missing fields the mask requires.
// present reports, per field, whether the candidate carries a value.
func checkRequiredFields(report *api.ValidationReport, mask PermissionMask, present map[string]bool) {
	for _, field := range mask.RequiredFields() {
		if !present[field] {
			report.Add(ValidationCodeFailed, field, fmt.Sprintf("field %s is required", field))
		}
	}
}

// transitionError is the uniform entry for a failed transition predicate
func transitionError(report *api.ValidationReport, from, to, reason string) {
	report.Add(ValidationCodeTransition, "status",
		fmt.Sprintf("cannot move from %s to %s: %s", from, to, reason))
}
