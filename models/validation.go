package models

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gobuffalo/validate/v3"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/fin"
)

// Model validation tool
var mValidate *validator.Validate

var fieldValidators = map[string]func(validator.FieldLevel) bool{
	"appRole":            validateAppRole,
	"agreementType":      validateAgreementType,
	"agreementStatus":    validateAgreementStatus,
	"documentType":       validateInterventionDocumentType,
	"interventionStatus": validateInterventionStatus,
	"engagementType":     validateEngagementType,
	"engagementStatus":   validateEngagementStatus,
	"organizationType":   validateOrganizationType,
	"snapshotAction":     validateSnapshotAction,
}

func validateModel(m interface{}) *validate.Errors {
	vErrs := validate.NewErrors()

	if err := mValidate.Struct(m); err != nil {
		for _, err := range err.(validator.ValidationErrors) {
			vErrs.Add(err.StructNamespace(), err.Error())
		}
	}
	return vErrs
}

// flattenPopErrors - pop validation errors are complex structures, this flattens them to a simple string
func flattenPopErrors(popErrs *validate.Errors) string {
	var msgs []string
	for key, val := range popErrs.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", key, strings.Join(val, ", ")))
	}
	msg := strings.Join(msgs, " |")
	return msg
}

func validateAppRole(field validator.FieldLevel) bool {
	if value, ok := field.Field().Interface().(Role); ok {
		_, valid := validRoles[value]
		return valid
	}
	return false
}

func validateAgreementType(field validator.FieldLevel) bool {
	if value, ok := field.Field().Interface().(api.AgreementType); ok {
		_, valid := ValidAgreementTypes[value]
		return valid
	}
	return false
}

func validateAgreementStatus(field validator.FieldLevel) bool {
	if value, ok := field.Field().Interface().(api.AgreementStatus); ok {
		_, valid := ValidAgreementStatuses[value]
		return valid
	}
	return false
}

func validateInterventionDocumentType(field validator.FieldLevel) bool {
	if value, ok := field.Field().Interface().(api.InterventionDocumentType); ok {
		_, valid := ValidInterventionDocumentTypes[value]
		return valid
	}
	return false
}

func validateInterventionStatus(field validator.FieldLevel) bool {
	if value, ok := field.Field().Interface().(api.InterventionStatus); ok {
		_, valid := ValidInterventionStatuses[value]
		return valid
	}
	return false
}

func validateEngagementType(field validator.FieldLevel) bool {
	if value, ok := field.Field().Interface().(api.EngagementType); ok {
		_, valid := ValidEngagementTypes[value]
		return valid
	}
	return false
}

func validateEngagementStatus(field validator.FieldLevel) bool {
	if value, ok := field.Field().Interface().(api.EngagementStatus); ok {
		_, valid := ValidEngagementStatuses[value]
		return valid
	}
	return false
}

func validateOrganizationType(field validator.FieldLevel) bool {
	if value, ok := field.Field().Interface().(api.OrganizationType); ok {
		_, valid := ValidOrganizationTypes[value]
		return valid
	}
	return false
}

func validateSnapshotAction(field validator.FieldLevel) bool {
	if value, ok := field.Field().Interface().(api.SnapshotAction); ok {
		_, valid := ValidSnapshotActions[value]
		return valid
	}
	return false
}

func agreementStructLevelValidation(sl validator.StructLevel) {
	agreement, ok := sl.Current().Interface().(Agreement)
	if !ok {
		panic("agreementStructLevelValidation registered to a type other than Agreement")
	}

	if agreement.Start.Valid && agreement.End.Valid && agreement.End.Time.Before(agreement.Start.Time) {
		sl.ReportError(agreement.End, "end", "End", "end_before_start", "")
	}
}

func interventionStructLevelValidation(sl validator.StructLevel) {
	intervention, ok := sl.Current().Interface().(Intervention)
	if !ok {
		panic("interventionStructLevelValidation registered to a type other than Intervention")
	}

	if intervention.Start.Valid && intervention.End.Valid && intervention.End.Time.Before(intervention.Start.Time) {
		sl.ReportError(intervention.End, "end", "End", "end_before_start", "")
	}
}

func engagementStructLevelValidation(sl validator.StructLevel) {
	engagement, ok := sl.Current().Interface().(Engagement)
	if !ok {
		panic("engagementStructLevelValidation registered to a type other than Engagement")
	}

	if engagement.Status == api.EngagementStatusCancelled && engagement.CancelComment == "" {
		sl.ReportError(engagement.CancelComment, "cancel_comment", "CancelComment", "cancel_comment_required", "")
	}
}

func activityItemStructLevelValidation(sl validator.StructLevel) {
	item, ok := sl.Current().Interface().(ActivityItem)
	if !ok {
		panic("activityItemStructLevelValidation registered to a type other than ActivityItem")
	}

	total := fin.ItemTotal(item.NoUnits, item.UnitPrice)
	shares := item.UnicefCash.Add(item.CSOCash).Add(item.UnfundedCash)
	if !total.Equal(shares) {
		sl.ReportError(item.UnicefCash, "unicef_cash", "UnicefCash", "item_shares_mismatch", "")
	}
}
