package api

const (
	CategoryDatabase     = ErrorCategory("Database")
	CategoryUser         = ErrorCategory("User") // used for errors related to user input, validation, etc.
	CategoryForbidden    = ErrorCategory("Forbidden")
	CategoryUnauthorized = ErrorCategory("Unauthorized")
	CategoryNotFound     = ErrorCategory("NotFound")
	CategoryInternal     = ErrorCategory("Internal") // used for internal server errors, not related to bad user input
)

const (
	// General

	ErrorCreateFailure         = ErrorKey("ErrorCreateFailure")
	ErrorDestroyFailure        = ErrorKey("ErrorDestroyFailure")
	ErrorGenericInternalServer = ErrorKey("ErrorGenericInternalServer")
	ErrorForeignKeyViolation   = ErrorKey("ErrorForeignKeyViolation")
	ErrorInvalidRequestBody    = ErrorKey("ErrorInvalidRequestBody")
	ErrorMustBeAValidUUID      = ErrorKey("ErrorMustBeAValidUUID")
	ErrorNoRows                = ErrorKey("ErrorNoRows")
	ErrorNotAuthorized         = ErrorKey("ErrorNotAuthorized")
	ErrorQueryFailure          = ErrorKey("ErrorQueryFailure")
	ErrorSaveFailure           = ErrorKey("ErrorSaveFailure")
	ErrorTransactionNotFound   = ErrorKey("ErrorTransactionNotFound")
	ErrorUniqueKeyViolation    = ErrorKey("ErrorUniqueKeyViolation")
	ErrorUnknown               = ErrorKey("ErrorUnknown")
	ErrorUpdateFailure         = ErrorKey("ErrorUpdateFailure")
	ErrorValidation            = ErrorKey("ErrorValidation")

	// Authorization
	ErrorInvalidResourceID   = ErrorKey("ErrorInvalidResourceID")
	ErrorResourceNotFound    = ErrorKey("ErrorResourceNotFound")
	ErrorPermissionDenied    = ErrorKey("ErrorPermissionDenied")
	ErrorFindingAccessToken  = ErrorKey("ErrorFindingAccessToken")
	ErrorCreatingAccessToken = ErrorKey("ErrorCreatingAccessToken")

	// Document state engine
	ErrorValidationFailed        = ErrorKey("ErrorValidationFailed")
	ErrorRigidFieldViolation     = ErrorKey("ErrorRigidFieldViolation")
	ErrorTransitionNotAllowed    = ErrorKey("ErrorTransitionNotAllowed")
	ErrorAmendmentAlreadyOpen    = ErrorKey("ErrorAmendmentAlreadyOpen")
	ErrorAmendmentAlreadyMerged  = ErrorKey("ErrorAmendmentAlreadyMerged")
	ErrorFundsMismatch           = ErrorKey("ErrorFundsMismatch")
	ErrorReferenceNumberConflict = ErrorKey("ErrorReferenceNumberConflict")

	// Agreement
	ErrorAgreementFromContext = ErrorKey("ErrorAgreementFromContext")
	ErrorAgreementStatus      = ErrorKey("ErrorAgreementStatus")

	// Intervention
	ErrorInterventionFromContext = ErrorKey("ErrorInterventionFromContext")
	ErrorInterventionStatus      = ErrorKey("ErrorInterventionStatus")
	ErrorInterventionBudget      = ErrorKey("ErrorInterventionBudget")

	// Engagement
	ErrorEngagementFromContext = ErrorKey("ErrorEngagementFromContext")
	ErrorEngagementStatus      = ErrorKey("ErrorEngagementStatus")

	// Results framework
	ErrorResultsFrameworkCode = ErrorKey("ErrorResultsFrameworkCode")

	// ERP ingest
	ErrorIngestInvalidRecord = ErrorKey("ErrorIngestInvalidRecord")

	// Attachments
	ErrorAttachmentCode           = ErrorKey("ErrorAttachmentCode")
	ErrorAttachmentAlreadyLinked  = ErrorKey("ErrorAttachmentAlreadyLinked")
	ErrorFilenameRequired         = ErrorKey("ErrorFilenameRequired")
	ErrorStoreFileTooLarge        = ErrorKey("ErrorStoreFileTooLarge")
	ErrorStoreFileBadContentType  = ErrorKey("ErrorStoreFileBadContentType")
	ErrorUnableToStoreFile        = ErrorKey("ErrorUnableToStoreFile")
	ErrorUnableToReadFile         = ErrorKey("ErrorUnableToReadFile")
	ErrorReceivingFile            = ErrorKey("ErrorReceivingFile")
	ErrorAttachmentNotSignedDated = ErrorKey("ErrorAttachmentNotSignedDated")
)
