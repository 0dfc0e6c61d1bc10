package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden          ErrCode = "FORBIDDEN"
	ErrCandidateOnly      ErrCode = "CANDIDATE_ACCESS_ONLY"
	ErrAdminOnly          ErrCode = "ADMIN_ACCESS_ONLY"
	ErrNotInvitedToTest   ErrCode = "NOT_INVITED_TO_TEST"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Session lifecycle ─────────────────────────────────────────────
	ErrTestNotPublished    ErrCode = "TEST_NOT_PUBLISHED"
	ErrSessionNotFound     ErrCode = "SESSION_NOT_FOUND"
	ErrSessionFinished     ErrCode = "SESSION_FINISHED"
	ErrStepOutOfOrder      ErrCode = "VERIFICATION_STEP_OUT_OF_ORDER"
	ErrNotInTestingPhase   ErrCode = "NOT_IN_TESTING_PHASE"
	ErrUnknownQuestion     ErrCode = "UNKNOWN_QUESTION"
	ErrNotCodingQuestion   ErrCode = "NOT_CODING_QUESTION"
	ErrLanguageMismatch    ErrCode = "LANGUAGE_MISMATCH"
	ErrSandboxUnavailable  ErrCode = "SANDBOX_UNAVAILABLE"
	ErrResultNotAvailable  ErrCode = "RESULT_NOT_AVAILABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or access code is incorrect."
	case ErrSessionActive:
		return "You are already logged in on another device."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrCandidateOnly:
		return "This resource is restricted to candidates."
	case ErrAdminOnly:
		return "This resource is restricted to administrators."
	case ErrNotInvitedToTest:
		return "You are not invited to this test."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Session lifecycle ─────────────────────────────────────────────
	case ErrTestNotPublished:
		return "This test is not currently available."
	case ErrSessionNotFound:
		return "No active test session found."
	case ErrSessionFinished:
		return "This test session has already been submitted."
	case ErrStepOutOfOrder:
		return "Complete the previous verification step first."
	case ErrNotInTestingPhase:
		return "This action is only available during the test."
	case ErrUnknownQuestion:
		return "The question does not belong to this test."
	case ErrNotCodingQuestion:
		return "Code can only be run against a coding question."
	case ErrLanguageMismatch:
		return "The code does not match the selected language."
	case ErrSandboxUnavailable:
		return "The code execution service is temporarily unavailable."
	case ErrResultNotAvailable:
		return "The result for this session is not available yet."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
