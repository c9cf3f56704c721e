package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// The prefix before the underscore names the owning module.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_015"
)

// Special codes.
const (
	CodeOK      ErrorCode = "OK"
	CodeUnknown ErrorCode = "UNKNOWN"
)

// Chemistry toolkit error codes.
const (
	// ErrCodeNotation: the notation (SMILES, molfile, label block) is malformed.
	ErrCodeNotation ErrorCode = "CTK_001"
	// ErrCodeRGroupNotFound: the requested R-group index is absent.
	ErrCodeRGroupNotFound ErrorCode = "CTK_002"
	// ErrCodeRGroupConsumed: the R-group was already resolved by a merge.
	ErrCodeRGroupConsumed ErrorCode = "CTK_003"
	// ErrCodeRGroupIncompatible: the two sites cannot be chemically joined.
	ErrCodeRGroupIncompatible ErrorCode = "CTK_004"
	ErrCodeManipulatorUnknown ErrorCode = "CTK_005"
	ErrCodeConversionFailed   ErrorCode = "CTK_006"
	ErrCodeAttachmentInvalid  ErrorCode = "CTK_007"
)

// Fragment library error codes.
const (
	ErrCodeFragmentNotFound      ErrorCode = "FRG_001"
	ErrCodeFragmentAlreadyExists ErrorCode = "FRG_002"
)

// Messaging / storage error codes.
const (
	ErrCodeMessagePublishFailed ErrorCode = "MSG_001"
	ErrCodeMessageConsumeFailed ErrorCode = "MSG_002"
	ErrCodeObjectStoreFailed    ErrorCode = "STO_001"
	ErrCodeGraphStoreFailed     ErrorCode = "STO_002"
)

// ErrorCodeHTTPStatus maps codes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusBadRequest,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeFeatureDisabled:    http.StatusNotImplemented,

	ErrCodeNotation:           http.StatusBadRequest,
	ErrCodeRGroupNotFound:     http.StatusNotFound,
	ErrCodeRGroupConsumed:     http.StatusConflict,
	ErrCodeRGroupIncompatible: http.StatusUnprocessableEntity,
	ErrCodeManipulatorUnknown: http.StatusBadRequest,
	ErrCodeConversionFailed:   http.StatusUnprocessableEntity,
	ErrCodeAttachmentInvalid:  http.StatusBadRequest,

	ErrCodeFragmentNotFound:      http.StatusNotFound,
	ErrCodeFragmentAlreadyExists: http.StatusConflict,

	ErrCodeMessagePublishFailed: http.StatusInternalServerError,
	ErrCodeMessageConsumeFailed: http.StatusInternalServerError,
	ErrCodeObjectStoreFailed:    http.StatusBadGateway,
	ErrCodeGraphStoreFailed:     http.StatusBadGateway,
}

// ErrorCodeMessage maps codes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeFeatureDisabled:    "feature disabled",

	ErrCodeNotation:           "invalid chemical notation",
	ErrCodeRGroupNotFound:     "R-group not found",
	ErrCodeRGroupConsumed:     "R-group already consumed",
	ErrCodeRGroupIncompatible: "R-groups are incompatible",
	ErrCodeManipulatorUnknown: "unknown molecule manipulator",
	ErrCodeConversionFailed:   "structure conversion failed",
	ErrCodeAttachmentInvalid:  "invalid attachment definition",

	ErrCodeFragmentNotFound:      "fragment not found",
	ErrCodeFragmentAlreadyExists: "fragment already exists",

	ErrCodeMessagePublishFailed: "failed to publish message",
	ErrCodeMessageConsumeFailed: "failed to consume message",
	ErrCodeObjectStoreFailed:    "object store error",
	ErrCodeGraphStoreFailed:     "graph store error",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
