package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Payload Encoding (QR) ----

func ErrInvalidProxyType(kind string) *AppError {
	return New("QR_001", fmt.Sprintf("Unsupported proxy type %q", kind), http.StatusBadRequest)
}

func ErrProxyValueRequired() *AppError {
	return New("QR_002", "Exactly one proxy identifier (UEN or mobile) must be set", http.StatusBadRequest)
}

func ErrInvalidMobile(value string) *AppError {
	return New("QR_003", fmt.Sprintf("Mobile number %q is not a valid Singapore number", value), http.StatusBadRequest)
}

func ErrInvalidUEN(value string) *AppError {
	return New("QR_004", fmt.Sprintf("UEN %q is not valid", value), http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New("QR_005", "Amount must be greater than zero", http.StatusBadRequest)
}

func ErrInvalidReference(reason string) *AppError {
	return New("QR_006", "Invalid reference: "+reason, http.StatusBadRequest)
}

func ErrUnsupportedCurrency(currency string) *AppError {
	return New("QR_007", fmt.Sprintf("Currency %q is not supported", currency), http.StatusBadRequest)
}

// ErrEncodingInvariant signals a defensive self-check failure in the encoder.
// The payload that triggered it is never returned to the caller.
func ErrEncodingInvariant(err error) *AppError {
	return Wrap("QR_010", "Payload encoding invariant violated", http.StatusInternalServerError, err)
}

// ---- Payment Intent Lifecycle (INT) ----

func ErrIntentNotFound() *AppError {
	return New("INT_001", "Payment intent not found", http.StatusNotFound)
}

func ErrIntentAlreadyResolved(status string) *AppError {
	return New("INT_002", fmt.Sprintf("Payment intent is already %s", status), http.StatusConflict)
}

func ErrInvalidOutcome(outcome string) *AppError {
	return New("INT_003", fmt.Sprintf("Outcome %q is not a valid resolution", outcome), http.StatusBadRequest)
}

// ---- Merchant / Terminal Directory (DIR) ----

func ErrTerminalNotFound() *AppError {
	return New("DIR_001", "Terminal not found", http.StatusNotFound)
}

func ErrMerchantNotFound() *AppError {
	return New("DIR_002", "Merchant not found", http.StatusNotFound)
}

func ErrMerchantProxyMisconfigured() *AppError {
	return New("DIR_003", "Merchant must carry exactly one payment proxy identifier", http.StatusBadRequest)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrInvalidDeviceKey() *AppError {
	return New("AUTH_002", "Invalid terminal device key", http.StatusUnauthorized)
}

func ErrInvalidOperatorKey() *AppError {
	return New("AUTH_003", "Invalid operator key", http.StatusUnauthorized)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a generic request validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}
