package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrStatusMismatch is returned by conditional order writes when the stored
// status no longer matches the expected precondition.
var ErrStatusMismatch = stderrors.New("order status precondition failed")

type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Message string
	Details []ValidationDetail
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string, details ...ValidationDetail) *ValidationError {
	return &ValidationError{
		Message: message,
		Details: details,
	}
}

func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if stderrors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{Message: message}
}

func IsNotFoundError(err error) (*NotFoundError, bool) {
	var nf *NotFoundError
	if stderrors.As(err, &nf) {
		return nf, true
	}
	return nil, false
}

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

func IsConflictError(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

type DeadlockError struct {
	Message string
}

func (e *DeadlockError) Error() string {
	return e.Message
}

func NewDeadlockError(message string) *DeadlockError {
	return &DeadlockError{Message: message}
}

func IsDeadlockError(err error) (*DeadlockError, bool) {
	var de *DeadlockError
	if stderrors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// PricingError means the catalog snapshot could not produce a price. It is
// not user-correctable.
type PricingError struct {
	Message string
}

func (e *PricingError) Error() string {
	return e.Message
}

func NewPricingError(message string) *PricingError {
	return &PricingError{Message: message}
}

func IsPricingError(err error) (*PricingError, bool) {
	var pe *PricingError
	if stderrors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// NotEligibleError is returned when an operation targets an order whose status
// or payment method does not allow it.
type NotEligibleError struct {
	Message string
}

func (e *NotEligibleError) Error() string {
	return e.Message
}

func NewNotEligibleError(message string) *NotEligibleError {
	return &NotEligibleError{Message: message}
}

func IsNotEligibleError(err error) (*NotEligibleError, bool) {
	var ne *NotEligibleError
	if stderrors.As(err, &ne) {
		return ne, true
	}
	return nil, false
}

type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

func NewInvalidTransitionError(from, to string) *InvalidTransitionError {
	return &InvalidTransitionError{From: from, To: to}
}

func IsInvalidTransitionError(err error) (*InvalidTransitionError, bool) {
	var te *InvalidTransitionError
	if stderrors.As(err, &te) {
		return te, true
	}
	return nil, false
}

type DecryptionError struct {
	Cause error
}

func (e *DecryptionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("decryption failed: %v", e.Cause)
	}
	return "decryption failed"
}

func (e *DecryptionError) Unwrap() error {
	return e.Cause
}

func NewDecryptionError(cause error) *DecryptionError {
	return &DecryptionError{Cause: cause}
}

func IsDecryptionError(err error) (*DecryptionError, bool) {
	var de *DecryptionError
	if stderrors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// GatewayError wraps payment gateway failures. Retryable is set for timeouts
// and transient upstream errors; signature failures are never retryable.
type GatewayError struct {
	Op        string
	Retryable bool
	Cause     error
}

func (e *GatewayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("gateway %s: %v", e.Op, e.Cause)
	}
	return "gateway " + e.Op + " failed"
}

func (e *GatewayError) Unwrap() error {
	return e.Cause
}

func NewGatewayError(op string, retryable bool, cause error) *GatewayError {
	return &GatewayError{Op: op, Retryable: retryable, Cause: cause}
}

func IsGatewayError(err error) (*GatewayError, bool) {
	var ge *GatewayError
	if stderrors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{
		Message: message,
		Cause:   cause,
	}
}
