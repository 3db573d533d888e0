package payment

import "fmt"

// Error codes returned by the payment gate. Codes are stable strings the
// client can match on; messages are safe for transport and never contain
// raw internal error text.
const (
	// Input errors (400)
	ErrTextRequired       = "text_required"
	ErrMalformedProof     = "malformed_payment_proof"
	ErrUnsupportedVersion = "unsupported_x402_version"
	ErrUnsupportedScheme  = "unsupported_scheme"
	ErrInvalidTransaction = "invalid_transaction"

	// Payment errors (402)
	ErrEmptyTransaction      = "empty_transaction"
	ErrNoTransferInstruction = "no_transfer_instruction"
	ErrMalformedInstruction  = "malformed_transfer_instruction"
	ErrInsufficientAmount    = "insufficient_amount"
	ErrProofReplayed         = "payment_proof_already_used"

	// Settlement errors (500)
	ErrBroadcastFailed    = "settlement_broadcast_failed"
	ErrConfirmationFailed = "settlement_confirmation_failed"

	// Payment captured but the downstream record write failed (500).
	// Alertable: represents money taken with no content delivered.
	ErrFulfillmentInconsistency = "fulfillment_inconsistency"
)

// GateError is the error type produced by every stage of the payment gate.
type GateError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *GateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewGateError creates a gate error with the given code and safe message.
func NewGateError(code, message string) *GateError {
	return &GateError{Code: code, Message: message}
}

// WithDetail attaches a key/value pair to the error's details map.
// Details are returned to the client, so only non-sensitive
// reconciliation data (amounts, signatures) belongs here.
func (e *GateError) WithDetail(key string, value interface{}) *GateError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// StatusCode maps an error code onto the HTTP status the gate responds
// with: input errors are 400, payment shortfalls 402, settlement and
// fulfillment faults 500.
func StatusCode(code string) int {
	switch code {
	case ErrTextRequired, ErrMalformedProof, ErrUnsupportedVersion, ErrUnsupportedScheme, ErrInvalidTransaction:
		return 400
	case ErrEmptyTransaction, ErrNoTransferInstruction, ErrMalformedInstruction, ErrInsufficientAmount, ErrProofReplayed:
		return 402
	default:
		return 500
	}
}
