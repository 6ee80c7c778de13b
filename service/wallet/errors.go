package wallet

import "errors"

// Field names an input field a validation failure should clear.
type Field string

const (
	FieldNone      Field = ""
	FieldAmount    Field = "amount"
	FieldRecipient Field = "recipient"
	FieldToken     Field = "token"
)

// ValidationError is a local rejection raised before any network call.
// Clear names the offending input field; it is FieldNone when no field
// should be cleared (the on-curve recipient check keeps the field).
type ValidationError struct {
	Clear  Field
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Sentinel errors for the non-validation failure modes. Network read/write
// failures are returned wrapped and carry no sentinel; callers treat any
// error that matches none of these as a NetworkFailure.
var (
	// ErrSignerUnavailable blocks an operation before submission when the
	// wallet is not connected or cannot sign.
	ErrSignerUnavailable = errors.New("wallet signer unavailable")

	// ErrTransactionFailed reports an on-chain execution error observed in
	// a confirmed signature status.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrConfirmationTimeout reports attempt exhaustion without observing a
	// confirmed status. The operation may still land later; a subsequent
	// balance refresh is the only way to learn the true outcome.
	ErrConfirmationTimeout = errors.New("transaction confirmation timeout")

	// ErrOperationInFlight rejects a duplicate submit while another
	// operation is pending on the same console.
	ErrOperationInFlight = errors.New("another operation is in flight")

	// ErrAirdropUnavailable rejects airdrop requests outside the test
	// network.
	ErrAirdropUnavailable = errors.New("airdrop is only available on devnet")
)

// IsValidation reports whether err is a local validation rejection.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
