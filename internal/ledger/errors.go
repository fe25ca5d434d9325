package ledger

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Every writer rejects with one of these before any row is changed.

var (
	// Validation
	ErrInvalidAmount     = errors.New("amount must be a positive number")
	ErrInvalidFee        = errors.New("fee must be zero or a positive number")
	ErrInvalidType       = errors.New("invalid type")
	ErrMissingField      = errors.New("required field is missing")
	ErrFutureDate        = errors.New("date cannot be later than today")
	ErrSelfTransfer      = errors.New("cannot transfer to the same account")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrOverpayment       = errors.New("payment exceeds the payable balance")
	ErrAlreadySettled    = errors.New("receivable is already paid")

	// Not found
	ErrAccountNotFound     = errors.New("account not found")
	ErrPayableNotFound     = errors.New("payable not found")
	ErrReceivableNotFound  = errors.New("receivable not found")
	ErrTransactionNotFound = errors.New("transaction not found")

	// Concurrency: a versioned row changed underneath us and retries ran out.
	ErrConflict = errors.New("concurrent update, please retry")
)

var validationErrs = []error{
	ErrInvalidAmount, ErrInvalidFee, ErrInvalidType, ErrMissingField, ErrFutureDate,
	ErrSelfTransfer, ErrInsufficientFunds, ErrOverpayment, ErrAlreadySettled,
}

var notFoundErrs = []error{
	ErrAccountNotFound, ErrPayableNotFound, ErrReceivableNotFound, ErrTransactionNotFound,
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// IsValidation reports whether err was a rejected input or business rule.
func IsValidation(err error) bool { return isAny(err, validationErrs) }

// IsNotFound reports whether err names a missing document.
func IsNotFound(err error) bool { return isAny(err, notFoundErrs) }
