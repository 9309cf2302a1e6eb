package investment

import "errors"

// Domain errors. Handlers map these onto HTTP statuses; everything else is
// treated as an internal failure.
var (
	// ErrNotFound means the investment does not exist or is not owned by
	// the caller. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("investment not found")

	// ErrTransactionNotFound means the ledger has no entry with that id
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrValidation is the base of every input-rejection error. Nothing is
	// persisted when a mutation fails with it.
	ErrValidation = errors.New("invalid input")
)
