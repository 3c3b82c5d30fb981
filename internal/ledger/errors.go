package ledger

import "errors"

var (
	// ErrNotFound indicates an unknown wallet or transaction identifier.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates a rejected argument: non-positive amount,
	// insufficient balance at creation time, negative reward rate, or a zero
	// minimum-bandwidth threshold.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCryptoOperation indicates a key-generation failure, typically an
	// entropy-source error.
	ErrCryptoOperation = errors.New("crypto operation failed")
)
