package repositories

import "errors"

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateKey  = errors.New("duplicate key")
	ErrAttemptClosed = errors.New("attempt already closed")
	// ErrEmptyVerdict guards the close: a verdict without a result would leave the attempt open.
	ErrEmptyVerdict = errors.New("verdict has no result")
)

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsDuplicateKeyError(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}
