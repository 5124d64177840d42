package errors

import "errors"

var (
	ErrBusy      = errors.New("another task is running")
	ErrCancelled = errors.New("cancelled")
	ErrNoContent = errors.New("document has no processable content")
)

func IsBusy(err error) bool {
	return errors.Is(err, ErrBusy)
}

func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
