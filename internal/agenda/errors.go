package agenda

import (
	"errors"
	"fmt"
)

// ErrUnknownCollection is returned by List for names outside Collections.
var ErrUnknownCollection = errors.New("unknown collection")

// StorageFailure reports that the persistence medium rejected a read or a
// write, or returned data that could not be decoded. When a write fails the
// previously persisted collection is left as it was.
type StorageFailure struct {
	Op  string
	Key string
	Err error
}

func (e *StorageFailure) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageFailure) Unwrap() error { return e.Err }

// IsStorageFailure reports whether err carries a *StorageFailure.
func IsStorageFailure(err error) bool {
	var sf *StorageFailure
	return errors.As(err, &sf)
}
