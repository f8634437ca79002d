package common

import "fmt"

// StoreErrType classifies the errors returned by ledger and registry lookups.
type StoreErrType uint32

const (
	// KeyNotFound is returned when the requested record does not exist.
	KeyNotFound StoreErrType = iota
	// Empty is returned when a collection contains no items.
	Empty
	// KeyAlreadyExists is returned when inserting a record that is already
	// present.
	KeyAlreadyExists
	// PassedIndex is returned when the requested index was already evicted.
	PassedIndex
)

// StoreErr is an error returned by a store lookup. It carries the name of the
// underlying collection and the offending key.
type StoreErr struct {
	dataType string
	errType  StoreErrType
	key      string
}

// NewStoreErr creates a new StoreErr
func NewStoreErr(dataType string, errType StoreErrType, key string) StoreErr {
	return StoreErr{
		dataType: dataType,
		errType:  errType,
		key:      key,
	}
}

// Error implements the error interface
func (e StoreErr) Error() string {
	m := ""
	switch e.errType {
	case KeyNotFound:
		m = "Not Found"
	case Empty:
		m = "Empty"
	case KeyAlreadyExists:
		m = "Key Already Exists"
	case PassedIndex:
		m = "Passed Index"
	}

	return fmt.Sprintf("%s, %s, %s", e.dataType, e.key, m)
}

// IsStore checks that an error is of type StoreErr and that its code matches
// the provided StoreErr code.
func IsStore(err error, t StoreErrType) bool {
	storeErr, ok := err.(StoreErr)
	return ok && storeErr.errType == t
}
