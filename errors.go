package mtpview

import "errors"

var (
	ErrNoSession       = errors.New("no session")
	ErrUnknownFormat   = errors.New("unknown object format")
	ErrInvalidRow      = errors.New("row out of range")
	ErrInvalidRange    = errors.New("row range out of bounds")
	ErrObjectNotFound  = errors.New("object not found")
	ErrNotContainer    = errors.New("object is not a container")
	ErrNoPendingObject = errors.New("no object info sent before payload")
	ErrReadOnly        = errors.New("session is read-only")
	ErrStoreFull       = errors.New("store full")
)
