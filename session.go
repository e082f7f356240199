// Package mtpview contains core domain types and interfaces for browsing
// objects on an MTP device
package mtpview

import (
	"context"
	"io"
)

// Session is the protocol client for one connected device. Implementations
// perform one blocking request/response exchange per call.
//
// NOTE: Sessions are not safe for concurrent use. Wrap with sessions.Locked
// when more than one goroutine needs access
type Session interface {
	// GetObjectHandles lists the objects directly under parent.
	// Use AllStorages / AllFormats to avoid filtering
	GetObjectHandles(ctx context.Context, storage StorageID, format ObjectFormat, parent ObjectID) ([]ObjectID, error)

	// GetObjectInfo fetches the metadata dataset for a single object
	GetObjectInfo(ctx context.Context, id ObjectID) (*ObjectInfo, error)

	// SetObjectProperty sets a string valued object property
	SetObjectProperty(ctx context.Context, id ObjectID, prop ObjectProperty, value string) error

	DeleteObject(ctx context.Context, id ObjectID) error

	// SendObjectInfo announces a new object under parent and returns the
	// handle the device assigned to it. Non container objects must be
	// followed by SendObject with the payload
	SendObjectInfo(ctx context.Context, info *ObjectInfo, storage StorageID, parent ObjectID) (NewObjectInfo, error)

	// SendObject streams size bytes from r as the payload of the object
	// announced by the last SendObjectInfo
	SendObject(ctx context.Context, r io.Reader, size int64) error

	// GetObject streams the payload of id into w
	GetObject(ctx context.Context, id ObjectID, w io.Writer) error

	GetDeviceInfo(ctx context.Context) (*DeviceInfo, error)
	GetStorageIDs(ctx context.Context) ([]StorageID, error)
	GetStorageInfo(ctx context.Context, storage StorageID) (*StorageInfo, error)

	Close() error
}
