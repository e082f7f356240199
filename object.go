package mtpview

import "time"

// ObjectID is an opaque device assigned object handle
type ObjectID uint32

// StorageID identifies one storage (internal memory, sd card...) on the device
type StorageID uint32

// ObjectProperty is an MTP object property code
type ObjectProperty uint16

// AssociationType qualifies an Association object
type AssociationType uint16

const (
	// NoObject is the sentinel "none" handle and never names a real object
	NoObject ObjectID = 0
	// Root names the root container when enumerating or creating objects
	Root ObjectID = 0xffffffff

	// AllStorages enumerates across every storage on the device
	AllStorages StorageID = 0xffffffff
	// AnyStorage lets the device pick the storage for a new object
	AnyStorage StorageID = 0

	PropObjectFilename ObjectProperty = 0xdc07

	AssociationUndefined     AssociationType = 0x0000
	AssociationGenericFolder AssociationType = 0x0001
)

// ObjectInfo is the metadata dataset of a single object. Values are
// snapshots; a fetched ObjectInfo is never mutated by the adapter
type ObjectInfo struct {
	StorageID            StorageID
	ObjectFormat         ObjectFormat
	ProtectionStatus     uint16
	ObjectCompressedSize uint64
	ParentObject         ObjectID
	AssociationType      AssociationType
	Filename             string
	CaptureDate          time.Time
	ModificationDate     time.Time
}

// IsContainer reports whether the object can be entered like a directory
func (oi *ObjectInfo) IsContainer() bool {
	return oi != nil && oi.ObjectFormat.IsContainer()
}

// NewObjectInfo is the device response to SendObjectInfo
type NewObjectInfo struct {
	StorageID    StorageID
	ParentObject ObjectID
	ObjectID     ObjectID
}

type DeviceInfo struct {
	Manufacturer  string
	Model         string
	DeviceVersion string
	SerialNumber  string
}

type StorageInfo struct {
	StorageID          StorageID
	StorageDescription string
	VolumeLabel        string
	MaxCapacity        uint64
	FreeSpaceInBytes   uint64
}
