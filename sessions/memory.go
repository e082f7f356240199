package sessions

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/brettbedarf/mtpview"
	"github.com/brettbedarf/mtpview/internal/util"
	"github.com/google/uuid"
)

const (
	// MemoryStorageID is the single storage a Memory device exposes
	MemoryStorageID mtpview.StorageID = 0x00010001

	defaultMemoryCapacity = 64 << 20
)

// MemoryConfig is the definition of an in-memory device
type MemoryConfig struct {
	Manufacturer string `json:"manufacturer,omitempty"`
	Model        string `json:"model,omitempty"`
	// Capacity in bytes of the single storage. Defaults to 64MiB
	Capacity uint64 `json:"capacity,omitempty"`
	// Files seeds the device: slash separated path -> contents.
	// Intermediate folders are created as needed; a trailing slash creates an
	// empty folder
	Files map[string]string `json:"files,omitempty"`
}

type memObject struct {
	info mtpview.ObjectInfo
	data []byte
}

// Memory is a device held entirely in memory
type Memory struct {
	device   mtpview.DeviceInfo
	capacity uint64
	objects  map[mtpview.ObjectID]*memObject
	order    []mtpview.ObjectID // creation order
	nextID   mtpview.ObjectID
	pending  mtpview.ObjectID // announced by SendObjectInfo, awaiting payload
	used     uint64
	now      func() time.Time
}

func NewMemory(cfg MemoryConfig) (*Memory, error) {
	m := &Memory{
		device: mtpview.DeviceInfo{
			Manufacturer:  cfg.Manufacturer,
			Model:         cfg.Model,
			DeviceVersion: "1.0",
			SerialNumber:  uuid.NewString(),
		},
		capacity: cfg.Capacity,
		objects:  map[mtpview.ObjectID]*memObject{},
		nextID:   1,
		now:      time.Now,
	}
	if m.device.Manufacturer == "" {
		m.device.Manufacturer = "mtpview"
	}
	if m.device.Model == "" {
		m.device.Model = "Memory Device"
	}
	if m.capacity == 0 {
		m.capacity = defaultMemoryCapacity
	}

	paths := make([]string, 0, len(cfg.Files))
	for p := range cfg.Files {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	for _, p := range paths {
		if err := m.seed(p, cfg.Files[p]); err != nil {
			return nil, fmt.Errorf("seed %q: %w", p, err)
		}
	}
	return m, nil
}

func (m *Memory) seed(p, contents string) error {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	dirOnly := strings.HasSuffix(p, "/")
	parent := mtpview.Root
	for i, name := range parts {
		if name == "" {
			continue
		}
		last := i == len(parts)-1
		if last && !dirOnly {
			info := &mtpview.ObjectInfo{
				Filename:             name,
				ObjectFormat:         mtpview.FormatFromFilename(name),
				ObjectCompressedSize: uint64(len(contents)),
			}
			if _, err := m.SendObjectInfo(context.Background(), info, mtpview.AnyStorage, parent); err != nil {
				return err
			}
			return m.SendObject(context.Background(), strings.NewReader(contents), int64(len(contents)))
		}
		if id := m.child(parent, name); id != mtpview.NoObject {
			parent = id
			continue
		}
		noi, err := m.SendObjectInfo(context.Background(), &mtpview.ObjectInfo{
			Filename:        name,
			ObjectFormat:    mtpview.FormatAssociation,
			AssociationType: mtpview.AssociationGenericFolder,
		}, mtpview.AnyStorage, parent)
		if err != nil {
			return err
		}
		parent = noi.ObjectID
	}
	return nil
}

func (m *Memory) child(parent mtpview.ObjectID, name string) mtpview.ObjectID {
	for _, id := range m.order {
		o := m.objects[id]
		if o.info.ParentObject == parent && o.info.Filename == name {
			return id
		}
	}
	return mtpview.NoObject
}

func (m *Memory) lookup(id mtpview.ObjectID) (*memObject, error) {
	o, ok := m.objects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", mtpview.ErrObjectNotFound, id)
	}
	return o, nil
}

// checkParent verifies parent is Root or an existing container
func (m *Memory) checkParent(parent mtpview.ObjectID) error {
	if parent == mtpview.Root {
		return nil
	}
	o, err := m.lookup(parent)
	if err != nil {
		return err
	}
	if !o.info.IsContainer() {
		return fmt.Errorf("%w: %d", mtpview.ErrNotContainer, parent)
	}
	return nil
}

func (m *Memory) GetObjectHandles(ctx context.Context, storage mtpview.StorageID, format mtpview.ObjectFormat, parent mtpview.ObjectID) ([]mtpview.ObjectID, error) {
	if err := m.checkParent(parent); err != nil {
		return nil, err
	}
	handles := []mtpview.ObjectID{}
	for _, id := range m.order {
		info := m.objects[id].info
		if info.ParentObject != parent {
			continue
		}
		if storage != mtpview.AllStorages && info.StorageID != storage {
			continue
		}
		if format != mtpview.AllFormats && info.ObjectFormat != format {
			continue
		}
		handles = append(handles, id)
	}
	return handles, nil
}

func (m *Memory) GetObjectInfo(ctx context.Context, id mtpview.ObjectID) (*mtpview.ObjectInfo, error) {
	o, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	info := o.info
	return &info, nil
}

func (m *Memory) SetObjectProperty(ctx context.Context, id mtpview.ObjectID, prop mtpview.ObjectProperty, value string) error {
	o, err := m.lookup(id)
	if err != nil {
		return err
	}
	if prop != mtpview.PropObjectFilename {
		return fmt.Errorf("unsupported object property 0x%04x", uint16(prop))
	}
	o.info.Filename = value
	o.info.ModificationDate = m.now()
	return nil
}

// DeleteObject removes id and, for containers, everything below it
func (m *Memory) DeleteObject(ctx context.Context, id mtpview.ObjectID) error {
	if _, err := m.lookup(id); err != nil {
		return err
	}
	doomed := map[mtpview.ObjectID]bool{id: true}
	// order is creation order so children always follow their parents
	for _, oid := range m.order {
		if doomed[m.objects[oid].info.ParentObject] {
			doomed[oid] = true
		}
	}
	m.order = slices.DeleteFunc(m.order, func(oid mtpview.ObjectID) bool { return doomed[oid] })
	for oid := range doomed {
		m.used -= uint64(len(m.objects[oid].data))
		delete(m.objects, oid)
	}
	if doomed[m.pending] {
		m.pending = mtpview.NoObject
	}
	return nil
}

func (m *Memory) SendObjectInfo(ctx context.Context, info *mtpview.ObjectInfo, storage mtpview.StorageID, parent mtpview.ObjectID) (mtpview.NewObjectInfo, error) {
	if storage != mtpview.AnyStorage && storage != MemoryStorageID {
		return mtpview.NewObjectInfo{}, fmt.Errorf("unknown storage 0x%08x", uint32(storage))
	}
	if err := m.checkParent(parent); err != nil {
		return mtpview.NewObjectInfo{}, err
	}
	if !info.IsContainer() && info.ObjectCompressedSize > m.capacity-m.used {
		return mtpview.NewObjectInfo{}, fmt.Errorf("%w: %d bytes requested", mtpview.ErrStoreFull, info.ObjectCompressedSize)
	}

	id := m.nextID
	m.nextID++
	now := m.now()
	obj := &memObject{info: *info}
	obj.info.StorageID = MemoryStorageID
	obj.info.ParentObject = parent
	obj.info.ModificationDate = now
	if obj.info.CaptureDate.IsZero() {
		obj.info.CaptureDate = now
	}
	if obj.info.IsContainer() {
		obj.info.ObjectCompressedSize = 0
	}
	m.objects[id] = obj
	m.order = append(m.order, id)

	m.pending = mtpview.NoObject
	if !obj.info.IsContainer() {
		m.pending = id
	}

	logger := util.GetLogger("Memory.SendObjectInfo")
	logger.Trace().Uint32("object_id", uint32(id)).Str("name", info.Filename).Msg("Object announced")
	return mtpview.NewObjectInfo{StorageID: MemoryStorageID, ParentObject: parent, ObjectID: id}, nil
}

func (m *Memory) SendObject(ctx context.Context, r io.Reader, size int64) error {
	if m.pending == mtpview.NoObject {
		return mtpview.ErrNoPendingObject
	}
	o := m.objects[m.pending]
	m.pending = mtpview.NoObject

	if size < 0 || uint64(size) != o.info.ObjectCompressedSize {
		return fmt.Errorf("payload of %d bytes does not match the announced %d", size, o.info.ObjectCompressedSize)
	}
	if uint64(size) > m.capacity-m.used {
		return fmt.Errorf("%w: %d bytes sent", mtpview.ErrStoreFull, size)
	}

	var buf bytes.Buffer
	n, err := io.CopyN(&buf, r, size)
	if err != nil {
		return fmt.Errorf("payload truncated after %d of %d bytes: %w", n, size, err)
	}
	o.data = buf.Bytes()
	o.info.ObjectCompressedSize = uint64(n)
	m.used += uint64(n)
	return nil
}

func (m *Memory) GetObject(ctx context.Context, id mtpview.ObjectID, w io.Writer) error {
	o, err := m.lookup(id)
	if err != nil {
		return err
	}
	if o.info.IsContainer() {
		return fmt.Errorf("object %d is a container", id)
	}
	_, err = w.Write(o.data)
	return err
}

func (m *Memory) GetDeviceInfo(ctx context.Context) (*mtpview.DeviceInfo, error) {
	di := m.device
	return &di, nil
}

func (m *Memory) GetStorageIDs(ctx context.Context) ([]mtpview.StorageID, error) {
	return []mtpview.StorageID{MemoryStorageID}, nil
}

func (m *Memory) GetStorageInfo(ctx context.Context, storage mtpview.StorageID) (*mtpview.StorageInfo, error) {
	if storage != MemoryStorageID {
		return nil, fmt.Errorf("unknown storage 0x%08x", uint32(storage))
	}
	return &mtpview.StorageInfo{
		StorageID:          MemoryStorageID,
		StorageDescription: "Internal Memory",
		VolumeLabel:        m.device.Model,
		MaxCapacity:        m.capacity,
		FreeSpaceInBytes:   m.capacity - m.used,
	}, nil
}

func (m *Memory) Close() error {
	return nil
}

var _ mtpview.Session = (*Memory)(nil)
