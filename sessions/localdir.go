package sessions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/brettbedarf/mtpview"
	"github.com/brettbedarf/mtpview/internal/util"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"
)

// LocalDirStorageID is the single storage a LocalDir device exposes
const LocalDirStorageID mtpview.StorageID = 0x00010001

// LocalDirConfig is the definition of a device emulated over a host directory
type LocalDirConfig struct {
	Root     string `json:"root"`
	ReadOnly bool   `json:"readonly,omitempty"`
	Label    string `json:"label,omitempty"`
}

type pendingUpload struct {
	id  mtpview.ObjectID
	rel string
}

// LocalDir emulates a device over a host directory. Directories are
// Association objects; regular files get their format from the extension.
// Handles are assigned on first sight of a path and stay stable for the
// lifetime of the session
type LocalDir struct {
	root     string
	readOnly bool
	label    string
	serial   string

	byPath *xsync.Map[string, mtpview.ObjectID] // slash separated path relative to root
	byID   *xsync.Map[mtpview.ObjectID, string]
	nextID atomic.Uint32

	pending *pendingUpload
}

func NewLocalDir(cfg LocalDirConfig) (*LocalDir, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("localdir: root is required")
	}
	abs, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("localdir: %s is not a directory", abs)
	}

	d := &LocalDir{
		root:     abs,
		readOnly: cfg.ReadOnly,
		label:    cfg.Label,
		serial:   uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+abs)).String(),
		byPath:   xsync.NewMap[string, mtpview.ObjectID](),
		byID:     xsync.NewMap[mtpview.ObjectID, string](),
	}
	if d.label == "" {
		d.label = filepath.Base(abs)
	}

	logger := util.GetLogger("LocalDir.New")
	logger.Debug().Str("root", abs).Bool("readonly", d.readOnly).Msg("Opened local directory session")
	return d, nil
}

// Root returns the absolute host path backing the device
func (d *LocalDir) Root() string {
	return d.root
}

func (d *LocalDir) handle(rel string) mtpview.ObjectID {
	id, _ := d.byPath.LoadOrCompute(rel, func() (mtpview.ObjectID, bool) {
		id := mtpview.ObjectID(d.nextID.Add(1))
		d.byID.Store(id, rel)
		return id, false
	})
	return id
}

// resolve maps a handle to its relative path. Root maps to ""
func (d *LocalDir) resolve(id mtpview.ObjectID) (string, error) {
	if id == mtpview.Root {
		return "", nil
	}
	rel, ok := d.byID.Load(id)
	if !ok {
		return "", fmt.Errorf("%w: %d", mtpview.ErrObjectNotFound, id)
	}
	return rel, nil
}

func (d *LocalDir) hostPath(rel string) string {
	return filepath.Join(d.root, filepath.FromSlash(rel))
}

// forget drops the handles of rel and everything below it
func (d *LocalDir) forget(rel string) {
	prefix := rel + "/"
	d.byPath.Range(func(p string, id mtpview.ObjectID) bool {
		if p == rel || strings.HasPrefix(p, prefix) {
			d.byPath.Delete(p)
			d.byID.Delete(id)
		}
		return true
	})
}

// move rewrites the handles below oldRel to live under newRel, keeping ids
func (d *LocalDir) move(oldRel, newRel string) {
	prefix := oldRel + "/"
	d.byID.Range(func(id mtpview.ObjectID, p string) bool {
		var moved string
		switch {
		case p == oldRel:
			moved = newRel
		case strings.HasPrefix(p, prefix):
			moved = newRel + "/" + strings.TrimPrefix(p, prefix)
		default:
			return true
		}
		d.byPath.Delete(p)
		d.byPath.Store(moved, id)
		d.byID.Store(id, moved)
		return true
	})
}

func (d *LocalDir) checkWritable() error {
	if d.readOnly {
		return mtpview.ErrReadOnly
	}
	return nil
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid filename %q", name)
	}
	return nil
}

func joinRel(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

func (d *LocalDir) containerPath(parent mtpview.ObjectID) (string, error) {
	rel, err := d.resolve(parent)
	if err != nil {
		return "", err
	}
	st, err := os.Stat(d.hostPath(rel))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			d.forget(rel)
			return "", fmt.Errorf("%w: %d", mtpview.ErrObjectNotFound, parent)
		}
		return "", err
	}
	if !st.IsDir() {
		return "", fmt.Errorf("%w: %d", mtpview.ErrNotContainer, parent)
	}
	return rel, nil
}

func formatOf(name string, isDir bool) mtpview.ObjectFormat {
	if isDir {
		return mtpview.FormatAssociation
	}
	return mtpview.FormatFromFilename(name)
}

func (d *LocalDir) GetObjectHandles(ctx context.Context, storage mtpview.StorageID, format mtpview.ObjectFormat, parent mtpview.ObjectID) ([]mtpview.ObjectID, error) {
	if storage != mtpview.AllStorages && storage != LocalDirStorageID {
		return []mtpview.ObjectID{}, nil
	}
	rel, err := d.containerPath(parent)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(d.hostPath(rel))
	if err != nil {
		return nil, err
	}

	handles := make([]mtpview.ObjectID, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && !e.Type().IsRegular() {
			continue
		}
		if format != mtpview.AllFormats && formatOf(e.Name(), e.IsDir()) != format {
			continue
		}
		handles = append(handles, d.handle(joinRel(rel, e.Name())))
	}
	return handles, nil
}

func (d *LocalDir) GetObjectInfo(ctx context.Context, id mtpview.ObjectID) (*mtpview.ObjectInfo, error) {
	rel, err := d.resolve(id)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(d.hostPath(rel))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			d.forget(rel)
			return nil, fmt.Errorf("%w: %d", mtpview.ErrObjectNotFound, id)
		}
		return nil, err
	}

	parent := mtpview.Root
	if dir := filepath.ToSlash(filepath.Dir(filepath.FromSlash(rel))); dir != "." {
		parent = d.handle(dir)
	}
	info := &mtpview.ObjectInfo{
		StorageID:        LocalDirStorageID,
		ObjectFormat:     formatOf(st.Name(), st.IsDir()),
		ParentObject:     parent,
		Filename:         st.Name(),
		CaptureDate:      st.ModTime(),
		ModificationDate: st.ModTime(),
	}
	if st.IsDir() {
		info.AssociationType = mtpview.AssociationGenericFolder
	} else {
		info.ObjectCompressedSize = uint64(st.Size())
	}
	if d.readOnly {
		info.ProtectionStatus = 0x0001
	}
	return info, nil
}

func (d *LocalDir) SetObjectProperty(ctx context.Context, id mtpview.ObjectID, prop mtpview.ObjectProperty, value string) error {
	if err := d.checkWritable(); err != nil {
		return err
	}
	if prop != mtpview.PropObjectFilename {
		return fmt.Errorf("unsupported object property 0x%04x", uint16(prop))
	}
	if err := validName(value); err != nil {
		return err
	}
	rel, err := d.resolve(id)
	if err != nil {
		return err
	}
	if rel == "" {
		return fmt.Errorf("cannot rename the root container")
	}

	dir := filepath.ToSlash(filepath.Dir(filepath.FromSlash(rel)))
	if dir == "." {
		dir = ""
	}
	newRel := joinRel(dir, value)
	if newRel == rel {
		return nil
	}
	if _, err := os.Lstat(d.hostPath(newRel)); err == nil {
		return fmt.Errorf("rename %q: %w", value, os.ErrExist)
	}
	if err := os.Rename(d.hostPath(rel), d.hostPath(newRel)); err != nil {
		return err
	}
	d.move(rel, newRel)
	return nil
}

func (d *LocalDir) DeleteObject(ctx context.Context, id mtpview.ObjectID) error {
	if err := d.checkWritable(); err != nil {
		return err
	}
	if id == mtpview.Root {
		return fmt.Errorf("cannot delete the root container")
	}
	rel, err := d.resolve(id)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(d.hostPath(rel)); err != nil {
		return err
	}
	if d.pending != nil && d.pending.id == id {
		d.pending = nil
	}
	d.forget(rel)
	return nil
}

func (d *LocalDir) SendObjectInfo(ctx context.Context, info *mtpview.ObjectInfo, storage mtpview.StorageID, parent mtpview.ObjectID) (mtpview.NewObjectInfo, error) {
	if err := d.checkWritable(); err != nil {
		return mtpview.NewObjectInfo{}, err
	}
	if storage != mtpview.AnyStorage && storage != LocalDirStorageID {
		return mtpview.NewObjectInfo{}, fmt.Errorf("unknown storage 0x%08x", uint32(storage))
	}
	if err := validName(info.Filename); err != nil {
		return mtpview.NewObjectInfo{}, err
	}
	dir, err := d.containerPath(parent)
	if err != nil {
		return mtpview.NewObjectInfo{}, err
	}

	rel := joinRel(dir, info.Filename)
	p := d.hostPath(rel)
	d.pending = nil
	if info.IsContainer() {
		if err := os.Mkdir(p, 0o755); err != nil {
			return mtpview.NewObjectInfo{}, err
		}
	} else {
		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			return mtpview.NewObjectInfo{}, err
		}
		f.Close()
	}

	id := d.handle(rel)
	if !info.IsContainer() {
		d.pending = &pendingUpload{id: id, rel: rel}
	}
	return mtpview.NewObjectInfo{StorageID: LocalDirStorageID, ParentObject: parent, ObjectID: id}, nil
}

func (d *LocalDir) SendObject(ctx context.Context, r io.Reader, size int64) error {
	if d.pending == nil {
		return mtpview.ErrNoPendingObject
	}
	pu := d.pending
	d.pending = nil

	f, err := os.OpenFile(d.hostPath(pu.rel), os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	n, err := io.CopyN(f, r, size)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("payload truncated after %d of %d bytes: %w", n, size, err)
	}
	return nil
}

func (d *LocalDir) GetObject(ctx context.Context, id mtpview.ObjectID, w io.Writer) error {
	rel, err := d.resolve(id)
	if err != nil {
		return err
	}
	f, err := os.Open(d.hostPath(rel))
	if err != nil {
		return err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return err
	}
	if st.IsDir() {
		return fmt.Errorf("object %d is a container", id)
	}
	_, err = io.Copy(w, f)
	return err
}

func (d *LocalDir) GetDeviceInfo(ctx context.Context) (*mtpview.DeviceInfo, error) {
	return &mtpview.DeviceInfo{
		Manufacturer:  "mtpview",
		Model:         "Local Directory",
		DeviceVersion: "1.0",
		SerialNumber:  d.serial,
	}, nil
}

func (d *LocalDir) GetStorageIDs(ctx context.Context) ([]mtpview.StorageID, error) {
	return []mtpview.StorageID{LocalDirStorageID}, nil
}

func (d *LocalDir) GetStorageInfo(ctx context.Context, storage mtpview.StorageID) (*mtpview.StorageInfo, error) {
	if storage != LocalDirStorageID {
		return nil, fmt.Errorf("unknown storage 0x%08x", uint32(storage))
	}
	si := &mtpview.StorageInfo{
		StorageID:          LocalDirStorageID,
		StorageDescription: d.root,
		VolumeLabel:        d.label,
	}
	var st syscall.Statfs_t
	if err := syscall.Statfs(d.root, &st); err == nil {
		si.MaxCapacity = st.Blocks * uint64(st.Bsize)
		si.FreeSpaceInBytes = st.Bavail * uint64(st.Bsize)
	}
	return si, nil
}

func (d *LocalDir) Close() error {
	d.pending = nil
	return nil
}

var _ mtpview.Session = (*LocalDir)(nil)
