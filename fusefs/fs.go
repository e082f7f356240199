// Package fusefs mounts an MTP session as a FUSE filesystem. Every directory
// is backed by a model.ObjectList kept in an expiring LRU, so repeated
// lookups do not enumerate the device again.
package fusefs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/brettbedarf/mtpview"
	"github.com/brettbedarf/mtpview/config"
	"github.com/brettbedarf/mtpview/internal/util"
	"github.com/brettbedarf/mtpview/model"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

var (
	errIsDir    = errors.New("is a directory")
	errNotEmpty = errors.New("directory not empty")
	errCrossDir = errors.New("rename across directories")
)

// FS holds the state shared by all nodes of one mount.
//
// NOTE: mu serializes every session call. Uploads are two calls
// (SendObjectInfo then SendObject) that must not interleave with other
// operations on the device
type FS struct {
	cfg      *config.Config
	session  mtpview.Session
	mu       sync.Mutex
	listings *expirable.LRU[mtpview.ObjectID, *model.ObjectList]
}

func NewFS(session mtpview.Session, cfg *config.Config) *FS {
	ttl := time.Duration(cfg.ListingCacheTTL * float64(time.Second))
	return &FS{
		cfg:      cfg,
		session:  session,
		listings: expirable.NewLRU[mtpview.ObjectID, *model.ObjectList](cfg.ListingCacheSize, nil, ttl),
	}
}

// listing returns the cached listing of parent, enumerating it on a miss.
// mu must be held
func (f *FS) listing(ctx context.Context, parent mtpview.ObjectID) *model.ObjectList {
	if l, ok := f.listings.Get(parent); ok {
		return l
	}
	l := model.NewAt(ctx, f.session, parent)
	f.listings.Add(parent, l)
	return l
}

// find returns the listing of parent and the row named name in it
func (f *FS) find(ctx context.Context, parent mtpview.ObjectID, name string) (*model.ObjectList, int, error) {
	l := f.listing(ctx, parent)
	idx := l.Find(ctx, name)
	if idx < 0 {
		return l, -1, fmt.Errorf("%w: %q", mtpview.ErrObjectNotFound, name)
	}
	return l, idx, nil
}

type entry struct {
	id   mtpview.ObjectID
	info *mtpview.ObjectInfo
}

func (f *FS) lookup(ctx context.Context, parent mtpview.ObjectID, name string) (entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, idx, err := f.find(ctx, parent, name)
	if err != nil {
		return entry{}, err
	}
	info, err := l.Info(ctx, idx)
	if err != nil || info == nil {
		return entry{}, fmt.Errorf("lookup %q: %w", name, errors.Join(err, mtpview.ErrObjectNotFound))
	}
	return entry{id: l.ObjectID(idx), info: info}, nil
}

func (f *FS) readdir(ctx context.Context, parent mtpview.ObjectID) []entry {
	f.mu.Lock()
	defer f.mu.Unlock()

	l := f.listing(ctx, parent)
	entries := make([]entry, 0, l.RowCount())
	for i := range l.RowCount() {
		info, err := l.Info(ctx, i)
		if err != nil || info == nil {
			continue
		}
		entries = append(entries, entry{id: l.ObjectID(i), info: info})
	}
	return entries
}

func (f *FS) getattr(ctx context.Context, id mtpview.ObjectID) (*mtpview.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session.GetObjectInfo(ctx, id)
}

func (f *FS) mkdir(ctx context.Context, parent mtpview.ObjectID, name string) (entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	l := f.listing(ctx, parent)
	if l.Find(ctx, name) >= 0 {
		return entry{}, os.ErrExist
	}
	id, err := l.CreateDirectory(ctx, name)
	if err != nil {
		return entry{}, err
	}
	info, err := l.GetInfo(ctx, id)
	if err != nil {
		return entry{}, err
	}
	return entry{id: id, info: info}, nil
}

// remove deletes the child name of parent. dir selects rmdir semantics
func (f *FS) remove(ctx context.Context, parent mtpview.ObjectID, name string, dir bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, idx, err := f.find(ctx, parent, name)
	if err != nil {
		return err
	}
	id := l.ObjectID(idx)
	isDir := l.IsContainer(ctx, idx)
	switch {
	case dir && !isDir:
		return mtpview.ErrNotContainer
	case !dir && isDir:
		return errIsDir
	case dir:
		handles, err := f.session.GetObjectHandles(ctx, mtpview.AllStorages, mtpview.AllFormats, id)
		if err != nil {
			return err
		}
		if len(handles) > 0 {
			return errNotEmpty
		}
	}

	if _, err := l.RemoveRows(ctx, idx, 1); err != nil {
		return err
	}
	f.listings.Remove(id)
	return nil
}

// rename renames name to newName inside parent. An existing newName is
// replaced unless noReplace is set
func (f *FS) rename(ctx context.Context, parent mtpview.ObjectID, name, newName string, noReplace bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, idx, err := f.find(ctx, parent, name)
	if err != nil {
		return err
	}
	if name == newName {
		return nil
	}
	if existing := l.Find(ctx, newName); existing >= 0 {
		if noReplace {
			return os.ErrExist
		}
		if l.IsContainer(ctx, existing) != l.IsContainer(ctx, idx) {
			return errIsDir
		}
		if _, err := l.RemoveRows(ctx, existing, 1); err != nil {
			return err
		}
		if existing < idx {
			idx--
		}
	}
	return l.Rename(ctx, idx, newName)
}

// upload stores the contents of src as name under parent, replacing the
// object old when set. Returns the new object.
//
// A replacement is staged under a hidden name and only swapped in once the
// payload is on the device, so a failed upload leaves old untouched
func (f *FS) upload(ctx context.Context, parent, old mtpview.ObjectID, src, name string) (entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	logger := util.GetLogger("FS.upload")
	l := f.listing(ctx, parent)
	if format := mtpview.FormatFromFilename(src); format == mtpview.FormatUndefined {
		return entry{}, fmt.Errorf("%w: %s", mtpview.ErrUnknownFormat, name)
	}

	target := name
	if old != mtpview.NoObject {
		target = stagingName(name)
	}
	id, err := l.UploadFile(ctx, src, target)
	if err != nil {
		return entry{}, err
	}

	if old != mtpview.NoObject {
		if idx := l.Index(old); idx >= 0 {
			_, err = l.RemoveRows(ctx, idx, 1)
		} else if err = f.session.DeleteObject(ctx, old); errors.Is(err, mtpview.ErrObjectNotFound) {
			err = nil
		}
		if err != nil {
			logger.Error().Err(err).Uint32("object_id", uint32(old)).Msg("Failed to delete replaced object")
			if idx := l.Index(id); idx >= 0 {
				l.RemoveRows(ctx, idx, 1) // nolint:errcheck
			}
			return entry{}, err
		}
		if err := l.Rename(ctx, l.Index(id), name); err != nil {
			logger.Error().Err(err).Str("staged", target).Str("name", name).Msg("Replacement left under its staging name")
			return entry{}, err
		}
	}

	info, err := l.GetInfo(ctx, id)
	if err != nil {
		return entry{}, err
	}
	return entry{id: id, info: info}, nil
}

// stagingName is a hidden sibling name for a replacement of name
func stagingName(name string) string {
	return ".mtpview-" + uuid.NewString()[:8] + "-" + name
}

// download copies the payload of id into a new temp file positioned at 0.
// The temp file name ends with name
func (f *FS) download(ctx context.Context, id mtpview.ObjectID, name string) (*os.File, error) {
	tmp, err := os.CreateTemp(f.cfg.TempDir, "mtpview-read-*-"+name)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	err = f.session.GetObject(ctx, id, tmp)
	f.mu.Unlock()
	if err == nil {
		_, err = tmp.Seek(0, io.SeekStart)
	}
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, err
	}
	return tmp, nil
}

// statfs sums capacity and free space over all storages
func (f *FS) statfs(ctx context.Context) (total, free uint64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids, err := f.session.GetStorageIDs(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, id := range ids {
		si, err := f.session.GetStorageInfo(ctx, id)
		if err != nil {
			return 0, 0, err
		}
		total += si.MaxCapacity
		free += si.FreeSpaceInBytes
	}
	return total, free, nil
}

// Invalidate drops every cached listing
func (f *FS) Invalidate() {
	f.listings.Purge()
}

// errno maps session and model errors to the errno returned to the kernel
func errno(err error) syscall.Errno {
	var en syscall.Errno
	switch {
	case err == nil:
		return 0
	case errors.Is(err, mtpview.ErrObjectNotFound), errors.Is(err, os.ErrNotExist):
		return syscall.ENOENT
	case errors.Is(err, mtpview.ErrNotContainer):
		return syscall.ENOTDIR
	case errors.Is(err, errIsDir):
		return syscall.EISDIR
	case errors.Is(err, errNotEmpty):
		return syscall.ENOTEMPTY
	case errors.Is(err, errCrossDir):
		return syscall.EXDEV
	case errors.Is(err, mtpview.ErrReadOnly):
		return syscall.EROFS
	case errors.Is(err, mtpview.ErrStoreFull):
		return syscall.ENOSPC
	case errors.Is(err, mtpview.ErrUnknownFormat), errors.Is(err, os.ErrInvalid):
		return syscall.EINVAL
	case errors.Is(err, os.ErrExist):
		return syscall.EEXIST
	case errors.Is(err, mtpview.ErrNoSession):
		return syscall.ENODEV
	case errors.As(err, &en):
		return en
	}
	logger := util.GetLogger("FS.errno")
	logger.Debug().Err(err).Msg("Unmapped error reported as EIO")
	return syscall.EIO
}
