// Package model exposes the objects of one container on an MTP device as an
// ordered, lazily detailed row list that any view can bind to.
package model

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/brettbedarf/mtpview"
	"github.com/brettbedarf/mtpview/internal/util"
)

// ObjectList lists the objects of a single parent container and forwards
// mutations to the session.
//
// NOTE: ObjectList is not thread-safe. Every method blocks on the session and
// must be called from the goroutine that owns the list
type ObjectList struct {
	session   mtpview.Session
	parent    mtpview.ObjectID
	loaded    bool // parent has been enumerated at least once
	rows      []*row
	observers observers
}

// New returns an empty list. Call SetSession to populate it
func New() *ObjectList {
	return &ObjectList{parent: mtpview.Root}
}

// NewAt returns a list bound to session showing the children of parent.
// Use it instead of SetSession+SetParent to avoid enumerating Root first
func NewAt(ctx context.Context, session mtpview.Session, parent mtpview.ObjectID) *ObjectList {
	l := &ObjectList{session: session}
	l.load(ctx, parent)
	return l
}

// Subscribe registers o for change notifications and returns a func that
// removes it again
func (l *ObjectList) Subscribe(o Observer) (unsubscribe func()) {
	return l.observers.add(o)
}

// Session returns the active session, nil if none was set
func (l *ObjectList) Session() mtpview.Session {
	return l.session
}

// Parent returns the current parent container
func (l *ObjectList) Parent() mtpview.ObjectID {
	return l.parent
}

// SetSession replaces the active session and lists the root container.
// The listing is always rebuilt, even if the parent was already Root
func (l *ObjectList) SetSession(ctx context.Context, session mtpview.Session) {
	l.session = session
	l.load(ctx, mtpview.Root)
}

// SetParent switches the listing to the children of parent.
// It is a no-op when parent is already the current one.
// Enumeration errors are logged and leave an empty listing
func (l *ObjectList) SetParent(ctx context.Context, parent mtpview.ObjectID) {
	if l.loaded && l.parent == parent {
		return
	}
	l.load(ctx, parent)
}

// Reload enumerates the current parent again
func (l *ObjectList) Reload(ctx context.Context) {
	l.load(ctx, l.parent)
}

func (l *ObjectList) load(ctx context.Context, parent mtpview.ObjectID) {
	logger := util.GetLogger("ObjectList.load")

	l.notify(Observer.ListWillReset)

	l.parent = parent
	l.loaded = true
	l.rows = nil
	if l.session == nil {
		logger.Debug().Uint32("parent", uint32(parent)).Msg("No session; listing is empty")
	} else {
		handles, err := l.session.GetObjectHandles(ctx, mtpview.AllStorages, mtpview.AllFormats, parent)
		if err != nil {
			logger.Error().Err(err).Uint32("parent", uint32(parent)).Msg("Failed to enumerate objects")
			handles = nil
		}
		l.rows = make([]*row, 0, len(handles))
		seen := make(map[mtpview.ObjectID]struct{}, len(handles))
		for _, id := range handles {
			if _, dup := seen[id]; dup {
				logger.Warn().Uint32("object_id", uint32(id)).Msg("Duplicate handle in listing; dropped")
				continue
			}
			seen[id] = struct{}{}
			l.rows = append(l.rows, newRow(id))
		}
		logger.Debug().Uint32("parent", uint32(parent)).Int("rows", len(l.rows)).Msg("Listing loaded")
	}

	l.notify(Observer.ListDidReset)
}

// Enter navigates into the object at idx if it is a container.
// Returns whether navigation occurred
func (l *ObjectList) Enter(ctx context.Context, idx int) bool {
	r := l.rowAt(idx)
	if r == nil {
		return false
	}
	if !l.rowIsContainer(ctx, r) {
		return false
	}
	l.SetParent(ctx, r.id)
	return true
}

// RowCount returns the number of rows in the listing
func (l *ObjectList) RowCount() int {
	return len(l.rows)
}

// ObjectID returns the object at idx or mtpview.NoObject if idx is out of range
func (l *ObjectList) ObjectID(idx int) mtpview.ObjectID {
	if r := l.rowAt(idx); r != nil {
		return r.id
	}
	return mtpview.NoObject
}

// Index returns the row holding id, or -1
func (l *ObjectList) Index(id mtpview.ObjectID) int {
	for i, r := range l.rows {
		if r.id == id {
			return i
		}
	}
	return -1
}

// Find returns the first row whose filename equals name, or -1
func (l *ObjectList) Find(ctx context.Context, name string) int {
	for i := range l.rows {
		if l.DisplayName(ctx, i) == name {
			return i
		}
	}
	return -1
}

// Info returns the cached metadata of the row at idx, fetching it on first
// access
func (l *ObjectList) Info(ctx context.Context, idx int) (*mtpview.ObjectInfo, error) {
	r := l.rowAt(idx)
	if r == nil {
		return nil, fmt.Errorf("%w: %d", mtpview.ErrInvalidRow, idx)
	}
	return r.getInfo(ctx, l.session)
}

// Data returns the value of role for the row at idx, nil when the row is
// out of range, the role is unknown or the metadata is unavailable.
// See [Role] for the value types
func (l *ObjectList) Data(ctx context.Context, idx int, role Role) any {
	r := l.rowAt(idx)
	if r == nil {
		return nil
	}

	switch role {
	case DisplayRole:
		return l.DisplayName(ctx, idx)
	case ForegroundRole:
		return l.Foreground(ctx, idx)
	case ObjectIDRole:
		return r.id
	case SizeRole:
		if info := l.infoOrLog(ctx, r); info != nil {
			return info.ObjectCompressedSize
		}
	case FormatRole:
		if info := l.infoOrLog(ctx, r); info != nil {
			return info.ObjectFormat
		}
	}
	return nil
}

// DisplayName returns the filename of the row at idx, "" if unavailable
func (l *ObjectList) DisplayName(ctx context.Context, idx int) string {
	r := l.rowAt(idx)
	if r == nil {
		return ""
	}
	if info := l.infoOrLog(ctx, r); info != nil {
		return info.Filename
	}
	return ""
}

// Foreground returns the style hint for the row at idx
func (l *ObjectList) Foreground(ctx context.Context, idx int) Foreground {
	if l.IsContainer(ctx, idx) {
		return ContainerForeground
	}
	return PlainForeground
}

// IsContainer reports whether the row at idx can be entered
func (l *ObjectList) IsContainer(ctx context.Context, idx int) bool {
	r := l.rowAt(idx)
	if r == nil {
		return false
	}
	return l.rowIsContainer(ctx, r)
}

func (l *ObjectList) rowIsContainer(ctx context.Context, r *row) bool {
	return l.infoOrLog(ctx, r).IsContainer()
}

// infoOrLog fetches the row info, logging instead of returning failures
func (l *ObjectList) infoOrLog(ctx context.Context, r *row) *mtpview.ObjectInfo {
	info, err := r.getInfo(ctx, l.session)
	if err != nil {
		logger := util.GetLogger("ObjectList.info")
		logger.Error().Err(err).Uint32("object_id", uint32(r.id)).Msg("Failed to get object info")
		return nil
	}
	return info
}

// Rename sets the filename of the object at idx. The row keeps its position;
// its cached metadata is dropped and refetched on next access
func (l *ObjectList) Rename(ctx context.Context, idx int, name string) error {
	logger := util.GetLogger("ObjectList.Rename")
	logger.Info().Int("row", idx).Str("name", name).Msg("Renaming row")

	r := l.rowAt(idx)
	if r == nil {
		return fmt.Errorf("%w: %d", mtpview.ErrInvalidRow, idx)
	}
	if l.session == nil {
		return mtpview.ErrNoSession
	}
	if err := l.session.SetObjectProperty(ctx, r.id, mtpview.PropObjectFilename, name); err != nil {
		logger.Error().Err(err).Uint32("object_id", uint32(r.id)).Msg("Failed to rename object")
		return fmt.Errorf("rename object %d: %w", r.id, err)
	}
	r.reset()
	l.notify(func(o Observer) { o.RowChanged(idx) })
	return nil
}

// RemoveRows deletes the objects of rows [start, start+count) from the device
// and drops the rows from the listing. Rows holding mtpview.NoObject are
// dropped without a session call.
//
// The rows are always removed locally, even when deleting some of the objects
// failed. The returned slice holds the ids that were deleted and the error
// joins every individual failure
func (l *ObjectList) RemoveRows(ctx context.Context, start, count int) ([]mtpview.ObjectID, error) {
	logger := util.GetLogger("ObjectList.RemoveRows")
	logger.Info().Int("start", start).Int("count", count).Msg("Removing rows")

	if start < 0 || count <= 0 || start+count > len(l.rows) {
		return nil, fmt.Errorf("%w: start=%d count=%d rows=%d", mtpview.ErrInvalidRange, start, count, len(l.rows))
	}
	if l.session == nil {
		return nil, mtpview.ErrNoSession
	}

	deleted := make([]mtpview.ObjectID, 0, count)
	var errs []error
	for _, r := range l.rows[start : start+count] {
		if r.id == mtpview.NoObject {
			continue
		}
		if err := l.session.DeleteObject(ctx, r.id); err != nil {
			logger.Error().Err(err).Uint32("object_id", uint32(r.id)).Msg("Failed to delete object")
			errs = append(errs, fmt.Errorf("delete object %d: %w", r.id, err))
			continue
		}
		deleted = append(deleted, r.id)
	}

	l.rows = append(l.rows[:start], l.rows[start+count:]...)
	l.notify(func(o Observer) { o.RowsRemoved(start, start+count-1) })

	return deleted, errors.Join(errs...)
}

// CreateDirectory creates a folder named name under the current parent,
// appends it to the listing and returns its handle
func (l *ObjectList) CreateDirectory(ctx context.Context, name string) (mtpview.ObjectID, error) {
	logger := util.GetLogger("ObjectList.CreateDirectory")

	if l.session == nil {
		return mtpview.NoObject, mtpview.ErrNoSession
	}
	info := &mtpview.ObjectInfo{
		Filename:        name,
		ObjectFormat:    mtpview.FormatAssociation,
		AssociationType: mtpview.AssociationGenericFolder,
	}
	noi, err := l.session.SendObjectInfo(ctx, info, mtpview.AnyStorage, l.parent)
	if err != nil {
		logger.Error().Err(err).Str("name", name).Uint32("parent", uint32(l.parent)).Msg("Failed to create directory")
		return mtpview.NoObject, fmt.Errorf("create directory %q: %w", name, err)
	}
	logger.Info().Str("name", name).Uint32("object_id", uint32(noi.ObjectID)).Msg("Created directory")

	l.appendRow(noi.ObjectID)
	return noi.ObjectID, nil
}

// UploadFile copies the host file at sourcePath into the current parent as
// targetName (the source base name when empty) and appends it to the listing.
//
// The object format is resolved from the source file name; unrecognized
// formats fail with mtpview.ErrUnknownFormat before anything is sent
func (l *ObjectList) UploadFile(ctx context.Context, sourcePath, targetName string) (mtpview.ObjectID, error) {
	logger := util.GetLogger("ObjectList.UploadFile")

	format := mtpview.FormatFromFilename(sourcePath)
	if format == mtpview.FormatUndefined {
		logger.Warn().Str("source", sourcePath).Msg("Unknown format")
		return mtpview.NoObject, fmt.Errorf("%w: %s", mtpview.ErrUnknownFormat, filepath.Base(sourcePath))
	}
	if targetName == "" {
		targetName = filepath.Base(sourcePath)
	}
	if l.session == nil {
		return mtpview.NoObject, mtpview.ErrNoSession
	}

	f, err := os.Open(sourcePath)
	if err != nil {
		logger.Warn().Err(err).Str("source", sourcePath).Msg("File could not be opened")
		return mtpview.NoObject, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return mtpview.NoObject, err
	}
	size := st.Size()
	logger.Debug().Str("source", sourcePath).Str("target", targetName).Int64("size", size).Msg("Uploading file")

	info := &mtpview.ObjectInfo{
		Filename:             targetName,
		ObjectFormat:         format,
		ObjectCompressedSize: uint64(size),
	}
	noi, err := l.session.SendObjectInfo(ctx, info, mtpview.AnyStorage, l.parent)
	if err != nil {
		logger.Error().Err(err).Str("target", targetName).Msg("Failed to send object info")
		return mtpview.NoObject, fmt.Errorf("send object info %q: %w", targetName, err)
	}
	logger.Debug().Uint32("object_id", uint32(noi.ObjectID)).Msg("Sending payload")

	if err := l.session.SendObject(ctx, f, size); err != nil {
		logger.Error().Err(err).Uint32("object_id", uint32(noi.ObjectID)).Msg("Failed to send object")
		// don't leave an empty object behind
		if derr := l.session.DeleteObject(ctx, noi.ObjectID); derr != nil {
			logger.Warn().Err(derr).Uint32("object_id", uint32(noi.ObjectID)).Msg("Failed to clean up partial object")
		}
		return mtpview.NoObject, fmt.Errorf("send object %q: %w", targetName, err)
	}
	logger.Info().Str("target", targetName).Uint32("object_id", uint32(noi.ObjectID)).Int64("size", size).Msg("Uploaded file")

	l.appendRow(noi.ObjectID)
	return noi.ObjectID, nil
}

// GetInfo fetches fresh metadata for any object, bypassing the row cache
func (l *ObjectList) GetInfo(ctx context.Context, id mtpview.ObjectID) (*mtpview.ObjectInfo, error) {
	if l.session == nil {
		return nil, mtpview.ErrNoSession
	}
	return l.session.GetObjectInfo(ctx, id)
}

func (l *ObjectList) appendRow(id mtpview.ObjectID) {
	idx := len(l.rows)
	l.rows = append(l.rows, newRow(id))
	l.notify(func(o Observer) { o.RowsInserted(idx, idx) })
}

func (l *ObjectList) rowAt(idx int) *row {
	if idx < 0 || idx >= len(l.rows) {
		return nil
	}
	return l.rows[idx]
}

func (l *ObjectList) notify(fn func(o Observer)) {
	l.observers.each(fn)
}
