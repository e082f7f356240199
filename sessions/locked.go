package sessions

import (
	"context"
	"io"
	"sync"

	"github.com/brettbedarf/mtpview"
)

// Locked serializes every call to the wrapped session so it can be shared
// between goroutines. SendObjectInfo and the following SendObject are two
// separate calls; callers that interleave uploads must hold their own lock
// around the pair
type Locked struct {
	mu    sync.Mutex
	inner mtpview.Session
}

func NewLocked(s mtpview.Session) *Locked {
	return &Locked{inner: s}
}

func (l *Locked) GetObjectHandles(ctx context.Context, storage mtpview.StorageID, format mtpview.ObjectFormat, parent mtpview.ObjectID) ([]mtpview.ObjectID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.GetObjectHandles(ctx, storage, format, parent)
}

func (l *Locked) GetObjectInfo(ctx context.Context, id mtpview.ObjectID) (*mtpview.ObjectInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.GetObjectInfo(ctx, id)
}

func (l *Locked) SetObjectProperty(ctx context.Context, id mtpview.ObjectID, prop mtpview.ObjectProperty, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.SetObjectProperty(ctx, id, prop, value)
}

func (l *Locked) DeleteObject(ctx context.Context, id mtpview.ObjectID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.DeleteObject(ctx, id)
}

func (l *Locked) SendObjectInfo(ctx context.Context, info *mtpview.ObjectInfo, storage mtpview.StorageID, parent mtpview.ObjectID) (mtpview.NewObjectInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.SendObjectInfo(ctx, info, storage, parent)
}

func (l *Locked) SendObject(ctx context.Context, r io.Reader, size int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.SendObject(ctx, r, size)
}

func (l *Locked) GetObject(ctx context.Context, id mtpview.ObjectID, w io.Writer) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.GetObject(ctx, id, w)
}

func (l *Locked) GetDeviceInfo(ctx context.Context) (*mtpview.DeviceInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.GetDeviceInfo(ctx)
}

func (l *Locked) GetStorageIDs(ctx context.Context) ([]mtpview.StorageID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.GetStorageIDs(ctx)
}

func (l *Locked) GetStorageInfo(ctx context.Context, storage mtpview.StorageID) (*mtpview.StorageInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.GetStorageInfo(ctx, storage)
}

func (l *Locked) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.Close()
}

var _ mtpview.Session = (*Locked)(nil)
