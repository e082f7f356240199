package fusefs

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"syscall"

	"github.com/brettbedarf/mtpview"
	"github.com/brettbedarf/mtpview/internal/util"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// readHandle serves reads from a local copy of the object
type readHandle struct {
	mu   sync.Mutex
	file *os.File
}

var _ fs.FileReader = (*readHandle)(nil)
var _ fs.FileReleaser = (*readHandle)(nil)

func (h *readHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.file == nil {
		return nil, syscall.EBADF
	}
	n, err := h.file.ReadAt(dest, off)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, syscall.EIO
	}
	return fuse.ReadResultData(dest[:n]), 0
}

func (h *readHandle) Release(ctx context.Context) syscall.Errno {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.file != nil {
		name := h.file.Name()
		h.file.Close()
		os.Remove(name)
		h.file = nil
	}
	return 0
}

// writeHandle buffers writes in a staging file. MTP objects cannot be
// modified in place, so a dirty flush replaces the object with a new upload
type writeHandle struct {
	fsys *FS
	node *Node

	mu    sync.Mutex
	file  *os.File
	size  int64
	dirty bool
}

var _ fs.FileReader = (*writeHandle)(nil)
var _ fs.FileWriter = (*writeHandle)(nil)
var _ fs.FileFlusher = (*writeHandle)(nil)
var _ fs.FileReleaser = (*writeHandle)(nil)

// newWriteHandle stages writes for node. preload, when set, holds the
// current contents and becomes the staging file
func newWriteHandle(fsys *FS, node *Node, preload *os.File) (*writeHandle, error) {
	h := &writeHandle{fsys: fsys, node: node, file: preload}
	if preload != nil {
		st, err := preload.Stat()
		if err != nil {
			return nil, err
		}
		h.size = st.Size()
		return h, nil
	}

	// keep the file name as suffix so the upload resolves the right format
	f, err := os.CreateTemp(fsys.cfg.TempDir, "mtpview-write-*-"+node.name)
	if err != nil {
		return nil, err
	}
	h.file = f
	// a created file must reach the device even when nothing is written
	h.dirty = node.id == mtpview.NoObject
	return h, nil
}

func (h *writeHandle) Size() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size
}

func (h *writeHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.file == nil {
		return nil, syscall.EBADF
	}
	n, err := h.file.ReadAt(dest, off)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, syscall.EIO
	}
	return fuse.ReadResultData(dest[:n]), 0
}

func (h *writeHandle) Write(ctx context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.file == nil {
		return 0, syscall.EBADF
	}
	n, err := h.file.WriteAt(data, off)
	if err != nil {
		logger := util.GetLogger("writeHandle.Write")
		logger.Error().Err(err).Int64("offset", off).Msg("Staging write failed")
		return 0, syscall.EIO
	}
	if end := off + int64(n); end > h.size {
		h.size = end
		h.node.size = end
	}
	h.dirty = true
	return uint32(n), 0
}

func (h *writeHandle) Truncate(size int64) syscall.Errno {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.file == nil {
		return syscall.EBADF
	}
	if err := h.file.Truncate(size); err != nil {
		return syscall.EIO
	}
	h.size = size
	h.node.size = size
	h.dirty = true
	return 0
}

// Flush uploads the staged contents when they changed since the last flush
func (h *writeHandle) Flush(ctx context.Context) syscall.Errno {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.dirty || h.file == nil {
		return 0
	}
	if err := h.file.Sync(); err != nil {
		return syscall.EIO
	}

	logger := util.GetLogger("writeHandle.Flush")
	e, err := h.fsys.upload(ctx, h.node.parent, h.node.id, h.file.Name(), h.node.name)
	if err != nil {
		logger.Error().Err(err).Str("name", h.node.name).Msg("Upload failed")
		return errno(err)
	}
	logger.Info().Str("name", h.node.name).Uint32("object_id", uint32(e.id)).Int64("size", h.size).Msg("Uploaded file")

	h.node.id = e.id
	h.dirty = false
	return 0
}

func (h *writeHandle) Release(ctx context.Context) syscall.Errno {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.file != nil {
		name := h.file.Name()
		h.file.Close()
		os.Remove(name)
		h.file = nil
	}
	return 0
}
