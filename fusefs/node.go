package fusefs

import (
	"context"
	"os"
	"syscall"

	"github.com/brettbedarf/mtpview"
	"github.com/brettbedarf/mtpview/internal/util"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

const (
	dirMode  = 0o755
	fileMode = 0o644

	// object handles are offset so they never collide with the root inode (1)
	inoBase = 1 << 32
)

// Node is one object on the device. The root node has id mtpview.Root
type Node struct {
	fs.Inode

	fsys   *FS
	id     mtpview.ObjectID // NoObject until a created file is first flushed
	parent mtpview.ObjectID
	name   string
	dir    bool
	size   int64 // size of a created file that has no object yet
}

var _ fs.InodeEmbedder = (*Node)(nil)
var _ fs.NodeGetattrer = (*Node)(nil)
var _ fs.NodeSetattrer = (*Node)(nil)
var _ fs.NodeLookuper = (*Node)(nil)
var _ fs.NodeReaddirer = (*Node)(nil)
var _ fs.NodeMkdirer = (*Node)(nil)
var _ fs.NodeCreater = (*Node)(nil)
var _ fs.NodeOpener = (*Node)(nil)
var _ fs.NodeUnlinker = (*Node)(nil)
var _ fs.NodeRmdirer = (*Node)(nil)
var _ fs.NodeRenamer = (*Node)(nil)
var _ fs.NodeStatfser = (*Node)(nil)

func inoFor(id mtpview.ObjectID) uint64 {
	return inoBase + uint64(id)
}

// fillAttr copies object metadata into a fuse attribute
func fillAttr(info *mtpview.ObjectInfo, out *fuse.Attr) {
	if info.IsContainer() {
		out.Mode = syscall.S_IFDIR | dirMode
		out.Nlink = 2
	} else {
		out.Mode = syscall.S_IFREG | fileMode
		out.Nlink = 1
		out.Size = info.ObjectCompressedSize
		out.Blocks = (out.Size + 511) / 512
	}
	if info.ProtectionStatus != 0 {
		out.Mode &^= 0o222
	}
	mtime := info.ModificationDate
	if mtime.IsZero() {
		mtime = info.CaptureDate
	}
	if !mtime.IsZero() {
		out.SetTimes(nil, &mtime, &mtime)
	}
	out.Uid = uint32(os.Getuid())
	out.Gid = uint32(os.Getgid())
}

func (n *Node) child(e entry, name string) *Node {
	return &Node{
		fsys:   n.fsys,
		id:     e.id,
		parent: n.id,
		name:   name,
		dir:    e.info.IsContainer(),
	}
}

func (n *Node) newInode(ctx context.Context, child *Node, mode uint32) *fs.Inode {
	return n.NewInode(ctx, child, fs.StableAttr{Mode: mode, Ino: inoFor(child.id)})
}

// Getattr never downloads content
func (n *Node) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	switch {
	case n.id == mtpview.Root:
		out.Mode = syscall.S_IFDIR | dirMode
		out.Nlink = 2
		out.Uid = uint32(os.Getuid())
		out.Gid = uint32(os.Getgid())
		return 0
	case n.id == mtpview.NoObject:
		out.Mode = syscall.S_IFREG | fileMode
		out.Nlink = 1
		out.Size = uint64(n.size)
		out.Uid = uint32(os.Getuid())
		out.Gid = uint32(os.Getgid())
		return 0
	}

	info, err := n.fsys.getattr(ctx, n.id)
	if err != nil {
		return errno(err)
	}
	fillAttr(info, &out.Attr)
	if wh, ok := fh.(*writeHandle); ok {
		out.Size = uint64(wh.Size())
	}
	return 0
}

// Setattr only supports truncating files open for writing
func (n *Node) Setattr(ctx context.Context, fh fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if sz, ok := in.GetSize(); ok {
		wh, ok := fh.(*writeHandle)
		if !ok {
			return syscall.EPERM
		}
		if errno := wh.Truncate(int64(sz)); errno != 0 {
			return errno
		}
	}
	return n.Getattr(ctx, fh, out)
}

func (n *Node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	e, err := n.fsys.lookup(ctx, n.id, name)
	if err != nil {
		return nil, errno(err)
	}
	fillAttr(e.info, &out.Attr)
	return n.newInode(ctx, n.child(e, name), out.Mode), 0
}

func (n *Node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	if !n.dir {
		return nil, syscall.ENOTDIR
	}
	entries := n.fsys.readdir(ctx, n.id)
	list := make([]fuse.DirEntry, 0, len(entries))
	for _, e := range entries {
		mode := uint32(syscall.S_IFREG)
		if e.info.IsContainer() {
			mode = syscall.S_IFDIR
		}
		list = append(list, fuse.DirEntry{Name: e.info.Filename, Mode: mode, Ino: inoFor(e.id)})
	}
	return fs.NewListDirStream(list), 0
}

func (n *Node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	logger := util.GetLogger("Node.Mkdir")

	e, err := n.fsys.mkdir(ctx, n.id, name)
	if err != nil {
		logger.Error().Err(err).Str("name", name).Uint32("parent", uint32(n.id)).Msg("Mkdir failed")
		return nil, errno(err)
	}
	fillAttr(e.info, &out.Attr)
	return n.newInode(ctx, n.child(e, name), out.Mode), 0
}

// Create stages the new file in a temp file; the object is sent to the
// device when the file is flushed
func (n *Node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	logger := util.GetLogger("Node.Create")

	if mtpview.FormatFromFilename(name) == mtpview.FormatUndefined {
		logger.Warn().Str("name", name).Msg("Refusing file with unknown format")
		return nil, nil, 0, syscall.EINVAL
	}
	if _, err := n.fsys.lookup(ctx, n.id, name); err == nil {
		return nil, nil, 0, syscall.EEXIST
	}

	child := &Node{fsys: n.fsys, parent: n.id, name: name}
	wh, err := newWriteHandle(n.fsys, child, nil)
	if err != nil {
		logger.Error().Err(err).Str("name", name).Msg("Failed to create staging file")
		return nil, nil, 0, syscall.EIO
	}

	out.Mode = syscall.S_IFREG | fileMode
	out.Uid = uint32(os.Getuid())
	out.Gid = uint32(os.Getgid())
	// no object id yet, let go-fuse pick the inode number
	inode := n.NewInode(ctx, child, fs.StableAttr{Mode: out.Mode})
	logger.Debug().Str("name", name).Uint32("parent", uint32(n.id)).Msg("Created staging file")
	return inode, wh, fuse.FOPEN_DIRECT_IO, 0
}

func (n *Node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	logger := util.GetLogger("Node.Open")

	if n.dir {
		return nil, 0, syscall.EISDIR
	}

	if flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		var preload *os.File
		if flags&syscall.O_TRUNC == 0 && n.id != mtpview.NoObject {
			f, err := n.fsys.download(ctx, n.id, n.name)
			if err != nil {
				logger.Error().Err(err).Uint32("object_id", uint32(n.id)).Msg("Failed to fetch object for writing")
				return nil, 0, errno(err)
			}
			preload = f
		}
		wh, err := newWriteHandle(n.fsys, n, preload)
		if err != nil {
			logger.Error().Err(err).Str("name", n.name).Msg("Failed to create staging file")
			return nil, 0, syscall.EIO
		}
		if flags&syscall.O_TRUNC != 0 {
			wh.dirty = true
		}
		return wh, fuse.FOPEN_DIRECT_IO, 0
	}

	if n.id == mtpview.NoObject {
		return nil, 0, syscall.ENOENT
	}
	f, err := n.fsys.download(ctx, n.id, n.name)
	if err != nil {
		logger.Error().Err(err).Uint32("object_id", uint32(n.id)).Msg("Failed to fetch object")
		return nil, 0, errno(err)
	}
	return &readHandle{file: f}, fuse.FOPEN_KEEP_CACHE, 0
}

func (n *Node) Unlink(ctx context.Context, name string) syscall.Errno {
	logger := util.GetLogger("Node.Unlink")
	if err := n.fsys.remove(ctx, n.id, name, false); err != nil {
		logger.Error().Err(err).Str("name", name).Uint32("parent", uint32(n.id)).Msg("Unlink failed")
		return errno(err)
	}
	return 0
}

func (n *Node) Rmdir(ctx context.Context, name string) syscall.Errno {
	logger := util.GetLogger("Node.Rmdir")
	if err := n.fsys.remove(ctx, n.id, name, true); err != nil {
		logger.Error().Err(err).Str("name", name).Uint32("parent", uint32(n.id)).Msg("Rmdir failed")
		return errno(err)
	}
	return 0
}

// Rename only renames within one directory. MTP has no move operation, so
// other renames fail with EXDEV and tools like mv fall back to copy+delete
func (n *Node) Rename(ctx context.Context, name string, newParent fs.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	logger := util.GetLogger("Node.Rename")

	np, ok := newParent.(*Node)
	if !ok || np.id != n.id {
		return errno(errCrossDir)
	}
	if flags&fs.RENAME_EXCHANGE != 0 {
		return syscall.ENOTSUP
	}
	noReplace := flags&1 != 0 // RENAME_NOREPLACE

	if err := n.fsys.rename(ctx, n.id, name, newName, noReplace); err != nil {
		logger.Error().Err(err).Str("name", name).Str("new_name", newName).Msg("Rename failed")
		return errno(err)
	}
	if child := n.GetChild(name); child != nil {
		if cn, ok := child.Operations().(*Node); ok {
			cn.name = newName
		}
	}
	return 0
}

func (n *Node) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	total, free, err := n.fsys.statfs(ctx)
	if err != nil {
		return errno(err)
	}
	const bsize = 4096
	out.Bsize = bsize
	out.Frsize = bsize
	out.Blocks = total / bsize
	out.Bfree = free / bsize
	out.Bavail = free / bsize
	out.NameLen = 255
	return 0
}
