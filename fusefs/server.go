package fusefs

import (
	"os"
	"time"

	"github.com/brettbedarf/mtpview"
	"github.com/brettbedarf/mtpview/config"
	"github.com/brettbedarf/mtpview/internal/util"
	"github.com/brettbedarf/mtpview/sessions"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// Server is a mounted device
type Server struct {
	*FS
	mountPoint string
	server     *fuse.Server
}

func seconds(s float64) *time.Duration {
	d := time.Duration(s * float64(time.Second))
	return &d
}

// Options builds the go-fuse mount options from cfg
func Options(cfg *config.Config) *fs.Options {
	lvl := util.DebugLevel
	if cfg.Debug {
		lvl = util.TraceLevel
	}
	logger := util.NewLogLogger("FuseServer", lvl)
	return &fs.Options{
		MountOptions: fuse.MountOptions{
			Name:   cfg.Name,
			FsName: cfg.FsName,
			Debug:  cfg.Debug,
			Logger: logger,
		},
		EntryTimeout: seconds(cfg.EntryTimeout),
		AttrTimeout:  seconds(cfg.AttrTimeout),
		UID:          uint32(os.Getuid()),
		GID:          uint32(os.Getgid()),
		Logger:       logger,
	}
}

// Mount mounts session at mountPoint and starts serving. The session is
// wrapped in sessions.Locked, so it may still be used by the caller
func Mount(mountPoint string, session mtpview.Session, cfg *config.Config) (*Server, error) {
	logger := util.GetLogger("Server.Mount")

	fsys := NewFS(sessions.NewLocked(session), cfg)
	root := &Node{fsys: fsys, id: mtpview.Root, parent: mtpview.NoObject, dir: true}

	srv, err := fs.Mount(mountPoint, root, Options(cfg))
	if err != nil {
		logger.Error().Err(err).Str("mountpoint", mountPoint).Msg("Failed to mount")
		return nil, err
	}
	logger.Info().Str("mountpoint", mountPoint).Str("fs_name", cfg.FsName).Msg("Mounted device")
	return &Server{FS: fsys, mountPoint: mountPoint, server: srv}, nil
}

// MountAsync mounts in the background and reports the result on the
// returned channel
func MountAsync(mountPoint string, session mtpview.Session, cfg *config.Config) <-chan MountResult {
	done := make(chan MountResult, 1)
	go func() {
		srv, err := Mount(mountPoint, session, cfg)
		done <- MountResult{Server: srv, Err: err}
		close(done)
	}()
	return done
}

type MountResult struct {
	Server *Server
	Err    error
}

// Wait blocks until the filesystem is unmounted
func (s *Server) Wait() {
	s.server.Wait()
}

// Unmount cleanly unmounts the filesystem.
func (s *Server) Unmount() error {
	if s == nil || s.server == nil {
		return nil
	}
	logger := util.GetLogger("Server.Unmount")
	if err := s.server.Unmount(); err != nil {
		logger.Error().Err(err).Str("mountpoint", s.mountPoint).Msg("Unmount failed")
		return err
	}
	s.Invalidate()
	logger.Info().Str("mountpoint", s.mountPoint).Msg("Unmounted device")
	return nil
}
