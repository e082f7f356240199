package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/brettbedarf/mtpview"
	"github.com/brettbedarf/mtpview/internal/util"
	"github.com/brettbedarf/mtpview/model"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func printRow(ctx context.Context, w io.Writer, l *model.ObjectList, idx int, long bool) {
	info, err := l.Info(ctx, idx)
	if err != nil {
		fmt.Fprintf(w, "?  %-10s  %s\n", "", err)
		return
	}
	kind, size, name := "-", humanize.IBytes(info.ObjectCompressedSize), info.Filename
	if info.IsContainer() {
		kind, size, name = "d", "", name+"/"
	}
	if !long {
		fmt.Fprintf(w, "%s  %10s  %s\n", kind, size, name)
		return
	}
	mtime := "-"
	if !info.ModificationDate.IsZero() {
		mtime = info.ModificationDate.Format(time.DateTime)
	}
	fmt.Fprintf(w, "%s  %10s  %-19s  %8d  %-22s  %s\n", kind, size, mtime, l.ObjectID(idx), info.ObjectFormat, name)
}

func NewLsCmd(c *Context) *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List the objects in a folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p := ""
			if len(args) > 0 {
				p = args[0]
			}
			l, err := openDir(ctx, c.Session, p)
			if err != nil {
				return err
			}
			for i := range l.RowCount() {
				printRow(ctx, cmd.OutOrStdout(), l, i, long)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "show modification time, handle and format")
	return cmd
}

func NewStatCmd(c *Context) *cobra.Command {
	return &cobra.Command{
		Use:   "stat <path>",
		Short: "Show the metadata of an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l, idx, err := resolve(ctx, c.Session, args[0])
			if err != nil {
				return err
			}
			info, err := l.Info(ctx, idx)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Name:       %s\n", info.Filename)
			fmt.Fprintf(w, "Handle:     %d\n", l.ObjectID(idx))
			fmt.Fprintf(w, "Format:     %s\n", info.ObjectFormat)
			fmt.Fprintf(w, "Size:       %s (%d bytes)\n", humanize.IBytes(info.ObjectCompressedSize), info.ObjectCompressedSize)
			fmt.Fprintf(w, "Storage:    0x%08x\n", uint32(info.StorageID))
			fmt.Fprintf(w, "Protected:  %t\n", info.ProtectionStatus != 0)
			if !info.ModificationDate.IsZero() {
				fmt.Fprintf(w, "Modified:   %s (%s)\n", info.ModificationDate.Format(time.RFC3339), humanize.Time(info.ModificationDate))
			}
			return nil
		},
	}
}

func NewMkdirCmd(c *Context) *cobra.Command {
	var parents bool
	cmd := &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := util.GetLogger("cmd.mkdir")

			names := splitPath(args[0])
			if len(names) == 0 {
				return fmt.Errorf("%q: missing folder name", args[0])
			}
			l := model.NewAt(ctx, c.Session, mtpview.Root)
			for i, name := range names {
				last := i == len(names)-1
				if idx := l.Find(ctx, name); idx >= 0 {
					if last && !parents {
						return fmt.Errorf("%s: already exists", args[0])
					}
					if !l.Enter(ctx, idx) {
						return fmt.Errorf("%s: %w", name, mtpview.ErrNotContainer)
					}
					continue
				}
				if !last && !parents {
					return fmt.Errorf("%s: %w (use --parents)", name, mtpview.ErrObjectNotFound)
				}
				id, err := l.CreateDirectory(ctx, name)
				if err != nil {
					return err
				}
				logger.Debug().Str("name", name).Uint32("object_id", uint32(id)).Msg("Folder created")
				if !last {
					l.SetParent(ctx, id)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&parents, "parents", "p", false, "create missing parent folders, no error if existing")
	return cmd
}

func NewRmCmd(c *Context) *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   "rm <path>...",
		Short: "Delete objects",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			for _, p := range args {
				l, idx, err := resolve(ctx, c.Session, p)
				if err != nil {
					return err
				}
				if l.IsContainer(ctx, idx) && !recursive {
					children, err := c.Session.GetObjectHandles(ctx, mtpview.AllStorages, mtpview.AllFormats, l.ObjectID(idx))
					if err != nil {
						return err
					}
					if len(children) > 0 {
						return fmt.Errorf("%s: folder not empty (use --recursive)", p)
					}
				}
				if _, err := l.RemoveRows(ctx, idx, 1); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "delete folders with their contents")
	return cmd
}

func NewRenameCmd(c *Context) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <path> <name>",
		Short: "Rename an object in place",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l, idx, err := resolve(ctx, c.Session, args[0])
			if err != nil {
				return err
			}
			if l.Find(ctx, args[1]) >= 0 {
				return fmt.Errorf("%s: already exists", args[1])
			}
			return l.Rename(ctx, idx, args[1])
		},
	}
}

func init() {
	register(NewLsCmd)
	register(NewStatCmd)
	register(NewMkdirCmd)
	register(NewRmCmd)
	register(NewRenameCmd)
}
