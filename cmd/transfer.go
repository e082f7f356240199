package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/brettbedarf/mtpview"
	"github.com/brettbedarf/mtpview/internal/util"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func NewUploadCmd(c *Context) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "upload <file> [folder]",
		Short: "Copy a host file onto the device",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dir := ""
			if len(args) > 1 {
				dir = args[1]
			}
			l, err := openDir(ctx, c.Session, dir)
			if err != nil {
				return err
			}
			target := name
			if target == "" {
				target = filepath.Base(args[0])
			}
			if l.Find(ctx, target) >= 0 {
				return fmt.Errorf("%s: already exists", target)
			}
			id, err := l.UploadFile(ctx, args[0], target)
			if err != nil {
				return err
			}
			info, err := l.GetInfo(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  (handle %d)\n", info.Filename, humanize.IBytes(info.ObjectCompressedSize), id)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name on the device (default: the file name)")
	return cmd
}

func NewGetCmd(c *Context) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "get <path> <dest>",
		Short: "Copy an object from the device to the host",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			logger := util.GetLogger("cmd.get")

			l, idx, err := resolve(ctx, c.Session, args[0])
			if err != nil {
				return err
			}
			if l.IsContainer(ctx, idx) {
				return fmt.Errorf("%s: is a folder", args[0])
			}
			dest := args[1]
			if st, err := os.Stat(dest); err == nil && st.IsDir() {
				dest = filepath.Join(dest, l.DisplayName(ctx, idx))
			}
			if _, err := os.Lstat(dest); err == nil && !force {
				return fmt.Errorf("%s: already exists (use --force to overwrite)", dest)
			}

			// the payload lands next to dest and replaces it only when complete
			f, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
			if err != nil {
				return err
			}
			if err := f.Chmod(0o644); err != nil {
				f.Close()
				os.Remove(f.Name())
				return err
			}
			defer func() {
				err = errors.Join(err, f.Close())
				if err == nil {
					err = os.Rename(f.Name(), dest)
				}
				if err != nil {
					os.Remove(f.Name())
				}
			}()
			if err := c.Session.GetObject(ctx, l.ObjectID(idx), f); err != nil {
				return fmt.Errorf("get %s: %w", args[0], err)
			}
			logger.Info().Str("path", args[0]).Str("dest", dest).Msg("Downloaded object")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing destination")
	return cmd
}

func init() {
	register(NewUploadCmd)
	register(NewGetCmd)
}
