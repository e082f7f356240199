package main

import (
	"io"
	"os"

	"github.com/brettbedarf/mtpview/internal/util"
	"github.com/brettbedarf/mtpview/tui"
	"github.com/spf13/cobra"
)

func NewBrowseCmd(c *Context) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse the device interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// the browser owns the terminal, logs go to a file or nowhere
			var out io.Writer = io.Discard
			if c.Config.TUILogFile != "" {
				f, err := os.OpenFile(c.Config.TUILogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			util.InitializeLogger(c.Config.LogLvl, out)
			defer util.InitializeLogger(c.Config.LogLvl, cmd.ErrOrStderr())

			return tui.Run(cmd.Context(), c.Session)
		},
	}
}

func init() {
	register(NewBrowseCmd)
}
