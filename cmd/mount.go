package main

import (
	"errors"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/brettbedarf/mtpview/fusefs"
	"github.com/brettbedarf/mtpview/internal/util"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func NewMountCmd(c *Context) *cobra.Command {
	var umount bool
	cmd := &cobra.Command{
		Use:   "mount <mountpoint>",
		Short: "Mount the device as a FUSE filesystem until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := util.GetLogger("cmd.mount")
			mnt := args[0]

			if umount {
				// not being mounted is fine
				exec.Command("fusermount", "-u", mnt).Run() // nolint:errcheck
			}

			if addr := c.Config.MetricsAddr; addr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(c.Metrics, promhttp.HandlerOpts{}))
				srv := &http.Server{Addr: addr, Handler: mux}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error().Err(err).Str("addr", addr).Msg("Metrics server failed")
					}
				}()
				defer srv.Close()
				logger.Info().Str("addr", addr).Msg("Serving metrics")
			}

			server, err := fusefs.Mount(mnt, c.Session, c.Config)
			if err != nil {
				return err
			}
			logger.Info().Str("mountpoint", mnt).Msg("Filesystem mounted successfully")

			// Setup signal handling for graceful shutdown
			signalChan := make(chan os.Signal, 1)
			signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
			defer signal.Stop(signalChan)

			unmounted := make(chan struct{})
			go func() {
				server.Wait()
				close(unmounted)
			}()

			select {
			case sig := <-signalChan:
				logger.Info().Str("signal", sig.String()).Msg("Received signal, unmounting filesystem")
				return server.Unmount()
			case <-unmounted:
				logger.Info().Str("mountpoint", mnt).Msg("Filesystem unmounted externally")
				return nil
			}
		},
	}
	cmd.Flags().BoolVarP(&umount, "umount", "u", false,
		"Unmount the mountpoint first if needed. Useful for debuggers that don't exit properly.")
	return cmd
}

func init() {
	register(NewMountCmd)
}
