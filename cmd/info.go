package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func NewInfoCmd(c *Context) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the device and its storages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			w := cmd.OutOrStdout()

			di, err := c.Session.GetDeviceInfo(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "Manufacturer:  %s\n", di.Manufacturer)
			fmt.Fprintf(w, "Model:         %s\n", di.Model)
			fmt.Fprintf(w, "Version:       %s\n", di.DeviceVersion)
			fmt.Fprintf(w, "Serial:        %s\n", di.SerialNumber)

			ids, err := c.Session.GetStorageIDs(ctx)
			if err != nil {
				return err
			}
			for _, id := range ids {
				si, err := c.Session.GetStorageInfo(ctx, id)
				if err != nil {
					return err
				}
				used := si.MaxCapacity - si.FreeSpaceInBytes
				fmt.Fprintf(w, "\nStorage 0x%08x  %s\n", uint32(id), si.StorageDescription)
				if si.VolumeLabel != "" {
					fmt.Fprintf(w, "  Label:     %s\n", si.VolumeLabel)
				}
				fmt.Fprintf(w, "  Capacity:  %s\n", humanize.IBytes(si.MaxCapacity))
				fmt.Fprintf(w, "  Free:      %s\n", humanize.IBytes(si.FreeSpaceInBytes))
				if si.MaxCapacity > 0 {
					fmt.Fprintf(w, "  Used:      %s (%s%%)\n", humanize.IBytes(used), humanize.FtoaWithDigits(float64(used)*100/float64(si.MaxCapacity), 1))
				}
			}
			return nil
		},
	}
}

func init() {
	register(NewInfoCmd)
}
