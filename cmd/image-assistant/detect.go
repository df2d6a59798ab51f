package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var detectCmd = &cobra.Command{
	Use:   "detect <image> [prompt]",
	Short: "Print the regions a local edit would touch, without editing",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := newHandler(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		regions, err := h.DetectRegions(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(regions, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode regions: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}
