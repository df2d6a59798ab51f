package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askImage string

var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Send one request and print the response as JSON",
	Example: `  image-assistant ask --image photo.jpg "make it warmer"
  image-assistant ask hello`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := newHandler(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		resp := h.Handle(cmd.Context(), askImage, strings.Join(args, " "))
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode response: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	askCmd.Flags().StringVarP(&askImage, "image", "i", "", "image to work on")
}
