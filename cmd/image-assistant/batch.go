package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/menta2k/image-assistant/internal/utils"
	"github.com/menta2k/image-assistant/pkg/types"
)

var (
	batchPrompt   string
	batchParallel int
)

var batchCmd = &cobra.Command{
	Use:   "batch <image|dir>...",
	Short: "Run one prompt over many images concurrently",
	Long: `Runs the same request over every image given. Directories are searched
recursively for images. Each image is handled by an independent request;
duplicate paths are processed once.`,
	Example: `  image-assistant batch --prompt "make it brighter" --parallel 4 shots/`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(batchPrompt) == "" {
			return fmt.Errorf("--prompt is required")
		}
		paths, err := collectImages(args)
		if err != nil {
			return err
		}
		h, err := newHandler(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		return runBatch(cmd.Context(), cmd.OutOrStdout(), h, paths, batchPrompt, batchParallel)
	},
}

func init() {
	batchCmd.Flags().StringVarP(&batchPrompt, "prompt", "p", "", "request to run on every image")
	batchCmd.Flags().IntVarP(&batchParallel, "parallel", "j", 2, "maximum concurrent requests")
}

// collectImages expands directories and removes duplicate paths, keeping
// first-seen order. Two requests never write the same derived output, and
// outputs left by earlier runs are not picked up from directories.
func collectImages(args []string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	add := func(p string) {
		key := filepath.Clean(p)
		if abs, err := filepath.Abs(key); err == nil {
			key = abs
		}
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, p)
	}

	for _, arg := range args {
		if utils.DirExists(arg) {
			files, err := utils.ListImageFiles(arg)
			if err != nil {
				return nil, fmt.Errorf("failed to list %s: %w", arg, err)
			}
			for _, f := range withoutDerived(files) {
				add(f)
			}
			continue
		}
		if !utils.FileExists(arg) {
			return nil, fmt.Errorf("file not found: %s", arg)
		}
		add(arg)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no images found")
	}
	return out, nil
}

// withoutDerived drops files that look like an output derived from another
// file in the same directory ("photo_brighter.jpg" next to "photo.jpg").
func withoutDerived(files []string) []string {
	stems := make(map[string]bool, len(files))
	for _, f := range files {
		stems[stem(f)] = true
	}

	out := files[:0:0]
	for _, f := range files {
		if !derivedFromAny(stem(f), stems) {
			out = append(out, f)
		}
	}
	return out
}

func derivedFromAny(s string, stems map[string]bool) bool {
	for i := len(s) - 1; i > 0; i-- {
		if s[i] == '_' && stems[s[:i]] {
			return true
		}
	}
	return false
}

func stem(path string) string {
	return strings.TrimSuffix(filepath.Clean(path), filepath.Ext(path))
}

// runBatch handles every path with at most parallel requests in flight and
// prints the results in input order.
func runBatch(ctx context.Context, out io.Writer, h requestHandler, paths []string, prompt string, parallel int) error {
	if parallel < 1 {
		parallel = 1
	}
	results := make([]types.AssistantResponse, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = h.Handle(gctx, p, prompt)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	for i, resp := range results {
		fmt.Fprintf(out, "== %s (%s)\n", paths[i], resp.Action())
		printResponse(out, resp)
		if _, ok := resp.Error(); ok {
			failed++
		}
	}
	if logger != nil {
		logger.Info("batch finished", zap.Int("images", len(paths)), zap.Int("failed", failed))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(paths))
	}
	return nil
}
