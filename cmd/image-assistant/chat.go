package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/menta2k/image-assistant/internal/utils"
	"github.com/menta2k/image-assistant/pkg/types"
)

const banner = `=== Image Editing Assistant ===

Commands:
  load <file_path>   Load an image
  clear              Clear the loaded image
  quit/bye           Exit the app
Type any other text to chat with the assistant.
`

// runChat is the line-oriented chat loop. It returns at EOF, on a quit
// command, or when the assistant answers with the quit action.
func runChat(ctx context.Context, in io.Reader, out io.Writer, h requestHandler) error {
	fmt.Fprint(out, banner+"\n")

	var loaded string
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			fmt.Fprintln(out, "\nExiting.")
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		lower := strings.ToLower(line)

		switch {
		case line == "":
			continue

		case lower == "quit" || lower == "bye" || lower == "exit":
			fmt.Fprintln(out, "Goodbye!")
			return nil

		case strings.HasPrefix(lower, "load "):
			path := strings.TrimSpace(line[len("load "):])
			if !utils.FileExists(path) {
				fmt.Fprintf(out, "[Error] File not found: %s\n", path)
				continue
			}
			if !utils.IsImageFile(path) {
				fmt.Fprintf(out, "[Error] Not an image file: %s\n", path)
				continue
			}
			loaded = path
			fmt.Fprintf(out, "[Loaded] %s\n", path)

		case lower == "clear":
			loaded = ""
			fmt.Fprintln(out, "[Image cleared]")

		default:
			resp := h.Handle(ctx, loaded, line)
			if resp.IsQuit() {
				fmt.Fprintln(out, "Goodbye!")
				return nil
			}
			printResponse(out, resp)
		}
	}
}

// printResponse renders a response for humans
func printResponse(out io.Writer, resp types.AssistantResponse) {
	if info, ok := resp.Info(); ok {
		m := info.Metadata
		fmt.Fprintf(out, "Assistant: %s\n", info.Description)
		fmt.Fprintf(out, "[%dx%d %s %s, %d channel(s), %d-bit]\n", m.Width, m.Height, m.Format, m.ColorModel, m.Channels, m.BitDepth)
		if len(info.DominantColors) > 0 {
			fmt.Fprintf(out, "[Dominant colors: %s]\n", strings.Join(info.DominantColors, " "))
		}
	}

	if edit, ok := resp.Edit(); ok {
		fmt.Fprintf(out, "Assistant: %s\n", edit.Message)
		if edit.Kind == types.EditLocal {
			fmt.Fprintf(out, "[Regions: %d detected, %d edited]\n", len(edit.Detected), len(edit.Edited))
		}
		fmt.Fprintf(out, "[Edited image saved to: %s]\n", edit.EditedImagePath)
	}

	if c, ok := resp.Clarify(); ok {
		fmt.Fprintf(out, "Assistant: %s\n", c.Message)
		if len(c.SuggestedPrompts) > 0 {
			fmt.Fprintln(out, "Suggested prompts:")
			for i, s := range c.SuggestedPrompts {
				fmt.Fprintf(out, "  %d. %s\n", i+1, s)
			}
		}
	}

	if e, ok := resp.Error(); ok {
		fmt.Fprintf(out, "[Error] %s\n", e.Error)
		if e.Details != "" {
			fmt.Fprintf(out, "Details: %s\n", e.Details)
		}
	}
}
