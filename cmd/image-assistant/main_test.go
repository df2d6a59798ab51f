package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/menta2k/image-assistant/internal/config"
	"github.com/menta2k/image-assistant/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeHandler records requests and answers from a function
type fakeHandler struct {
	mu       sync.Mutex
	requests []string
	answer   func(imagePath, prompt string) types.AssistantResponse
	regions  []types.Region
	inFlight int
	peak     int
}

func (f *fakeHandler) Handle(ctx context.Context, imagePath, prompt string) types.AssistantResponse {
	f.mu.Lock()
	f.requests = append(f.requests, imagePath+"|"+prompt)
	f.inFlight++
	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	f.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if f.answer != nil {
		return f.answer(imagePath, prompt)
	}
	return types.NewClarifyResponse(types.ActionClarify, types.ClarifyPayload{Message: "say more"})
}

func (f *fakeHandler) DetectRegions(ctx context.Context, imagePath, prompt string) ([]types.Region, error) {
	if imagePath == "" {
		return nil, errors.New("no image")
	}
	return f.regions, nil
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	return path
}

func TestChatLoadClearQuit(t *testing.T) {
	dir := t.TempDir()
	img := writeFile(t, dir, "photo.jpg")
	h := &fakeHandler{answer: func(imagePath, prompt string) types.AssistantResponse {
		return types.NewEditResponse(types.EditPayload{
			Kind:            types.EditGlobal,
			EditedImagePath: strings.TrimSuffix(imagePath, ".jpg") + "_brighter.jpg",
			Message:         "Applied brightness +30",
		})
	}}

	in := strings.Join([]string{
		"load " + filepath.Join(dir, "missing.jpg"),
		"load " + img,
		"",
		"make it brighter",
		"clear",
		"bye",
		"never reached",
	}, "\n")
	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), strings.NewReader(in), &out, h))

	text := out.String()
	assert.Contains(t, text, "[Error] File not found: "+filepath.Join(dir, "missing.jpg"))
	assert.Contains(t, text, "[Loaded] "+img)
	assert.Contains(t, text, "Assistant: Applied brightness +30")
	assert.Contains(t, text, "[Edited image saved to: "+filepath.Join(dir, "photo_brighter.jpg")+"]")
	assert.Contains(t, text, "[Image cleared]")
	assert.Contains(t, text, "Goodbye!")
	assert.Equal(t, []string{img + "|make it brighter"}, h.requests)
}

func TestChatRejectsNonImage(t *testing.T) {
	notes := writeFile(t, t.TempDir(), "notes.txt")
	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), strings.NewReader("load "+notes+"\n"), &out, &fakeHandler{}))
	assert.Contains(t, out.String(), "[Error] Not an image file: "+notes)
	assert.Contains(t, out.String(), "Exiting.")
}

func TestChatStopsOnQuitAction(t *testing.T) {
	h := &fakeHandler{answer: func(string, string) types.AssistantResponse { return types.NewQuitResponse() }}
	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), strings.NewReader("I'm done here\nhello\n"), &out, h))
	assert.Contains(t, out.String(), "Goodbye!")
	assert.Len(t, h.requests, 1)
}

func TestPrintClarifyAndError(t *testing.T) {
	resp := types.NewClarifyResponse(types.ActionClarify, types.ClarifyPayload{
		Message:          "Please load an image first",
		SuggestedPrompts: []string{"load <path>", "hello"},
	}).WithError(types.ErrorPayload{Error: "no image loaded", Details: "nothing to edit", Kind: types.KindNoImage})

	var out bytes.Buffer
	printResponse(&out, resp)
	want := "Assistant: Please load an image first\n" +
		"Suggested prompts:\n" +
		"  1. load <path>\n" +
		"  2. hello\n" +
		"[Error] no image loaded\n" +
		"Details: nothing to edit\n"
	assert.Equal(t, want, out.String())
}

func TestPrintInfoAndLocalEdit(t *testing.T) {
	var out bytes.Buffer
	printResponse(&out, types.NewInfoResponse(types.InfoPayload{
		Metadata:       types.ImageMetadata{Width: 4, Height: 3, Format: "PNG", ColorModel: "RGB", Channels: 3, BitDepth: 8},
		DominantColors: []string{"#000000", "#ffffff"},
		Description:    "A tiny picture.",
	}))
	assert.Contains(t, out.String(), "Assistant: A tiny picture.")
	assert.Contains(t, out.String(), "[4x3 PNG RGB, 3 channel(s), 8-bit]")
	assert.Contains(t, out.String(), "#000000 #ffffff")

	out.Reset()
	r := types.Region{Width: 10, Height: 10, Label: "car"}
	printResponse(&out, types.NewEditResponse(types.EditPayload{
		Kind:            types.EditLocal,
		EditedImagePath: "photo_remove_car.png",
		Message:         "Edited 1 of 2 regions",
		Detected:        []types.Region{r, r},
		Edited:          []types.Region{r},
	}))
	assert.Contains(t, out.String(), "[Regions: 2 detected, 1 edited]")
	assert.Contains(t, out.String(), "[Edited image saved to: photo_remove_car.png]")
}

func TestCollectImagesDedupes(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.png")
	b := writeFile(t, dir, "b.jpg")
	writeFile(t, dir, "readme.md")

	paths, err := collectImages([]string{b, dir, a, filepath.Join(dir, ".", "b.jpg")})
	require.NoError(t, err)
	assert.Equal(t, []string{b, a}, paths)

	_, err = collectImages([]string{filepath.Join(dir, "missing.png")})
	assert.Error(t, err)

	_, err = collectImages([]string{t.TempDir()})
	assert.Error(t, err)
}

func TestCollectImagesSkipsDerivedOutputs(t *testing.T) {
	dir := t.TempDir()
	photo := writeFile(t, dir, "photo.jpg")
	writeFile(t, dir, "photo_brighter.jpg")
	writeFile(t, dir, "photo_remove_car_regions.png")
	beach := writeFile(t, dir, "beach_day.png")
	explicit := filepath.Join(dir, "photo_brighter.jpg")

	paths, err := collectImages([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, []string{beach, photo}, paths)

	paths, err = collectImages([]string{explicit})
	require.NoError(t, err)
	assert.Equal(t, []string{explicit}, paths, "files named explicitly are kept")
}

func TestRunBatchKeepsInputOrderAndLimit(t *testing.T) {
	paths := []string{"one.png", "two.png", "three.png", "four.png", "five.png"}
	h := &fakeHandler{answer: func(imagePath, prompt string) types.AssistantResponse {
		return types.NewEditResponse(types.EditPayload{Kind: types.EditGlobal, EditedImagePath: "out_" + imagePath, Message: "ok"})
	}}

	var out bytes.Buffer
	require.NoError(t, runBatch(context.Background(), &out, h, paths, "brighter", 2))

	assert.LessOrEqual(t, h.peak, 2)
	assert.Len(t, h.requests, len(paths))

	text := out.String()
	last := -1
	for _, p := range paths {
		idx := strings.Index(text, "== "+p+" (global_edit)")
		require.GreaterOrEqual(t, idx, 0, p)
		assert.Greater(t, idx, last)
		last = idx
	}
}

func TestRunBatchReportsFailures(t *testing.T) {
	h := &fakeHandler{answer: func(imagePath, prompt string) types.AssistantResponse {
		if imagePath == "bad.png" {
			return types.NewErrorResponse(types.ActionGlobalEdit, types.ErrorPayload{Error: "Failed to process global edit request", Kind: types.KindLoad})
		}
		return types.NewEditResponse(types.EditPayload{Kind: types.EditGlobal, EditedImagePath: "x", Message: "ok"})
	}}

	var out bytes.Buffer
	err := runBatch(context.Background(), &out, h, []string{"good.png", "bad.png"}, "brighter", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")
	assert.Contains(t, out.String(), "[Error] Failed to process global edit request")
}

// execute runs the root command with a fake handler and an isolated config
func execute(t *testing.T, h requestHandler, args ...string) (string, error) {
	t.Helper()

	prev := newHandler
	newHandler = func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (requestHandler, error) {
		return h, nil
	}
	t.Cleanup(func() {
		newHandler = prev
		cfgFile, verbose, backend, model = "", false, "", ""
		askImage = ""
		batchPrompt, batchParallel = "", 2
		logger = nil
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "config.yaml"), "--backend", "ollama"}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAskPrintsJSON(t *testing.T) {
	h := &fakeHandler{answer: func(imagePath, prompt string) types.AssistantResponse {
		return types.NewEditResponse(types.EditPayload{Kind: types.EditGlobal, EditedImagePath: "photo_warm.jpg", Message: prompt})
	}}

	out, err := execute(t, h, "ask", "--image", "photo.jpg", "make", "it", "warmer")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "global_edit", decoded["action"])
	assert.Equal(t, []string{"photo.jpg|make it warmer"}, h.requests)
}

func TestDetectPrintsRegions(t *testing.T) {
	h := &fakeHandler{regions: []types.Region{{X: 40, Y: 30, Width: 160, Height: 120, Label: "car", Confidence: 0.9, Action: "remove the car"}}}

	out, err := execute(t, h, "detect", "photo.jpg", "remove", "the", "car")
	require.NoError(t, err)

	var regions []types.Region
	require.NoError(t, json.Unmarshal([]byte(out), &regions))
	assert.Equal(t, h.regions, regions)
}

func TestInvalidBackendFlag(t *testing.T) {
	_, err := execute(t, &fakeHandler{}, "--backend", "openai", "ask", "hello")
	assert.Error(t, err)
}

func TestBatchRequiresPrompt(t *testing.T) {
	img := writeFile(t, t.TempDir(), "a.png")
	_, err := execute(t, &fakeHandler{}, "batch", img)
	assert.Error(t, err)
}
