package processing

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/image-assistant/pkg/types"
)

// createTestImage creates a gradient test image with a white square on the left
func createTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x > width/4 && x < width/2 && y > height/4 && y < 3*height/4 {
				img.Set(x, y, color.NRGBA{255, 255, 255, 255})
			} else {
				r := uint8((x * 128) / width)
				g := uint8((y * 128) / height)
				img.Set(x, y, color.NRGBA{r, g, 64, 255})
			}
		}
	}
	return img
}

func uniform(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func samePixels(t *testing.T, want, got image.Image) {
	t.Helper()
	require.Equal(t, want.Bounds().Size(), got.Bounds().Size())
	wb, gb := want.Bounds(), got.Bounds()
	for y := 0; y < wb.Dy(); y++ {
		for x := 0; x < wb.Dx(); x++ {
			w := color.NRGBAModel.Convert(want.At(wb.Min.X+x, wb.Min.Y+y))
			g := color.NRGBAModel.Convert(got.At(gb.Min.X+x, gb.Min.Y+y))
			if w != g {
				t.Fatalf("pixel (%d,%d) differs: want %v got %v", x, y, w, g)
			}
		}
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	p := NewProcessor()
	src := createTestImage(64, 48)
	dir := t.TempDir()

	for _, name := range []string{"out.png", "out.jpg", "out.webp", "out.unknown"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, p.SaveImage(src, path))

			img, err := p.LoadImage(path)
			require.NoError(t, err)
			assert.Equal(t, 64, img.Bounds().Dx())
			assert.Equal(t, 48, img.Bounds().Dy())
		})
	}
}

func TestSaveImageCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edits", "2024", "out.png")
	require.NoError(t, NewProcessor().SaveImage(createTestImage(8, 8), path))

	img, err := NewProcessor().LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
}

func TestLoadImageMissing(t *testing.T) {
	_, err := NewProcessor().LoadImage(filepath.Join(t.TempDir(), "nope.png"))
	assert.Error(t, err)
}

func TestDecodeImageGarbage(t *testing.T) {
	_, err := NewProcessor().DecodeImage([]byte("definitely not an image"))
	assert.Error(t, err)
}

func TestMetadata(t *testing.T) {
	p := NewProcessor()
	dir := t.TempDir()

	pngPath := filepath.Join(dir, "a.png")
	require.NoError(t, p.SaveImage(createTestImage(40, 30), pngPath))
	meta, err := p.Metadata(pngPath)
	require.NoError(t, err)
	assert.Equal(t, types.ImageMetadata{Width: 40, Height: 30, Format: "PNG", ColorModel: "RGB", Channels: 3, BitDepth: 8}, meta)

	jpgPath := filepath.Join(dir, "a.jpg")
	require.NoError(t, p.SaveImage(createTestImage(40, 30), jpgPath))
	meta, err = p.Metadata(jpgPath)
	require.NoError(t, err)
	assert.Equal(t, "JPEG", meta.Format)
	assert.Equal(t, "YCbCr", meta.ColorModel)
	assert.Equal(t, 3, meta.Channels)
}

func TestEncodeForModel(t *testing.T) {
	p := NewProcessor()
	src := createTestImage(400, 200)

	data, mime, err := p.EncodeForModel(src, "jpg", 100, 80)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)
	img, err := p.DecodeImage(data)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(100, 50), img.Bounds().Size())

	data, mime, err = p.EncodeForModel(src, "png", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	img, err = p.DecodeImage(data)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(400, 200), img.Bounds().Size())
}

func TestAdjustIdentityIsNoop(t *testing.T) {
	src := createTestImage(32, 32)
	out, applied := Adjust(src, types.IdentityParameters())
	assert.Empty(t, applied)
	samePixels(t, src, out)

	// identity survives a PNG round trip
	p := NewProcessor()
	path := filepath.Join(t.TempDir(), "identity.png")
	require.NoError(t, p.SaveImage(out, path))
	loaded, err := p.LoadImage(path)
	require.NoError(t, err)
	samePixels(t, src, loaded)
}

func TestAdjustReportsEditsInOrder(t *testing.T) {
	src := createTestImage(16, 16)
	out, applied := Adjust(src, types.EditParameters{
		Brightness:  30,
		Contrast:    -20,
		Saturation:  500, // clamped to 100
		Temperature: types.TemperatureWarm,
	})
	assert.Equal(t, []string{"brightness +30", "contrast -20", "saturation +100", "warmer temperature"}, applied)
	assert.Equal(t, src.Bounds().Size(), out.Bounds().Size())
}

func TestAdjustOrderMatters(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{250, 250, 250, 255})
	src.SetNRGBA(1, 0, color.NRGBA{0, 0, 0, 255})

	// brightening first clips the light pixel before contrast sees it
	a := Contrast(Brightness(src, 50), -50)
	b := Brightness(Contrast(src, -50), 50)
	assert.NotEqual(t, a.NRGBAAt(0, 0), b.NRGBAAt(0, 0))
}

func TestBrightness(t *testing.T) {
	src := uniform(4, 4, color.NRGBA{100, 100, 100, 255})
	assert.Equal(t, color.NRGBA{130, 130, 130, 255}, Brightness(src, 30).NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{70, 70, 70, 255}, Brightness(src, -30).NRGBAAt(0, 0))
	// factor floor of 0.1
	assert.Equal(t, color.NRGBA{10, 10, 10, 255}, Brightness(src, -100).NRGBAAt(0, 0))
}

func TestSaturationRemovesColor(t *testing.T) {
	src := uniform(2, 2, color.NRGBA{200, 50, 50, 255})
	got := Saturation(src, -100).NRGBAAt(0, 0)
	assert.Equal(t, got.R, got.G)
	assert.Equal(t, got.G, got.B)
}

func TestTemperature(t *testing.T) {
	src := uniform(2, 2, color.NRGBA{100, 100, 100, 255})
	assert.Equal(t, color.NRGBA{110, 100, 90, 255}, Temperature(src, types.TemperatureWarm).NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{90, 100, 110, 255}, Temperature(src, types.TemperatureCold).NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{100, 100, 100, 255}, Temperature(src, types.TemperatureNeutral).NRGBAAt(0, 0))
}

func TestHistogram(t *testing.T) {
	src := uniform(10, 5, color.NRGBA{255, 0, 10, 255})
	h := Histogram(src)

	require.Len(t, h.Red, 256)
	require.Len(t, h.Luminance, 256)
	assert.Equal(t, 50, h.Red[255])
	assert.Equal(t, 50, h.Green[0])
	assert.Equal(t, 50, h.Blue[10])
	// 0.299*255 + 0.114*10 = 77.385
	assert.Equal(t, 50, h.Luminance[77])
}

func TestDominantColors(t *testing.T) {
	colors := DominantColors(uniform(20, 20, color.NRGBA{100, 60, 20, 255}))
	assert.Equal(t, []string{"#643c14", "#321e0a", "#1e1206", "#965a1e"}, colors)

	assert.Equal(t, []string{"#000000"}, DominantColors(image.NewNRGBA(image.Rect(0, 0, 0, 0))))
}

func TestCropAndPaste(t *testing.T) {
	src := uniform(20, 20, color.NRGBA{0, 0, 0, 255})

	_, err := Crop(src, image.Rect(30, 30, 40, 40))
	assert.Error(t, err)

	crop, err := Crop(src, image.Rect(5, 5, 10, 10))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(5, 5), crop.Bounds().Size())

	patch := uniform(5, 5, color.NRGBA{255, 255, 255, 255})
	out := Paste(src, patch, image.Pt(5, 5))
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, out.NRGBAAt(7, 7))
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, out.NRGBAAt(2, 2))
}

func TestCreateDebugOverlay(t *testing.T) {
	src := uniform(100, 100, color.NRGBA{0, 0, 0, 255})
	edited := types.Region{X: 10, Y: 10, Width: 20, Height: 20, Label: "car"}
	skipped := types.Region{X: 60, Y: 60, Width: 20, Height: 20, Label: "tree"}

	out := CreateDebugOverlay(src, []types.Region{edited, skipped}, []types.Region{edited})
	assert.Equal(t, color.NRGBA{0, 255, 0, 255}, out.NRGBAAt(10, 15))
	assert.Equal(t, color.NRGBA{255, 204, 0, 255}, out.NRGBAAt(60, 65))
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, out.NRGBAAt(45, 45))
	// input untouched
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, src.NRGBAAt(10, 15))
}
