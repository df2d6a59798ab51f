package processing

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/image-assistant/internal/utils"
	"github.com/menta2k/image-assistant/pkg/types"
)

// Default output qualities
const (
	DefaultJPEGQuality = 95
	DefaultWebPQuality = 90
)

// Processor handles image loading, encoding and saving
type Processor struct {
	JPEGQuality  int
	WebPQuality  int
	WebPLossless bool
}

// NewProcessor creates a new image processor with default output settings
func NewProcessor() *Processor {
	return &Processor{
		JPEGQuality: DefaultJPEGQuality,
		WebPQuality: DefaultWebPQuality,
	}
}

// LoadImage loads an image from a file path with WebP support
func (p *Processor) LoadImage(path string) (image.Image, error) {
	// Try imaging.Open (registered decoders)
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := p.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, path)
	}
	return img, nil
}

// DecodeImage decodes an image from byte data with WebP support
func (p *Processor) DecodeImage(data []byte) (image.Image, error) {
	// Try standard image.Decode first
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	// Try WebP decode
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// EncodeForModel downsizes img to maxDim on its longest side and encodes it
// for a vision model. It returns the encoded bytes and their MIME type.
func (p *Processor) EncodeForModel(img image.Image, format string, maxDim int, quality int) ([]byte, string, error) {
	if maxDim > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > maxDim || h > maxDim {
			if w >= h {
				img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
			}
		}
	}
	if quality <= 0 || quality > 100 {
		quality = 85
	}

	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/png", nil
	default: // jpg
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/jpeg", nil
	}
}

// SaveImage writes img to path, choosing the encoder from the extension and
// creating the parent directory when needed. Unknown extensions are written
// as PNG.
func (p *Processor) SaveImage(img image.Image, path string) error {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		opts := &webp.Options{Lossless: p.WebPLossless, Quality: float32(p.WebPQuality)}
		if err := webp.Encode(f, img, opts); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	case ".jpg", ".jpeg":
		return imaging.Save(img, path, imaging.JPEGQuality(p.JPEGQuality))
	case ".png", ".gif", ".tif", ".tiff", ".bmp":
		return imaging.Save(img, path)
	default:
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := imaging.Encode(f, img, imaging.PNG); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
}

// Metadata reads the header of the image at path
func (p *Processor) Metadata(path string) (types.ImageMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.ImageMetadata{}, err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return types.ImageMetadata{}, fmt.Errorf("failed to read image header: %w", err)
	}

	model, channels, depth := describeColorModel(cfg.ColorModel)
	return types.ImageMetadata{
		Width:      cfg.Width,
		Height:     cfg.Height,
		Format:     strings.ToUpper(format),
		ColorModel: model,
		Channels:   channels,
		BitDepth:   depth,
	}, nil
}

// describeColorModel names a color model the way image tools usually do
func describeColorModel(m color.Model) (string, int, int) {
	if _, ok := m.(color.Palette); ok {
		return "P", 1, 8
	}
	switch m {
	case color.GrayModel:
		return "L", 1, 8
	case color.Gray16Model:
		return "L", 1, 16
	case color.YCbCrModel:
		return "YCbCr", 3, 8
	case color.NYCbCrAModel:
		return "YCbCrA", 4, 8
	case color.CMYKModel:
		return "CMYK", 4, 8
	case color.AlphaModel:
		return "A", 1, 8
	case color.Alpha16Model:
		return "A", 1, 16
	case color.NRGBA64Model:
		return "RGBA", 4, 16
	case color.RGBA64Model:
		return "RGB", 3, 16
	case color.NRGBAModel:
		return "RGBA", 4, 8
	default:
		return "RGB", 3, 8
	}
}

// Crop returns the sub-image covered by rect, anchored at the origin
func Crop(img image.Image, rect image.Rectangle) (*image.NRGBA, error) {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("empty crop rectangle")
	}
	return imaging.Crop(img, rect), nil
}

// Paste returns a copy of background with patch drawn at pos
func Paste(background, patch image.Image, pos image.Point) *image.NRGBA {
	return imaging.Paste(background, patch, pos)
}

// Helper functions
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
