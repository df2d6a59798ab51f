package vision

import (
	"context"
	"image"
	"math"
	"sort"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/menta2k/image-assistant/pkg/detection"
	"github.com/menta2k/image-assistant/pkg/geometry"
)

// SaliencyDetector is an offline detection backend. It cannot recognise
// object classes; it ranks visually salient windows and reports them as
// candidates for whatever was asked. A window's score is how far its mean
// saliency stands above the image mean, so flat or low-contrast images yield
// low scores that the confidence floor removes.
type SaliencyDetector struct {
	config DetectionConfig
}

// DetectionConfig holds configuration for saliency detection
type DetectionConfig struct {
	EdgeThreshold   float64
	ContrastWeight  float64
	ColorWeight     float64
	MinSubjectRatio float64
	// MaxOverlap is the IoU above which a weaker window is suppressed
	MaxOverlap float64
	// ContrastScale is the saliency excess over the image mean that maps
	// to a score of 1
	ContrastScale float64
	// AnalysisDim is the longest side the image is reduced to before analysis
	AnalysisDim int
	MaxRegions  int
}

// New creates a new SaliencyDetector with default configuration
func New() *SaliencyDetector {
	return &SaliencyDetector{
		config: DetectionConfig{
			EdgeThreshold:   0.01, // More sensitive
			ContrastWeight:  0.3,
			ColorWeight:     0.2,
			MinSubjectRatio: 0.05, // Smaller minimum
			MaxOverlap:      0.3,
			ContrastScale:   0.1,
			AnalysisDim:     256,
			MaxRegions:      10,
		},
	}
}

// NewWithConfig creates a new SaliencyDetector with custom configuration
func NewWithConfig(config DetectionConfig) *SaliencyDetector {
	if config.AnalysisDim <= 0 {
		config.AnalysisDim = 256
	}
	if config.ContrastScale <= 0 {
		config.ContrastScale = 0.1
	}
	return &SaliencyDetector{config: config}
}

// window is a candidate rectangle in analysis coordinates
type window struct {
	rect  image.Rectangle
	score float64
}

// Detect returns the most salient, mostly non-overlapping windows of img,
// strongest first, labelled with query.
func (d *SaliencyDetector) Detect(ctx context.Context, img image.Image, query string) ([]detection.Detection, error) {
	small := d.prepare(img)
	bounds := small.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < 3 || height < 3 {
		return nil, nil
	}

	saliencyMap := d.calculateSaliencyMap(small)

	windows, err := d.findImportantRegions(ctx, saliencyMap, width, height)
	if err != nil {
		return nil, err
	}
	windows = d.filterAndScoreRegions(windows, width, height)
	windows = suppress(windows, d.config.MaxOverlap)

	if d.config.MaxRegions > 0 && len(windows) > d.config.MaxRegions {
		windows = windows[:d.config.MaxRegions]
	}
	if len(windows) == 0 {
		return nil, nil
	}

	label := strings.ToLower(strings.TrimSpace(query))
	mean := meanSaliency(saliencyMap)
	out := make([]detection.Detection, 0, len(windows))
	for _, w := range windows {
		score := math.Min(1, (w.score-mean)/d.config.ContrastScale)
		if score <= 0 {
			continue
		}
		out = append(out, detection.Detection{
			Box:   geometry.PercentFromRect(w.rect, bounds),
			Label: label,
			Score: score,
		})
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// prepare reduces img so that analysis cost does not depend on input size
func (d *SaliencyDetector) prepare(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() > d.config.AnalysisDim || b.Dy() > d.config.AnalysisDim {
		if b.Dx() >= b.Dy() {
			return imaging.Resize(img, d.config.AnalysisDim, 0, imaging.Box)
		}
		return imaging.Resize(img, 0, d.config.AnalysisDim, imaging.Box)
	}
	return imaging.Clone(img)
}

var neighbors = [8][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}

func (d *SaliencyDetector) calculateSaliencyMap(img *image.NRGBA) [][]float64 {
	width, height := img.Bounds().Dx(), img.Bounds().Dy()

	saliencyMap := make([][]float64, height)
	for i := range saliencyMap {
		saliencyMap[i] = make([]float64, width)
	}

	px := func(x, y int) (float64, float64, float64) {
		i := y*img.Stride + x*4
		return float64(img.Pix[i]), float64(img.Pix[i+1]), float64(img.Pix[i+2])
	}

	// Simple saliency calculation based on edge detection and contrast
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			r1, g1, b1 := px(x, y)

			var edgeStrength float64
			for _, offset := range neighbors {
				r2, g2, b2 := px(x+offset[0], y+offset[1])
				dr, dg, db := r1-r2, g1-g2, b1-b2
				edgeStrength += math.Sqrt(dr*dr + dg*dg + db*db)
			}

			// Normalize edge strength
			edgeStrength /= 8.0 * 255.0

			brightness := (r1 + g1 + b1) / (3.0 * 255.0)

			saliencyMap[y][x] = d.config.ContrastWeight*edgeStrength + d.config.ColorWeight*brightness
		}
	}

	return saliencyMap
}

func (d *SaliencyDetector) findImportantRegions(ctx context.Context, saliencyMap [][]float64, width, height int) ([]window, error) {
	var windows []window

	// Use sliding window approach to find high-saliency regions
	windowSizes := []int{width / 16, width / 12, width / 8, width / 4, width / 3}

	for _, windowSize := range windowSizes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if windowSize < 8 || windowSize > height {
			continue
		}
		step := windowSize / 8
		if step < 1 {
			step = 1
		}

		for y := 0; y <= height-windowSize; y += step {
			for x := 0; x <= width-windowSize; x += step {
				score := calculateRegionScore(saliencyMap, x, y, windowSize, windowSize)
				if score > d.config.EdgeThreshold {
					windows = append(windows, window{
						rect:  image.Rect(x, y, x+windowSize, y+windowSize),
						score: score,
					})
				}
			}
		}
	}

	return windows, nil
}

// meanSaliency averages the map over interior pixels; the one-pixel border
// carries no edge information.
func meanSaliency(saliencyMap [][]float64) float64 {
	var total float64
	count := 0
	for y := 1; y < len(saliencyMap)-1; y++ {
		row := saliencyMap[y]
		for x := 1; x < len(row)-1; x++ {
			total += row[x]
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

func calculateRegionScore(saliencyMap [][]float64, x, y, width, height int) float64 {
	var totalScore float64
	count := 0

	for ry := y; ry < y+height && ry < len(saliencyMap); ry++ {
		for rx := x; rx < x+width && rx < len(saliencyMap[0]); rx++ {
			totalScore += saliencyMap[ry][rx]
			count++
		}
	}

	if count == 0 {
		return 0
	}

	return totalScore / float64(count)
}

func (d *SaliencyDetector) filterAndScoreRegions(windows []window, imageWidth, imageHeight int) []window {
	minArea := int(float64(imageWidth*imageHeight) * d.config.MinSubjectRatio)

	filtered := windows[:0]
	for _, w := range windows {
		if w.rect.Dx()*w.rect.Dy() >= minArea {
			filtered = append(filtered, w)
		}
	}

	// Sort by score (descending)
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].score > filtered[j].score
	})

	return filtered
}

// suppress keeps windows in order, dropping any that overlap a kept one by more than maxIoU
func suppress(windows []window, maxIoU float64) []window {
	var kept []window
	for _, w := range windows {
		ok := true
		for _, k := range kept {
			if iou(w.rect, k.rect) > maxIoU {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, w)
		}
	}
	return kept
}

func iou(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	ia := float64(inter.Dx() * inter.Dy())
	union := float64(a.Dx()*a.Dy()+b.Dx()*b.Dy()) - ia
	return ia / union
}
