package sampler

// histogram.go provides color histogram computation and the content-change
// scoring that drives scene boundary detection.

import (
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"os"
)

// HistogramBins is the number of bins per RGB channel.
// 32 bins provides enough granularity for scene change detection
// while being robust to noise and minor lighting variations.
const HistogramBins = 32

// ColorHistogram is a 3D RGB color histogram with HistogramBins bins per channel.
// Stored as a flat array for cache efficiency: index = r*B*B + g*B + b
// where B = HistogramBins.
type ColorHistogram struct {
	Bins        [HistogramBins * HistogramBins * HistogramBins]float64
	TotalPixels int
}

// ComputeHistogram computes a normalized 3D RGB color histogram for an image file.
// The image is loaded from disk and processed in a single pass.
func ComputeHistogram(imagePath string) (*ColorHistogram, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, err := jpeg.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode JPEG: %w", err)
	}

	return ComputeHistogramFromImage(img), nil
}

// ComputeHistogramFromImage computes a normalized 3D RGB color histogram
// from an in-memory image.
func ComputeHistogramFromImage(img image.Image) *ColorHistogram {
	hist := &ColorHistogram{}
	bounds := img.Bounds()

	binSize := 256 / HistogramBins

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// RGBA() returns 16-bit values; scale to 8-bit
			r8 := int(r >> 8)
			g8 := int(g >> 8)
			b8 := int(b >> 8)

			rBin := r8 / binSize
			gBin := g8 / binSize
			bBin := b8 / binSize

			if rBin >= HistogramBins {
				rBin = HistogramBins - 1
			}
			if gBin >= HistogramBins {
				gBin = HistogramBins - 1
			}
			if bBin >= HistogramBins {
				bBin = HistogramBins - 1
			}

			idx := rBin*HistogramBins*HistogramBins + gBin*HistogramBins + bBin
			hist.Bins[idx]++
			hist.TotalPixels++
		}
	}

	if hist.TotalPixels > 0 {
		total := float64(hist.TotalPixels)
		for i := range hist.Bins {
			hist.Bins[i] /= total
		}
	}

	return hist
}

// CompareHistograms computes the Pearson correlation coefficient between
// two color histograms. Returns a value in [-1, 1]:
//   - 1.0: identical histograms
//   - 0.0: uncorrelated
//   - -1.0: inverse histograms
//
// This is equivalent to OpenCV's HISTCMP_CORREL method.
func CompareHistograms(h1, h2 *ColorHistogram) float64 {
	n := len(h1.Bins)

	var mean1, mean2 float64
	for i := 0; i < n; i++ {
		mean1 += h1.Bins[i]
		mean2 += h2.Bins[i]
	}
	mean1 /= float64(n)
	mean2 /= float64(n)

	var numerator, denom1, denom2 float64
	for i := 0; i < n; i++ {
		d1 := h1.Bins[i] - mean1
		d2 := h2.Bins[i] - mean2
		numerator += d1 * d2
		denom1 += d1 * d1
		denom2 += d2 * d2
	}

	denom := math.Sqrt(denom1 * denom2)
	if denom < 1e-10 {
		// Both histograms are essentially uniform, consider identical
		return 1.0
	}

	return numerator / denom
}

// SceneScore converts a histogram correlation into a content-change score
// on a 0-100 scale. Identical frames score 0, completely dissimilar frames
// score toward 100.
func SceneScore(correlation float64) float64 {
	score := (1.0 - correlation) * 100.0
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// sceneScores computes the content-change score for each consecutive pair
// of ladder frames. The returned slice has len(framePaths)-1 entries;
// scores[i] compares frames i and i+1.
func sceneScores(framePaths []string) ([]float64, error) {
	if len(framePaths) < 2 {
		return nil, nil
	}

	prevHist, err := ComputeHistogram(framePaths[0])
	if err != nil {
		return nil, fmt.Errorf("failed to compute histogram for ladder frame 0: %w", err)
	}

	scores := make([]float64, 0, len(framePaths)-1)
	for i := 1; i < len(framePaths); i++ {
		hist, err := ComputeHistogram(framePaths[i])
		if err != nil {
			return nil, fmt.Errorf("failed to compute histogram for ladder frame %d: %w", i, err)
		}
		scores = append(scores, SceneScore(CompareHistograms(prevHist, hist)))
		prevHist = hist
	}

	return scores, nil
}
