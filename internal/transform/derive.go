package transform

import (
	"fmt"
	"math"

	"github.com/jonathan/data-autopilot/internal/dataset"
)

// BinNumeric buckets numeric cells into equal-width bins and returns
// categorical labels like "[0.0, 2.5)". Non-numeric cells map to missing.
func BinNumeric(values []dataset.Value, bins int) ([]dataset.Value, error) {
	if bins < 2 {
		return nil, fmt.Errorf("bin count must be at least 2, got %d", bins)
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if v.Kind == dataset.KindNumber {
			lo = math.Min(lo, v.Num)
			hi = math.Max(hi, v.Num)
		}
	}
	if lo > hi {
		return nil, fmt.Errorf("no numeric values to bin")
	}
	width := (hi - lo) / float64(bins)
	out := make([]dataset.Value, len(values))
	for i, v := range values {
		if v.Kind != dataset.KindNumber {
			out[i] = dataset.Missing()
			continue
		}
		idx := 0
		if width > 0 {
			idx = int((v.Num - lo) / width)
			if idx >= bins {
				idx = bins - 1
			}
		}
		left := lo + float64(idx)*width
		right := left + width
		out[i] = dataset.String(fmt.Sprintf("[%.4g, %.4g)", left, right))
	}
	return out, nil
}

// Normalize rescales numeric cells. Method "minmax" maps to [0,1];
// "zscore" centers on the mean with unit variance.
func Normalize(values []dataset.Value, method string) ([]dataset.Value, error) {
	var nums []float64
	for _, v := range values {
		if v.Kind == dataset.KindNumber {
			nums = append(nums, v.Num)
		}
	}
	if len(nums) == 0 {
		return nil, fmt.Errorf("no numeric values to normalize")
	}

	out := make([]dataset.Value, len(values))
	switch method {
	case "zscore":
		mean, std := meanStd(nums)
		for i, v := range values {
			if v.Kind != dataset.KindNumber {
				out[i] = dataset.Missing()
				continue
			}
			if std == 0 {
				out[i] = dataset.Number(0)
			} else {
				out[i] = dataset.Number((v.Num - mean) / std)
			}
		}
	case "minmax", "":
		lo, hi := nums[0], nums[0]
		for _, n := range nums {
			lo = math.Min(lo, n)
			hi = math.Max(hi, n)
		}
		for i, v := range values {
			if v.Kind != dataset.KindNumber {
				out[i] = dataset.Missing()
				continue
			}
			if hi == lo {
				out[i] = dataset.Number(0)
			} else {
				out[i] = dataset.Number((v.Num - lo) / (hi - lo))
			}
		}
	default:
		return nil, fmt.Errorf("unknown normalize method %q", method)
	}
	return out, nil
}

func meanStd(nums []float64) (mean, std float64) {
	for _, n := range nums {
		mean += n
	}
	mean /= float64(len(nums))
	for _, n := range nums {
		std += (n - mean) * (n - mean)
	}
	std = math.Sqrt(std / float64(len(nums)))
	return mean, std
}
