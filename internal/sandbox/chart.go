package sandbox

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/data-autopilot/internal/dataset"
	"github.com/jonathan/data-autopilot/internal/detect"
	"github.com/jonathan/data-autopilot/internal/types"
)

const (
	defaultChartLimit   = 20
	defaultHistogramBin = 10
	maxScatterPoints    = 500
)

func (in *interp) buildChart(req *ChartRequest) (*types.ChartSpec, error) {
	xcol, err := in.column(req.X)
	if err != nil {
		return nil, err
	}

	spec := &types.ChartSpec{
		ID:     uuid.NewString(),
		Kind:   req.Kind,
		Title:  req.Title,
		XLabel: req.X,
		YLabel: req.Y,
	}

	switch req.Kind {
	case "bar", "pie":
		spec.Series, err = in.aggregated(xcol, req)
	case "line":
		spec.Series, err = in.lineSeries(xcol, req)
	case "histogram":
		spec.Series, err = histogramSeries(xcol, req.Bins)
		if spec.YLabel == "" {
			spec.YLabel = "count"
		}
	case "scatter":
		spec.Series, err = in.scatterSeries(xcol, req)
	default:
		err = fmt.Errorf("unsupported chart kind %q", req.Kind)
	}
	if err != nil {
		return nil, err
	}
	if len(spec.Series) == 0 {
		return nil, fmt.Errorf("no plottable data in column %q", req.X)
	}
	return spec, nil
}

// aggregated groups rows by the x value and reduces each group with the
// requested aggregation. Used for bar and pie charts, sorted by magnitude.
func (in *interp) aggregated(xcol *dataset.Column, req *ChartRequest) ([]types.ChartPoint, error) {
	ycol, agg, err := in.resolveAgg(req)
	if err != nil {
		return nil, err
	}

	sums := map[string]float64{}
	counts := map[string]int{}
	order := []string{}
	for row, v := range xcol.Values {
		if v.IsMissing() {
			continue
		}
		label := strings.TrimSpace(v.String())
		if _, seen := counts[label]; !seen {
			order = append(order, label)
		}
		if agg == "count" {
			counts[label]++
			continue
		}
		y, ok := numericAt(ycol, row)
		if !ok {
			continue
		}
		sums[label] += y
		counts[label]++
	}

	points := make([]types.ChartPoint, 0, len(order))
	for _, label := range order {
		if counts[label] == 0 {
			continue
		}
		var value float64
		switch agg {
		case "count":
			value = float64(counts[label])
		case "sum":
			value = sums[label]
		case "mean":
			value = sums[label] / float64(counts[label])
		}
		points = append(points, types.ChartPoint{Label: label, Value: value})
	}

	sort.SliceStable(points, func(i, j int) bool { return points[i].Value > points[j].Value })
	limit := req.Limit
	if limit == 0 {
		limit = defaultChartLimit
	}
	if len(points) > limit {
		points = points[:limit]
	}
	return points, nil
}

// lineSeries aggregates like a bar chart but keeps the x axis in its natural
// order: chronological for dates, ascending for numbers, lexical otherwise.
func (in *interp) lineSeries(xcol *dataset.Column, req *ChartRequest) ([]types.ChartPoint, error) {
	ycol, agg, err := in.resolveAgg(req)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		key   float64
		byKey bool
		sum   float64
		count int
	}
	buckets := map[string]*bucket{}
	order := []string{}
	for row, v := range xcol.Values {
		if v.IsMissing() {
			continue
		}
		label := strings.TrimSpace(v.String())
		b, seen := buckets[label]
		if !seen {
			b = &bucket{}
			switch v.Kind {
			case dataset.KindTime:
				b.key, b.byKey = float64(v.Time.Unix()), true
			case dataset.KindNumber:
				b.key, b.byKey = v.Num, true
			}
			buckets[label] = b
			order = append(order, label)
		}
		if agg == "count" {
			b.count++
			continue
		}
		y, ok := numericAt(ycol, row)
		if !ok {
			continue
		}
		b.sum += y
		b.count++
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := buckets[order[i]], buckets[order[j]]
		if a.byKey && b.byKey {
			return a.key < b.key
		}
		return order[i] < order[j]
	})

	points := make([]types.ChartPoint, 0, len(order))
	for _, label := range order {
		b := buckets[label]
		if b.count == 0 {
			continue
		}
		var value float64
		switch agg {
		case "count":
			value = float64(b.count)
		case "sum":
			value = b.sum
		case "mean":
			value = b.sum / float64(b.count)
		}
		points = append(points, types.ChartPoint{Label: label, Value: value})
	}
	return points, nil
}

func histogramSeries(xcol *dataset.Column, bins int) ([]types.ChartPoint, error) {
	if bins == 0 {
		bins = defaultHistogramBin
	}
	var nums []float64
	for row := range xcol.Values {
		if n, ok := numericAt(xcol, row); ok {
			nums = append(nums, n)
		}
	}
	if len(nums) == 0 {
		return nil, fmt.Errorf("column %q holds no numeric values to histogram", xcol.Name)
	}

	lo, hi := nums[0], nums[0]
	for _, n := range nums {
		lo, hi = math.Min(lo, n), math.Max(hi, n)
	}
	if lo == hi {
		return []types.ChartPoint{{Label: fmt.Sprintf("%g", lo), Value: float64(len(nums))}}, nil
	}

	width := (hi - lo) / float64(bins)
	counts := make([]int, bins)
	for _, n := range nums {
		idx := int((n - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
	}

	points := make([]types.ChartPoint, bins)
	for i, c := range counts {
		points[i] = types.ChartPoint{
			Label: fmt.Sprintf("[%.4g, %.4g)", lo+float64(i)*width, lo+float64(i+1)*width),
			Value: float64(c),
		}
	}
	return points, nil
}

func (in *interp) scatterSeries(xcol *dataset.Column, req *ChartRequest) ([]types.ChartPoint, error) {
	if req.Y == "" {
		return nil, fmt.Errorf("scatter charts need a %q column", "y")
	}
	ycol, err := in.column(req.Y)
	if err != nil {
		return nil, err
	}
	var points []types.ChartPoint
	for row := range xcol.Values {
		x, okX := numericAt(xcol, row)
		y, okY := numericAt(ycol, row)
		if !okX || !okY {
			continue
		}
		points = append(points, types.ChartPoint{Label: fmt.Sprintf("%g", x), Value: y})
		if len(points) == maxScatterPoints {
			break
		}
	}
	return points, nil
}

// resolveAgg validates the aggregation and resolves the y column if one is
// needed. Counting needs no y column.
func (in *interp) resolveAgg(req *ChartRequest) (*dataset.Column, string, error) {
	agg := req.Agg
	if agg == "" {
		agg = "count"
	}
	if agg == "count" {
		return nil, agg, nil
	}
	if req.Y == "" {
		return nil, "", fmt.Errorf("aggregation %q needs a %q column", agg, "y")
	}
	ycol, err := in.column(req.Y)
	if err != nil {
		return nil, "", err
	}
	return ycol, agg, nil
}

// numericAt extracts a float from a cell, accepting native numbers, booleans
// as 0/1, and numeric-looking strings.
func numericAt(col *dataset.Column, row int) (float64, bool) {
	v := col.Values[row]
	switch v.Kind {
	case dataset.KindNumber:
		if math.IsNaN(v.Num) {
			return 0, false
		}
		return v.Num, true
	case dataset.KindBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	case dataset.KindString:
		return detect.StripNumeric(v.Str)
	default:
		return 0, false
	}
}
