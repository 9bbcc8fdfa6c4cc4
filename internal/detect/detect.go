// Package detect implements the semantic type detector: a fixed priority
// cascade that inspects one column's values and produces a ColumnProfile with
// a confidence score and supporting evidence. Detection is deterministic and
// order-independent: permuting a column's rows yields an identical profile.
package detect

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/data-autopilot/internal/dataset"
	"github.com/jonathan/data-autopilot/internal/types"
)

// Config holds the detection policy parameters. The defaults are policy
// choices, not mandated constants; they are documented in DESIGN.md.
type Config struct {
	// MinConfidence is the floor below which a column stays unknown.
	MinConfidence float64
	// DateThreshold is the fraction of non-missing values a date layout must
	// parse for date_string to win.
	DateThreshold float64
	// NumericThreshold is the fraction of non-missing values that must strip
	// to valid numbers for numeric_string to win.
	NumericThreshold float64
	// TagRowFraction is the minimum fraction of rows that must contain the
	// candidate separator.
	TagRowFraction float64
	// TagMinAvgTokens is the minimum mean token count per row for a tag column.
	TagMinAvgTokens float64
	// DateLayouts are tried in order for date_string detection.
	DateLayouts []string
}

// DefaultConfig returns the default detection policy.
func DefaultConfig() Config {
	return Config{
		MinConfidence:    0.6,
		DateThreshold:    0.6,
		NumericThreshold: 0.6,
		TagRowFraction:   0.25,
		TagMinAvgTokens:  1.2,
		DateLayouts: []string{
			"2006-01-02",
			"2006-01-02 15:04:05",
			time.RFC3339,
			"01/02/2006",
			"1/2/2006",
			"01/02/06",
			"02.01.2006",
			"2.1.2006",
			"02-01-2006",
			"Jan 2, 2006",
			"2 Jan 2006",
		},
	}
}

// Detector runs the cascade over columns.
type Detector struct {
	cfg Config
}

// New creates a detector with the given policy.
func New(cfg Config) *Detector { return &Detector{cfg: cfg} }

// ProfileDataset detects every column in parallel and installs the resulting
// profiles on the dataset. Profiles are replaced atomically per column.
func (d *Detector) ProfileDataset(ctx context.Context, ds *dataset.Dataset) (map[string]types.ColumnProfile, error) {
	cols := ds.Columns()
	profiles := make([]*types.ColumnProfile, len(cols))

	g, _ := errgroup.WithContext(ctx)
	for i, col := range cols {
		g.Go(func() error {
			profiles[i] = d.ProfileColumn(col)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]types.ColumnProfile, len(cols))
	for i, col := range cols {
		if err := ds.SetProfile(col.ID, profiles[i]); err != nil {
			return nil, err
		}
		out[col.Name] = *profiles[i]
	}
	return out, nil
}

// ProfileColumn runs the cascade over one column's values. Missing and empty
// cells never participate in pattern matching; they only shrink the matched
// fraction denominator.
func (d *Detector) ProfileColumn(col *dataset.Column) *types.ColumnProfile {
	p := &types.ColumnProfile{
		Column: col.Name,
		Type:   types.TypeUnknown,
		Rows:   len(col.Values),
	}

	var strVals []string
	var numCount, timeCount, boolCount int
	for _, v := range col.Values {
		if v.IsMissing() {
			p.Missing++
			continue
		}
		switch v.Kind {
		case dataset.KindNumber:
			numCount++
		case dataset.KindTime:
			timeCount++
		case dataset.KindBool:
			boolCount++
		case dataset.KindString:
			strVals = append(strVals, strings.TrimSpace(v.Str))
		}
	}
	nonMissing := p.Rows - p.Missing
	p.Unique = distinctCount(col.Values)

	if nonMissing == 0 {
		return p
	}

	// Columns already carrying typed cells short-circuit the string cascade.
	if boolCount == nonMissing {
		p.Type = types.TypeBoolean
		p.Confidence = 1
		p.BooleanMap = map[string]bool{"true": true, "false": false}
		return p
	}
	if timeCount == nonMissing {
		p.Type = types.TypeDateString
		p.Confidence = 1
		return p
	}
	if numCount == nonMissing {
		return d.profileNumeric(col, p, nonMissing)
	}
	if len(strVals) < nonMissing {
		// Mixed cell kinds never clear the threshold; the column stays
		// unknown and is reported as a detection ambiguity.
		return p
	}

	folded := foldedDistinct(strVals)

	if m, conf := detectBoolean(folded, len(strVals)); m != nil && conf >= d.cfg.MinConfidence {
		p.Type = types.TypeBoolean
		p.Confidence = conf
		p.BooleanMap = m
		p.Evidence = sortedKeys(m)
		return p
	}

	if sep, vocab, conf := d.detectTags(strVals); sep != "" && conf >= d.cfg.MinConfidence {
		p.Type = types.TypeMultiValueTag
		p.Confidence = conf
		p.TagSeparator = sep
		p.TagVocabulary = vocab
		p.Evidence = []string{sep}
		return p
	}

	if layout, conf := d.detectDate(strVals); conf >= d.cfg.DateThreshold {
		p.Type = types.TypeDateString
		p.Confidence = conf
		p.DateLayout = layout
		p.Evidence = []string{layout}
		return p
	}

	if prefix, suffix, conf := d.detectNumericString(strVals); conf >= d.cfg.NumericThreshold {
		p.Type = types.TypeNumericString
		p.Confidence = conf
		p.NumericPrefix = prefix
		p.NumericSuffix = suffix
		if prefix != "" {
			p.Evidence = append(p.Evidence, prefix)
		}
		if suffix != "" {
			p.Evidence = append(p.Evidence, suffix)
		}
		return p
	}

	if order := inferOrdinalOrder(folded); order != nil {
		p.Type = types.TypeOrdinal
		p.Confidence = 1
		p.OrdinalOrder = order
		p.Categories = order
		p.Evidence = order
		return p
	}

	return d.profileCategorical(strVals, p, nonMissing)
}

// profileNumeric classifies a column whose cells are already numbers.
func (d *Detector) profileNumeric(col *dataset.Column, p *types.ColumnProfile, nonMissing int) *types.ColumnProfile {
	distinct := make(map[float64]bool)
	zeroOne := true
	for _, v := range col.Values {
		if v.IsMissing() {
			continue
		}
		distinct[v.Num] = true
		if v.Num != 0 && v.Num != 1 {
			zeroOne = false
		}
	}
	switch {
	case len(distinct) == 2 && zeroOne:
		p.Type = types.TypeBoolean
		p.Confidence = 1
		p.BooleanMap = map[string]bool{"1": true, "0": false}
	case len(distinct) <= categoricalThreshold(nonMissing):
		p.Type = types.TypeCategorical
		p.Confidence = 1 - float64(len(distinct))/float64(nonMissing)
		if p.Confidence < d.cfg.MinConfidence {
			p.Type = types.TypeNumeric
			p.Confidence = 1
		}
	default:
		p.Type = types.TypeNumeric
		p.Confidence = 1
	}
	return p
}

// profileCategorical is the cascade tail: low-cardinality strings become
// categorical, everything else free text.
func (d *Detector) profileCategorical(strVals []string, p *types.ColumnProfile, nonMissing int) *types.ColumnProfile {
	distinct := make(map[string]bool, len(strVals))
	var totalLen int
	for _, s := range strVals {
		distinct[s] = true
		totalLen += len(s)
	}
	avgLen := float64(totalLen) / float64(len(strVals))
	uniqueRatio := float64(len(distinct)) / float64(nonMissing)

	if len(distinct) <= categoricalThreshold(nonMissing) && avgLen <= 80 {
		p.Type = types.TypeCategorical
		p.Confidence = clamp01(1 - uniqueRatio)
		p.Categories = sortedKeysBool(distinct)
		if p.Confidence < d.cfg.MinConfidence {
			p.Type = types.TypeUnknown
			p.Confidence = 0
			p.Categories = nil
		}
		return p
	}
	if uniqueRatio > 0.9 || avgLen > 80 {
		p.Type = types.TypeFreeText
		p.Confidence = clamp01(uniqueRatio)
		if p.Confidence < d.cfg.MinConfidence {
			p.Type = types.TypeUnknown
			p.Confidence = 0
		}
		return p
	}
	return p
}

// categoricalThreshold is the maximum distinct-value count for a column to
// still count as categorical, scaled to the row count.
func categoricalThreshold(n int) int {
	switch {
	case n <= 50:
		t := n / 2
		if t < 10 {
			t = 10
		}
		return t
	case n <= 500:
		return 30
	default:
		t := n / 20
		if t > 50 {
			t = 50
		}
		return t
	}
}

func distinctCount(values []dataset.Value) int {
	seen := make(map[string]bool)
	for _, v := range values {
		if v.IsMissing() {
			continue
		}
		seen[string(v.Kind)+"\x00"+v.String()] = true
	}
	return len(seen)
}

// foldedDistinct returns the case-folded distinct values with their counts.
func foldedDistinct(strVals []string) map[string]int {
	out := make(map[string]int)
	for _, s := range strVals {
		out[fold(s)]++
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysBool(m map[string]bool) []string {
	return sortedKeys(m)
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
