package detect

import (
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// detectBoolean checks whether the folded distinct values map onto a known
// true/false pair. Returns the value→bool mapping and the matched fraction.
func detectBoolean(folded map[string]int, total int) (map[string]bool, float64) {
	if len(folded) < 1 || len(folded) > 3 {
		return nil, 0
	}
	mapping := make(map[string]bool, len(folded))
	matched := 0
	var sawTrue, sawFalse bool
	for v, n := range folded {
		switch {
		case booleanTrue[v]:
			mapping[v] = true
			sawTrue = true
			matched += n
		case booleanFalse[v]:
			mapping[v] = false
			sawFalse = true
			matched += n
		default:
			return nil, 0
		}
	}
	if !sawTrue || !sawFalse {
		return nil, 0
	}
	return mapping, float64(matched) / float64(total)
}

// detectTags looks for a consistent multi-value separator. The split token
// vocabulary has to be small relative to the token count, which is what keeps
// currency columns like "$1,200" from matching on the thousands comma.
func (d *Detector) detectTags(strVals []string) (sep string, vocab []string, conf float64) {
	for _, cand := range tagSeparators {
		hits := 0
		totalTokens := 0
		tokenSet := make(map[string]bool)
		for _, s := range strVals {
			if !strings.Contains(s, cand) {
				totalTokens++
				tokenSet[fold(s)] = true
				continue
			}
			hits++
			for _, tok := range strings.Split(s, cand) {
				tok = strings.TrimSpace(tok)
				if tok == "" {
					continue
				}
				totalTokens++
				tokenSet[fold(tok)] = true
			}
		}
		if hits == 0 || totalTokens == 0 {
			continue
		}
		hitFraction := float64(hits) / float64(len(strVals))
		avgTokens := float64(totalTokens) / float64(len(strVals))
		vocabRatio := float64(len(tokenSet)) / float64(totalTokens)
		if hitFraction >= d.cfg.TagRowFraction && avgTokens >= d.cfg.TagMinAvgTokens &&
			len(tokenSet) >= 2 && vocabRatio <= 0.5 {
			tokens := make([]string, 0, len(tokenSet))
			for t := range tokenSet {
				tokens = append(tokens, t)
			}
			sort.Strings(tokens)
			return cand, tokens, hitFraction
		}
	}
	return "", nil, 0
}

// detectDate tries each configured layout and returns the best one with the
// fraction of values it (or any layout) parsed.
func (d *Detector) detectDate(strVals []string) (string, float64) {
	perLayout := make(map[string]int)
	parsedAny := 0
	for _, s := range strVals {
		for _, layout := range d.cfg.DateLayouts {
			if _, err := time.Parse(layout, s); err == nil {
				perLayout[layout]++
				parsedAny++
				break
			}
		}
	}
	if parsedAny == 0 {
		return "", 0
	}
	best := ""
	bestN := 0
	for _, layout := range d.cfg.DateLayouts {
		if perLayout[layout] > bestN {
			best = layout
			bestN = perLayout[layout]
		}
	}
	return best, float64(parsedAny) / float64(len(strVals))
}

// detectNumericString checks whether the values strip to valid numbers once
// currency symbols, percent signs, spaces, and thousands separators are
// removed, and extracts the dominant affixes.
func (d *Detector) detectNumericString(strVals []string) (prefix, suffix string, conf float64) {
	parsed := 0
	prefixCounts := make(map[string]int)
	suffixCounts := make(map[string]int)
	for _, s := range strVals {
		if _, ok := StripNumeric(s); !ok {
			continue
		}
		parsed++
		if p := leadingAffix(s); p != "" {
			prefixCounts[p]++
		}
		if sfx := trailingAffix(s); sfx != "" {
			suffixCounts[sfx]++
		}
	}
	if parsed == 0 {
		return "", "", 0
	}
	prefix = dominantAffix(prefixCounts, parsed)
	suffix = dominantAffix(suffixCounts, parsed)
	return prefix, suffix, float64(parsed) / float64(len(strVals))
}

// StripNumeric removes currency symbols, spaces, percent signs, and thousands
// separators, then parses the remainder as a float. Shared with the
// transformation engine so detection and transformation agree exactly.
func StripNumeric(s string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '€', '£', '¥', '₹', '$', 'R', ',', '%', ' ', ' ':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	if cleaned == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func leadingAffix(s string) string {
	s = strings.TrimSpace(s)
	for i, r := range s {
		if unicode.IsDigit(r) || r == '-' || r == '+' {
			return strings.TrimSpace(s[:i])
		}
	}
	return ""
}

func trailingAffix(s string) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	for i := len(runes) - 1; i >= 0; i-- {
		if unicode.IsDigit(runes[i]) {
			return strings.TrimSpace(string(runes[i+1:]))
		}
	}
	return ""
}

// dominantAffix returns the affix seen on more than 40% of parsed values.
func dominantAffix(counts map[string]int, parsed int) string {
	best := ""
	bestN := 0
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if counts[k] > bestN {
			best = k
			bestN = counts[k]
		}
	}
	if bestN*5 > parsed*2 {
		return best
	}
	return ""
}

// inferOrdinalOrder matches the folded distinct values against the known
// ordered vocabularies. Returns the pattern order filtered to present values.
func inferOrdinalOrder(folded map[string]int) []string {
	if len(folded) < 2 || len(folded) > 15 {
		return nil
	}
	for _, pattern := range ordinalPatterns {
		patternSet := make(map[string]bool, len(pattern))
		for _, p := range pattern {
			patternSet[p] = true
		}
		subset := true
		for v := range folded {
			if !patternSet[v] {
				subset = false
				break
			}
		}
		if !subset {
			continue
		}
		var order []string
		for _, p := range pattern {
			if _, ok := folded[p]; ok {
				order = append(order, p)
			}
		}
		if len(order) >= 2 {
			return order
		}
	}
	return nil
}
