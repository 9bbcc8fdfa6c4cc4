package detect

import "golang.org/x/text/cases"

// Boolean vocabulary. Matching is case-folded, so "Sim", "SIM" and "sim"
// collapse to one entry.
var (
	booleanTrue = map[string]bool{
		"yes": true, "y": true, "true": true, "t": true, "1": true,
		"si": true, "sí": true, "oui": true, "sim": true, "ja": true,
		"da": true, "tak": true, "yeah": true, "yep": true, "x": true,
	}
	booleanFalse = map[string]bool{
		"no": true, "n": true, "false": true, "f": true, "0": true,
		"não": true, "nao": true, "non": true, "nein": true, "nie": true,
		"nope": true, "nah": true,
	}
)

// ordinalPatterns are known ordered vocabularies, most specific first.
// A column is ordinal when its distinct folded values are a subset of one
// pattern. English first, then Portuguese, matching the data the original
// tool was built for.
var ordinalPatterns = [][]string{
	// Likert 5-point
	{"strongly disagree", "disagree", "neutral", "agree", "strongly agree"},
	{"very dissatisfied", "dissatisfied", "neutral", "satisfied", "very satisfied"},
	{"very poor", "poor", "average", "good", "excellent"},
	{"very low", "low", "medium", "high", "very high"},
	{"never", "rarely", "sometimes", "often", "always"},
	{"poor", "fair", "good", "very good", "excellent"},
	// 3-point
	{"low", "medium", "high"},
	{"small", "medium", "large"},
	{"bad", "average", "good"},
	{"disagree", "neutral", "agree"},
	// Education
	{"high school", "bachelor", "master", "phd"},
	{"high school", "bachelors", "masters", "doctorate"},
	// Frequency
	{"daily", "weekly", "monthly", "yearly"},
	// Priority / severity
	{"critical", "high", "medium", "low"},
	{"p0", "p1", "p2", "p3", "p4"},
	// Português (BR)
	{"discordo totalmente", "discordo", "neutro", "concordo", "concordo totalmente"},
	{"muito insatisfeito", "insatisfeito", "neutro", "satisfeito", "muito satisfeito"},
	{"péssimo", "ruim", "regular", "bom", "excelente"},
	{"muito baixo", "baixo", "médio", "alto", "muito alto"},
	{"nunca", "raramente", "às vezes", "frequentemente", "sempre"},
	{"baixo", "médio", "alto"},
	{"pequeno", "médio", "grande"},
	{"ruim", "regular", "bom"},
	{"discordo", "neutro", "concordo"},
	{"ensino médio", "graduação", "mestrado", "doutorado"},
	{"ruim", "razoável", "bom", "muito bom", "excelente"},
	{"diário", "semanal", "mensal", "anual"},
	{"crítico", "alto", "médio", "baixo"},
}

// tagSeparators are tried in order; the first consistent one wins.
var tagSeparators = []string{",", ";", "|", " / "}

// fold lowers a value locale-insensitively for vocabulary matching. A fresh
// Caser per call: x/text Casers carry state and must not be shared across
// the profiling goroutines.
func fold(s string) string {
	return cases.Fold().String(s)
}
