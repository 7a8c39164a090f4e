package profile

import (
	"regexp"
	"unicode/utf8"

	"github.com/KaramelBytes/tablescope/internal/table"
)

const maxSamples = 5

var (
	emailRe  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	urlRe    = regexp.MustCompile(`^https?://`)
	digitsRe = regexp.MustCompile(`^\d+$`)
	codeRe   = regexp.MustCompile(`^[A-Z0-9_-]+$`)
)

// textHints are checked in order; the first with a majority wins.
var textHints = []struct {
	label string
	re    *regexp.Regexp
}{
	{"Email addresses", emailRe},
	{"URLs", urlRe},
	{"Numeric IDs (as text)", digitsRe},
	{"IDs/Codes", codeRe},
}

// TextStats summarises a free-text column.
type TextStats struct {
	Count       int      `json:"count" yaml:"count"`
	Unique      int      `json:"unique" yaml:"unique"`
	Missing     int      `json:"missing" yaml:"missing"`
	AvgLength   float64  `json:"avg_length" yaml:"avg_length"`
	MinLength   int      `json:"min_length" yaml:"min_length"`
	MaxLength   int      `json:"max_length" yaml:"max_length"`
	PatternHint string   `json:"pattern_hint" yaml:"pattern_hint"`
	Samples     []string `json:"samples" yaml:"samples"`
}

func emptyText(missing int) *TextStats {
	return &TextStats{Missing: missing, PatternHint: NotAvailable, Samples: []string{}}
}

// Text measures string lengths in characters and guesses a dominant shape.
func Text(col *table.Column) *TextStats {
	nonNull := col.NonNull()
	if len(nonNull) == 0 {
		return emptyText(col.NullCount())
	}
	strs := make([]string, len(nonNull))
	total := 0
	minLen, maxLen := -1, 0
	for i, v := range nonNull {
		s := table.Format(v)
		strs[i] = s
		n := utf8.RuneCountInString(s)
		total += n
		if minLen < 0 || n < minLen {
			minLen = n
		}
		maxLen = max(maxLen, n)
	}

	distinct := table.Distinct(nonNull)
	samples := make([]string, 0, maxSamples)
	for _, v := range distinct {
		if len(samples) == maxSamples {
			break
		}
		samples = append(samples, table.Format(v))
	}

	hint := "Free text"
	for _, h := range textHints {
		if majority(strs, h.re.MatchString) {
			hint = h.label
			break
		}
	}

	return &TextStats{
		Count:       len(nonNull),
		Unique:      len(distinct),
		Missing:     col.NullCount(),
		AvgLength:   float64(total) / float64(len(nonNull)),
		MinLength:   minLen,
		MaxLength:   maxLen,
		PatternHint: hint,
		Samples:     samples,
	}
}
