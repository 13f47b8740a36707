package poll

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"alphabot/model"
)

// DefaultDuration applies when the spec carries no t= override.
const DefaultDuration = 60 * time.Second

// Answer is one votable option. Votes is authoritative only after the
// session has tallied; during the open phase it stays zero.
type Answer struct {
	Symbol  string
	Display string
	Votes   int
}

// Spec is a validated poll definition. Specs are immutable after parse.
type Spec struct {
	Question      string
	Answers       []Answer
	Duration      time.Duration
	MaxSelections int
}

var numericPayload = regexp.MustCompile(`^[0-9]{1,18}$`)

// ParseSpec turns the raw command text into a validated poll spec.
//
// The text is split on semicolons into trimmed segments. Optional t=SECONDS
// and n=MAXSELECTIONS tokens are consumed wherever they appear; malformed
// payloads fall back to the defaults instead of failing. The first remaining
// segment is the question, the rest are answers in submission order, each
// assigned the next symbol from the fixed alphabet.
func ParseSpec(text string) (*Spec, error) {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "@everyone") || strings.Contains(lower, "@here") {
		return nil, model.ErrMassMention
	}

	var segments []string
	for _, seg := range strings.Split(text, ";") {
		if seg = strings.TrimSpace(seg); seg != "" {
			segments = append(segments, seg)
		}
	}

	spec := &Spec{Duration: DefaultDuration, MaxSelections: 1}

	kept := segments[:0]
	for _, seg := range segments {
		switch {
		case strings.HasPrefix(seg, "t="):
			if v := seg[len("t="):]; numericPayload.MatchString(v) {
				secs, _ := strconv.ParseInt(v, 10, 64)
				spec.Duration = time.Duration(secs) * time.Second
			}
		case strings.HasPrefix(seg, "n="):
			if v := seg[len("n="):]; numericPayload.MatchString(v) {
				if n, _ := strconv.Atoi(v); n > 0 {
					spec.MaxSelections = n
				}
			}
		default:
			kept = append(kept, seg)
		}
	}

	// The question counts as one segment, so the shortest valid spec is
	// a question plus a single answer.
	if len(kept) < 2 || len(kept) > MaxAnswers+1 {
		return nil, model.ErrInvalidSpec
	}

	spec.Question = kept[0]
	answers := kept[1:]
	if spec.MaxSelections > len(answers) {
		return nil, model.ErrTooManySelections
	}

	for i, ans := range answers {
		sym, err := SymbolFor(i + 1)
		if err != nil {
			return nil, err
		}
		spec.Answers = append(spec.Answers, Answer{Symbol: sym, Display: sym + " " + ans})
	}

	return spec, nil
}
