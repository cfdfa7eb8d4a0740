package analysis

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	Missing ValueKind = iota
	Numeric
	Text
	Choice
	MultiChoice
)

// Value is a normalized answer. Exactly one payload field is meaningful,
// selected by Kind.
type Value struct {
	Kind    ValueKind
	Number  float64
	Str     string
	Choices []string
}

// IsMissing reports whether the answer carries no usable value.
func (v Value) IsMissing() bool { return v.Kind == Missing }

// Labels returns the bucket keys the value contributes to. Multi-select
// answers contribute one key per selection.
func (v Value) Labels() []string {
	switch v.Kind {
	case Numeric:
		return []string{FormatNumber(v.Number)}
	case Text, Choice:
		return []string{v.Str}
	case MultiChoice:
		return v.Choices
	default:
		return nil
	}
}

// FormatNumber renders a numeric answer the way it is keyed in tables:
// shortest representation, no exponent for typical survey values.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Normalize converts a raw answer into its canonical value for the given
// question type. It never fails; unusable input yields a Missing value.
func Normalize(raw *string, t QuestionType) Value {
	if raw == nil {
		return Value{}
	}
	switch t.Kind {
	case KindScale:
		f, err := strconv.ParseFloat(strings.TrimSpace(*raw), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}
		}
		// no range check: out-of-range numbers are kept as-is
		return Value{Kind: Numeric, Number: f}
	case KindSingleChoice:
		s := strings.TrimSpace(*raw)
		if s == "" {
			return Value{}
		}
		return Value{Kind: Choice, Str: s}
	case KindMultipleChoice:
		parts := strings.Split(*raw, ";")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) == 0 {
			return Value{}
		}
		return Value{Kind: MultiChoice, Choices: out}
	default:
		return Value{Kind: Text, Str: stripControl(*raw)}
	}
}

// NormalizeResponse normalizes r against q's declared type.
func NormalizeResponse(r Response, q Question) Value {
	return Normalize(r.Answer, q.ParsedType())
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
