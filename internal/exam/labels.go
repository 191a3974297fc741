package exam

import (
	"strings"
	"unicode"
)

// Label renders the positional option label for index i: 0 -> "A", 25 -> "Z",
// 26 -> "AA".
func Label(i int) string {
	if i < 0 {
		return ""
	}
	var b []byte
	for {
		b = append([]byte{byte('A' + i%26)}, b...)
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	return string(b)
}

// EncodeLabels maps the correct option texts to their positional labels among
// the non-empty options, joined the way the authoring screens store them
// ("A, C"). Texts that match no option are dropped.
func EncodeLabels(options []string, correct []string) string {
	texts := make([]string, 0, len(options))
	for _, o := range options {
		if t := strings.TrimSpace(o); t != "" {
			texts = append(texts, t)
		}
	}
	labels := make([]string, 0, len(correct))
	for _, c := range correct {
		c = strings.TrimSpace(c)
		for i, t := range texts {
			if t == c {
				labels = append(labels, Label(i))
				break
			}
		}
	}
	return strings.Join(labels, ", ")
}

// ResolveLabels turns a stored label list back into option texts. Each label's
// first letter indexes into options (label - 'A'); anything out of range is
// skipped. options must be in the order used at authoring time (option_id asc).
func ResolveLabels(encoded string, options []Option) []string {
	if strings.TrimSpace(encoded) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(encoded, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		r := unicode.ToUpper([]rune(part)[0])
		idx := int(r - 'A')
		if idx < 0 || idx >= len(options) {
			continue
		}
		out = append(out, options[idx].Text)
	}
	return out
}

// ResolveCorrectTexts returns the correct option texts for an MSQ question.
// Options flagged Correct take precedence; the positional label encoding is
// only consulted for questions authored before options carried the flag.
func ResolveCorrectTexts(q Question) []string {
	var flagged []string
	for _, o := range q.Options {
		if o.Correct {
			flagged = append(flagged, o.Text)
		}
	}
	if len(flagged) > 0 {
		return flagged
	}
	return ResolveLabels(q.CorrectAnswer, q.Options)
}
