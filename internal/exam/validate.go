package exam

import (
	"regexp"
	"strings"
)

// decimalKey is the NAT answer-key form: a plain decimal, optionally with an
// exponent. Hex, "inf" and "nan" are rejected so the key reads the same way
// student answers are read.
var decimalKey = regexp.MustCompile(`^[+-]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?$`)

// NormalizeQuestion trims text, drops empty options and, for MSQ, rewrites
// the positional label encoding from the options flagged correct.
func NormalizeQuestion(q Question) Question {
	q.Text = strings.TrimSpace(q.Text)
	q.CorrectAnswer = strings.TrimSpace(q.CorrectAnswer)
	q.Explanation = strings.TrimSpace(q.Explanation)
	opts := make([]Option, 0, len(q.Options))
	for _, o := range q.Options {
		o.Text = strings.TrimSpace(o.Text)
		if o.Text == "" {
			continue
		}
		opts = append(opts, o)
	}
	q.Options = opts

	switch q.Type {
	case TypeMCQ:
		for i := range q.Options {
			q.Options[i].Correct = strings.EqualFold(q.Options[i].Text, q.CorrectAnswer)
		}
	case TypeMSQ:
		texts := make([]string, len(q.Options))
		var correct []string
		for i, o := range q.Options {
			texts[i] = o.Text
			if o.Correct {
				correct = append(correct, o.Text)
			}
		}
		q.CorrectAnswer = EncodeLabels(texts, correct)
	case TypeNAT:
		q.Options = nil
	}
	return q
}

// ValidateQuestion checks the per-type authoring rules on a normalized
// question.
func ValidateQuestion(q Question) error {
	if q.Text == "" {
		return Validationf("question text is required")
	}
	if !q.Type.Valid() {
		return Validationf("unknown question type %q", q.Type)
	}
	if q.Marks <= 0 {
		return Validationf("marks must be a positive number")
	}
	correct := 0
	for _, o := range q.Options {
		if o.Correct {
			correct++
		}
	}
	switch q.Type {
	case TypeMCQ:
		if len(q.Options) < 2 {
			return Validationf("MCQ questions require at least two non-empty options")
		}
		if correct != 1 {
			return Validationf("MCQ correct answer must match exactly one option")
		}
	case TypeMSQ:
		if len(q.Options) < 2 {
			return Validationf("MSQ questions require at least two non-empty options")
		}
		if correct < 1 {
			return Validationf("MSQ questions require at least one correct option")
		}
	case TypeNAT:
		if len(q.Options) > 0 {
			return Validationf("NAT questions take no options")
		}
		if !decimalKey.MatchString(q.CorrectAnswer) {
			return Validationf("NAT correct answer must be numeric")
		}
	}
	return nil
}
