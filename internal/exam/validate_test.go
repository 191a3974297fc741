package exam

import (
	"errors"
	"testing"
)

func TestNormalizeAndValidate(t *testing.T) {
	opts := func(texts ...string) []Option {
		out := make([]Option, len(texts))
		for i, s := range texts {
			out[i] = Option{Text: s}
		}
		return out
	}
	cases := []struct {
		name string
		q    Question
		ok   bool
	}{
		{"mcq", Question{Text: "q", Type: TypeMCQ, Marks: 1, CorrectAnswer: "paris ", Options: opts("London", "Paris")}, true},
		{"mcq no match", Question{Text: "q", Type: TypeMCQ, Marks: 1, CorrectAnswer: "Rome", Options: opts("London", "Paris")}, false},
		{"mcq duplicate key", Question{Text: "q", Type: TypeMCQ, Marks: 1, CorrectAnswer: "x", Options: opts("x", "X")}, false},
		{"mcq one option", Question{Text: "q", Type: TypeMCQ, Marks: 1, CorrectAnswer: "x", Options: opts("x", " ")}, false},
		{"msq", Question{Text: "q", Type: TypeMSQ, Marks: 2, Options: []Option{{Text: "a", Correct: true}, {Text: "b"}}}, true},
		{"msq none correct", Question{Text: "q", Type: TypeMSQ, Marks: 2, Options: opts("a", "b")}, false},
		{"nat", Question{Text: "q", Type: TypeNAT, Marks: 2, CorrectAnswer: "9.81"}, true},
		{"nat text", Question{Text: "q", Type: TypeNAT, Marks: 2, CorrectAnswer: "nine"}, false},
		{"nat exponent", Question{Text: "q", Type: TypeNAT, Marks: 2, CorrectAnswer: "-1.5e3"}, true},
		{"nat hex", Question{Text: "q", Type: TypeNAT, Marks: 2, CorrectAnswer: "0x1p-2"}, false},
		{"nat inf", Question{Text: "q", Type: TypeNAT, Marks: 2, CorrectAnswer: "inf"}, false},
		{"zero marks", Question{Text: "q", Type: TypeNAT, Marks: 0, CorrectAnswer: "1"}, false},
		{"no text", Question{Text: "  ", Type: TypeNAT, Marks: 1, CorrectAnswer: "1"}, false},
		{"bad type", Question{Text: "q", Type: "ESSAY", Marks: 1}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateQuestion(NormalizeQuestion(tc.q))
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestNormalizeQuestion_EncodesMSQLabels(t *testing.T) {
	q := NormalizeQuestion(Question{Type: TypeMSQ, Options: []Option{
		{Text: "A1", Correct: true}, {Text: ""}, {Text: "A2"}, {Text: "A3", Correct: true},
	}})
	if q.CorrectAnswer != "A, C" || len(q.Options) != 3 {
		t.Fatalf("normalized = %+v", q)
	}
	nat := NormalizeQuestion(Question{Type: TypeNAT, CorrectAnswer: " 4 ", Options: []Option{{Text: "stray"}}})
	if nat.CorrectAnswer != "4" || len(nat.Options) != 0 {
		t.Fatalf("nat normalized = %+v", nat)
	}
}
