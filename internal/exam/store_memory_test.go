package exam_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mind-engage/examportal/internal/exam"
)

func TestMemoryStore_SubmitRejectsForeignQuestions(t *testing.T) {
	ctx := context.Background()
	s := exam.NewInMemoryStore(nil)
	a, _ := s.CreateTest(ctx, exam.Test{TestName: "a"})
	b, _ := s.CreateTest(ctx, exam.Test{TestName: "b"})
	qb, err := s.AddQuestion(ctx, exam.Question{TestID: b, Text: "q", Type: exam.TypeNAT, Marks: 1, CorrectAnswer: "1"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.Submit(ctx, a, "u", exam.ScoredResult{}, []exam.Response{{QuestionID: qb}})
	if !errors.Is(err, exam.ErrIntegrity) {
		t.Fatalf("err = %v, want ErrIntegrity", err)
	}
	if list, _ := s.ListResultsForTest(ctx, a); len(list) != 0 {
		t.Fatalf("partial result visible: %+v", list)
	}
	if _, err := s.Submit(ctx, 404, "u", exam.ScoredResult{}, nil); !errors.Is(err, exam.ErrNotFound) {
		t.Fatalf("unknown test err = %v", err)
	}
	if _, err := s.GetResponses(ctx, 404); !errors.Is(err, exam.ErrNotFound) {
		t.Fatalf("unknown result err = %v", err)
	}
}
