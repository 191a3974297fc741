package report_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/mind-engage/examportal/internal/exam"
	"github.com/mind-engage/examportal/internal/grading"
	"github.com/mind-engage/examportal/internal/report"
)

type seeded struct {
	store     exam.Store
	testID    int64
	questions []exam.Question
}

func seed(t *testing.T) seeded {
	t.Helper()
	ctx := context.Background()
	clock := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	store := exam.NewInMemoryStore(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	})
	testID, err := store.CreateTest(ctx, exam.Test{CourseName: "General", TestName: "Mixed", Duration: 45})
	if err != nil {
		t.Fatal(err)
	}
	for _, q := range []exam.Question{
		{Text: "Capital of France?", Type: exam.TypeMCQ, Marks: 1, CorrectAnswer: "Paris", Explanation: "It is.",
			Options: []exam.Option{{Text: "London"}, {Text: "Paris"}, {Text: "Berlin"}}},
		{Text: "g", Type: exam.TypeNAT, Marks: 2, CorrectAnswer: "9.81"},
		{Text: "Primes", Type: exam.TypeMSQ, Marks: 2,
			Options: []exam.Option{{Text: "2", Correct: true}, {Text: "4"}, {Text: "5", Correct: true}, {Text: "9"}}},
	} {
		q.TestID = testID
		if _, err := store.AddQuestion(ctx, exam.NormalizeQuestion(q)); err != nil {
			t.Fatal(err)
		}
	}
	qs, err := store.ListQuestions(ctx, testID)
	if err != nil {
		t.Fatal(err)
	}
	return seeded{store: store, testID: testID, questions: qs}
}

func (s seeded) submit(t *testing.T, user string, answers map[int64]exam.Answer, elapsed *int64) int64 {
	t.Helper()
	res, responses := grading.New().Score(s.questions, exam.AnswerSheet{
		TestID: s.testID, UserID: user, Answers: answers, ElapsedSeconds: elapsed,
		MarkedForReview: map[int64]bool{s.questions[1].ID: true},
	})
	id, err := s.store.Submit(context.Background(), s.testID, user, res, responses)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestBuildReport(t *testing.T) {
	s := seed(t)
	elapsed := int64(3725)
	id := s.submit(t, "stu", map[int64]exam.Answer{
		s.questions[0].ID: exam.SingleAnswer("London"),
		s.questions[2].ID: exam.MultipleAnswer([]string{"5", "2"}),
	}, &elapsed)

	p := report.NewPresenter(s.store, s.store, nil, nil)
	rep, err := p.BuildReport(context.Background(), id)
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}
	r := rep.Result
	if r.TotalQuestions != 3 || r.AttemptedQuestions != 2 || r.CorrectAnswers != 1 || r.Incorrect != 1 || r.Left != 1 {
		t.Fatalf("counts = %+v", r)
	}
	// 2 - 1/3
	if r.Score != 1.67 || r.RightMarks != 2 || r.NegativeMarks != 0.33 || r.MaxMarks != 5 {
		t.Fatalf("marks = %+v", r)
	}
	if r.TimeTaken == nil || *r.TimeTaken != "01:02:05" || r.TotalTime != 45 || r.TestName != "Mixed" {
		t.Fatalf("meta = %+v", r)
	}

	if len(rep.Responses) != 3 {
		t.Fatalf("items = %d", len(rep.Responses))
	}
	mcq, nat, msq := rep.Responses[0], rep.Responses[1], rep.Responses[2]
	if mcq.UserAnswer != "London" || mcq.IsCorrect || mcq.MarksAwarded != -0.33 || mcq.CorrectAnswer != "Paris" {
		t.Fatalf("mcq item = %+v", mcq)
	}
	if nat.UserAnswer != nil || !nat.MarkedForReview || nat.MarksAwarded != 0 {
		t.Fatalf("nat item = %+v", nat)
	}
	if !reflect.DeepEqual(msq.CorrectAnswer, []string{"2", "5"}) || !reflect.DeepEqual(msq.UserAnswer, []string{"5", "2"}) {
		t.Fatalf("msq item answers = %#v / %#v", msq.CorrectAnswer, msq.UserAnswer)
	}
	if !msq.IsCorrect || msq.MarksAwarded != 2 {
		t.Fatalf("msq item = %+v", msq)
	}
	labels := []string{}
	for _, o := range msq.Options {
		labels = append(labels, o.Label)
	}
	if !reflect.DeepEqual(labels, []string{"A", "B", "C", "D"}) || !msq.Options[0].Correct || msq.Options[1].Correct {
		t.Fatalf("msq options = %+v", msq.Options)
	}
}

func TestBuildReport_Deterministic(t *testing.T) {
	s := seed(t)
	id := s.submit(t, "stu", map[int64]exam.Answer{s.questions[1].ID: exam.SingleAnswer("9.81")}, nil)
	p := report.NewPresenter(s.store, s.store, nil, nil)

	var prev []byte
	for i := 0; i < 3; i++ {
		rep, err := p.BuildReport(context.Background(), id)
		if err != nil {
			t.Fatal(err)
		}
		b, err := json.Marshal(rep)
		if err != nil {
			t.Fatal(err)
		}
		if prev != nil && !bytes.Equal(prev, b) {
			t.Fatalf("report changed between calls:\n%s\n%s", prev, b)
		}
		prev = b
	}
	if !bytes.Contains(prev, []byte(`"time_taken":null`)) {
		t.Fatalf("missing elapsed time must render as null: %s", prev)
	}
}

func TestBuildReport_NotFound(t *testing.T) {
	s := seed(t)
	_, err := report.NewPresenter(s.store, s.store, nil, nil).BuildReport(context.Background(), 987654)
	if !errors.Is(err, exam.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

// Rows written before marks were stored are priced by the current rules from
// their stored correctness; nothing is re-judged.
func TestBuildReport_LegacyRowsWithoutStoredMarks(t *testing.T) {
	s := seed(t)
	wrong := "Berlin"
	right := "2,5"
	id, err := s.store.Submit(context.Background(), s.testID, "old", exam.ScoredResult{
		Score: 2, TotalQuestions: 3, AttemptedQuestions: 2, CorrectAnswers: 1, Percentage: 40,
	}, []exam.Response{
		{QuestionID: s.questions[0].ID, UserAnswer: &wrong},
		{QuestionID: s.questions[1].ID},
		{QuestionID: s.questions[2].ID, UserAnswer: &right, IsCorrect: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	rep, err := report.NewPresenter(s.store, s.store, nil, nil).BuildReport(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Result.MaxMarks != 5 {
		t.Fatalf("max marks should fall back to the bank, got %v", rep.Result.MaxMarks)
	}
	if rep.Result.RightMarks != 2 || rep.Result.NegativeMarks != 0.33 {
		t.Fatalf("derived marks = %+v", rep.Result)
	}
	if rep.Result.Score != 2 || rep.Result.Percentage != 40 {
		t.Fatalf("stored score must not be recomputed: %+v", rep.Result)
	}

	lenient := report.NewPresenter(s.store, s.store, grading.New(grading.WithoutNegativeMarking()), nil)
	rep, _ = lenient.BuildReport(context.Background(), id)
	if rep.Result.NegativeMarks != 0 {
		t.Fatalf("negative marks = %v", rep.Result.NegativeMarks)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[int64]string{0: "00:00:00", 59: "00:00:59", 61: "00:01:01", 3600: "01:00:00", 90061: "25:01:01", -5: "00:00:00"}
	for in, want := range cases {
		if got := report.FormatDuration(in); got != want {
			t.Errorf("FormatDuration(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildReport_SummaryKeys(t *testing.T) {
	s := seed(t)
	id := s.submit(t, "stu", map[int64]exam.Answer{s.questions[0].ID: exam.SingleAnswer("Paris")}, nil)
	rep, err := report.NewPresenter(s.store, s.store, nil, nil).BuildReport(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	buf, err := json.Marshal(rep.Result)
	if err != nil {
		t.Fatal(err)
	}
	var keys map[string]any
	if err := json.Unmarshal(buf, &keys); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"test_name", "course_name", "duration", "total_time", "score", "percentage", "submission_time", "time_taken"} {
		if _, ok := keys[k]; !ok {
			t.Fatalf("result has no %q key: %s", k, buf)
		}
	}
	if keys["duration"] != float64(45) || keys["total_time"] != float64(45) {
		t.Fatalf("duration = %v, total_time = %v, want 45", keys["duration"], keys["total_time"])
	}
}

func TestBuildReport_OptionsContainingCommas(t *testing.T) {
	ctx := context.Background()
	store := exam.NewInMemoryStore(nil)
	testID, err := store.CreateTest(ctx, exam.Test{CourseName: "Maths", TestName: "Sets", Duration: 10})
	if err != nil {
		t.Fatal(err)
	}
	q := exam.NormalizeQuestion(exam.Question{TestID: testID, Text: "Pick the pair", Type: exam.TypeMSQ, Marks: 2,
		Options: []exam.Option{{Text: "1,2", Correct: true}, {Text: "3"}, {Text: "1"}}})
	if _, err := store.AddQuestion(ctx, q); err != nil {
		t.Fatal(err)
	}
	qs, err := store.ListQuestions(ctx, testID)
	if err != nil {
		t.Fatal(err)
	}
	p := report.NewPresenter(store, store, nil, nil)

	cases := []struct {
		name    string
		answer  []string
		want    []string
		correct bool
	}{
		{"single option with a comma", []string{"1,2"}, []string{"1,2"}, true},
		{"longest option wins", []string{"3", "1,2"}, []string{"3", "1,2"}, false},
		{"shorter option still found", []string{"1", "3"}, []string{"1", "3"}, false},
		{"unknown text split on commas", []string{"zz", "1,2"}, []string{"zz", "1,2"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, responses := grading.New().Score(qs, exam.AnswerSheet{
				TestID: testID, UserID: "stu",
				Answers: map[int64]exam.Answer{qs[0].ID: exam.MultipleAnswer(tc.answer)},
			})
			id, err := store.Submit(ctx, testID, "stu", res, responses)
			if err != nil {
				t.Fatal(err)
			}
			rep, err := p.BuildReport(ctx, id)
			if err != nil {
				t.Fatal(err)
			}
			it := rep.Responses[0]
			if !reflect.DeepEqual(it.UserAnswer, tc.want) {
				t.Fatalf("user_answer = %#v, want %#v", it.UserAnswer, tc.want)
			}
			if it.IsCorrect != tc.correct {
				t.Fatalf("is_correct = %v, want %v", it.IsCorrect, tc.correct)
			}
			if !reflect.DeepEqual(it.CorrectAnswer, []string{"1,2"}) {
				t.Fatalf("correct_answer = %#v", it.CorrectAnswer)
			}
		})
	}
}
