package exam_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mind-engage/examportal/internal/db"
	"github.com/mind-engage/examportal/internal/exam"
	"github.com/mind-engage/examportal/internal/grading"
	syncx "github.com/mind-engage/examportal/internal/sync"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := "file:" + name + "?mode=memory&cache=shared&_pragma=foreign_keys(1)"
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	dbh, err := db.Open(ctx, db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = dbh.Close() })
	return dbh
}

type sqlFixture struct {
	db     *sql.DB
	store  *exam.SQLStore
	events *syncx.EventRepo
	testID int64
	qs     []exam.Question
}

func newSQLFixture(t *testing.T) sqlFixture {
	t.Helper()
	dbh := openSQLite(t)
	clock := time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC)
	events := syncx.NewEventRepo(dbh, "test-site")
	store := exam.NewSQLStore(dbh, exam.WithEvents(events), exam.WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))
	ctx := context.Background()
	testID, err := store.CreateTest(ctx, exam.Test{CourseName: "Maths", TestName: "Algebra", Duration: 60})
	if err != nil {
		t.Fatalf("create test: %v", err)
	}
	for _, q := range []exam.Question{
		{Text: "2+2?", Type: exam.TypeMCQ, Marks: 1, CorrectAnswer: "4", Options: []exam.Option{{Text: "3"}, {Text: "4"}, {Text: "5"}}},
		{Text: "pi to 2dp", Type: exam.TypeNAT, Marks: 2, CorrectAnswer: "3.14"},
		{Text: "evens", Type: exam.TypeMSQ, Marks: 2, Options: []exam.Option{{Text: "2", Correct: true}, {Text: "3"}, {Text: "4", Correct: true}}},
	} {
		q.TestID = testID
		q = exam.NormalizeQuestion(q)
		if err := exam.ValidateQuestion(q); err != nil {
			t.Fatal(err)
		}
		if _, err := store.AddQuestion(ctx, q); err != nil {
			t.Fatalf("add question: %v", err)
		}
	}
	qs, err := store.ListQuestions(ctx, testID)
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	return sqlFixture{db: dbh, store: store, events: events, testID: testID, qs: qs}
}

func (f sqlFixture) submit(t *testing.T, user string, answers map[int64]exam.Answer) int64 {
	t.Helper()
	res, responses := grading.New().Score(f.qs, exam.AnswerSheet{TestID: f.testID, UserID: user, Answers: answers})
	id, err := f.store.Submit(context.Background(), f.testID, user, res, responses)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return id
}

func count(t *testing.T, dbh *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := dbh.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestSQLStore_QuestionBank(t *testing.T) {
	f := newSQLFixture(t)
	if len(f.qs) != 3 {
		t.Fatalf("questions = %d", len(f.qs))
	}
	for i := 1; i < len(f.qs); i++ {
		if f.qs[i-1].ID >= f.qs[i].ID {
			t.Fatal("questions not ordered by id")
		}
	}
	msq := f.qs[2]
	if msq.CorrectAnswer != "A, C" || len(msq.Options) != 3 || !msq.Options[0].Correct || msq.Options[1].Correct {
		t.Fatalf("msq round trip = %+v", msq)
	}
	if got := exam.ResolveCorrectTexts(msq); len(got) != 2 || got[0] != "2" || got[1] != "4" {
		t.Fatalf("resolved = %v", got)
	}
	if f.qs[1].Options == nil || len(f.qs[1].Options) != 0 {
		t.Fatalf("nat options = %#v", f.qs[1].Options)
	}

	if _, err := f.store.GetTest(context.Background(), 999); !errors.Is(err, exam.ErrNotFound) {
		t.Fatalf("GetTest err = %v", err)
	}
	_, err := f.store.AddQuestion(context.Background(), exam.Question{TestID: 999, Text: "x", Type: exam.TypeNAT, Marks: 1, CorrectAnswer: "1"})
	if !errors.Is(err, exam.ErrNotFound) {
		t.Fatalf("AddQuestion to missing test err = %v", err)
	}
}

func TestSQLStore_SubmitAndRead(t *testing.T) {
	f := newSQLFixture(t)
	ctx := context.Background()
	elapsed := int64(0)
	res, responses := grading.New().Score(f.qs, exam.AnswerSheet{
		TestID: f.testID, UserID: "u1", ElapsedSeconds: &elapsed,
		Answers: map[int64]exam.Answer{
			f.qs[0].ID: exam.SingleAnswer("5"),
			f.qs[2].ID: exam.MultipleAnswer([]string{"4", "2"}),
		},
		MarkedForReview: map[int64]bool{f.qs[1].ID: true},
	})
	id, err := f.store.Submit(ctx, f.testID, "u1", res, responses)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	got, err := f.store.GetResult(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Score != 1.67 || got.MaxMarks != 5 || got.AttemptedQuestions != 2 || got.CorrectAnswers != 1 {
		t.Fatalf("result = %+v", got)
	}
	if got.ElapsedSeconds == nil || *got.ElapsedSeconds != 0 {
		t.Fatalf("zero elapsed must survive as 0, got %v", got.ElapsedSeconds)
	}
	// one tick for CreateTest, one for Submit
	if !got.SubmittedAt.Equal(time.Date(2026, 2, 2, 8, 0, 2, 0, time.UTC)) {
		t.Fatalf("submitted at = %v", got.SubmittedAt)
	}

	rs, err := f.store.GetResponses(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(rs) != 3 {
		t.Fatalf("responses = %d", len(rs))
	}
	if rs[1].UserAnswer != nil || !rs[1].MarkedForReview {
		t.Fatalf("unattempted nat = %+v", rs[1])
	}
	if *rs[2].UserAnswer != "4,2" || !rs[2].IsCorrect || *rs[2].MarksAwarded != 2 {
		t.Fatalf("msq response = %+v", rs[2])
	}
	if *rs[0].MarksAwarded > -0.33 {
		t.Fatalf("mcq penalty not stored: %v", *rs[0].MarksAwarded)
	}

	evs, err := f.events.Since(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 1 || evs[0].Type != syncx.TypeTestSubmitted || evs[0].SiteID != "test-site" || !strings.Contains(evs[0].DataJSON, `"user_id":"u1"`) {
		t.Fatalf("events = %+v", evs)
	}

	if _, err := f.store.GetResult(ctx, id+100); !errors.Is(err, exam.ErrNotFound) {
		t.Fatalf("missing result err = %v", err)
	}
}

func TestSQLStore_SubmitIsAtomic(t *testing.T) {
	f := newSQLFixture(t)
	res, responses := grading.New().Score(f.qs, exam.AnswerSheet{TestID: f.testID, UserID: "u1"})
	// the last response points at a question that does not exist
	responses = append(responses, exam.Response{QuestionID: 987654})

	_, err := f.store.Submit(context.Background(), f.testID, "u1", res, responses)
	if !errors.Is(err, exam.ErrIntegrity) {
		t.Fatalf("err = %v, want ErrIntegrity", err)
	}
	if exam.IsRetryable(err) {
		t.Fatal("integrity failures must not be retryable")
	}
	for _, table := range []string{"test_results", "test_responses", "event_log"} {
		if n := count(t, f.db, table); n != 0 {
			t.Fatalf("%s has %d rows after rollback", table, n)
		}
	}

	res.Score = -1
	_, err = f.store.Submit(context.Background(), f.testID, "u1", res, nil)
	if !errors.Is(err, exam.ErrIntegrity) {
		t.Fatalf("negative score err = %v, want ErrIntegrity", err)
	}
}

func TestSQLStore_ResubmissionAndRanking(t *testing.T) {
	f := newSQLFixture(t)
	ctx := context.Background()
	full := map[int64]exam.Answer{
		f.qs[0].ID: exam.SingleAnswer("4"),
		f.qs[1].ID: exam.SingleAnswer("3.140"),
		f.qs[2].ID: exam.MultipleAnswer([]string{"2", "4"}),
	}
	first := f.submit(t, "u1", map[int64]exam.Answer{f.qs[1].ID: exam.SingleAnswer("3.14")})
	best := f.submit(t, "u2", full)
	again := f.submit(t, "u1", full)

	if first == again {
		t.Fatal("resubmission reused the result id")
	}
	orig, err := f.store.GetResult(ctx, first)
	if err != nil || orig.Percentage != 40 {
		t.Fatalf("first attempt changed: %+v %v", orig, err)
	}

	entries, err := f.store.ListResultsForTest(ctx, f.testID)
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{best, again, first}
	for i, id := range want {
		if entries[i].ResultID != id {
			t.Fatalf("rank order = %+v, want %v", entries, want)
		}
	}

	mine, err := f.store.ListResultsForUser(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 2 || mine[0].ID != again || mine[1].ID != first {
		t.Fatalf("history = %+v", mine)
	}
}
