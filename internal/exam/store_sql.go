package exam

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	syncx "github.com/mind-engage/examportal/internal/sync"
)

type SQLStore struct {
	db     *sql.DB
	events *syncx.EventRepo
	now    func() time.Time
}

var _ Store = (*SQLStore)(nil)

type SQLOption func(*SQLStore)

// WithEvents appends a TestSubmitted event inside every submit transaction.
func WithEvents(r *syncx.EventRepo) SQLOption { return func(s *SQLStore) { s.events = r } }

// WithClock overrides the submission timestamp source.
func WithClock(now func() time.Time) SQLOption { return func(s *SQLStore) { s.now = now } }

func NewSQLStore(db *sql.DB, opts ...SQLOption) *SQLStore {
	s := &SQLStore{db: db, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *SQLStore) CreateTest(ctx context.Context, t Test) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO tests (course_name, test_name, duration, created_at)
		 VALUES ($1,$2,$3,$4) RETURNING id`,
		t.CourseName, t.TestName, t.Duration, s.now().Unix()).Scan(&id)
	if err != nil {
		return 0, classify("create test", err)
	}
	return id, nil
}

func (s *SQLStore) AddQuestion(ctx context.Context, q Question) (int64, error) {
	var id int64
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM tests WHERE id=$1`, q.TestID).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return notFound("test", q.TestID)
			}
			return err
		}
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO questions (test_id, question_text, question_type, correct_answer, explanation, marks)
			 VALUES ($1,$2,$3,$4,$5,$6) RETURNING question_id`,
			q.TestID, q.Text, string(q.Type), q.CorrectAnswer, q.Explanation, q.Marks).Scan(&id); err != nil {
			return err
		}
		for _, o := range q.Options {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO options (question_id, option_text, is_correct) VALUES ($1,$2,$3)`,
				id, o.Text, o.Correct); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, classify("add question", err)
	}
	return id, nil
}

func (s *SQLStore) GetTest(ctx context.Context, testID int64) (Test, error) {
	var t Test
	err := s.db.QueryRowContext(ctx,
		`SELECT id, course_name, test_name, duration FROM tests WHERE id=$1`, testID).
		Scan(&t.ID, &t.CourseName, &t.TestName, &t.Duration)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Test{}, notFound("test", testID)
		}
		return Test{}, classify("get test", err)
	}
	return t, nil
}

func (s *SQLStore) ListQuestions(ctx context.Context, testID int64) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT question_id, test_id, question_text, question_type, correct_answer, explanation, marks
		   FROM questions WHERE test_id=$1 ORDER BY question_id ASC`, testID)
	if err != nil {
		return nil, classify("list questions", err)
	}
	var questions []Question
	index := map[int64]int{}
	for rows.Next() {
		var q Question
		var typ string
		if err := rows.Scan(&q.ID, &q.TestID, &q.Text, &typ, &q.CorrectAnswer, &q.Explanation, &q.Marks); err != nil {
			rows.Close()
			return nil, classify("list questions", err)
		}
		q.Type = QuestionType(typ)
		q.Options = []Option{}
		index[q.ID] = len(questions)
		questions = append(questions, q)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, classify("list questions", err)
	}
	if len(questions) == 0 {
		return questions, nil
	}

	// Label resolution depends on this ordering staying option_id ascending.
	orows, err := s.db.QueryContext(ctx,
		`SELECT o.option_id, o.question_id, o.option_text, o.is_correct
		   FROM options o JOIN questions q ON q.question_id = o.question_id
		  WHERE q.test_id=$1
		  ORDER BY o.question_id ASC, o.option_id ASC`, testID)
	if err != nil {
		return nil, classify("list options", err)
	}
	defer orows.Close()
	for orows.Next() {
		var o Option
		var qid int64
		if err := orows.Scan(&o.ID, &qid, &o.Text, &o.Correct); err != nil {
			return nil, classify("list options", err)
		}
		if i, ok := index[qid]; ok {
			questions[i].Options = append(questions[i].Options, o)
		}
	}
	if err := orows.Err(); err != nil {
		return nil, classify("list options", err)
	}
	return questions, nil
}

func (s *SQLStore) Submit(ctx context.Context, testID int64, userID string, res ScoredResult, responses []Response) (int64, error) {
	submitted := res.SubmittedAt
	if submitted.IsZero() {
		submitted = s.now()
	}
	var elapsed sql.NullInt64
	if res.ElapsedSeconds != nil {
		elapsed = sql.NullInt64{Int64: *res.ElapsedSeconds, Valid: true}
	}

	var id int64
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO test_results
			   (test_id, user_id, score, total_questions, attempted_questions, correct_answers,
			    percentage, max_marks, submission_time, time_taken_seconds)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING result_id`,
			testID, userID, res.Score, res.TotalQuestions, res.AttemptedQuestions, res.CorrectAnswers,
			res.Percentage, res.MaxMarks, submitted.UnixMilli(), elapsed).Scan(&id); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO test_responses
			   (result_id, question_id, user_answer, is_correct, marked_for_review, marks_awarded)
			 VALUES ($1,$2,$3,$4,$5,$6)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, r := range responses {
			var ans sql.NullString
			if r.UserAnswer != nil {
				ans = sql.NullString{String: *r.UserAnswer, Valid: true}
			}
			var awarded sql.NullFloat64
			if r.MarksAwarded != nil {
				awarded = sql.NullFloat64{Float64: *r.MarksAwarded, Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, id, r.QuestionID, ans, r.IsCorrect, r.MarkedForReview, awarded); err != nil {
				return err
			}
		}

		if s.events != nil {
			ev, err := s.events.NewEvent(syncx.TypeTestSubmitted, strconv.FormatInt(id, 10), map[string]any{
				"result_id":  id,
				"test_id":    testID,
				"user_id":    userID,
				"score":      res.Score,
				"percentage": res.Percentage,
			})
			if err != nil {
				return err
			}
			if err := s.events.Append(ctx, tx, ev); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, classify("submit", err)
	}
	return id, nil
}

const resultColumns = `result_id, test_id, user_id, score, total_questions, attempted_questions,
	correct_answers, percentage, max_marks, submission_time, time_taken_seconds`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (ScoredResult, error) {
	var r ScoredResult
	var submitted int64
	var elapsed sql.NullInt64
	if err := row.Scan(&r.ID, &r.TestID, &r.UserID, &r.Score, &r.TotalQuestions, &r.AttemptedQuestions,
		&r.CorrectAnswers, &r.Percentage, &r.MaxMarks, &submitted, &elapsed); err != nil {
		return ScoredResult{}, err
	}
	r.SubmittedAt = time.UnixMilli(submitted).UTC()
	if elapsed.Valid {
		v := elapsed.Int64
		r.ElapsedSeconds = &v
	}
	return r, nil
}

func (s *SQLStore) GetResult(ctx context.Context, resultID int64) (ScoredResult, error) {
	r, err := scanResult(s.db.QueryRowContext(ctx,
		`SELECT `+resultColumns+` FROM test_results WHERE result_id=$1`, resultID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ScoredResult{}, notFound("result", resultID)
		}
		return ScoredResult{}, classify("get result", err)
	}
	return r, nil
}

func (s *SQLStore) GetResponses(ctx context.Context, resultID int64) ([]Response, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT result_id, question_id, user_answer, is_correct, marked_for_review, marks_awarded
		   FROM test_responses WHERE result_id=$1 ORDER BY question_id ASC`, resultID)
	if err != nil {
		return nil, classify("get responses", err)
	}
	defer rows.Close()
	out := []Response{}
	for rows.Next() {
		var r Response
		var ans sql.NullString
		var awarded sql.NullFloat64
		if err := rows.Scan(&r.ResultID, &r.QuestionID, &ans, &r.IsCorrect, &r.MarkedForReview, &awarded); err != nil {
			return nil, classify("get responses", err)
		}
		if ans.Valid {
			v := ans.String
			r.UserAnswer = &v
		}
		if awarded.Valid {
			v := awarded.Float64
			r.MarksAwarded = &v
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("get responses", err)
	}
	return out, nil
}

func (s *SQLStore) ListResultsForTest(ctx context.Context, testID int64) ([]RankEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT result_id, user_id, score, percentage, submission_time
		   FROM test_results WHERE test_id=$1
		  ORDER BY percentage DESC, submission_time ASC, result_id ASC`, testID)
	if err != nil {
		return nil, classify("list results", err)
	}
	defer rows.Close()
	out := []RankEntry{}
	for rows.Next() {
		var e RankEntry
		var submitted int64
		if err := rows.Scan(&e.ResultID, &e.UserID, &e.Score, &e.Percentage, &submitted); err != nil {
			return nil, classify("list results", err)
		}
		e.SubmittedAt = time.UnixMilli(submitted).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list results", err)
	}
	return out, nil
}

func (s *SQLStore) ListResultsForUser(ctx context.Context, userID string) ([]ScoredResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+resultColumns+` FROM test_results WHERE user_id=$1
		  ORDER BY submission_time DESC, result_id DESC`, userID)
	if err != nil {
		return nil, classify("list user results", err)
	}
	defer rows.Close()
	out := []ScoredResult{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, classify("list user results", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list user results", err)
	}
	return out, nil
}
