package exam

import "context"

// QuestionBank is the read side of the authoring subsystem.
type QuestionBank interface {
	GetTest(ctx context.Context, testID int64) (Test, error)
	// ListQuestions returns a test's questions by question_id, each with its
	// options by option_id.
	ListQuestions(ctx context.Context, testID int64) ([]Question, error)
}

// ResultStore persists scored attempts. Submit writes the result and all of
// its responses atomically.
type ResultStore interface {
	Submit(ctx context.Context, testID int64, userID string, res ScoredResult, responses []Response) (int64, error)
	GetResult(ctx context.Context, resultID int64) (ScoredResult, error)
	GetResponses(ctx context.Context, resultID int64) ([]Response, error)
	// ListResultsForTest is sorted as SortRankEntries sorts.
	ListResultsForTest(ctx context.Context, testID int64) ([]RankEntry, error)
	ListResultsForUser(ctx context.Context, userID string) ([]ScoredResult, error)
}

type Authoring interface {
	CreateTest(ctx context.Context, t Test) (int64, error)
	AddQuestion(ctx context.Context, q Question) (int64, error)
}

type Store interface {
	QuestionBank
	ResultStore
	Authoring
}
