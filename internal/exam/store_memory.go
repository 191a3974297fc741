package exam

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type memoryStore struct {
	mu        sync.RWMutex
	now       func() time.Time
	tests     map[int64]Test
	questions map[int64][]Question // by test id
	results   map[int64]ScoredResult
	responses map[int64][]Response
	seq       int64
}

// NewInMemoryStore returns a Store kept entirely in process memory. Submit is
// atomic under the store mutex.
func NewInMemoryStore(now func() time.Time) Store {
	if now == nil {
		now = time.Now
	}
	return &memoryStore{
		now:       now,
		tests:     map[int64]Test{},
		questions: map[int64][]Question{},
		results:   map[int64]ScoredResult{},
		responses: map[int64][]Response{},
	}
}

func (m *memoryStore) next() int64 {
	m.seq++
	return m.seq
}

func (m *memoryStore) CreateTest(_ context.Context, t Test) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.next()
	m.tests[t.ID] = t
	return t.ID, nil
}

func (m *memoryStore) AddQuestion(_ context.Context, q Question) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tests[q.TestID]; !ok {
		return 0, notFound("test", q.TestID)
	}
	q.ID = m.next()
	opts := make([]Option, len(q.Options))
	for i, o := range q.Options {
		o.ID = m.next()
		opts[i] = o
	}
	q.Options = opts
	m.questions[q.TestID] = append(m.questions[q.TestID], q)
	return q.ID, nil
}

func (m *memoryStore) GetTest(_ context.Context, testID int64) (Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tests[testID]
	if !ok {
		return Test{}, notFound("test", testID)
	}
	return t, nil
}

func (m *memoryStore) ListQuestions(_ context.Context, testID int64) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.questions[testID]
	out := make([]Question, len(src))
	for i, q := range src {
		q.Options = append([]Option(nil), q.Options...)
		out[i] = q
	}
	return out, nil
}

func (m *memoryStore) Submit(_ context.Context, testID int64, userID string, res ScoredResult, responses []Response) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tests[testID]; !ok {
		return 0, notFound("test", testID)
	}
	known := map[int64]bool{}
	for _, q := range m.questions[testID] {
		known[q.ID] = true
	}
	for _, r := range responses {
		if !known[r.QuestionID] {
			return 0, fmt.Errorf("question %d is not part of test %d: %w", r.QuestionID, testID, ErrIntegrity)
		}
	}

	id := m.next()
	res.ID = id
	res.TestID = testID
	res.UserID = userID
	if res.SubmittedAt.IsZero() {
		res.SubmittedAt = m.now().UTC()
	}
	stored := make([]Response, len(responses))
	for i, r := range responses {
		r.ResultID = id
		stored[i] = r
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].QuestionID < stored[j].QuestionID })
	m.results[id] = res
	m.responses[id] = stored
	return id, nil
}

func (m *memoryStore) GetResult(_ context.Context, resultID int64) (ScoredResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.results[resultID]
	if !ok {
		return ScoredResult{}, notFound("result", resultID)
	}
	return r, nil
}

func (m *memoryStore) GetResponses(_ context.Context, resultID int64) ([]Response, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.results[resultID]; !ok {
		return nil, notFound("result", resultID)
	}
	return append([]Response(nil), m.responses[resultID]...), nil
}

func (m *memoryStore) ListResultsForTest(_ context.Context, testID int64) ([]RankEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []RankEntry{}
	for _, r := range m.results {
		if r.TestID != testID {
			continue
		}
		out = append(out, RankEntry{
			ResultID:    r.ID,
			UserID:      r.UserID,
			Score:       r.Score,
			Percentage:  r.Percentage,
			SubmittedAt: r.SubmittedAt,
		})
	}
	SortRankEntries(out)
	return out, nil
}

func (m *memoryStore) ListResultsForUser(_ context.Context, userID string) ([]ScoredResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []ScoredResult{}
	for _, r := range m.results {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.After(out[j].SubmittedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}
