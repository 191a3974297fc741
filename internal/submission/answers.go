package submission

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mind-engage/examportal/internal/exam"
)

// sheet types the raw answers by each question's declared type. Keys that are
// not question ids of this test are dropped.
func (s *Service) sheet(userID string, req SubmitRequest, questions []exam.Question) exam.AnswerSheet {
	byID := make(map[int64]exam.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	sheet := exam.AnswerSheet{
		TestID:          req.TestID,
		UserID:          userID,
		Answers:         make(map[int64]exam.Answer, len(req.Answers)),
		MarkedForReview: map[int64]bool{},
		ElapsedSeconds:  req.TimeTaken,
	}
	for key, raw := range req.Answers {
		id, ok := questionKey(key)
		q, known := byID[id]
		if !ok || !known {
			s.log.Debug("ignoring answer for unknown question", zap.String("key", key), zap.Int64("test_id", req.TestID))
			continue
		}
		a, wellFormed := decodeAnswer(q.Type, raw)
		if !wellFormed {
			s.log.Debug("malformed answer treated as unattempted", zap.Int64("question_id", id))
		}
		sheet.Answers[id] = a
	}
	for key, marked := range req.MarkedForReview {
		if id, ok := questionKey(key); ok && marked {
			if _, known := byID[id]; known {
				sheet.MarkedForReview[id] = true
			}
		}
	}
	return sheet
}

func questionKey(k string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(k), 10, 64)
	return id, err == nil && id > 0
}

// decodeAnswer reads one raw JSON answer. Strings, numbers and arrays of them
// are accepted; anything else is unattempted and reported as malformed.
func decodeAnswer(typ exam.QuestionType, raw json.RawMessage) (exam.Answer, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return exam.NoAnswer(), true
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return exam.NoAnswer(), false
		}
		if typ == exam.TypeMSQ {
			if strings.TrimSpace(s) == "" {
				return exam.MultipleAnswer(nil), true
			}
			return exam.MultipleAnswer([]string{s}), true
		}
		return exam.SingleAnswer(s), true
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return exam.NoAnswer(), false
		}
		texts := make([]string, 0, len(items))
		ok := true
		for _, it := range items {
			s, scalar := scalarText(it)
			if !scalar {
				ok = false
				continue
			}
			texts = append(texts, s)
		}
		return exam.MultipleAnswer(texts), ok
	}
	if s, scalar := scalarText(raw); scalar {
		if typ == exam.TypeMSQ {
			return exam.MultipleAnswer([]string{s}), true
		}
		return exam.SingleAnswer(s), true
	}
	return exam.NoAnswer(), false
}

// scalarText renders a JSON string or number as text. Numbers keep their
// literal spelling so "4.00" stays "4.00".
func scalarText(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", false
	}
	n, ok := v.(json.Number)
	if !ok {
		return "", false
	}
	return n.String(), true
}
