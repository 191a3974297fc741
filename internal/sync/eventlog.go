package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const TypeTestSubmitted = "TestSubmitted"

type Event struct {
	Offset    int64  `json:"offset"`
	ID        string `json:"event_id"`
	SiteID    string `json:"site_id"`
	Type      string `json:"type"`
	Key       string `json:"key"`
	DataJSON  string `json:"data"`
	CreatedAt int64  `json:"created_at"`
}

// Execer is satisfied by *sql.DB and *sql.Tx, so events can ride along in
// the transaction that produced them.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type EventRepo struct {
	db     *sql.DB
	siteID string
}

func NewEventRepo(db *sql.DB, siteID string) *EventRepo {
	if siteID == "" {
		siteID = "local"
	}
	return &EventRepo{db: db, siteID: siteID}
}

// NewEvent builds an event with a fresh id; data is marshalled to JSON.
func (r *EventRepo) NewEvent(typ, key string, data any) (Event, error) {
	buf, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{ID: uuid.NewString(), SiteID: r.siteID, Type: typ, Key: key, DataJSON: string(buf)}, nil
}

// Append writes e using x, or the repo's own handle when x is nil.
func (r *EventRepo) Append(ctx context.Context, x Execer, e Event) error {
	if x == nil {
		x = r.db
	}
	if e.SiteID == "" {
		e.SiteID = r.siteID
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := x.ExecContext(ctx,
		`INSERT INTO event_log (site_id, event_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		e.SiteID, e.ID, e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}

// Since returns events after offset in commit order.
func (r *EventRepo) Since(ctx context.Context, offset int64, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT "offset", site_id, event_id, typ, key, data, created_at
		   FROM event_log WHERE "offset" > $1 ORDER BY "offset" ASC LIMIT $2`, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Event{}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Offset, &e.SiteID, &e.ID, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
