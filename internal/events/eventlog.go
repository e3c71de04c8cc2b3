// Package events is the append-only content change log.
package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"
)

const (
	SubjectSaved    = "subject.saved"
	SubjectDeleted  = "subject.deleted"
	UnitSaved       = "unit.saved"
	UnitDeleted     = "unit.deleted"
	QuestionSaved   = "question.saved"
	QuestionDeleted = "question.deleted"
	AnswerSaved     = "answer.saved"
)

const DefaultSiteID = "local"

type Event struct {
	Seq       int64           `json:"seq"`
	SiteID    string          `json:"site_id"`
	Type      string          `json:"type"`
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data,omitempty"`
	CreatedAt int64           `json:"created_at"`
}

// New builds an event for key with v marshalled as its payload.
func New(typ, key string, v any) Event {
	e := Event{SiteID: DefaultSiteID, Type: typ, Key: key}
	if v != nil {
		if b, err := json.Marshal(v); err == nil {
			e.Data = b
		}
	}
	return e
}

type Log interface {
	Append(ctx context.Context, e Event) error
	// List returns events with Seq > since, oldest first.
	List(ctx context.Context, since int64, limit int) ([]Event, error)
}

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Repo struct{ db *sql.DB }

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Append(ctx context.Context, e Event) error {
	return AppendWith(ctx, r.db, e)
}

// AppendWith writes e through ex, so callers can log inside their own
// transaction.
func AppendWith(ctx context.Context, ex Execer, e Event) error {
	if e.SiteID == "" {
		e.SiteID = DefaultSiteID
	}
	data := string(e.Data)
	if data == "" {
		data = "{}"
	}
	_, err := ex.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.SiteID, e.Type, e.Key, data, time.Now().Unix())
	return err
}

func (r *Repo) List(ctx context.Context, since int64, limit int) ([]Event, error) {
	limit = clampLimit(limit)
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, site_id, typ, key, data, created_at FROM event_log
		 WHERE seq > $1 ORDER BY seq ASC LIMIT $2`, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var e Event
		var data string
		if err := rows.Scan(&e.Seq, &e.SiteID, &e.Type, &e.Key, &data, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Data = json.RawMessage(data)
		out = append(out, e)
	}
	return out, rows.Err()
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 100
	case limit > 1000:
		return 1000
	}
	return limit
}

// Memory is an in-process Log.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Append(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.SiteID == "" {
		e.SiteID = DefaultSiteID
	}
	e.Seq = int64(len(m.events)) + 1
	e.CreatedAt = time.Now().Unix()
	m.events = append(m.events, e)
	return nil
}

func (m *Memory) List(_ context.Context, since int64, limit int) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit = clampLimit(limit)
	out := []Event{}
	for _, e := range m.events {
		if e.Seq <= since {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
