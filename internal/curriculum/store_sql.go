package curriculum

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mind-engage/mindengage-curriculum/internal/answer"
	"github.com/mind-engage/mindengage-curriculum/internal/events"
)

// SQLStore keeps each entity as a JSON payload plus the columns needed for
// ordering and search. Every write appends to event_log in the same
// transaction.
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func exists(ctx context.Context, tx *sql.Tx, table, id string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id=$1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// createdAt returns the stored creation time of id, or now when id is new.
func createdAt(ctx context.Context, tx *sql.Tx, table, id string, now int64) (int64, error) {
	var ts int64
	err := tx.QueryRowContext(ctx, `SELECT created_at FROM `+table+` WHERE id=$1`, id).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return now, nil
	}
	return ts, err
}

func (s *SQLStore) PutSubject(ctx context.Context, sub Subject) (Subject, error) {
	if err := prepareID(&sub.ID); err != nil {
		return Subject{}, err
	}
	if err := sub.Validate(); err != nil {
		return Subject{}, err
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().Unix()
		var err error
		if sub.CreatedAt, err = createdAt(ctx, tx, "subjects", sub.ID, now); err != nil {
			return err
		}
		sub.UpdatedAt = now
		payload, err := json.Marshal(sub)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO subjects (id,name,slug,position,payload,created_at,updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, slug=EXCLUDED.slug, position=EXCLUDED.position,
			payload=EXCLUDED.payload, updated_at=EXCLUDED.updated_at`,
			sub.ID, sub.Name, sub.Slug, sub.Position, string(payload), sub.CreatedAt, sub.UpdatedAt); err != nil {
			return err
		}
		return events.AppendWith(ctx, tx, events.Event{Type: events.SubjectSaved, Key: sub.ID, Data: payload})
	})
	if err != nil {
		return Subject{}, err
	}
	return sub, nil
}

func (s *SQLStore) GetSubject(ctx context.Context, id string) (Subject, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM subjects WHERE id=$1`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Subject{}, notFound("subject", id)
	}
	if err != nil {
		return Subject{}, err
	}
	var sub Subject
	return sub, json.Unmarshal([]byte(payload), &sub)
}

func (s *SQLStore) ListSubjects(ctx context.Context, opts ListOpts) ([]Subject, error) {
	return listPayloads[Subject](ctx, s.db, "subjects", "name", "", "", opts)
}

func (s *SQLStore) DeleteSubject(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, "subjects", id)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("subject", id)
		}
		// explicit cascade: sqlite only honours ON DELETE CASCADE with foreign_keys on
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM questions WHERE unit_id IN (SELECT id FROM units WHERE subject_id=$1)`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM units WHERE subject_id=$1`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM subjects WHERE id=$1`, id); err != nil {
			return err
		}
		return events.AppendWith(ctx, tx, events.Event{Type: events.SubjectDeleted, Key: id})
	})
}

func (s *SQLStore) PutUnit(ctx context.Context, u Unit) (Unit, error) {
	if err := u.Validate(); err != nil {
		return Unit{}, err
	}
	if err := prepareID(&u.ID); err != nil {
		return Unit{}, err
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, "subjects", u.SubjectID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("subject", u.SubjectID)
		}
		now := time.Now().Unix()
		if u.CreatedAt, err = createdAt(ctx, tx, "units", u.ID, now); err != nil {
			return err
		}
		u.UpdatedAt = now
		payload, err := json.Marshal(u)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO units (id,subject_id,name,position,payload,created_at,updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (id) DO UPDATE SET subject_id=EXCLUDED.subject_id, name=EXCLUDED.name,
			position=EXCLUDED.position, payload=EXCLUDED.payload, updated_at=EXCLUDED.updated_at`,
			u.ID, u.SubjectID, u.Name, u.Position, string(payload), u.CreatedAt, u.UpdatedAt); err != nil {
			return err
		}
		return events.AppendWith(ctx, tx, events.Event{Type: events.UnitSaved, Key: u.ID, Data: payload})
	})
	if err != nil {
		return Unit{}, err
	}
	return u, nil
}

func (s *SQLStore) GetUnit(ctx context.Context, id string) (Unit, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM units WHERE id=$1`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Unit{}, notFound("unit", id)
	}
	if err != nil {
		return Unit{}, err
	}
	var u Unit
	return u, json.Unmarshal([]byte(payload), &u)
}

func (s *SQLStore) ListUnits(ctx context.Context, subjectID string, opts ListOpts) ([]Unit, error) {
	if _, err := s.GetSubject(ctx, subjectID); err != nil {
		return nil, err
	}
	return listPayloads[Unit](ctx, s.db, "units", "name", "subject_id", subjectID, opts)
}

func (s *SQLStore) DeleteUnit(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, "units", id)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("unit", id)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE unit_id=$1`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM units WHERE id=$1`, id); err != nil {
			return err
		}
		return events.AppendWith(ctx, tx, events.Event{Type: events.UnitDeleted, Key: id})
	})
}

func (s *SQLStore) PutQuestion(ctx context.Context, q Question) (Question, error) {
	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	if err := prepareID(&q.ID); err != nil {
		return Question{}, err
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		ok, err := exists(ctx, tx, "units", q.UnitID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("unit", q.UnitID)
		}
		return s.writeQuestion(ctx, tx, &q, events.QuestionSaved)
	})
	if err != nil {
		return Question{}, err
	}
	return q, nil
}

func (s *SQLStore) writeQuestion(ctx context.Context, tx *sql.Tx, q *Question, typ string) error {
	now := time.Now().Unix()
	var err error
	if q.CreatedAt, err = createdAt(ctx, tx, "questions", q.ID, now); err != nil {
		return err
	}
	q.UpdatedAt = now
	payload, err := json.Marshal(q)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO questions (id,unit_id,typ,prompt,position,payload,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET unit_id=EXCLUDED.unit_id, typ=EXCLUDED.typ, prompt=EXCLUDED.prompt,
		position=EXCLUDED.position, payload=EXCLUDED.payload, updated_at=EXCLUDED.updated_at`,
		q.ID, q.UnitID, string(q.Type), q.Prompt, q.Position, string(payload), q.CreatedAt, q.UpdatedAt); err != nil {
		return err
	}
	data := payload
	if typ == events.AnswerSaved {
		if data, err = json.Marshal(q.AnswerDocument()); err != nil {
			return err
		}
	}
	return events.AppendWith(ctx, tx, events.Event{Type: typ, Key: q.ID, Data: data})
}

func (s *SQLStore) GetQuestion(ctx context.Context, id string) (Question, error) {
	return getQuestion(ctx, s.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getQuestion(ctx context.Context, db queryRower, id string) (Question, error) {
	var payload string
	err := db.QueryRowContext(ctx, `SELECT payload FROM questions WHERE id=$1`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, notFound("question", id)
	}
	if err != nil {
		return Question{}, err
	}
	var q Question
	return q, json.Unmarshal([]byte(payload), &q)
}

func (s *SQLStore) ListQuestions(ctx context.Context, unitID string, opts ListOpts) ([]Question, error) {
	if _, err := s.GetUnit(ctx, unitID); err != nil {
		return nil, err
	}
	return listPayloads[Question](ctx, s.db, "questions", "prompt", "unit_id", unitID, opts)
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("question", id)
		}
		return events.AppendWith(ctx, tx, events.Event{Type: events.QuestionDeleted, Key: id})
	})
}

func (s *SQLStore) SaveAnswer(ctx context.Context, questionID string, doc answer.Document) (Question, error) {
	var q Question
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		if q, err = getQuestion(ctx, tx, questionID); err != nil {
			return err
		}
		if err := applyAnswer(&q, doc); err != nil {
			return err
		}
		return s.writeQuestion(ctx, tx, &q, events.AnswerSaved)
	})
	if err != nil {
		return Question{}, err
	}
	return q, nil
}

// listPayloads pages through table ordered by position. When parentCol is
// set, rows are restricted to parentID.
func listPayloads[T any](ctx context.Context, db *sql.DB, table, searchCol, parentCol, parentID string, opts ListOpts) ([]T, error) {
	opts = opts.Clamped()
	var (
		where []string
		args  []any
	)
	ph := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if parentCol != "" {
		where = append(where, parentCol+"="+ph(parentID))
	}
	if opts.Q != "" {
		where = append(where, "LOWER("+searchCol+") LIKE "+ph("%"+strings.ToLower(opts.Q)+"%"))
	}
	query := "SELECT payload FROM " + table
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY position ASC, created_at ASC, id ASC"
	query += " LIMIT " + ph(opts.Limit) + " OFFSET " + ph(opts.Offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(payload), &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
