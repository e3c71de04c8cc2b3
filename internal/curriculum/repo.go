package curriculum

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mind-engage/mindengage-curriculum/internal/answer"
	"github.com/mind-engage/mindengage-curriculum/internal/events"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

type ListOpts struct {
	Q      string // case-insensitive match on name or prompt
	Limit  int
	Offset int
}

// Clamped returns o with Limit defaulted and capped and Offset non-negative.
func (o ListOpts) Clamped() ListOpts {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	o.Q = strings.TrimSpace(o.Q)
	return o
}

// Store persists the curriculum. Put methods create the entity when its ID
// is empty or unknown and replace it otherwise. Deletes cascade to children.
type Store interface {
	PutSubject(ctx context.Context, s Subject) (Subject, error)
	GetSubject(ctx context.Context, id string) (Subject, error)
	ListSubjects(ctx context.Context, opts ListOpts) ([]Subject, error)
	DeleteSubject(ctx context.Context, id string) error

	PutUnit(ctx context.Context, u Unit) (Unit, error)
	GetUnit(ctx context.Context, id string) (Unit, error)
	ListUnits(ctx context.Context, subjectID string, opts ListOpts) ([]Unit, error)
	DeleteUnit(ctx context.Context, id string) error

	PutQuestion(ctx context.Context, q Question) (Question, error)
	GetQuestion(ctx context.Context, id string) (Question, error)
	ListQuestions(ctx context.Context, unitID string, opts ListOpts) ([]Question, error)
	DeleteQuestion(ctx context.Context, id string) error

	// SaveAnswer replaces the answer document of a descriptive question.
	// A non-empty document title becomes the question prompt.
	SaveAnswer(ctx context.Context, questionID string, doc answer.Document) (Question, error)
}

func prepareID(id *string) error {
	if *id == "" {
		*id = NewID()
		return nil
	}
	if !ValidID(*id) {
		return invalid("id %q is not a valid id", *id)
	}
	return nil
}

func notFound(kind, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
}

// applyAnswer validates doc against q and stores it on q.
func applyAnswer(q *Question, doc answer.Document) error {
	if q.Type != TypeDescriptive {
		return invalid("question %s is %s, not descriptive", q.ID, q.Type)
	}
	if t := strings.TrimSpace(doc.Title); t != "" {
		q.Prompt = t
	}
	q.Answer = doc.Blocks
	return q.Validate()
}

type memoryStore struct {
	mu        sync.RWMutex
	subjects  map[string]Subject
	units     map[string]Unit
	questions map[string]Question
	log       events.Log
	now       func() time.Time
}

// NewInMemoryStore returns a Store kept in process memory. Writes are
// appended to log when it is non-nil.
func NewInMemoryStore(log events.Log) Store {
	return &memoryStore{
		subjects:  map[string]Subject{},
		units:     map[string]Unit{},
		questions: map[string]Question{},
		log:       log,
		now:       time.Now,
	}
}

func (m *memoryStore) record(ctx context.Context, typ, key string, v any) error {
	if m.log == nil {
		return nil
	}
	return m.log.Append(ctx, events.New(typ, key, v))
}

func (m *memoryStore) PutSubject(ctx context.Context, s Subject) (Subject, error) {
	if err := prepareID(&s.ID); err != nil {
		return Subject{}, err
	}
	if err := s.Validate(); err != nil {
		return Subject{}, err
	}
	m.mu.Lock()
	now := m.now().Unix()
	if old, ok := m.subjects[s.ID]; ok {
		s.CreatedAt = old.CreatedAt
	} else {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	m.subjects[s.ID] = s
	m.mu.Unlock()
	return s, m.record(ctx, events.SubjectSaved, s.ID, s)
}

func (m *memoryStore) GetSubject(_ context.Context, id string) (Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.subjects[id]
	if !ok {
		return Subject{}, notFound("subject", id)
	}
	return s, nil
}

func (m *memoryStore) ListSubjects(_ context.Context, opts ListOpts) ([]Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Subject, 0, len(m.subjects))
	for _, s := range m.subjects {
		if matches(opts, s.Name) {
			out = append(out, s)
		}
	}
	sortByPosition(out, func(s Subject) (int, int64, string) { return s.Position, s.CreatedAt, s.ID })
	return page(out, opts), nil
}

func (m *memoryStore) DeleteSubject(ctx context.Context, id string) error {
	m.mu.Lock()
	if _, ok := m.subjects[id]; !ok {
		m.mu.Unlock()
		return notFound("subject", id)
	}
	delete(m.subjects, id)
	for uid, u := range m.units {
		if u.SubjectID == id {
			m.deleteUnitLocked(uid)
		}
	}
	m.mu.Unlock()
	return m.record(ctx, events.SubjectDeleted, id, nil)
}

func (m *memoryStore) PutUnit(ctx context.Context, u Unit) (Unit, error) {
	if err := u.Validate(); err != nil {
		return Unit{}, err
	}
	if err := prepareID(&u.ID); err != nil {
		return Unit{}, err
	}
	m.mu.Lock()
	if _, ok := m.subjects[u.SubjectID]; !ok {
		m.mu.Unlock()
		return Unit{}, notFound("subject", u.SubjectID)
	}
	now := m.now().Unix()
	if old, ok := m.units[u.ID]; ok {
		u.CreatedAt = old.CreatedAt
	} else {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	m.units[u.ID] = u
	m.mu.Unlock()
	return u, m.record(ctx, events.UnitSaved, u.ID, u)
}

func (m *memoryStore) GetUnit(_ context.Context, id string) (Unit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.units[id]
	if !ok {
		return Unit{}, notFound("unit", id)
	}
	return u, nil
}

func (m *memoryStore) ListUnits(_ context.Context, subjectID string, opts ListOpts) ([]Unit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.subjects[subjectID]; !ok {
		return nil, notFound("subject", subjectID)
	}
	out := []Unit{}
	for _, u := range m.units {
		if u.SubjectID == subjectID && matches(opts, u.Name) {
			out = append(out, u)
		}
	}
	sortByPosition(out, func(u Unit) (int, int64, string) { return u.Position, u.CreatedAt, u.ID })
	return page(out, opts), nil
}

func (m *memoryStore) DeleteUnit(ctx context.Context, id string) error {
	m.mu.Lock()
	if _, ok := m.units[id]; !ok {
		m.mu.Unlock()
		return notFound("unit", id)
	}
	m.deleteUnitLocked(id)
	m.mu.Unlock()
	return m.record(ctx, events.UnitDeleted, id, nil)
}

func (m *memoryStore) deleteUnitLocked(id string) {
	delete(m.units, id)
	for qid, q := range m.questions {
		if q.UnitID == id {
			delete(m.questions, qid)
		}
	}
}

func (m *memoryStore) PutQuestion(ctx context.Context, q Question) (Question, error) {
	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	if err := prepareID(&q.ID); err != nil {
		return Question{}, err
	}
	m.mu.Lock()
	if _, ok := m.units[q.UnitID]; !ok {
		m.mu.Unlock()
		return Question{}, notFound("unit", q.UnitID)
	}
	now := m.now().Unix()
	if old, ok := m.questions[q.ID]; ok {
		q.CreatedAt = old.CreatedAt
	} else {
		q.CreatedAt = now
	}
	q.UpdatedAt = now
	m.questions[q.ID] = q
	m.mu.Unlock()
	return q, m.record(ctx, events.QuestionSaved, q.ID, q)
}

func (m *memoryStore) GetQuestion(_ context.Context, id string) (Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok {
		return Question{}, notFound("question", id)
	}
	return q, nil
}

func (m *memoryStore) ListQuestions(_ context.Context, unitID string, opts ListOpts) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.units[unitID]; !ok {
		return nil, notFound("unit", unitID)
	}
	out := []Question{}
	for _, q := range m.questions {
		if q.UnitID == unitID && matches(opts, q.Prompt) {
			out = append(out, q)
		}
	}
	sortByPosition(out, func(q Question) (int, int64, string) { return q.Position, q.CreatedAt, q.ID })
	return page(out, opts), nil
}

func (m *memoryStore) DeleteQuestion(ctx context.Context, id string) error {
	m.mu.Lock()
	if _, ok := m.questions[id]; !ok {
		m.mu.Unlock()
		return notFound("question", id)
	}
	delete(m.questions, id)
	m.mu.Unlock()
	return m.record(ctx, events.QuestionDeleted, id, nil)
}

func (m *memoryStore) SaveAnswer(ctx context.Context, questionID string, doc answer.Document) (Question, error) {
	m.mu.Lock()
	q, ok := m.questions[questionID]
	if !ok {
		m.mu.Unlock()
		return Question{}, notFound("question", questionID)
	}
	if err := applyAnswer(&q, doc); err != nil {
		m.mu.Unlock()
		return Question{}, err
	}
	q.UpdatedAt = m.now().Unix()
	m.questions[questionID] = q
	m.mu.Unlock()
	return q, m.record(ctx, events.AnswerSaved, q.ID, q.AnswerDocument())
}

func matches(opts ListOpts, text string) bool {
	q := strings.TrimSpace(opts.Q)
	return q == "" || strings.Contains(strings.ToLower(text), strings.ToLower(q))
}

func sortByPosition[T any](xs []T, key func(T) (int, int64, string)) {
	slices.SortFunc(xs, func(a, b T) int {
		pa, ca, ia := key(a)
		pb, cb, ib := key(b)
		if c := cmp.Compare(pa, pb); c != 0 {
			return c
		}
		if c := cmp.Compare(ca, cb); c != 0 {
			return c
		}
		return cmp.Compare(ia, ib)
	})
}

func page[T any](xs []T, opts ListOpts) []T {
	opts = opts.Clamped()
	if opts.Offset >= len(xs) {
		return []T{}
	}
	xs = xs[opts.Offset:]
	if len(xs) > opts.Limit {
		xs = xs[:opts.Limit]
	}
	return xs
}
