package grading

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/mind-engage/mindengage-curriculum/internal/answer/render"
	"github.com/mind-engage/mindengage-curriculum/internal/curriculum"
)

var ErrBadResponse = errors.New("bad response")

// Result is the outcome of checking one practice response.
type Result struct {
	Score       float64  `json:"score"` // 0..1
	Correct     bool     `json:"correct"`
	NeedsReview bool     `json:"needs_review,omitempty"` // learner compares with Reference
	Feedback    []string `json:"feedback,omitempty"`

	CorrectIndex *int     `json:"correct_index,omitempty"`
	Blanks       []string `json:"blanks,omitempty"`
	Reference    string   `json:"reference,omitempty"`
	Explanation  string   `json:"explanation,omitempty"`
}

// Strategy checks a response to one question type.
type Strategy interface {
	Check(ctx context.Context, q curriculum.Question, response any) (Result, error)
}

// Checker routes by question type to the correct Strategy.
type Checker struct {
	strategies map[curriculum.QuestionType]Strategy
}

func (c *Checker) Check(ctx context.Context, q curriculum.Question, response any) (Result, error) {
	s, ok := c.strategies[q.Type]
	if !ok {
		return Result{NeedsReview: true, Feedback: []string{"no strategy available"}}, nil
	}
	res, err := s.Check(ctx, q, response)
	if err != nil {
		return Result{}, err
	}
	res.Explanation = q.Explanation
	return res, nil
}

type Option func(*config)

type config struct {
	MaxEditDistance int // for fill_blank fuzzy
}

func WithMaxEditDistance(n int) Option { return func(c *config) { c.MaxEditDistance = n } }

// NewChecker installs built-in strategies.
func NewChecker(opts ...Option) *Checker {
	cfg := &config{MaxEditDistance: 1}
	for _, o := range opts {
		o(cfg)
	}
	return &Checker{
		strategies: map[curriculum.QuestionType]Strategy{
			curriculum.TypeMCQ:         mcqStrategy{},
			curriculum.TypeFillBlank:   fillBlankStrategy{maxEdit: cfg.MaxEditDistance},
			curriculum.TypeDescriptive: descriptiveStrategy{},
		},
	}
}

// --- Strategies ---

type mcqStrategy struct{}

func (mcqStrategy) Check(_ context.Context, q curriculum.Question, response any) (Result, error) {
	idx, ok := toIndex(response)
	if !ok {
		return Result{}, fmt.Errorf("%w: mcq response must be an option index", ErrBadResponse)
	}
	if idx < 0 || idx >= len(q.Options) {
		return Result{}, fmt.Errorf("%w: option %d out of range", ErrBadResponse, idx)
	}
	res := Result{CorrectIndex: q.CorrectIndex}
	if q.CorrectIndex != nil && idx == *q.CorrectIndex {
		res.Score, res.Correct = 1, true
	}
	return res, nil
}

type fillBlankStrategy struct{ maxEdit int }

func (s fillBlankStrategy) Check(_ context.Context, q curriculum.Question, response any) (Result, error) {
	resp, ok := toStringSlice(response)
	if !ok {
		return Result{}, fmt.Errorf("%w: fill_blank response must be a list of strings", ErrBadResponse)
	}
	if len(resp) != len(q.Blanks) {
		return Result{}, fmt.Errorf("%w: got %d answers for %d blanks", ErrBadResponse, len(resp), len(q.Blanks))
	}
	res := Result{Blanks: q.Blanks}
	if len(q.Blanks) == 0 {
		return res, nil
	}
	total := 0.0
	for i, key := range q.Blanks {
		got, want := normalize(resp[i]), normalize(key)
		switch {
		case got == want, numericEqual(resp[i], key):
			total++
		case s.maxEdit > 0 && got != "" && levenshtein(got, want) <= s.maxEdit:
			total += 0.5
			res.Feedback = append(res.Feedback, fmt.Sprintf("blank %d: close match (fuzzy)", i+1))
		}
	}
	res.Score = total / float64(len(q.Blanks))
	res.Correct = res.Score == 1
	return res, nil
}

type descriptiveStrategy struct{}

func (descriptiveStrategy) Check(_ context.Context, q curriculum.Question, _ any) (Result, error) {
	return Result{
		NeedsReview: true,
		Feedback:    []string{"compare your answer with the reference"},
		Reference:   render.ToPlainText(q.AnswerDocument()),
	}, nil
}

// helpers

func toIndex(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case float64:
		if t != math.Trunc(t) {
			return 0, false
		}
		return int(t), true
	case json.Number:
		n, err := t.Int64()
		return int(n), err == nil
	default:
		return 0, false
	}
}

func toStringSlice(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
