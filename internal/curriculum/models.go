package curriculum

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/mind-engage/mindengage-curriculum/internal/answer"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid")
)

type QuestionType string

const (
	TypeMCQ         QuestionType = "mcq"
	TypeFillBlank   QuestionType = "fill_blank"
	TypeDescriptive QuestionType = "descriptive"
)

// BlankMarker marks one blank inside a fill_blank prompt.
const BlankMarker = "___"

type Subject struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	Position    int    `json:"position"`
	CreatedAt   int64  `json:"created_at,omitempty"`
	UpdatedAt   int64  `json:"updated_at,omitempty"`
}

type Unit struct {
	ID        string `json:"id"`
	SubjectID string `json:"subject_id"`
	Name      string `json:"name"`
	Position  int    `json:"position"`
	CreatedAt int64  `json:"created_at,omitempty"`
	UpdatedAt int64  `json:"updated_at,omitempty"`
}

type Question struct {
	ID     string       `json:"id"`
	UnitID string       `json:"unit_id"`
	Type   QuestionType `json:"type"`
	Prompt string       `json:"prompt"`

	Options      []string `json:"options,omitempty"`       // mcq
	CorrectIndex *int     `json:"correct_index,omitempty"` // mcq: index into Options
	Blanks       []string `json:"blanks,omitempty"`        // fill_blank: one answer per marker

	Answer []answer.PersistedBlock `json:"answer,omitempty"` // descriptive

	Explanation string   `json:"explanation,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Position    int      `json:"position"`
	CreatedAt   int64    `json:"created_at,omitempty"`
	UpdatedAt   int64    `json:"updated_at,omitempty"`
}

// AnswerDocument returns the descriptive answer in its wire form.
func (q Question) AnswerDocument() answer.Document {
	if len(q.Answer) == 0 {
		return answer.NewDocument(q.Prompt)
	}
	return answer.Document{Title: q.Prompt, Blocks: q.Answer}
}

// Public returns a copy safe to serve to learners: correct answers are
// removed.
func (q Question) Public() Question {
	q.CorrectIndex = nil
	q.Blanks = nil
	q.Answer = nil
	return q
}

// NewID returns a fresh entity ID.
func NewID() string { return uuid.NewString() }

// ValidID reports whether s is a well-formed entity ID.
func ValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func (s *Subject) Validate() error {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return invalid("subject name is required")
	}
	if s.Slug == "" {
		s.Slug = Slugify(s.Name)
	}
	if s.Slug == "" {
		// a name without letters or digits
		s.Slug = s.ID
	}
	return nil
}

func (u *Unit) Validate() error {
	u.Name = strings.TrimSpace(u.Name)
	if u.Name == "" {
		return invalid("unit name is required")
	}
	if !ValidID(u.SubjectID) {
		return invalid("unit subject_id %q is not a valid id", u.SubjectID)
	}
	return nil
}

// Validate checks q and canonicalizes its type-specific fields.
// Fields that do not belong to q.Type are cleared.
func (q *Question) Validate() error {
	q.Prompt = strings.TrimSpace(q.Prompt)
	if q.Prompt == "" {
		return invalid("question prompt is required")
	}
	if !ValidID(q.UnitID) {
		return invalid("question unit_id %q is not a valid id", q.UnitID)
	}
	switch q.Type {
	case TypeMCQ:
		if len(q.Options) < 2 {
			return invalid("mcq needs at least 2 options")
		}
		for i, o := range q.Options {
			if strings.TrimSpace(o) == "" {
				return invalid("mcq option %d is empty", i)
			}
		}
		if q.CorrectIndex == nil {
			return invalid("mcq correct_index is required")
		}
		if *q.CorrectIndex < 0 || *q.CorrectIndex >= len(q.Options) {
			return invalid("mcq correct_index %d out of range [0,%d)", *q.CorrectIndex, len(q.Options))
		}
		q.Blanks, q.Answer = nil, nil
	case TypeFillBlank:
		n := strings.Count(q.Prompt, BlankMarker)
		if n == 0 {
			return invalid("fill_blank prompt has no %s marker", BlankMarker)
		}
		if len(q.Blanks) != n {
			return invalid("fill_blank has %d markers but %d answers", n, len(q.Blanks))
		}
		q.Options, q.CorrectIndex, q.Answer = nil, nil, nil
	case TypeDescriptive:
		blocks, err := answer.Normalize(q.Answer)
		if err != nil {
			return invalid("descriptive answer: %v", err)
		}
		q.Answer = answer.DropRefs(blocks)
		q.Options, q.CorrectIndex, q.Blanks = nil, nil, nil
	default:
		return invalid("unknown question type %q", q.Type)
	}
	return nil
}

// Slugify lowercases s, strips accents and joins its runs of letters and
// digits with dashes. Letters of any script are kept.
func Slugify(s string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	var b strings.Builder
	dash := false
	for _, r := range cases.Lower(language.Und).String(s) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
		default:
			dash = true
		}
	}
	return b.String()
}
