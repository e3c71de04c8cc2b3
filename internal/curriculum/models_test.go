package curriculum

import (
	"errors"
	"testing"

	"github.com/mind-engage/mindengage-curriculum/internal/answer"
)

func TestQuestionValidate(t *testing.T) {
	unit := NewID()
	idx := func(i int) *int { return &i }
	tests := []struct {
		name string
		q    Question
		ok   bool
	}{
		{"mcq ok", Question{UnitID: unit, Type: TypeMCQ, Prompt: "p", Options: []string{"a", "b"}, CorrectIndex: idx(1)}, true},
		{"mcq one option", Question{UnitID: unit, Type: TypeMCQ, Prompt: "p", Options: []string{"a"}, CorrectIndex: idx(0)}, false},
		{"mcq index out of range", Question{UnitID: unit, Type: TypeMCQ, Prompt: "p", Options: []string{"a", "b"}, CorrectIndex: idx(2)}, false},
		{"mcq negative index", Question{UnitID: unit, Type: TypeMCQ, Prompt: "p", Options: []string{"a", "b"}, CorrectIndex: idx(-1)}, false},
		{"mcq missing index", Question{UnitID: unit, Type: TypeMCQ, Prompt: "p", Options: []string{"a", "b"}}, false},
		{"mcq blank option", Question{UnitID: unit, Type: TypeMCQ, Prompt: "p", Options: []string{"a", " "}, CorrectIndex: idx(0)}, false},
		{"fill ok", Question{UnitID: unit, Type: TypeFillBlank, Prompt: "F = ___ a", Blanks: []string{"m"}}, true},
		{"fill count mismatch", Question{UnitID: unit, Type: TypeFillBlank, Prompt: "___ and ___", Blanks: []string{"x"}}, false},
		{"fill no marker", Question{UnitID: unit, Type: TypeFillBlank, Prompt: "none", Blanks: []string{"x"}}, false},
		{"descriptive empty", Question{UnitID: unit, Type: TypeDescriptive, Prompt: "p"}, true},
		{"descriptive bad kind", Question{UnitID: unit, Type: TypeDescriptive, Prompt: "p", Answer: []answer.PersistedBlock{{Type: "video"}}}, false},
		{"unknown type", Question{UnitID: unit, Type: "essay", Prompt: "p"}, false},
		{"blank prompt", Question{UnitID: unit, Type: TypeDescriptive, Prompt: "  "}, false},
		{"bad unit", Question{UnitID: "u1", Type: TypeDescriptive, Prompt: "p"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate()
			if tt.ok && err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestValidateClearsForeignFields(t *testing.T) {
	q := Question{
		UnitID: NewID(), Type: TypeFillBlank, Prompt: "a ___",
		Blanks: []string{"b"}, Options: []string{"x", "y"},
		Answer: []answer.PersistedBlock{{Type: answer.KindText}},
	}
	if err := q.Validate(); err != nil {
		t.Fatal(err)
	}
	if q.Options != nil || q.Answer != nil || q.CorrectIndex != nil {
		t.Fatalf("foreign fields kept: %+v", q)
	}
}

func TestPublicHidesAnswers(t *testing.T) {
	i := 1
	q := Question{Type: TypeMCQ, Options: []string{"a", "b"}, CorrectIndex: &i, Blanks: []string{"x"},
		Answer: []answer.PersistedBlock{{Type: answer.KindText}}}
	p := q.Public()
	if p.CorrectIndex != nil || p.Blanks != nil || p.Answer != nil {
		t.Fatalf("Public leaked answers: %+v", p)
	}
	if q.CorrectIndex == nil {
		t.Fatal("Public mutated the receiver")
	}
}

func TestSlugify(t *testing.T) {
	for in, want := range map[string]string{
		"Physics":            "physics",
		"  Linear Algebra! ": "linear-algebra",
		"Class 10: Maths":    "class-10-maths",
		"---":                "",
		"数学":                 "数学",
		"Géographie Física":  "geographie-fisica",
		"Физика 9":           "физика-9",
	} {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSubjectSlugFallsBackToID(t *testing.T) {
	s := Subject{ID: NewID(), Name: "???"}
	if err := s.Validate(); err != nil {
		t.Fatal(err)
	}
	if s.Slug != s.ID {
		t.Fatalf("slug = %q, want id %q", s.Slug, s.ID)
	}

	s = Subject{ID: NewID(), Name: "数学"}
	if err := s.Validate(); err != nil {
		t.Fatal(err)
	}
	if s.Slug != "数学" {
		t.Fatalf("slug = %q", s.Slug)
	}
}

func TestListOptsClamped(t *testing.T) {
	if o := (ListOpts{}).Clamped(); o.Limit != DefaultLimit {
		t.Fatalf("default limit = %d", o.Limit)
	}
	if o := (ListOpts{Limit: 1000, Offset: -3}).Clamped(); o.Limit != MaxLimit || o.Offset != 0 {
		t.Fatalf("clamped = %+v", o)
	}
}
