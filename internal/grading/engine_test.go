package grading

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mind-engage/mindengage-curriculum/internal/answer"
	"github.com/mind-engage/mindengage-curriculum/internal/curriculum"
)

func TestMCQ(t *testing.T) {
	one := 1
	q := curriculum.Question{Type: curriculum.TypeMCQ, Options: []string{"a", "b", "c"}, CorrectIndex: &one, Explanation: "b is right"}
	c := NewChecker()
	tests := []struct {
		name    string
		resp    any
		correct bool
		bad     bool
	}{
		{"json number", float64(1), true, false},
		{"int", 1, true, false},
		{"json.Number", json.Number("1"), true, false},
		{"wrong", float64(2), false, false},
		{"fraction", 1.5, false, true},
		{"out of range", float64(3), false, true},
		{"string", "b", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.Check(context.Background(), q, tt.resp)
			if tt.bad {
				if !errors.Is(err, ErrBadResponse) {
					t.Fatalf("err = %v, want ErrBadResponse", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if res.Correct != tt.correct {
				t.Fatalf("Correct = %v, want %v", res.Correct, tt.correct)
			}
			if res.Explanation != "b is right" || res.CorrectIndex == nil || *res.CorrectIndex != 1 {
				t.Fatalf("result missing reveal: %+v", res)
			}
		})
	}
}

func TestFillBlank(t *testing.T) {
	q := curriculum.Question{Type: curriculum.TypeFillBlank, Prompt: "___ and ___", Blanks: []string{"Newton", "0.5"}}
	c := NewChecker()
	tests := []struct {
		name  string
		resp  any
		score float64
	}{
		{"exact", []string{"Newton", "0.5"}, 1},
		{"case and punctuation", []any{" newton. ", ".50"}, 1},
		{"fuzzy", []any{"Newtn", "0.5"}, 0.75},
		{"wrong", []any{"Kepler", "2"}, 0},
		{"empty", []any{"", ""}, 0},
		{"unit suffix", []any{"newton", "0.5 kg"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.Check(context.Background(), q, tt.resp)
			if err != nil {
				t.Fatal(err)
			}
			if res.Score != tt.score {
				t.Fatalf("Score = %v, want %v (%+v)", res.Score, tt.score, res)
			}
			if res.Correct != (tt.score == 1) {
				t.Fatalf("Correct = %v at score %v", res.Correct, res.Score)
			}
		})
	}

	if _, err := c.Check(context.Background(), q, []any{"only one"}); !errors.Is(err, ErrBadResponse) {
		t.Fatalf("short response err = %v", err)
	}
	if _, err := c.Check(context.Background(), q, []any{"a", 2.0}); !errors.Is(err, ErrBadResponse) {
		t.Fatalf("non-string response err = %v", err)
	}
}

func TestDescriptiveNeedsReview(t *testing.T) {
	content := "Objects keep moving"
	q := curriculum.Question{Type: curriculum.TypeDescriptive, Prompt: "Inertia?",
		Answer: []answer.PersistedBlock{{Type: answer.KindText, Content: &content}}}
	res, err := NewChecker().Check(context.Background(), q, "anything")
	if err != nil {
		t.Fatal(err)
	}
	if !res.NeedsReview || res.Correct || res.Reference != content {
		t.Fatalf("descriptive = %+v", res)
	}
}

func TestUnknownType(t *testing.T) {
	res, err := NewChecker().Check(context.Background(), curriculum.Question{Type: "essay"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.NeedsReview || !strings.Contains(res.Feedback[0], "no strategy") {
		t.Fatalf("unknown type = %+v", res)
	}
}

func TestNormalizeAndLevenshtein(t *testing.T) {
	for in, want := range map[string]string{
		"  Hello,   World! ": "hello world",
		"Café":               "cafe",
		"STRASSE":            "strasse",
		"don't":              "dont",
	} {
		if got := normalize(in); got != want {
			t.Errorf("normalize(%q) = %q, want %q", in, got, want)
		}
	}
	for _, tt := range []struct {
		a, b string
		d    int
	}{{"", "abc", 3}, {"kitten", "sitting", 3}, {"same", "same", 0}, {"é", "e", 1}} {
		if got := levenshtein(tt.a, tt.b); got != tt.d {
			t.Errorf("levenshtein(%q,%q) = %d, want %d", tt.a, tt.b, got, tt.d)
		}
	}
}
