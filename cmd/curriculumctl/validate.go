package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-curriculum/internal/curriculum"
	"github.com/mind-engage/mindengage-curriculum/internal/schema"
)

func (c *cli) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [FILE...]",
		Short: "Check questions against the question schema",
		Long: `With FILE arguments, check each JSON file as a question payload.
Without arguments, check every question in the store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			var failed int
			if len(args) > 0 {
				for _, path := range args {
					raw, err := os.ReadFile(path)
					if err != nil {
						return err
					}
					if !report(out, path, validateQuestion(raw)) {
						failed++
					}
				}
			} else {
				ctx := cmd.Context()
				a, err := c.open(ctx)
				if err != nil {
					return err
				}
				defer a.Close()
				n, err := eachQuestion(ctx, a.Store, func(q curriculum.Question) error {
					raw, err := json.Marshal(q)
					if err != nil {
						return err
					}
					if !report(out, q.ID, validateQuestion(raw)) {
						failed++
					}
					return nil
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%d questions checked\n", n)
			}
			if failed > 0 {
				return fmt.Errorf("%d invalid", failed)
			}
			return nil
		},
	}
}

// validateQuestion applies the JSON schema and then the model rules.
func validateQuestion(raw []byte) error {
	if err := schema.ValidateQuestion(raw); err != nil {
		return err
	}
	var q curriculum.Question
	if err := json.Unmarshal(raw, &q); err != nil {
		return err
	}
	return q.Validate()
}

func report(w io.Writer, name string, err error) bool {
	if err != nil {
		fmt.Fprintf(w, "FAIL %s: %v\n", name, err)
		return false
	}
	fmt.Fprintf(w, "ok   %s\n", name)
	return true
}

// eachQuestion pages through every subject, unit and question.
func eachQuestion(ctx context.Context, store curriculum.Store, fn func(curriculum.Question) error) (int, error) {
	var n int
	for so := 0; ; so += curriculum.MaxLimit {
		subjects, err := store.ListSubjects(ctx, curriculum.ListOpts{Limit: curriculum.MaxLimit, Offset: so})
		if err != nil {
			return n, err
		}
		for _, s := range subjects {
			for uo := 0; ; uo += curriculum.MaxLimit {
				units, err := store.ListUnits(ctx, s.ID, curriculum.ListOpts{Limit: curriculum.MaxLimit, Offset: uo})
				if err != nil {
					return n, err
				}
				for _, u := range units {
					for qo := 0; ; qo += curriculum.MaxLimit {
						qs, err := store.ListQuestions(ctx, u.ID, curriculum.ListOpts{Limit: curriculum.MaxLimit, Offset: qo})
						if err != nil {
							return n, err
						}
						for _, q := range qs {
							n++
							if err := fn(q); err != nil {
								return n, err
							}
						}
						if len(qs) < curriculum.MaxLimit {
							break
						}
					}
				}
				if len(units) < curriculum.MaxLimit {
					break
				}
			}
		}
		if len(subjects) < curriculum.MaxLimit {
			return n, nil
		}
	}
}
