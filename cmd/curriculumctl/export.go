package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-curriculum/internal/answer/render"
	"github.com/mind-engage/mindengage-curriculum/internal/curriculum"
)

func (c *cli) exportCmd() *cobra.Command {
	var id, format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print a question or its rendered answer",
		Long: `Print a stored question. --format json prints the question record;
html and text render its descriptive answer.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !curriculum.ValidID(id) {
				return fmt.Errorf("--question %q is not a valid id", id)
			}
			ctx := cmd.Context()
			a, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			q, err := a.Store.GetQuestion(ctx, id)
			if err != nil {
				return err
			}
			return exportQuestion(cmd.OutOrStdout(), q, format)
		},
	}
	cmd.Flags().StringVar(&id, "question", "", "Question id (required)")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json|html|text")
	_ = cmd.MarkFlagRequired("question")
	return cmd
}

func exportQuestion(w io.Writer, q curriculum.Question, format string) error {
	if format == "json" {
		return printJSON(w, q)
	}
	if q.Type != curriculum.TypeDescriptive {
		return fmt.Errorf("question %s is %s; only descriptive answers render", q.ID, q.Type)
	}
	doc := q.AnswerDocument()
	switch format {
	case "html":
		return render.Page(w, render.Render(doc))
	case "text":
		_, err := fmt.Fprintln(w, render.ToPlainText(doc))
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
