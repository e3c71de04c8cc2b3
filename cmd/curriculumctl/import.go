package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-curriculum/internal/curriculum"
	"github.com/mind-engage/mindengage-curriculum/internal/importer"
)

func (c *cli) importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import questions into a unit",
	}
	cmd.AddCommand(c.importMarkdownCmd(), c.importXLSXCmd())
	return cmd
}

func (c *cli) importMarkdownCmd() *cobra.Command {
	var (
		unitID, file, assets, questionID, prompt string
	)
	cmd := &cobra.Command{
		Use:   "markdown",
		Short: "Import a Markdown file as a descriptive answer",
		Long: `Convert a Markdown file into an answer document. Relative image paths
are uploaded from --assets (default: the file's directory).

Without --question a new descriptive question is appended to the unit;
with it, that question's answer is replaced.`,
		Example: `  curriculumctl import markdown --unit 0b6e... --file photosynthesis.md
  curriculumctl import markdown --unit 0b6e... --question 9c1f... --file v2.md --assets ./img`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if questionID != "" && !curriculum.ValidID(questionID) {
				return fmt.Errorf("--question %q is not a valid id", questionID)
			}
			src, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			if assets == "" {
				assets = filepath.Dir(file)
			}

			ctx := cmd.Context()
			a, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			if _, err := a.Store.GetUnit(ctx, unitID); err != nil {
				return err
			}

			doc, res, err := importer.ResolveAttachments(ctx, importer.Markdown(src, prompt),
				importer.DirAttachments(assets), a.Uploader, a.Uploader.TrustedBase())
			if err != nil {
				return err
			}

			var q curriculum.Question
			if questionID != "" {
				q, err = a.Store.SaveAnswer(ctx, questionID, doc)
			} else {
				var existing []curriculum.Question
				existing, err = a.Store.ListQuestions(ctx, unitID, curriculum.ListOpts{Limit: curriculum.MaxLimit})
				if err == nil {
					q, err = a.Store.PutQuestion(ctx, curriculum.Question{
						UnitID:   unitID,
						Type:     curriculum.TypeDescriptive,
						Prompt:   doc.Title,
						Answer:   doc.Blocks,
						Position: len(existing),
					})
				}
			}
			if err != nil {
				return err
			}
			for _, ref := range res.Missing {
				a.Log.Warn("image not found", "ref", ref)
			}
			for _, ref := range res.Rejected {
				a.Log.Warn("image rejected", "ref", ref)
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"question":   q.ID,
				"resolution": res,
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&unitID, "unit", "", "Target unit id (required)")
	f.StringVar(&file, "file", "", "Markdown file (required)")
	f.StringVar(&assets, "assets", "", "Directory holding referenced images")
	f.StringVar(&questionID, "question", "", "Replace the answer of this descriptive question")
	f.StringVar(&prompt, "prompt", "", "Question prompt; defaults to the first heading")
	_ = cmd.MarkFlagRequired("unit")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (c *cli) importXLSXCmd() *cobra.Command {
	var unitID, file string
	cmd := &cobra.Command{
		Use:   "xlsx",
		Short: "Import questions from a spreadsheet",
		Long: `Read the first sheet of an .xlsx workbook. The header row names the
columns: type and prompt are required; option_a..option_f, correct,
blanks, explanation, answer and tags are optional. Rows that fail
validation are reported and skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fh, err := os.Open(file)
			if err != nil {
				return err
			}
			defer fh.Close()

			ctx := cmd.Context()
			a, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			if _, err := a.Store.GetUnit(ctx, unitID); err != nil {
				return err
			}

			qs, rowErrs, err := importer.XLSX(fh, unitID)
			if err != nil {
				return err
			}
			existing, err := a.Store.ListQuestions(ctx, unitID, curriculum.ListOpts{Limit: curriculum.MaxLimit})
			if err != nil {
				return err
			}
			for _, q := range qs {
				q.Position += len(existing)
				if _, err := a.Store.PutQuestion(ctx, q); err != nil {
					return err
				}
			}
			for _, re := range rowErrs {
				fmt.Fprintf(cmd.ErrOrStderr(), "row %d: %s\n", re.Row, re.Err)
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"imported": len(qs),
				"errors":   len(rowErrs),
			})
		},
	}
	cmd.Flags().StringVar(&unitID, "unit", "", "Target unit id (required)")
	cmd.Flags().StringVar(&file, "file", "", "Workbook (.xlsx) (required)")
	_ = cmd.MarkFlagRequired("unit")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
