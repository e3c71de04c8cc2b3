package main

import (
	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-curriculum/internal/importer"
)

func (c *cli) seedCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load subject YAML files into the store",
		Long: `Walk --dir for *.yaml files, each describing one subject with its units
and questions, and upsert them. Entries without an id get a stable one
derived from their position, so seeding the same directory twice
updates in place.

Descriptive answers are written as Markdown in answer_md; images they
reference are uploaded from files next to the YAML file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			s := &importer.Seeder{
				Store:       a.Store,
				Uploader:    a.Uploader,
				TrustedBase: a.Uploader.TrustedBase(),
				Log:         a.Log,
			}
			st, err := s.SeedDir(cmd.Context(), dir)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), st)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Seed directory (required)")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}
