package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-learn/internal/catalog"
	"github.com/p-n-ai/pai-learn/internal/platform/config"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect course catalog documents",
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check the courses and question bank documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			coursesPath, bankPath := cfg.Catalog.CoursesPath, cfg.Catalog.QuestionBankPath
			if p, _ := cmd.Flags().GetString("courses"); p != "" {
				coursesPath = p
			}
			if p, _ := cmd.Flags().GetString("questions"); p != "" {
				bankPath = p
			}

			cat, err := catalog.Load(coursesPath, bankPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, c := range cat.Courses() {
				assessed := 0
				for _, m := range c.Submodules {
					if m.HasAssessment() {
						assessed++
					}
				}
				counts := make([]any, 0, len(catalog.Levels))
				for _, l := range catalog.Levels {
					counts = append(counts, len(cat.Questions(c.Name, l)))
				}
				fmt.Fprintf(out, "%s: %d modules (%d with assessment), questions b/i/a %d/%d/%d\n",
					c.Name, len(c.Submodules), assessed, counts[0], counts[1], counts[2])
			}
			fmt.Fprintln(out, "ok")
			return nil
		},
	}
	validate.Flags().String("courses", "", "Courses document (default $LEARN_CATALOG_COURSES_PATH)")
	validate.Flags().String("questions", "", "Question bank document (default $LEARN_CATALOG_QUESTION_BANK_PATH)")

	cmd.AddCommand(validate)
	return cmd
}
