package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/skillcert/internal/apperr"
	"github.com/abhisek/skillcert/internal/store"
	"github.com/abhisek/skillcert/internal/testdef"
	"github.com/abhisek/skillcert/internal/ui/theme"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Manage test definitions",
}

var testImportCmd = &cobra.Command{
	Use:   "import <file.yaml|file.json>",
	Short: "Import test definitions; an existing id is replaced as a whole",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		defs, err := testdef.ParseFile(args[0], data)
		if err != nil {
			return err
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := importTests(cmd.Context(), a.store, defs); err != nil {
			return err
		}
		for _, d := range defs {
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s (%d questions, pass at %d)\n", d.ID, len(d.Questions), d.PassThreshold)
		}
		return nil
	},
}

var testShowCmd = &cobra.Command{
	Use:   "show <test-id>",
	Short: "Show a test definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reveal, _ := cmd.Flags().GetBool("answers")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		t, err := a.store.TestRepo().GetTest(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if t == nil {
			return fmt.Errorf("%w: test %q", apperr.ErrNotFound, args[0])
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, theme.Title.Render(t.Title))
		fmt.Fprintln(out, theme.Field("skill version", t.SkillVersionID))
		fmt.Fprintln(out, theme.Field("time limit", fmt.Sprintf("%ds", t.TimeLimitSeconds)))
		if !reveal {
			printQuestions(out, t.Redact())
			return nil
		}
		for i, q := range t.Questions {
			fmt.Fprintf(out, "\n%d. %s %s\n", i+1, q.Text, theme.Hint.Render("["+q.ID+"]"))
			for _, v := range q.AnswerVariants {
				mark := " "
				if v.IsCorrect {
					mark = theme.Pass.Render("✓")
				}
				fmt.Fprintf(out, " %s %s %s\n", mark, theme.Hint.Render(v.ID), v.Text)
			}
		}
		return nil
	},
}

func init() {
	testShowCmd.Flags().Bool("answers", false, "Mark correct answer variants")
	testCmd.AddCommand(testImportCmd, testShowCmd)
}

// importTests saves defs after checking each references a published skill
// version. Nothing is saved if any reference is dangling.
func importTests(ctx context.Context, st *store.Store, defs []testdef.TestDefinition) error {
	skills := st.SkillRepo()
	for _, d := range defs {
		sv, err := skills.GetSkillVersion(ctx, d.SkillVersionID)
		if err != nil {
			return err
		}
		if sv == nil {
			return fmt.Errorf("%w: test %q: unknown skill version %q", apperr.ErrInvalidInput, d.ID, d.SkillVersionID)
		}
	}
	tests := st.TestRepo()
	for i := range defs {
		if err := tests.SaveTest(ctx, &defs[i]); err != nil {
			return fmt.Errorf("save test %q: %w", defs[i].ID, err)
		}
	}
	return nil
}
