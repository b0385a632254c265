package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/skillcert/internal/ui/theme"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Run the audit once and debuff lapsed certifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		now := time.Now()
		if at, _ := cmd.Flags().GetString("at"); at != "" {
			if now, err = time.Parse(time.RFC3339, at); err != nil {
				return fmt.Errorf("--at: %w", err)
			}
		}

		rep, err := a.auditor.RunAuditCheck(cmd.Context(), now)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, theme.Title.Render("Audit "+now.Format(time.RFC3339)))
		fmt.Fprintln(out, theme.Field("checked", fmt.Sprint(rep.Checked)))
		fmt.Fprintln(out, theme.Field("skipped", fmt.Sprint(rep.Skipped)))
		fmt.Fprintln(out, theme.Field("debuffed", fmt.Sprint(rep.Debuffed)))
		for _, f := range rep.Failures {
			fmt.Fprintln(out, theme.Warn.Render("failed "+f.Error()))
		}
		if len(rep.Failures) > 0 {
			return fmt.Errorf("%d pairs failed", len(rep.Failures))
		}
		return nil
	},
}

func init() {
	auditCmd.Flags().String("at", "", "Evaluate as of this RFC 3339 time instead of now")
}
