package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/skillcert/internal/ui/theme"
)

var skillCmd = &cobra.Command{
	Use:   "skill",
	Short: "Manage skills, versions and audit deadlines",
}

var skillCreateCmd = &cobra.Command{
	Use:   "create <skill-id> <name>",
	Short: "Register a skill",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		sk, err := a.skills.Create(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created skill %s (%s)\n", sk.ID, sk.Name)
		return nil
	},
}

var skillPublishCmd = &cobra.Command{
	Use:   "publish <skill-id> <version>",
	Short: "Publish a new skill version (debuffs prior holders, certifies the author)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		author, _ := cmd.Flags().GetString("author")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		pub, err := a.skills.PublishVersion(cmd.Context(), args[0], args[1], author)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "published %s\n", theme.Title.Render(pub.Version.ID))
		fmt.Fprintln(out, theme.Field("author", author))
		fmt.Fprintln(out, theme.Field("debuffed", fmt.Sprint(len(pub.Debuffed))))
		for _, err := range pub.Failures {
			fmt.Fprintln(out, theme.Warn.Render(err.Error()))
		}
		return pub.Err()
	},
}

var skillListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all skills",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		all, err := a.skills.List(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		// Header.
		fmt.Fprintf(out, "%-20s  %-30s  %-10s  %s\n", "ID", "Name", "Version", "Audit due")
		fmt.Fprintln(out, strings.Repeat("─", 80))

		for _, s := range all {
			name := s.Name
			if len(name) > 30 {
				name = name[:27] + "..."
			}
			due := "-"
			if s.AuditDate != nil {
				due = s.AuditDate.Local().Format(time.DateOnly)
			}
			fmt.Fprintf(out, "%-20s  %-30s  %-10s  %s\n", s.ID, name, s.CurrentVersion, due)
		}

		fmt.Fprintf(out, "\n%d skills\n", len(all))
		return nil
	},
}

var skillAuditCmd = &cobra.Command{
	Use:   "audit <skill-id> <YYYY-MM-DD|RFC3339>",
	Short: "Set the renewal deadline; holders must renew before it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		due, err := parseDate(args[1])
		if err != nil {
			return err
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		sk, err := a.skills.ScheduleAudit(cmd.Context(), args[0], due)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s audit due %s\n", sk.ID, sk.AuditDate.Format(time.RFC3339))
		return nil
	},
}

func init() {
	skillPublishCmd.Flags().String("author", "", "Author of the new version (required)")
	_ = skillPublishCmd.MarkFlagRequired("author")

	skillCmd.AddCommand(skillCreateCmd, skillPublishCmd, skillListCmd, skillAuditCmd)
}

// parseDate accepts a calendar date (end of that day, UTC) or an RFC 3339
// timestamp.
func parseDate(s string) (time.Time, error) {
	if d, err := time.Parse(time.DateOnly, s); err == nil {
		return d.Add(24*time.Hour - time.Second), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: want YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}
