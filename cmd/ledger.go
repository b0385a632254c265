package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/skillcert/internal/ledger"
	"github.com/abhisek/skillcert/internal/ui/theme"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect and correct the confirmation ledger",
}

var ledgerAppendCmd = &cobra.Command{
	Use:   "append <user-id> <skill-id> <acquired|debuff|admin_set> <level>",
	Short: "Append a confirmation event",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := strconv.Atoi(args[3])
		if err != nil {
			return fmt.Errorf("level: %w", err)
		}
		version, _ := cmd.Flags().GetString("skill-version")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ev, err := a.ledger.AppendEvent(cmd.Context(), args[0], args[1], version, ledger.EventType(args[2]), level)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "event %d: %s %s → %s\n", ev.ID, ev.Type, ev.UserID, theme.Level(ev.Level))
		return nil
	},
}

var ledgerLevelCmd = &cobra.Command{
	Use:   "level <user-id> <skill-id>",
	Short: "Show a user's effective level for a skill",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		level, err := a.ledger.EffectiveLevel(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), theme.Level(level))
		return nil
	},
}

var ledgerHistoryCmd = &cobra.Command{
	Use:   "history <user-id> <skill-id>",
	Short: "List every confirmation event for a user and skill",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		events, err := a.ledger.History(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No confirmation events.")
			return nil
		}

		fmt.Fprintf(out, "%-6s  %-20s  %-10s  %-10s  %s\n", "ID", "Occurred", "Type", "Version", "Level")
		fmt.Fprintln(out, strings.Repeat("─", 64))
		for _, e := range events {
			fmt.Fprintf(out, "%-6d  %-20s  %-10s  %-10s  %s\n",
				e.ID, e.OccurredAt.Local().Format(time.DateTime), e.Type, e.SkillVersion, theme.Level(e.Level))
		}
		fmt.Fprintf(out, "\neffective: %s\n", theme.Level(ledger.ResolveLevel(events)))
		return nil
	},
}

var ledgerDeleteCmd = &cobra.Command{
	Use:   "delete <event-id>",
	Short: "Delete one event (administrative correction)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("event id: %w", err)
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ledger.DeleteEvent(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted event %d\n", id)
		return nil
	},
}

var ledgerConfirmCmd = &cobra.Command{
	Use:   "confirm <user-id> <skill-id>",
	Short: "Acknowledge the skill's document, restoring a revoked level",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		sk, err := a.skills.Get(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		ev, err := a.ledger.ConfirmDocument(cmd.Context(), args[0], sk.ID, sk.CurrentVersion)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s confirmed %s at %s\n", ev.UserID, sk.Name, theme.Level(ev.Level))
		return nil
	},
}

func init() {
	ledgerAppendCmd.Flags().String("skill-version", "", "Skill version the event refers to")
	ledgerCmd.AddCommand(ledgerAppendCmd, ledgerLevelCmd, ledgerHistoryCmd, ledgerDeleteCmd, ledgerConfirmCmd)
}
