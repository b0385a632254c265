package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/skillcert/internal/testdef"
	"github.com/abhisek/skillcert/internal/testsession"
	"github.com/abhisek/skillcert/internal/ui/theme"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Take timed tests",
}

var sessionStartCmd = &cobra.Command{
	Use:   "start <test-id>",
	Short: "Start (or resume) a test session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		return withSessions(cmd, func(a *app) error {
			s, err := a.engine.StartSession(cmd.Context(), user, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			title := s.Test.Title
			if s.Resumed {
				title += theme.Hint.Render(" (resumed)")
			}
			fmt.Fprintln(out, theme.Title.Render(title))
			fmt.Fprintln(out, theme.Field("session", s.SessionID))
			fmt.Fprintln(out, theme.Field("deadline", s.Deadline.Local().Format(time.RFC3339)))
			fmt.Fprintln(out, theme.Field("pass at", fmt.Sprintf("%d of %d", s.Test.PassThreshold, len(s.Test.Questions))))
			printQuestions(out, s.Test)
			return nil
		})
	},
}

var sessionAnswerCmd = &cobra.Command{
	Use:   "answer <session-id> <question-id> <answer-id>",
	Short: "Record an answer; a later answer to the same question replaces it",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		return withSessions(cmd, func(a *app) error {
			if err := a.engine.RecordAnswer(cmd.Context(), args[0], user, args[1], args[2]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recorded %s → %s\n", args[1], args[2])
			return nil
		})
	},
}

var sessionEndCmd = &cobra.Command{
	Use:   "end <session-id>",
	Short: "Submit the session for scoring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		return withSessions(cmd, func(a *app) error {
			o, err := a.engine.EndSession(cmd.Context(), args[0], user)
			if err != nil {
				return err
			}
			printOutcome(cmd.OutOrStdout(), o)
			return nil
		})
	},
}

var sessionSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Finalize every session whose time limit has passed",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessions(cmd, func(a *app) error {
			n, err := a.engine.Sweep(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "%d sessions finalized\n", n)
			return err
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{sessionStartCmd, sessionAnswerCmd, sessionEndCmd} {
		c.Flags().String("user", "", "Acting user id (required)")
		_ = c.MarkFlagRequired("user")
	}
	sessionCmd.AddCommand(sessionStartCmd, sessionAnswerCmd, sessionEndCmd, sessionSweepCmd)
}

func withSessions(cmd *cobra.Command, fn func(a *app) error) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireDurableSessions(); err != nil {
		return err
	}
	return fn(a)
}

func printQuestions(w io.Writer, t testdef.PublicTest) {
	for i, q := range t.Questions {
		fmt.Fprintf(w, "\n%d. %s %s\n", i+1, q.Text, theme.Hint.Render("["+q.ID+"]"))
		for _, v := range q.AnswerVariants {
			fmt.Fprintf(w, "   %s %s\n", theme.Hint.Render(v.ID), v.Text)
		}
	}
}

func printOutcome(w io.Writer, o testsession.Outcome) {
	r := o.Result
	fmt.Fprintln(w, theme.Verdict(o.Passed))
	fmt.Fprintln(w, theme.Field("score", fmt.Sprintf("%d / %d needed", r.Score, r.PassThreshold)))
	switch {
	case o.Certified:
		fmt.Fprintln(w, theme.Field("level", theme.Level(o.Level)))
	case o.Passed:
		fmt.Fprintln(w, theme.Warn.Render("certification not recorded yet; see the log"))
	}
}
