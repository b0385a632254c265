package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/skillcert/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "skillcert",
	Short: "Skill certification ledger and timed test engine",
	Long: `skillcert tracks employee skill competency. Users earn a certified level by
passing a timed test or acknowledging a document, and lose it when they miss
a skill's audit deadline.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides SKILLCERT_DB env var)")
	rootCmd.PersistentFlags().String("env-file", ".env", "Optional dotenv file loaded before reading the environment")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(skillCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then SKILLCERT_DB (possibly from the dotenv file), then the default XDG path.
func resolveDBPath(cmd *cobra.Command, fromEnv string) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if fromEnv != "" {
		return fromEnv, store.EnsureDir(fromEnv)
	}
	return store.DefaultDBPath()
}
