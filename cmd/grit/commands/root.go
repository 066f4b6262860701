// Package commands implements the grit CLI's cobra command tree: direct
// object-store inspection and agent bootstrap/inject/query operations
// against a local sqlite-backed store, in the shape of the teacher's
// cmd/substrate CLI (spec.md §6, SPEC_FULL.md §4.12).
package commands

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	// dbPath is the path to the sqlite database backing the grit store.
	dbPath string

	// outputFormat controls output format (text, json).
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "grit",
	Short: "grit object-store and agent-runtime command line",
	Long: `grit provides direct command-line access to a content-addressed
object store and the actor-based agents that run on top of it.

Use this CLI to put/get objects, read and mutate references, bootstrap or
inject messages into an agent, and run stateless queries against its
current state.`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&dbPath, "db", "",
		"Path to the sqlite database (default: ~/.grit/grit.db)",
	)
	rootCmd.PersistentFlags().StringVar(
		&outputFormat, "format", "text",
		"Output format: text, json",
	)

	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(refsCmd)
	rootCmd.AddCommand(genesisCmd)
	rootCmd.AddCommand(injectCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(pointCmd)
}

// defaultDBPath returns ~/.grit/grit.db, creating the directory if needed.
func defaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".grit")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, "grit.db"), nil
}
