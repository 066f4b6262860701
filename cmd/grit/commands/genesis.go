package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/rootexec"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
)

var genesisCmd = &cobra.Command{
	Use:   "genesis <point>",
	Short: "Bootstrap (or adopt) the agent at a given point, printing its AgentId",
	Long: `genesis ensures runtime/agent exists: if a fresh point, it persists a
minimal root actor core and seeds its HEAD; if runtime/agent is already
set, it's a no-op that just prints the existing AgentId (spec.md §4.7).`,
	Args: cobra.ExactArgs(1),
	RunE: runGenesis,
}

func runGenesis(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	n, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("parsing point: %w", err)
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	rootId, err := rootexec.Bootstrap(ctx, store, grit.Point(n))
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return outputJSON(map[string]string{"agent_id": rootId.String()})
	}
	fmt.Println(rootId.String())
	return nil
}
