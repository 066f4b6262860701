package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
)

var pointCmd = &cobra.Command{
	Use:   "point <n>",
	Short: "Print the canonical AgentId for a bootstrap point, without touching any store",
	Args:  cobra.ExactArgs(1),
	RunE:  runPoint,
}

func runPoint(cmd *cobra.Command, args []string) error {
	n, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("parsing point: %w", err)
	}
	id := grit.AgentIdFromPoint(grit.Point(n))

	if outputFormat == "json" {
		return outputJSON(map[string]string{"point": args[0], "agent_id": id.String()})
	}
	fmt.Println(id.String())
	return nil
}
