package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/core"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/query"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/resolver"
)

var (
	queryContext string
	queryPath    string
)

var queryCmd = &cobra.Command{
	Use:   "query <actor-id> <query-name>",
	Short: "Run a stateless wit_query against an actor's current HEAD",
	Args:  cobra.ExactArgs(2),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryContext, "context", "", "Text passed as the query's context blob")
	queryCmd.Flags().StringVar(&queryPath, "path", "", "Slash-separated path to descend into the result")
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	actorId, err := grit.ParseObjectId(args[0])
	if err != nil {
		return fmt.Errorf("parsing actor id: %w", err)
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	exec := query.New(query.Config{
		Store:    store,
		Resolver: resolver.New(resolver.MapRegistry{}, nil),
	})

	var contextBlob *core.BlobObject
	if queryContext != "" {
		contextBlob = core.NewBlob([]byte(queryContext))
	}

	result, err := exec.Run(ctx, actorId, args[1], contextBlob)
	if err != nil {
		return err
	}
	if queryPath != "" {
		result, err = query.DescendPath(ctx, result, queryPath)
		if err != nil {
			return err
		}
	}

	rendered := renderQueryResult(ctx, result)
	if outputFormat == "json" {
		return outputJSON(map[string]string{"result": rendered})
	}
	fmt.Println(rendered)
	return nil
}

// renderQueryResult stringifies a query result for terminal/JSON output.
func renderQueryResult(ctx context.Context, result any) string {
	switch v := result.(type) {
	case *core.BlobObject:
		if text, err := v.AsStr(ctx); err == nil {
			return text
		}
		return fmt.Sprintf("<blob %s>", v.Id())
	case *core.TreeObject:
		return fmt.Sprintf("<tree %s>", v.Id())
	default:
		return fmt.Sprintf("%v", v)
	}
}
