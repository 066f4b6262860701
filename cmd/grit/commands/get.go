package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
)

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Fetch an object by content id and print its body",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	id, err := grit.ParseObjectId(args[0])
	if err != nil {
		return fmt.Errorf("parsing id: %w", err)
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	obj, err := store.Get(ctx, id)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return outputJSON(map[string]any{
			"id":      id.String(),
			"kind":    string(obj.Kind()),
			"encoded": grit.Encode(obj),
		})
	}

	fmt.Printf("kind: %s\n", obj.Kind())
	switch o := obj.(type) {
	case grit.Blob:
		fmt.Printf("headers: %v\n", o.Headers)
		fmt.Printf("data: %s\n", string(o.Data))
	case grit.Tree:
		for _, e := range o.Entries {
			fmt.Printf("%s -> %s\n", e.Name, e.Id)
		}
	case grit.Message:
		fmt.Printf("content: %s\nheaders: %v\n", o.Content, o.Headers)
	case grit.Mailbox:
		for _, e := range o.Entries {
			fmt.Printf("%s -> %s\n", e.Peer, e.Message)
		}
	case grit.Step:
		fmt.Printf("actor: %s\ncore: %s\n", o.Actor, o.Core)
	}
	return nil
}
