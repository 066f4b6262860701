package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
)

var refsCmd = &cobra.Command{
	Use:   "refs",
	Short: "Inspect and mutate the reference namespace",
}

var refsLsPrefix string

var refsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List references under a prefix",
	RunE:  runRefsLs,
}

var refsGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Print the id a reference points to",
	Args:  cobra.ExactArgs(1),
	RunE:  runRefsGet,
}

var refsSetCmd = &cobra.Command{
	Use:   "set <name> <id>",
	Short: "Point a reference at an object id",
	Args:  cobra.ExactArgs(2),
	RunE:  runRefsSet,
}

var refsRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Delete a reference",
	Args:  cobra.ExactArgs(1),
	RunE:  runRefsRm,
}

func init() {
	refsLsCmd.Flags().StringVar(&refsLsPrefix, "prefix", "", "Only list references with this prefix")
	refsCmd.AddCommand(refsLsCmd, refsGetCmd, refsSetCmd, refsRmCmd)
}

func runRefsLs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	refs, err := store.GetRefs(ctx, refsLsPrefix)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		out := make(map[string]string, len(refs))
		for name, id := range refs {
			out[name] = id.String()
		}
		return outputJSON(out)
	}
	for name, id := range refs {
		fmt.Printf("%s -> %s\n", name, id)
	}
	return nil
}

func runRefsGet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.GetRef(ctx, args[0])
	if err != nil {
		return err
	}
	if outputFormat == "json" {
		return outputJSON(map[string]string{"ref": args[0], "id": id.String()})
	}
	fmt.Println(id.String())
	return nil
}

func runRefsSet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	id, err := grit.ParseObjectId(args[1])
	if err != nil {
		return fmt.Errorf("parsing id: %w", err)
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	return store.SetRef(ctx, args[0], id)
}

func runRefsRm(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	return store.DeleteRef(ctx, args[0])
}
