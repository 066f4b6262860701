package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
)

var (
	putText string
	putFile string
)

var putCmd = &cobra.Command{
	Use:   "put",
	Short: "Store a blob and print its content id",
	Long: `put stores a single blob object and prints the content id it was
assigned. Provide the blob's bytes with --text for a UTF-8 string, or
--file to read raw bytes from a file.`,
	RunE: runPut,
}

func init() {
	putCmd.Flags().StringVar(&putText, "text", "", "Blob content as a UTF-8 string")
	putCmd.Flags().StringVar(&putFile, "file", "", "Read blob content from a file")
}

func runPut(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var data []byte
	var ct string
	switch {
	case putFile != "":
		raw, err := os.ReadFile(putFile)
		if err != nil {
			return fmt.Errorf("reading %s: %w", putFile, err)
		}
		data = raw
		ct = grit.CTBytes
	case putText != "":
		data = []byte(putText)
		ct = grit.CTString
	default:
		return fmt.Errorf("one of --text or --file is required")
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	blob := grit.Blob{Headers: map[string]string{"ct": ct}, Data: data}
	id, err := store.Put(ctx, blob)
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return outputJSON(map[string]string{"id": id.String()})
	}
	fmt.Println(id.String())
	return nil
}
