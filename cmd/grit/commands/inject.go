package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/rootexec"
)

var (
	injectMessageType string
	injectContent     string
	injectHeaders     []string
)

var injectCmd = &cobra.Command{
	Use:   "inject <peer-actor-id>",
	Short: "Deliver one message to a running agent's root actor, then exit",
	Long: `inject spins up a short-lived RootExecutor against the store's
current runtime/agent (spec.md §4.7), injects a single message addressed to
<peer-actor-id>, waits for the root actor to process it, and shuts back
down. It does not keep the agent running afterwards — use cmd/gritd for
that.`,
	Args: cobra.ExactArgs(1),
	RunE: runInject,
}

func init() {
	injectCmd.Flags().StringVar(&injectMessageType, "mt", "", "Value for the message's "+grit.MessageType+" header")
	injectCmd.Flags().StringVar(&injectContent, "content", "", "Text content of the message")
	injectCmd.Flags().StringArrayVar(&injectHeaders, "header", nil, "Additional header as key=value (repeatable)")
}

func runInject(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	peer, err := grit.ParseObjectId(args[0])
	if err != nil {
		return fmt.Errorf("parsing peer id: %w", err)
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	rootId, err := store.GetRef(ctx, grit.RefRuntimeAgent)
	if err != nil {
		return fmt.Errorf("loading runtime/agent (run genesis first): %w", err)
	}

	headers := map[string]string{}
	if injectMessageType != "" {
		headers[grit.MessageType] = injectMessageType
	}
	for _, kv := range injectHeaders {
		k, v, ok := splitKV(kv)
		if !ok {
			return fmt.Errorf("invalid --header %q, expected key=value", kv)
		}
		headers[k] = v
	}

	contentId, err := store.Put(ctx, grit.Blob{Data: []byte(injectContent)})
	if err != nil {
		return fmt.Errorf("persisting message content: %w", err)
	}

	root := rootexec.New(rootexec.Config{AgentId: rootId, Store: store}, rootId)

	runCtx, runCancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- root.Executor().Run(runCtx) }()

	sent := root.InjectRequest(grit.ActorId(peer), headers, contentId)

	var messageId grit.MessageId
	select {
	case messageId = <-sent:
	case <-ctx.Done():
		runCancel()
		<-done
		return fmt.Errorf("timed out waiting for message delivery: %w", ctx.Err())
	}

	runCancel()
	<-done

	if outputFormat == "json" {
		return outputJSON(map[string]string{"message_id": messageId.String()})
	}
	fmt.Println(messageId.String())
	return nil
}

func splitKV(s string) (string, string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}
