// Command gritd is the daemon entrypoint (SPEC_FULL.md §4.12): it wires a
// sqlite-backed store, the agent runtime, and the web/gRPC/MCP faces behind
// one SIGINT/SIGTERM-aware graceful shutdown sequence, in the shape of the
// teacher's cmd/substrated.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	btclog "github.com/btcsuite/btclog/v2"

	gritrpc "github.com/smartcomputer-ai/agent-os-sub000/internal/api/grpc"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/build"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/codeloader"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/grit"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/gritstore"
	gritlog "github.com/smartcomputer-ai/agent-os-sub000/internal/log"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/mcp"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/query"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/resolver"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/rootexec"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/runtime"
	"github.com/smartcomputer-ai/agent-os-sub000/internal/web"
)

func main() {
	var (
		dbPath          = flag.String("db", "~/.grit/grit.db", "Path to the sqlite database")
		point           = flag.Uint64("point", 0, "Bootstrap point for the default agent (spec.md §4.7)")
		webAddr         = flag.String("web", ":8080", "Web server address (empty to disable)")
		grpcAddr        = flag.String("grpc", "localhost:10109", "gRPC server address (empty to disable)")
		enableMCP       = flag.Bool("mcp", false, "Enable MCP stdio transport (default: web + gRPC only)")
		logDir          = flag.String("log-dir", "~/.grit/logs", "Directory for log files (empty to disable file logging)")
		maxLogFiles     = flag.Int("max-log-files", build.DefaultMaxLogFiles, "Maximum number of rotated log files to keep")
		maxLogFileSize  = flag.Int("max-log-file-size", build.DefaultMaxLogFileSize, "Maximum log file size in MB before rotation")
		cooperativeMax  = flag.Int64("max-cooperative-handlers", 0, "Bound concurrent cooperative wit handlers agent-wide (spec.md §5); 0 disables the bound")
		blockingWorkers = flag.Int("blocking-workers", 0, "Worker pool size for blocking wit handlers (spec.md §5); 0 runs them inline")
	)
	flag.Parse()

	dbPathExpanded := expandHome(*dbPath)
	logDirExpanded := expandHome(*logDir)

	var logRotator *build.RotatingLogWriter
	if logDirExpanded != "" {
		logRotator = build.NewRotatingLogWriter()
		err := logRotator.InitLogRotator(&build.LogRotatorConfig{
			LogDir:         logDirExpanded,
			MaxLogFiles:    *maxLogFiles,
			MaxLogFileSize: *maxLogFileSize,
		})
		if err != nil {
			log.Printf("Failed to init log rotator: %v (continuing without file logging)", err)
			logRotator = nil
		} else {
			defer logRotator.Close()
			log.SetOutput(io.MultiWriter(os.Stderr, logRotator))
			log.SetFlags(log.LstdFlags)
		}
	}

	// Console+file fan-out for the sqlite store's *slog.Logger, via the
	// teacher's HandlerSet (internal/build/handler_set.go).
	var handlers []btclog.Handler
	handlers = append(handlers, btclog.NewDefaultHandler(os.Stderr))
	if logRotator != nil {
		handlers = append(handlers, btclog.NewDefaultHandler(logRotator))
	}
	slogLogger := slog.New(build.NewHandlerSet(handlers...))

	// Same fan-out, exposed through this module's own log.Logger facade for
	// every package that logs via internal/log (spec.md ambient stack).
	var logWriter io.Writer = os.Stderr
	if logRotator != nil {
		logWriter = io.MultiWriter(os.Stderr, logRotator)
	}
	backend := btclog.NewBackend(logWriter)
	appLog := gritlog.NewFromBackend(backend, "gritd")
	grpcLog := gritlog.NewFromBackend(backend, "grpc")
	webLog := gritlog.NewFromBackend(backend, "web")

	store, err := gritstore.NewSqliteStore(gritstore.SqliteConfig{
		DatabaseFileName: dbPathExpanded,
	}, slogLogger)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	res := resolver.New(resolver.MapRegistry{}, codeloader.New())

	rt := runtime.New(runtime.Config{
		Store:                  store,
		Resolver:               res,
		Point:                  grit.Point(*point),
		CooperativeConcurrency: *cooperativeMax,
		BlockingWorkers:        *blockingWorkers,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.InfoS(ctx, "received signal, shutting down", "signal", sig)
		cancel()

		sig = <-sigCh
		appLog.WarnS(ctx, "received signal again, forcing exit", nil, "signal", sig)
		os.Exit(1)
	}()

	runDone := make(chan error, 1)
	go func() { runDone <- rt.Run(ctx) }()

	root := waitForRoot(ctx, rt)
	if root == nil {
		log.Fatalf("Failed to bootstrap agent before shutdown")
	}
	appLog.InfoS(ctx, "agent bootstrapped", "agent_id", rt.RootId().String())

	var grpcServer *gritrpc.Server
	if *grpcAddr != "" {
		grpcServer = gritrpc.NewServer(gritrpc.Config{
			ListenAddr: *grpcAddr,
			Store:      store,
			Runtime: gritrpc.RuntimeConfig{
				Resolver:               res,
				CooperativeConcurrency: *cooperativeMax,
				BlockingWorkers:        *blockingWorkers,
			},
			Log: grpcLog,
		})
		if err := grpcServer.Start(); err != nil {
			log.Fatalf("Failed to start gRPC server: %v", err)
		}
		defer grpcServer.Stop()
		appLog.InfoS(ctx, "gRPC server listening", "addr", grpcServer.Addr())
	}

	queryExec := query.New(query.Config{Store: store, Resolver: res})

	var webServer *web.Server
	if *webAddr != "" {
		webServer = web.NewServer(web.Config{
			Addr:  *webAddr,
			Store: store,
			Query: queryExec,
			Root:  root,
			Log:   webLog,
		})
		if err := webServer.Start(); err != nil {
			log.Fatalf("Failed to start web server: %v", err)
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			webServer.Shutdown(shutdownCtx)
		}()
	}

	if *enableMCP {
		mcpServer := mcp.NewServer(mcp.Config{Store: store, Query: queryExec, Root: root})
		appLog.InfoS(ctx, "starting MCP server on stdio")
		if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil {
			appLog.ErrorS(ctx, "MCP server error", err)
		}
	} else {
		<-ctx.Done()
	}

	if err := <-runDone; err != nil && !errors.Is(err, context.Canceled) {
		appLog.WarnS(ctx, "runtime stopped with error", err)
	}
}

// waitForRoot polls Runtime.Root until Run's synchronous bootstrap has
// populated it, or ctx is cancelled first.
func waitForRoot(ctx context.Context, rt *runtime.Runtime) *rootexec.RootExecutor {
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		if root := rt.Root(); root != nil {
			return root
		}
		select {
		case <-ctx.Done():
			return nil
		case <-deadline:
			return nil
		case <-ticker.C:
		}
	}
}

// expandHome expands a leading "~" to the user's home directory.
func expandHome(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return os.ExpandEnv(path)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("Failed to get home directory: %v", err)
	}
	return home + path[1:]
}
