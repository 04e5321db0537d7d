// Emissary is a persona chat service: it answers questions on a
// person's website as that person, backed by a hosted chat-completion
// API and two tools for recording visitor contact details and
// unanswered questions.
//
// Usage:
//
//	emissary serve             Start the API server
//	emissary ask <question>    Ask a single question (for testing)
//	emissary init [dir]        Initialize a working directory with defaults
//	emissary version           Print version and build information
//	emissary -o json version   Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kwren/emissary/internal/agent"
	"github.com/kwren/emissary/internal/api"
	"github.com/kwren/emissary/internal/buildinfo"
	"github.com/kwren/emissary/internal/config"
	"github.com/kwren/emissary/internal/llm"
	"github.com/kwren/emissary/internal/notify"
	"github.com/kwren/emissary/internal/persona"
	"github.com/kwren/emissary/internal/tools"
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run]. This keeps
// os.Exit, os.Stdout, and os.Args out of the application logic so that
// the full startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the emissary command. All OS-level
// dependencies are injected as parameters: ctx controls process
// lifetime, stdout/stderr receive output, and args is os.Args[1:].
// Arguments are parsed by hand — the flag package relies on
// package-level globals that interfere with parallel tests, and the
// argument surface here is small.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++ // skip the value
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: emissary ask <question>")
		}
		return runAsk(ctx, stdout, configPath, strings.Join(cmdArgs, " "))
	case "init":
		dir := "."
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		return runInit(stdout, dir)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "emissary - a persona chat service")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  emissary [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve            Start the API server")
	fmt.Fprintln(w, "  ask <question>   Ask a single question (for testing)")
	fmt.Fprintln(w, "  init [dir]       Initialize a working directory with defaults")
	fmt.Fprintln(w, "  version          Print version and build information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>   Explicit config file location")
	fmt.Fprintln(w, "  -o text|json     Output format for version")
	return nil
}

func runVersion(w io.Writer, format string) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(buildinfo.Info())
	}
	fmt.Fprintln(w, buildinfo.String())
	return nil
}

// loadConfig locates and parses the configuration, and builds the
// logger from its log level.
func loadConfig(stdout io.Writer, configPath string) (*config.Config, *slog.Logger, error) {
	path, err := config.FindConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config %s: %w", path, err)
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
	logger.Info("config loaded", "path", path, "log_level", level.String())

	return cfg, logger, nil
}

// buildEngine wires the full conversation stack: persona, notifier,
// tool registry, model client, engine. Everything is constructed
// exactly once, here, and shared read-only by concurrent requests.
func buildEngine(cfg *config.Config, logger *slog.Logger) (*agent.Engine, error) {
	profile := persona.Load(cfg.Persona, logger)

	notifier := notify.NewPushover(cfg.Pushover.Token, cfg.Pushover.User, logger)
	if !notifier.Enabled() {
		logger.Info("push notifications disabled (pushover credentials not configured)")
	}

	registry := tools.NewRegistry(notifier, logger)

	client, err := llm.NewOpenAI(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, logger)
	if err != nil {
		if errors.Is(err, llm.ErrMissingAPIKey) {
			// Name the config field, never the value.
			return nil, fmt.Errorf("server configuration error: openai.api_key is not set")
		}
		return nil, err
	}

	engine := agent.NewEngine(client, registry, profile, logger,
		agent.WithModel(cfg.OpenAI.Model),
		agent.WithTemperature(cfg.OpenAI.Temperature),
		agent.WithMaxTokens(cfg.OpenAI.MaxTokens),
		agent.WithMaxIterations(cfg.Chat.MaxIterations),
	)
	return engine, nil
}

func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	cfg, logger, err := loadConfig(stdout, configPath)
	if err != nil {
		return err
	}

	engine, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}

	server := api.NewServer(cfg.Listen.Address, cfg.Listen.Port, engine, cfg.CORSOrigins, logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting", "build", buildinfo.String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func runAsk(ctx context.Context, stdout io.Writer, configPath, question string) error {
	cfg, logger, err := loadConfig(io.Discard, configPath)
	if err != nil {
		return err
	}

	engine, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}

	answer, err := engine.Chat(ctx, question, nil)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, answer)
	return nil
}
