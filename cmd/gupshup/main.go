// Gupshup is a conversational AI companion.
//
// It keeps a bounded per-conversation memory, extracts topics from the
// dialogue, assembles tone-styled prompts, and talks to an Ollama
// backend — degrading to flagged demo replies whenever the backend is
// unreachable. Configuration is loaded from a single YAML file
// discovered automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	gupshup serve              Start the API server and web chat UI
//	gupshup init [dir]         Initialize a working directory with defaults
//	gupshup ask <message>      Ask a single question (for testing)
//	gupshup version            Print version and build information
//	gupshup -o json version    Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gupshup-ai/gupshup/internal/agent"
	"github.com/gupshup-ai/gupshup/internal/api"
	"github.com/gupshup-ai/gupshup/internal/buildinfo"
	"github.com/gupshup-ai/gupshup/internal/config"
	"github.com/gupshup-ai/gupshup/internal/connstate"
	"github.com/gupshup-ai/gupshup/internal/llm"
	"github.com/gupshup-ai/gupshup/internal/memory"
	"github.com/gupshup-ai/gupshup/internal/persona"
	"github.com/gupshup-ai/gupshup/internal/usage"
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run] so the full
// startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the gupshup command. All OS-level
// dependencies are injected as parameters: ctx controls process
// lifetime, stdout and stderr receive all output, and args is
// os.Args[1:]. Arguments are parsed by hand because the flag package's
// package-level globals interfere with parallel tests, and the surface
// here is small.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var tone string
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case args[i] == "-tone" && i+1 < len(args):
			tone = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-tone="):
			tone = strings.TrimPrefix(args[i], "-tone=")
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
	case "init":
		dir := "."
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		return runInit(stdout, dir)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: gupshup ask <message>")
		}
		return runAsk(ctx, stdout, stderr, configPath, tone, cmdArgs)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Gupshup - Conversational AI Companion")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: gupshup [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the API server and web chat UI")
	fmt.Fprintln(w, "  init [dir]   Initialize working directory with defaults (default: .)")
	fmt.Fprintln(w, "  ask          Ask a single question (for testing)")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -tone <name>      Tone for ask (default: from config)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, ~/.config/gupshup/config.yaml, /etc/gupshup/config.yaml")
	return nil
}

// runAsk handles the "gupshup ask <message>" subcommand. It boots a
// minimal companion and processes a single message, printing the reply
// to stdout. Demo replies are reported on stderr so scripted callers
// can tell them apart.
func runAsk(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath, tone string, args []string) error {
	logger := newLogger(stdout, slog.LevelWarn, "text")

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	companion, store, err := buildCompanion(cfg, logger)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	reply, err := companion.Submit(ctx, "cli", strings.Join(args, " "), tone)
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	if reply.Demo {
		fmt.Fprintln(stderr, "(backend unavailable — demo reply)")
	}
	fmt.Fprintln(stdout, reply.Text)
	return nil
}

// runServe handles the "gupshup serve" subcommand. It loads config,
// builds the companion, starts the API server, and blocks until a
// shutdown signal arrives.
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo, "text")
	logger.Info("starting Gupshup", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Reconfigure the logger now that the desired level is known. The
	// initial Info-level logger covers only the startup banner.
	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger = newLogger(stdout, level, "text")
	}

	logger.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Listen.Port,
		"model", cfg.Ollama.Model,
		"ollama_url", cfg.Ollama.BaseURL,
	)

	companion, store, err := buildCompanion(cfg, logger)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(cfg.Listen.Address, cfg.Listen.Port, companion, store, logger)
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("api server: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// buildCompanion assembles the companion orchestrator from config: tone
// registry (with optional persona-file override), topic extractor,
// Ollama client, connectivity monitor, and the optional usage store.
// The caller owns the returned store and must close it; it is nil when
// usage recording is disabled.
func buildCompanion(cfg *config.Config, logger *slog.Logger) (*agent.Companion, *usage.Store, error) {
	var instructions string
	if cfg.Persona.File != "" {
		data, err := os.ReadFile(cfg.Persona.File)
		if err != nil {
			return nil, nil, fmt.Errorf("read persona file: %w", err)
		}
		instructions = strings.TrimSpace(string(data))
		logger.Info("persona file loaded", "path", cfg.Persona.File)
	}
	registry := persona.NewRegistry(persona.Builtins(instructions)...)

	client := llm.NewOllamaClient(
		cfg.Ollama.BaseURL,
		cfg.Ollama.Model,
		time.Duration(cfg.Ollama.TimeoutSec)*time.Second,
	)

	monitor := connstate.NewMonitor(connstate.Config{
		Probe:        client.Ping,
		TTL:          time.Duration(cfg.Ollama.ProbeTTLSec) * time.Second,
		ProbeTimeout: time.Duration(cfg.Ollama.ProbeTimeoutSec) * time.Second,
		Logger:       logger,
	})

	var store *usage.Store
	if cfg.Usage.DBPath != "" {
		var err error
		store, err = usage.NewStore(cfg.Usage.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open usage database %s: %w", cfg.Usage.DBPath, err)
		}
		logger.Info("usage database opened", "path", cfg.Usage.DBPath)
	}

	companion := agent.NewCompanion(agent.Config{
		Registry:    registry,
		Extractor:   memory.NewExtractor(cfg.Memory.ContextWindow, cfg.Memory.TopicLimit),
		Client:      client,
		Monitor:     monitor,
		MaxHistory:  cfg.Memory.MaxHistory,
		DefaultTone: cfg.Persona.DefaultTone,
		Usage:       usageRecorder(store),
		Logger:      logger,
	})
	return companion, store, nil
}

// usageRecorder converts a possibly-nil *usage.Store into the Recorder
// interface. A plain assignment would produce a non-nil interface
// wrapping a nil pointer.
func usageRecorder(store *usage.Store) agent.Recorder {
	if store == nil {
		return nil
	}
	return store
}

// newLogger builds a slog logger writing to w.
func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// loadConfig resolves and loads the config file. An explicit path must
// exist; otherwise the default search paths are tried in order and a
// missing config falls back to built-in defaults.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		if explicit != "" {
			return nil, "", err
		}
		// No config anywhere is fine — run on defaults.
		return config.Default(), "(defaults)", nil
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	return cfg, cfgPath, nil
}
