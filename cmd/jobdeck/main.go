package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/jobdeck/jobdeck"
	"github.com/jobdeck/jobdeck/internal/store"
)

func main() {
	var (
		configPath string
		debug      bool
	)

	rootCmd := &cobra.Command{
		Use:   "jobdeck",
		Short: "Resolve job-control source into a structured step/allocation model",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "jobdeck.toml", "Path to TOML configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output")

	var (
		parseFile string
		asJSON    bool
	)
	parseCmd := &cobra.Command{
		Use:   "parse",
		Short: "Resolve the target member and print the model without persisting",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd.Context(), configPath, parseFile, asJSON, newLogger(debug))
		},
	}
	parseCmd.Flags().StringVarP(&parseFile, "file", "f", "", "Parse a single file instead of the configured member (- for stdin)")
	parseCmd.Flags().BoolVar(&asJSON, "json", false, "Print the model as JSON")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Resolve the target member and persist the model",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), configPath, newLogger(debug))
		},
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-ingest the target member whenever its source changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), configPath, newLogger(debug))
		},
	}

	rootCmd.AddCommand(parseCmd, runCmd, watchCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the slog logger; debug level comes from the flag or
// the JOBDECK_DEBUG environment variable.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug || os.Getenv("JOBDECK_DEBUG") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func runParse(ctx context.Context, configPath, file string, asJSON bool, logger *slog.Logger) error {
	var result *jobdeck.Result

	if file != "" {
		text, name, err := readInput(file)
		if err != nil {
			return err
		}
		result, err = jobdeck.RunText(ctx, name, text, nil, logger)
		if err != nil {
			return err
		}
	} else {
		cfg, err := jobdeck.LoadConfig(configPath)
		if err != nil {
			return err
		}
		result, err = jobdeck.Run(ctx, cfg, logger)
		if err != nil {
			return err
		}
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printResult(result)
	return nil
}

func runIngest(ctx context.Context, configPath string, logger *slog.Logger) error {
	cfg, err := jobdeck.LoadConfig(configPath)
	if err != nil {
		return err
	}
	result, err := jobdeck.Run(ctx, cfg, logger)
	if err != nil {
		return err
	}
	return persist(ctx, cfg, result, logger)
}

func persist(ctx context.Context, cfg *jobdeck.Config, result *jobdeck.Result, logger *slog.Logger) error {
	db, err := store.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if cfg.DropTables {
		if err := db.Reset(); err != nil {
			return err
		}
	}

	run, err := db.SaveRun(ctx, cfg.Project, cfg.Member, result.Steps, store.RunStats{
		ParseErrors:       result.Diagnostics.Skipped(),
		UnresolvedSymbols: len(result.Diagnostics.Unresolved),
	})
	if err != nil {
		return err
	}
	logger.Info("run persisted",
		"run_id", run.RunID,
		"project", run.Project,
		"steps", run.Steps,
		"diagnostics", result.Diagnostics.Summary())
	return nil
}

func runWatch(ctx context.Context, configPath string, logger *slog.Logger) error {
	cfg, err := jobdeck.LoadConfig(configPath)
	if err != nil {
		return err
	}
	target, err := cfg.TargetPath()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(target); err != nil {
		return err
	}
	logger.Info("watching member source", "path", target)

	ingest := func() {
		result, err := jobdeck.Run(ctx, cfg, logger)
		if err != nil {
			logger.Error("ingest failed", "error", err)
			return
		}
		if err := persist(ctx, cfg, result, logger); err != nil {
			logger.Error("persist failed", "error", err)
		}
	}
	ingest()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				logger.Debug("source changed", "event", event.Op.String())
				ingest()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch error", "error", err)
		}
	}
}

// readInput reads piped or file input for one-shot parsing.
func readInput(file string) (text, name string, err error) {
	if file == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), "STDIN", nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", file, err)
	}
	return string(data), memberName(file), nil
}

// memberName derives a logical member name from a filename.
func memberName(path string) string {
	base := path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			base = path[i+1:]
			break
		}
	}
	for i := 0; i < len(base); i++ {
		if base[i] == '.' {
			return base[:i]
		}
	}
	return base
}

func printResult(result *jobdeck.Result) {
	fmt.Printf("member %s: %d step(s), %s\n", result.Member, len(result.Steps), result.Diagnostics.Summary())
	for _, step := range result.Steps {
		target := step.ProgramName
		kind := "PGM"
		if target == "" {
			target = step.ProcName
			kind = "PROC"
		}
		fmt.Printf("  %s %-8s %s=%s", step.RelativeStep, step.StepName, kind, target)
		if step.ProcStepName != "" {
			fmt.Printf(" (proc step %s)", step.ProcStepName)
		}
		if step.CondLogic != "" {
			fmt.Printf(" cond=%s", step.CondLogic)
		}
		fmt.Println()
		for _, alloc := range step.Allocations {
			fmt.Printf("    %-8s +%d %s", alloc.DDName, alloc.AllocationOffset, alloc.DSN)
			if alloc.DispStatus != "" {
				fmt.Printf(" disp=(%s,%s,%s)", alloc.DispStatus, alloc.DispNormal, alloc.DispAbnormal)
			}
			fmt.Println()
		}
	}
}
