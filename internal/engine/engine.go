// Package engine wires the pipeline stages together: member lookup,
// recursive expansion, classification and model building for one input
// member tree.
//
// A run either yields a complete step/allocation sequence plus
// diagnostics, or nothing plus a fatal error; no partial model escapes.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jobdeck/jobdeck/internal/expand"
	"github.com/jobdeck/jobdeck/internal/fault"
	"github.com/jobdeck/jobdeck/internal/member"
	"github.com/jobdeck/jobdeck/internal/model"
	"github.com/jobdeck/jobdeck/internal/parser"
)

// Config is the pre-validated input for one pipeline run.
type Config struct {
	Member          string         // target member name
	Library         member.Library // member lookup collaborator
	Tier            byte           // relative-step tier letter; model.DefaultTier when zero
	MaxDepth        int            // include/proc recursion bound
	MaxSymbolPasses int            // symbol rewrite bound
	Logger          *slog.Logger
}

// Diagnostics is the non-fatal outcome report of a run.
type Diagnostics struct {
	ParseErrors []*parser.ParseError
	Unresolved  []expand.UnresolvedSymbol
}

// Skipped returns the number of statements dropped by parse errors.
func (d Diagnostics) Skipped() int {
	return len(d.ParseErrors)
}

// Summary renders the final diagnostics report.
func (d Diagnostics) Summary() string {
	return fmt.Sprintf("%d statement(s) skipped, %d unresolved symbol reference(s)",
		len(d.ParseErrors), len(d.Unresolved))
}

// Result is the structured output of a successful run.
type Result struct {
	Member      string
	Steps       []model.Step
	Diagnostics Diagnostics
}

// Run executes the full pipeline for one member tree.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Member == "" {
		return nil, fault.New(fault.CodeConfigInvalid, "no target member configured")
	}
	if cfg.Library == nil {
		return nil, fault.New(fault.CodeConfigInvalid, "no member library configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	expander := expand.New(cfg.Library, expand.Options{
		MaxDepth:        cfg.MaxDepth,
		MaxSymbolPasses: cfg.MaxSymbolPasses,
		Logger:          logger,
	})

	nodes, err := expander.Expand(cfg.Member)
	if err != nil {
		return nil, err
	}

	var opts []model.BuilderOption
	if cfg.Tier != 0 {
		opts = append(opts, model.WithTier(cfg.Tier))
	}
	builder := model.NewBuilder(opts...)
	for _, node := range nodes {
		builder.Feed(node)
	}

	result := &Result{
		Member: cfg.Member,
		Steps:  builder.Build(),
		Diagnostics: Diagnostics{
			ParseErrors: expander.ParseErrors(),
			Unresolved:  expander.Unresolved(),
		},
	}
	logger.Info("pipeline complete",
		"member", cfg.Member,
		"steps", len(result.Steps),
		"skipped", result.Diagnostics.Skipped(),
		"unresolved", len(result.Diagnostics.Unresolved))
	return result, nil
}
