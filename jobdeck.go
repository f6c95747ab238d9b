// Package jobdeck resolves legacy job-control source into a structured
// model of job steps and data allocations.
//
// The pipeline normalizes card-image lines, recursively expands INCLUDE
// members and procedure calls, resolves scoped symbolic parameters,
// classifies statements through a priority-ordered grammar, and assembles
// ordered Step/DataAllocation records ready for relational storage.
package jobdeck

import (
	"context"
	"log/slog"

	"github.com/jobdeck/jobdeck/internal/config"
	"github.com/jobdeck/jobdeck/internal/engine"
	"github.com/jobdeck/jobdeck/internal/member"
	"github.com/jobdeck/jobdeck/internal/model"
)

// Config is the validated run configuration.
type Config = config.Config

// Result is a completed run: ordered steps plus diagnostics.
type Result = engine.Result

// Diagnostics reports recoverable parse errors and unresolved symbols.
type Diagnostics = engine.Diagnostics

// Step is one job step with its ordered allocations.
type Step = model.Step

// DataAllocation is one DD entry of a step.
type DataAllocation = model.DataAllocation

// Library resolves logical member names to raw source text.
type Library = member.Library

// LoadConfig reads and validates a TOML configuration file.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// Run resolves the configured target member through the full pipeline.
func Run(ctx context.Context, cfg *Config, logger *slog.Logger) (*Result, error) {
	return engine.Run(ctx, engine.Config{
		Member:          cfg.Member,
		Library:         cfg.Library(),
		Tier:            cfg.TierByte(),
		MaxDepth:        cfg.MaxDepth,
		MaxSymbolPasses: cfg.MaxSymbolPasses,
		Logger:          logger,
	})
}

// RunText resolves source text held in memory, optionally backed by
// additional members for INCLUDE and PROC lookups. Used for piped input
// and by tests.
func RunText(ctx context.Context, name, text string, members map[string]string, logger *slog.Logger) (*Result, error) {
	lib := member.Memory{name: text}
	for n, t := range members {
		if n != name {
			lib[n] = t
		}
	}
	return engine.Run(ctx, engine.Config{
		Member:  name,
		Library: lib,
		Logger:  logger,
	})
}
