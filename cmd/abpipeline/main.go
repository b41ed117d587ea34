// Command abpipeline runs the experiment pipeline over a raw extract (or a
// generated synthetic dataset) and prints the analysis report as JSON.
//
// Usage:
//
//	abpipeline -config config.yaml -events events.csv -assignments assignments.csv
//	abpipeline -config config.yaml -generate -seed 42 -users 5000
//
// With -sqlite the marts are persisted to an embedded database; with -pg
// they are additionally loaded into the Postgres warehouse.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/saumya-sinha01/ecommerce-product-analytics-poc/pkg/abpipeline"
	"github.com/saumya-sinha01/ecommerce-product-analytics-poc/pkg/abpipeline/config"
	"github.com/saumya-sinha01/ecommerce-product-analytics-poc/pkg/abpipeline/datagen"
	"github.com/saumya-sinha01/ecommerce-product-analytics-poc/pkg/abpipeline/ingest"
	"github.com/saumya-sinha01/ecommerce-product-analytics-poc/pkg/abpipeline/observability"
	"github.com/saumya-sinha01/ecommerce-product-analytics-poc/pkg/abpipeline/stats"
	"github.com/saumya-sinha01/ecommerce-product-analytics-poc/pkg/abpipeline/store"
)

func main() {
	var exitCode int
	defer func() {
		os.Exit(exitCode)
	}()

	configPath := flag.String("config", "config.yaml", "path to the pipeline configuration")
	eventsPath := flag.String("events", "", "raw events CSV extract")
	assignmentsPath := flag.String("assignments", "", "experiment assignments CSV extract")
	generate := flag.Bool("generate", false, "generate a synthetic dataset instead of reading extracts")
	seed := flag.Int64("seed", 42, "random seed for -generate")
	users := flag.Int("users", 2000, "user count for -generate")
	sqlitePath := flag.String("sqlite", "", "persist marts to this SQLite database")
	pgDSN := flag.String("pg", "", "load marts into this Postgres DSN")
	verbose := flag.Bool("v", false, "debug logging")

	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.FromFile(*configPath)
	if err != nil {
		// A missing default config.yaml falls back to documented defaults;
		// an explicitly named config must exist.
		if !errors.Is(err, os.ErrNotExist) || *configPath != "config.yaml" {
			logger.Error("load config failed", slog.String("error", err.Error()))
			exitCode = 1
			return
		}
		cfg = config.Default()
	}

	var raws []abpipeline.RawEvent
	var assignments []abpipeline.Assignment
	switch {
	case *generate:
		genCfg := datagen.DefaultConfig()
		genCfg.Seed = *seed
		genCfg.Users = *users
		genCfg.Experiment = cfg.Experiment.Name

		ds := datagen.Generate(genCfg)
		if report := datagen.Validate(ds); !report.Clean() {
			logger.Error("generated dataset failed validation", slog.Any("report", report))
			exitCode = 1
			return
		}
		raws = ds.Events
		assignments = ds.Assignments

	case *eventsPath != "" && *assignmentsPath != "":
		raws, err = ingest.ReadEventsFile(*eventsPath)
		if err != nil {
			logger.Error("read events failed", slog.String("error", err.Error()))
			exitCode = 1
			return
		}
		assignments, err = ingest.ReadAssignmentsFile(*assignmentsPath)
		if err != nil {
			logger.Error("read assignments failed", slog.String("error", err.Error()))
			exitCode = 1
			return
		}

	default:
		fmt.Fprintln(os.Stderr, "either -generate or both -events and -assignments are required")
		flag.Usage()
		exitCode = 2
		return
	}

	pipeline, err := abpipeline.New(cfg,
		abpipeline.WithLogger(logger),
		abpipeline.WithMetrics(observability.NewMetricsRecorder()),
	)
	if err != nil {
		logger.Error("pipeline construction failed", slog.String("error", err.Error()))
		exitCode = 1
		return
	}

	result, err := pipeline.Run(context.Background(), raws, assignments)
	if err != nil {
		logger.Error("pipeline run failed", slog.String("error", err.Error()))
		exitCode = 1
		return
	}

	if *sqlitePath != "" {
		s, err := store.NewSQLiteStore(*sqlitePath)
		if err != nil {
			logger.Error("open sqlite store failed", slog.String("error", err.Error()))
			exitCode = 1
			return
		}
		defer s.Close()
		if err := s.ReplaceMarts(result.Marts); err != nil {
			logger.Error("persist marts failed", slog.String("error", err.Error()))
			exitCode = 1
			return
		}
	}

	if *pgDSN != "" {
		loader, err := store.NewPostgresLoader(context.Background(), *pgDSN)
		if err != nil {
			logger.Error("connect warehouse failed", slog.String("error", err.Error()))
			exitCode = 1
			return
		}
		defer loader.Close()
		if err := loader.Load(context.Background(), result.Marts); err != nil {
			logger.Error("load marts to warehouse failed", slog.String("error", err.Error()))
			exitCode = 1
			return
		}
	}

	output := struct {
		RunID     string                    `json:"run_id"`
		Assigned  int                       `json:"assigned_users"`
		Exposed   int                       `json:"exposed_users"`
		Unexposed int                       `json:"unexposed_users"`
		Normalize abpipeline.NormalizeStats `json:"normalize"`
		Report    *stats.Report             `json:"report"`
	}{
		RunID:     result.RunID,
		Assigned:  result.Assigned,
		Exposed:   len(result.Marts.Exposure),
		Unexposed: result.Unexposed,
		Normalize: result.Normalize,
		Report:    result.Report,
	}
	encoded, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		logger.Error("marshal report failed", slog.String("error", err.Error()))
		exitCode = 1
		return
	}
	fmt.Println(string(encoded))
}
