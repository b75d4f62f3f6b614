package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/BaSui01/structresp/cache"
	"github.com/BaSui01/structresp/config"
	"github.com/BaSui01/structresp/engine"
	"github.com/BaSui01/structresp/internal/telemetry"
	"github.com/BaSui01/structresp/metrics"
	"github.com/BaSui01/structresp/parser"
	"github.com/BaSui01/structresp/schema"
)

func newParseCmd() *cobra.Command {
	var (
		configPath    string
		inputPath     string
		model         string
		promptVersion string
		query         string
		docIDs        []string
		batch         bool
		showMetrics   bool
	)

	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse and validate one raw response (from a file or stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewLoader().WithConfigPath(configPath).Load()
			if err != nil {
				return err
			}

			logger, err := config.NewLogger(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			providers, err := telemetry.Init(cmd.Context(), cfg.Telemetry, logger)
			if err != nil {
				return fmt.Errorf("init telemetry: %w", err)
			}
			defer func() { _ = providers.Shutdown(context.Background()) }()

			raw, err := readInput(inputPath)
			if err != nil {
				return err
			}

			var recOpts []metrics.Option
			if cfg.Metrics.Enabled {
				sink := metrics.NewPrometheusSink(cfg.Metrics.Namespace, prometheus.DefaultRegisterer)
				recOpts = append(recOpts, metrics.WithObserver(sink))
			}
			recorder := metrics.NewRecorder(recOpts...)

			validator := schema.NewValidator(schema.NewRegistry())
			p := parser.NewParser(validator, recorder, logger,
				parser.WithMaxInputBytes(cfg.Parser.MaxInputBytes))

			var rdb *redis.Client
			if cfg.Cache.Redis {
				rdb = redis.NewClient(&redis.Options{
					Addr:     cfg.Redis.Addr,
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
					PoolSize: cfg.Redis.PoolSize,
				})
				defer func() { _ = rdb.Close() }()
			}
			resultCache := cache.NewMultiLevel(cfg.Cache, rdb, logger)

			eng := engine.New(p,
				engine.WithCache(resultCache),
				engine.WithRecorder(recorder),
				engine.WithLogger(logger),
				engine.WithTTLs(cfg.Cache.TTLLive, cfg.Cache.TTLBatch),
			)

			out := eng.Process(cmd.Context(), engine.Request{
				RawText:       raw,
				Model:         model,
				PromptVersion: promptVersion,
				Query:         query,
				DocumentIDs:   docIDs,
				Batch:         batch,
			})

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return err
			}
			if out.OK() {
				if msg := out.Response.Transparency(); msg != "" {
					fmt.Println(msg)
				}
			}

			if showMetrics {
				snap := recorder.Snapshot()
				if err := enc.Encode(snap); err != nil {
					return err
				}
			}

			// A failed parse is a graceful outcome, not a CLI error, but
			// scripts still want to branch on it.
			if !out.OK() {
				os.Exit(2)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config")
	cmd.Flags().StringVarP(&inputPath, "file", "f", "-", "raw response file, - for stdin")
	cmd.Flags().StringVar(&model, "model", "", "model identity for the cache key")
	cmd.Flags().StringVar(&promptVersion, "prompt-version", "", "prompt/template version for the cache key")
	cmd.Flags().StringVar(&query, "query", "", "caller query text for the cache key")
	cmd.Flags().StringSliceVar(&docIDs, "doc", nil, "referenced document ID (repeatable)")
	cmd.Flags().BoolVar(&batch, "batch", false, "use the long (batch) cache TTL profile")
	cmd.Flags().BoolVar(&showMetrics, "show-metrics", false, "print the metrics snapshot after parsing")
	return cmd
}

func readInput(path string) (string, error) {
	if path == "-" || path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
