// Command ethetl runs the block-range extraction pipeline against a JSON-RPC node,
// writing per-entity CSV files and, optionally, upserting into a relational sink.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"

	"github.com/spicehq/ethereum-etl/internal/config"
	"github.com/spicehq/ethereum-etl/internal/logging"
	"github.com/spicehq/ethereum-etl/internal/partition"
)

var (
	providerURIFlag = &cli.StringFlag{Name: "provider-uri", Usage: "JSON-RPC endpoint, e.g. https://mainnet.infura.io/v3/<key>", Required: true}
	outputDirFlag   = &cli.StringFlag{Name: "output-dir", Usage: "root directory entity CSVs are written under", Required: true}
	connStrFlag     = &cli.StringFlag{Name: "connection-string", Usage: "optional relational sink, e.g. postgres://... or sqlite:///path.db"}
	startBlockFlag  = &cli.Int64Flag{Name: "start-block", Usage: "first block number, inclusive", Required: true}
	endBlockFlag    = &cli.Int64Flag{Name: "end-block", Usage: "last block number, inclusive", Required: true}
	batchSizeFlag   = &cli.IntFlag{Name: "batch-size", Usage: "RPC batch size per request", Value: 100}
	maxWorkersFlag  = &cli.IntFlag{Name: "max-workers", Usage: "concurrent batch workers", Value: 5}
	partitionFlag   = &cli.Int64Flag{Name: "partition-size", Usage: "blocks per partition", Value: 1000}
	skipTracesFlag  = &cli.BoolFlag{Name: "skip-geth-traces", Usage: "skip debug_traceBlockByNumber and the trace-mode contract extraction path"}
	configFileFlag  = &cli.StringFlag{Name: "config", Usage: "optional config file (yaml/json/toml)"}
	logLevelFlag    = &cli.StringFlag{Name: "log-level", Usage: "debug, info, warn, error", Value: "info"}
	prettyLogFlag   = &cli.BoolFlag{Name: "pretty-log", Usage: "human-readable console logging instead of JSON"}
)

func main() {
	app := &cli.App{
		Name:  "ethetl",
		Usage: "export Ethereum blocks, transactions, receipts, logs, token transfers, contracts, and tokens to CSV/relational sinks",
		Flags: []cli.Flag{
			providerURIFlag, outputDirFlag, connStrFlag, startBlockFlag, endBlockFlag,
			batchSizeFlag, maxWorkersFlag, partitionFlag, skipTracesFlag, configFileFlag,
			logLevelFlag, prettyLogFlag,
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	logging.Init(c.String(logLevelFlag.Name), c.Bool(prettyLogFlag.Name))

	v := viper.New()
	bindFlags(v, c)
	cfg, err := config.Load(v, c.String(configFileFlag.Name))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	plans := buildPlans(cfg)
	log.Info().
		Str("provider_uri", cfg.ProviderURI).
		Str("output_dir", cfg.OutputDir).
		Int64("start_block", cfg.StartBlock).
		Int64("end_block", cfg.EndBlock).
		Int("partitions", len(plans)).
		Msg("starting ethetl run")

	opts := partition.Options{
		OutputDir:        cfg.OutputDir,
		ProviderURI:      cfg.ProviderURI,
		ConnectionString: cfg.ConnectionString,
		MaxWorkers:       cfg.MaxWorkers,
		BatchSize:        cfg.BatchSize,
		SkipGethTraces:   cfg.SkipGethTraces,
	}
	return partition.Run(context.Background(), plans, opts)
}

// bindFlags copies every pipeline flag (all but --config, --log-level and --pretty-log,
// which run reads directly) into v ahead of config.Load's own file/environment
// precedence chain, so a flag always wins over the config file or environment.
func bindFlags(v *viper.Viper, c *cli.Context) {
	v.Set("provider-uri", c.String(providerURIFlag.Name))
	v.Set("output-dir", c.String(outputDirFlag.Name))
	v.Set("connection-string", c.String(connStrFlag.Name))
	v.Set("start-block", c.Int64(startBlockFlag.Name))
	v.Set("end-block", c.Int64(endBlockFlag.Name))
	v.Set("batch-size", c.Int(batchSizeFlag.Name))
	v.Set("max-workers", c.Int(maxWorkersFlag.Name))
	v.Set("partition-size", c.Int64(partitionFlag.Name))
	v.Set("skip-geth-traces", c.Bool(skipTracesFlag.Name))
}

// buildPlans slices [StartBlock, EndBlock] into fixed-size partitions named by their
// own zero-padded block range (spec.md §6).
func buildPlans(cfg *config.Config) []partition.Plan {
	var plans []partition.Plan
	size := cfg.PartitionSize
	for start := cfg.StartBlock; start <= cfg.EndBlock; start += size {
		end := start + size - 1
		if end > cfg.EndBlock {
			end = cfg.EndBlock
		}
		dir := fmt.Sprintf("%08d_%08d", start, end)
		plans = append(plans, partition.Plan{StartBlock: start, EndBlock: end, PartitionDir: dir})
	}
	return plans
}
