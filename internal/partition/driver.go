// Package partition orchestrates one (start, end, partition_dir) sweep through every
// job, sink, and enrichment step (spec.md §4.11).
package partition

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/spicehq/ethereum-etl/internal/batchexec"
	"github.com/spicehq/ethereum-etl/internal/bus"
	"github.com/spicehq/ethereum-etl/internal/enrich"
	"github.com/spicehq/ethereum-etl/internal/etlerrors"
	"github.com/spicehq/ethereum-etl/internal/export"
	"github.com/spicehq/ethereum-etl/internal/jobs"
	"github.com/spicehq/ethereum-etl/internal/rpcclient"
)

// Plan is one (start_block, end_block, partition_dir) tuple (GLOSSARY "Partition").
type Plan struct {
	StartBlock   int64
	EndBlock     int64
	PartitionDir string
}

// Options configures a sweep across every plan entry.
type Options struct {
	OutputDir         string
	ProviderURI       string
	ConnectionString  string // optional; empty disables the upsert sink
	MaxWorkers        int
	BatchSize         int
	SkipGethTraces    bool
}

var blockColumns = []string{
	"number", "hash", "parent_hash", "nonce", "sha3_uncles", "logs_bloom",
	"transactions_root", "state_root", "receipts_root", "miner", "difficulty",
	"total_difficulty", "size", "extra_data", "gas_limit", "gas_used", "timestamp",
	"transaction_count", "base_fee_per_gas",
}

var transactionColumns = []string{
	"hash", "nonce", "block_hash", "block_number", "transaction_index", "from_address",
	"to_address", "value", "gas", "gas_price", "input", "block_timestamp",
	"max_fee_per_gas", "max_priority_fee_per_gas", "transaction_type",
	"receipt_cumulative_gas_used", "receipt_gas_used", "receipt_contract_address",
	"receipt_root", "receipt_status", "receipt_effective_gas_price",
}

var logColumns = []string{
	"log_index", "transaction_hash", "transaction_index", "address", "data", "topics",
	"block_timestamp", "block_number", "block_hash",
}

var tokenTransferColumns = []string{
	"token_address", "from_address", "to_address", "value", "transaction_hash",
	"log_index", "block_timestamp", "block_number", "block_hash",
}

var receiptColumns = []string{
	"transaction_hash", "transaction_index", "block_hash", "block_number",
	"cumulative_gas_used", "gas_used", "contract_address", "root", "status",
	"effective_gas_price",
}

var contractColumns = []string{
	"address", "bytecode", "function_sighashes", "is_erc20", "is_erc721",
	"block_number", "block_timestamp", "block_hash", "transaction_index",
}

var tokenColumns = []string{
	"address", "name", "symbol", "decimals", "total_supply", "block_number",
	"block_timestamp", "block_hash",
}

// Run sweeps every plan entry in order, failing (and stopping) the whole run on the
// first partition failure. Policy for whether a multi-partition run continues past a
// single failure lives with the caller (spec.md §7 "Propagation"); Run itself aborts.
func Run(ctx context.Context, plans []Plan, opts Options) error {
	for _, p := range plans {
		if err := runOne(ctx, p, opts); err != nil {
			return fmt.Errorf("partition [%d, %d] %s: %w", p.StartBlock, p.EndBlock, p.PartitionDir, err)
		}
	}
	return nil
}

func runOne(ctx context.Context, p Plan, opts Options) error {
	if p.StartBlock < 0 || p.EndBlock < p.StartBlock {
		return &etlerrors.RangeValidation{Start: p.StartBlock, End: p.EndBlock, Reason: "start_block must be >= 0 and end_block >= start_block"}
	}
	start, end := uint64(p.StartBlock), uint64(p.EndBlock)

	start_time := time.Now()
	log.Info().Int64("start_block", p.StartBlock).Int64("end_block", p.EndBlock).Str("partition", p.PartitionDir).Msg("starting partition")

	tmpDir := filepath.Join(opts.OutputDir, ".tmp", p.PartitionDir)
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(filepath.Join(opts.OutputDir, ".tmp"))

	factory := rpcclient.NewFactory(opts.ProviderURI)
	defer factory.Close()

	var upsert *export.UpsertSink
	if opts.ConnectionString != "" {
		var err error
		upsert, err = export.NewUpsertSink(opts.ConnectionString)
		if err != nil {
			return &etlerrors.Sink{Sink: "upsert", Err: err}
		}
		if err := upsert.Open(); err != nil {
			return err
		}
		defer upsert.Shutdown()
	}

	b := bus.New()
	b.Open()
	defer b.Close()

	executor := func() *batchexec.Executor { return batchexec.New(opts.BatchSize, opts.MaxWorkers) }

	// # # # blocks_and_transactions # # #

	blocksJob := &jobs.BlocksJob{
		StartBlock: start, EndBlock: end,
		ExportBlocks: true, ExportTxs: true,
		Factory: factory, Executor: executor(), Bus: b,
	}
	if err := blocksJob.Run(ctx); err != nil {
		return fmt.Errorf("blocks job: %w", err)
	}

	blockRows := b.GetItems("block")
	txRows := b.GetItems("transaction")
	blockIndex := enrich.IndexBlocksByNumber(blockRows)

	if err := exportBoth(ctx,
		export.NewCSVSink("block", blockColumns, export.EntityFilePath(opts.OutputDir, "blocks", p.PartitionDir, start, end)),
		export.NewCSVSink("transaction", transactionColumns, export.EntityFilePath(opts.OutputDir, "transactions", p.PartitionDir, start, end)),
		upsert, blockRows, txRows,
	); err != nil {
		return err
	}

	// # # # token_transfers # # #

	logFiltersOK := rpcclient.LogFilterSupported(ctx, mustClient(ctx, factory), opts.ProviderURI)
	if logFiltersOK {
		ttJob := &jobs.TokenTransfersJob{
			StartBlock: start, EndBlock: end, BatchSize: uint64(opts.BatchSize),
			Factory: factory, Executor: executor(), Bus: b,
		}
		if err := ttJob.Run(ctx); err != nil {
			return fmt.Errorf("token transfers job: %w", err)
		}
		ttRows := b.GetItems("token_transfer")
		if err := exportOne(ctx,
			export.NewCSVSink("token_transfer", tokenTransferColumns, export.EntityFilePath(opts.OutputDir, "token_transfers", p.PartitionDir, start, end)),
			upsert, ttRows,
		); err != nil {
			return err
		}
	}

	// # # # receipts_and_logs # # #

	hashes := uniqueColumn(txRows, "hash")
	receiptsJob := &jobs.ReceiptsJob{
		TransactionHashes: hashes, ExportReceipts: true, ExportLogs: true,
		Factory: factory, Executor: executor(), Bus: b,
	}
	if err := receiptsJob.Run(ctx); err != nil {
		return fmt.Errorf("receipts job: %w", err)
	}
	receiptRows := b.GetItems("receipt")
	rawLogRows := b.GetItems("log")
	logRows, dropped := enrich.Logs(blockIndex, rawLogRows)
	if dropped > 0 {
		log.Warn().Int("dropped", dropped).Msg("dropped logs with unknown block")
	}

	if err := exportBoth(ctx,
		export.NewCSVSink("receipt", receiptColumns, export.EntityFilePath(opts.OutputDir, "receipts", p.PartitionDir, start, end)),
		export.NewCSVSink("log", logColumns, export.EntityFilePath(opts.OutputDir, "logs", p.PartitionDir, start, end)),
		upsert, receiptRows, logRows,
	); err != nil {
		return err
	}

	// # # # geth traces # # #

	var tracesJob *jobs.TracesJob
	if !opts.SkipGethTraces {
		tracesJob = &jobs.TracesJob{StartBlock: start, EndBlock: end, Factory: factory, Executor: executor(), Bus: b}
		if err := tracesJob.Run(ctx); err != nil {
			return fmt.Errorf("traces job: %w", err)
		}
	}

	// # # # contracts (+ tokens) # # #

	var contractRows []map[string]interface{}
	if tracesJob != nil && tracesJob.Available() {
		extract := &jobs.ExtractContractsJob{Traces: b.GetItems("geth_trace"), Bus: b}
		if err := extract.Run(ctx); err != nil {
			return fmt.Errorf("extract contracts job: %w", err)
		}
	} else {
		addrToBlock := make(map[string]uint64, len(receiptRows))
		var addresses []string
		seen := make(map[string]bool)
		for _, r := range receiptRows {
			addr, _ := r["contract_address"].(string)
			if addr == "" {
				continue
			}
			if !seen[addr] {
				seen[addr] = true
				addresses = append(addresses, addr)
			}
			if n, ok := r["block_number"].(uint64); ok {
				addrToBlock[addr] = n
			}
		}
		exportContracts := &jobs.ExportContractsJob{
			Addresses: addresses, BlockNumberByAddress: addrToBlock,
			Factory: factory, Executor: executor(), Bus: b,
		}
		if err := exportContracts.Run(ctx); err != nil {
			return fmt.Errorf("export contracts job: %w", err)
		}
	}

	rawContractRows := b.GetItems("contract")
	contractRows = enrich.Contracts(blockIndex, rawContractRows)

	if err := exportOne(ctx,
		export.NewCSVSink("contract", contractColumns, export.EntityFilePath(opts.OutputDir, "contracts", p.PartitionDir, start, end)),
		upsert, contractRows,
	); err != nil {
		return err
	}

	tokensJob := jobs.NewTokensJob(contractRows, factory, executor(), b)
	if err := tokensJob.Run(ctx); err != nil {
		return fmt.Errorf("tokens job: %w", err)
	}
	rawTokenRows := b.GetItems("token")
	tokenRows := enrich.Tokens(blockIndex, rawTokenRows)
	if err := exportOne(ctx,
		export.NewCSVSink("token", tokenColumns, export.EntityFilePath(opts.OutputDir, "tokens", p.PartitionDir, start, end)),
		upsert, tokenRows,
	); err != nil {
		return err
	}

	elapsed := time.Since(start_time)
	log.Info().Dur("elapsed", elapsed).Str("partition", p.PartitionDir).Msg("finished partition")
	return nil
}

func mustClient(ctx context.Context, f *rpcclient.Factory) interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
} {
	c, err := f.Get(ctx, 0)
	if err != nil {
		return nopClient{}
	}
	return c
}

type nopClient struct{}

func (nopClient) CallContext(context.Context, interface{}, string, ...interface{}) error {
	return fmt.Errorf("no rpc client available")
}

func exportBoth(ctx context.Context, csvA, csvB *export.CSVSink, upsert *export.UpsertSink, rowsA, rowsB []map[string]interface{}) error {
	exp := export.NewMultiExporter(csvA, csvB, upsertSinkOrNil(upsert))
	if err := exp.Open(); err != nil {
		return &etlerrors.Sink{Sink: "multi", Err: err}
	}
	if err := exp.ExportItems(ctx, rowsA); err != nil {
		return err
	}
	if err := exp.ExportItems(ctx, rowsB); err != nil {
		return err
	}
	return exp.Close()
}

func exportOne(ctx context.Context, csvSink *export.CSVSink, upsert *export.UpsertSink, rows []map[string]interface{}) error {
	exp := export.NewMultiExporter(csvSink, upsertSinkOrNil(upsert))
	if err := exp.Open(); err != nil {
		return &etlerrors.Sink{Sink: "multi", Err: err}
	}
	if err := exp.ExportItems(ctx, rows); err != nil {
		return err
	}
	return exp.Close()
}

func upsertSinkOrNil(u *export.UpsertSink) export.Sink {
	if u == nil {
		return nil
	}
	return u
}

func uniqueColumn(rows []map[string]interface{}, column string) []string {
	seen := make(map[string]bool, len(rows))
	var out []string
	for _, r := range rows {
		v, _ := r[column].(string)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
