package export

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/spicehq/ethereum-etl/internal/etlerrors"
)

// connMaxLifetime bounds how long the upsert sink's single connection is reused before
// the driver recycles it (spec.md §5 "the upsert sink holds one long-lived connection
// per partition with a recycle timeout").
const connMaxLifetime = 5 * time.Minute

// entitySpec describes one item type's relational shape: its column order (as they
// appear in the row dict, "type" excluded), its primary key columns, and the SQL
// fragment appended after "ON CONFLICT (pk...) DO" to implement spec.md §4.10's
// per-entity conflict policy.
type entitySpec struct {
	table      string
	columns    []string
	primaryKey []string
	// conflictAction renders the "DO UPDATE SET ..." (or "DO NOTHING") clause body,
	// given the non-key columns. Defaults to "update every non-key column" when nil.
	conflictAction func(nonKeyColumns []string) string
}

var entitySpecs = map[string]entitySpec{
	"block": {
		table: "blocks",
		columns: []string{
			"number", "hash", "parent_hash", "nonce", "sha3_uncles", "logs_bloom",
			"transactions_root", "state_root", "receipts_root", "miner", "difficulty",
			"total_difficulty", "size", "extra_data", "gas_limit", "gas_used",
			"timestamp", "transaction_count", "base_fee_per_gas",
		},
		primaryKey: []string{"hash"},
		// Blocks: on conflict all columns are replaced (spec.md §4.10).
	},
	"transaction": {
		table: "transactions",
		columns: []string{
			"hash", "nonce", "transaction_index", "from_address", "to_address", "value",
			"gas", "gas_price", "input", "block_timestamp", "block_number", "block_hash",
			"max_fee_per_gas", "max_priority_fee_per_gas", "transaction_type",
			"receipt_cumulative_gas_used", "receipt_gas_used", "receipt_contract_address",
			"receipt_root", "receipt_status", "receipt_effective_gas_price",
		},
		primaryKey: []string{"hash"},
	},
	"log": {
		table: "logs",
		columns: []string{
			"log_index", "transaction_hash", "transaction_index", "address", "data",
			"topics", "block_timestamp", "block_number", "block_hash",
		},
		primaryKey: []string{"transaction_hash", "log_index"},
	},
	"token_transfer": {
		table: "token_transfers",
		columns: []string{
			"token_address", "from_address", "to_address", "value", "transaction_hash",
			"log_index", "block_timestamp", "block_number", "block_hash",
		},
		primaryKey: []string{"transaction_hash", "log_index"},
	},
	"receipt": {
		table: "receipts",
		columns: []string{
			"transaction_hash", "transaction_index", "block_hash", "block_number",
			"cumulative_gas_used", "gas_used", "contract_address", "root", "status",
			"effective_gas_price",
		},
		primaryKey: []string{"transaction_hash"},
	},
	"contract": {
		table: "contracts",
		columns: []string{
			"address", "bytecode", "function_sighashes", "is_erc20", "is_erc721",
			"block_number", "block_timestamp", "block_hash", "transaction_index",
		},
		primaryKey: []string{"address"},
		conflictAction: func(nonKey []string) string {
			sets := make([]string, 0, len(nonKey))
			for _, c := range nonKey {
				sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
			}
			// More recent block_number wins, ties broken by transaction_index.
			return fmt.Sprintf(
				"DO UPDATE SET %s WHERE excluded.block_number > contracts.block_number OR "+
					"(excluded.block_number = contracts.block_number AND excluded.transaction_index >= contracts.transaction_index)",
				strings.Join(sets, ", "),
			)
		},
	},
	"token": {
		table: "tokens",
		columns: []string{
			"address", "name", "symbol", "decimals", "total_supply",
			"block_number", "block_timestamp", "block_hash",
			"updated_block_number", "updated_block_timestamp", "updated_block_hash",
		},
		primaryKey: []string{"address"},
		conflictAction: func(nonKey []string) string {
			// block_number/block_timestamp/block_hash are write-once; a parallel
			// updated_block_* triple advances on every conflict (spec.md §4.10).
			sets := []string{
				"name = excluded.name",
				"symbol = excluded.symbol",
				"decimals = excluded.decimals",
				"total_supply = excluded.total_supply",
				"updated_block_number = excluded.updated_block_number",
				"updated_block_timestamp = excluded.updated_block_timestamp",
				"updated_block_hash = excluded.updated_block_hash",
			}
			return "DO UPDATE SET " + strings.Join(sets, ", ")
		},
	},
}

// UpsertSink is the relational writer. It holds one long-lived *sql.DB connection per
// partition and upserts rows of the same type within one ExportItems call as a single
// parameterized statement per row type (spec.md §4.10, §5). The driver dials the
// connection lazily from whichever of the several export stages calls Open() first;
// Open/Close are called once per export stage by MultiExporter, but only the partition
// driver's final Shutdown actually tears the connection down (see Open/Close doc
// comments below) so the connection truly lives for the whole partition, not one stage.
type UpsertSink struct {
	db      *sql.DB
	driver  string
	connStr string
	mapping map[string]entitySpec
}

// NewUpsertSink picks the driver from the connection string's scheme:
// "postgres://..." uses github.com/lib/pq, "sqlite://..." (or a bare file path) uses
// modernc.org/sqlite, the teacher's embedded-indexer persistence layer.
func NewUpsertSink(connStr string) (*UpsertSink, error) {
	driver, dsn := "sqlite", connStr
	switch {
	case strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://"):
		driver = "postgres"
		dsn = connStr
	case strings.HasPrefix(connStr, "sqlite://"):
		driver = "sqlite"
		dsn = strings.TrimPrefix(connStr, "sqlite://")
	}
	return &UpsertSink{driver: driver, connStr: dsn, mapping: entitySpecs}, nil
}

// Open dials the connection on the first call and is a no-op on every later call, since
// the partition driver runs several export stages that each build a MultiExporter
// wrapping this same *UpsertSink and call Open() before using it (spec.md §5's "one
// long-lived connection per partition").
func (u *UpsertSink) Open() error {
	if u.db != nil {
		return nil
	}
	db, err := sql.Open(u.driver, u.connStr)
	if err != nil {
		return &etlerrors.Sink{Sink: "upsert", Err: err}
	}
	db.SetConnMaxLifetime(connMaxLifetime)
	u.db = db
	return nil
}

func (u *UpsertSink) ExportItems(ctx context.Context, items []map[string]interface{}) error {
	byType := make(map[string][]map[string]interface{})
	for _, item := range items {
		itemType, _ := item["type"].(string)
		byType[itemType] = append(byType[itemType], item)
	}
	for itemType, rows := range byType {
		spec, ok := u.mapping[itemType]
		if !ok {
			// An item type without a mapping is silently dropped (spec.md §4.10).
			continue
		}
		if err := u.upsertRows(ctx, spec, rows); err != nil {
			return &etlerrors.Sink{Sink: "upsert:" + itemType, Err: err}
		}
	}
	return nil
}

func (u *UpsertSink) upsertRows(ctx context.Context, spec entitySpec, rows []map[string]interface{}) error {
	query, _ := u.buildUpsertQuery(spec)
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		args := make([]interface{}, len(spec.columns))
		for i, col := range spec.columns {
			args[i] = row[col]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("upsert %s: %w", spec.table, err)
		}
	}
	return tx.Commit()
}

func (u *UpsertSink) buildUpsertQuery(spec entitySpec) (string, []string) {
	keySet := make(map[string]bool, len(spec.primaryKey))
	for _, k := range spec.primaryKey {
		keySet[k] = true
	}
	nonKey := make([]string, 0, len(spec.columns))
	for _, c := range spec.columns {
		if !keySet[c] {
			nonKey = append(nonKey, c)
		}
	}

	placeholders := make([]string, len(spec.columns))
	for i := range spec.columns {
		if u.driver == "postgres" {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		} else {
			placeholders[i] = "?"
		}
	}

	var conflictClause string
	if spec.conflictAction != nil {
		conflictClause = spec.conflictAction(nonKey)
	} else if len(nonKey) == 0 {
		conflictClause = "DO NOTHING"
	} else {
		sets := make([]string, 0, len(nonKey))
		for _, c := range nonKey {
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
		}
		conflictClause = "DO UPDATE SET " + strings.Join(sets, ", ")
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) %s",
		spec.table,
		strings.Join(spec.columns, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(spec.primaryKey, ", "),
		conflictClause,
	)
	return query, nonKey
}

// Close is a deliberate no-op: MultiExporter calls Close() on every sink at the end of
// each export stage, but this sink's connection must survive to the next stage. The
// partition driver closes the real connection once, via Shutdown, after the last stage.
func (u *UpsertSink) Close() error {
	return nil
}

// Shutdown closes the underlying connection. Called exactly once, by the partition
// driver, after every export stage for the partition has finished. Idempotent: once
// closed, u.db is cleared so a repeated call (or a later Open) starts clean.
func (u *UpsertSink) Shutdown() error {
	if u.db == nil {
		return nil
	}
	err := u.db.Close()
	u.db = nil
	return err
}
