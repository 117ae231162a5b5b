package mappers

import (
	"math/big"
	"testing"

	"github.com/spicehq/ethereum-etl/internal/model"
)

func TestTokenToRowFullyPopulated(t *testing.T) {
	name := "USD Coin"
	symbol := "USDC"
	decimals := uint64(6)
	tok := &model.Token{
		Address:        "0xtoken",
		Name:           &name,
		Symbol:         &symbol,
		Decimals:       &decimals,
		TotalSupply:    big.NewInt(1_000_000),
		BlockNumber:    100,
		BlockTimestamp: 1700000000,
		BlockHash:      "0xblockhash",
	}
	row := TokenToRow(tok)
	if row["decimals"] != uint64(6) {
		t.Fatalf("expected decimals=6, got %v", row["decimals"])
	}
	if row["updated_block_number"] != tok.BlockNumber {
		t.Fatalf("expected updated_block_number to mirror block_number on first insert")
	}
	if row["total_supply"] != "1000000" {
		t.Fatalf("expected decimal total supply, got %v", row["total_supply"])
	}
}

func TestTokenToRowRevertingMetadata(t *testing.T) {
	tok := &model.Token{Address: "0xtoken", BlockNumber: 1}
	row := TokenToRow(tok)
	if row["decimals"] != "" {
		t.Fatalf("expected empty decimals when the call reverted, got %v", row["decimals"])
	}
	if row["name"] != "" || row["symbol"] != "" {
		t.Fatalf("expected empty name/symbol when the calls reverted")
	}
}
