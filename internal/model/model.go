// Package model holds the flat domain entities described in spec.md §3.
package model

import "math/big"

type Block struct {
	Number           uint64
	Hash             string
	ParentHash       string
	Nonce            string
	Sha3Uncles       string
	LogsBloom        string
	TransactionsRoot string
	StateRoot        string
	ReceiptsRoot     string
	Miner            *string
	Difficulty       *big.Int
	TotalDifficulty  *big.Int
	Size             uint64
	ExtraData        string
	GasLimit         uint64
	GasUsed          uint64
	Timestamp        uint64
	TransactionCount int
	BaseFeePerGas    *big.Int
}

type Transaction struct {
	Hash                      string
	Nonce                     uint64
	TransactionIndex          uint64
	FromAddress               *string
	ToAddress                 *string
	Value                     *big.Int
	Gas                       uint64
	GasPrice                  *big.Int
	Input                     string
	BlockNumber               uint64
	BlockHash                 string
	BlockTimestamp            uint64
	MaxFeePerGas              *big.Int
	MaxPriorityFeePerGas      *big.Int
	TransactionType           int64
	ReceiptCumulativeGasUsed  *big.Int
	ReceiptGasUsed            *big.Int
	ReceiptContractAddress    *string
	ReceiptRoot               string
	ReceiptStatus             *int64
	ReceiptEffectiveGasPrice  *big.Int
}

type Receipt struct {
	TransactionHash          string
	TransactionIndex         uint64
	BlockHash                string
	BlockNumber              uint64
	CumulativeGasUsed        *big.Int
	GasUsed                  *big.Int
	ContractAddress          *string
	Root                     string
	Status                   *int64
	EffectiveGasPrice        *big.Int
}

type Log struct {
	LogIndex         uint64
	TransactionHash  string
	TransactionIndex uint64
	Address          *string
	Data             string
	Topics           []string
	BlockNumber      uint64
	BlockHash        string
	BlockTimestamp   uint64
}

type TokenTransfer struct {
	TokenAddress    *string
	FromAddress     *string
	ToAddress       *string
	Value           *big.Int
	TransactionHash string
	LogIndex        uint64
	BlockNumber     uint64
	BlockHash       string
	BlockTimestamp  uint64
}

type Contract struct {
	Address           string
	Bytecode          string
	FunctionSighashes []string
	IsERC20           bool
	IsERC721          bool
	BlockNumber       uint64
	BlockHash         string
	BlockTimestamp    uint64
	TransactionIndex  uint64
}

type Token struct {
	Address        string
	Name           *string
	Symbol         *string
	Decimals       *uint64
	TotalSupply    *big.Int
	BlockNumber    uint64
	BlockTimestamp uint64
	BlockHash      string
}

// GethTrace is the raw call-tracer tree for one block, used only to extract Contract
// items (spec.md §4.6). It is intentionally untyped: the debug namespace's shape is not
// part of the standard JSON-RPC spec and varies across clients.
type GethTrace struct {
	BlockNumber uint64
	Raw         map[string]interface{}
}
