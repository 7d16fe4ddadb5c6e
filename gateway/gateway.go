// Package gateway defines the capability contracts every ledger engine must
// satisfy, the parameter shapes they exchange with callers, and the error
// taxonomy surfaced at the engine boundary.
package gateway

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/shykerbogdan/coin-gateway/chain"
)

// NodeWallet is a freshly generated key pair. The private key is handed to
// the caller exactly once and retained nowhere; encrypting it before
// storage is the caller's job.
type NodeWallet struct {
	PrivateKey string
	Address    string
}

type CoinSendParam struct {
	From       string
	To         string
	Amount     decimal.Decimal
	PrivateKey string
}

type FeeEstimationParam struct {
	From   string
	To     string
	Amount decimal.Decimal
}

type CoinTx struct {
	TxHash string
}

// FeeEstimate carries the fee in display units plus the coin/asset it is
// denominated in (for token transfers that is the network's native coin,
// not the token).
type FeeEstimate struct {
	Fee        decimal.Decimal
	FeeCoinID  int64
	FeeAssetID int64
}

// CoinService is the per-coin capability set. Every engine behind the
// dispatcher implements it.
//
// GetTransaction takes the containing block height where the ledger family
// needs one (UTXO chains have no lookup by hash alone); pass a negative
// height when not supplying it. Lookups return (nil, nil) when the
// transaction cannot be found or the node call fails: not-found is a
// legitimate empty result on read paths.
type CoinService interface {
	Init(network *chain.Network, coin *chain.Coin) error
	CreateWallet() (*NodeWallet, error)
	ValidateAddress(address string) bool
	ValidateTxHash(txHash string) bool
	GetBalance(ctx context.Context, address string) (decimal.Decimal, error)
	GetTransaction(ctx context.Context, txHash string, blockHeight int64) (interface{}, error)
	SendCoin(ctx context.Context, data CoinSendParam) (*CoinTx, error)
	EstimateFee(ctx context.Context, data FeeEstimationParam) (*FeeEstimate, error)
	GetMaxFee(ctx context.Context, data *FeeEstimationParam) (decimal.Decimal, error)
}

// NetworkService is the per-network capability set: operations that depend
// only on the ledger, not on a particular coin binding.
type NetworkService interface {
	Init(network *chain.Network) error
	CreateWallet() (*NodeWallet, error)
	ValidateAddress(address string) bool
	ValidateTxHash(txHash string) bool
	GetTransaction(ctx context.Context, txHash string, blockHeight int64) (interface{}, error)
	GetConfirmedTransaction(ctx context.Context, txHash string, blockHeight int64) (interface{}, error)
	GetBlockNumber(ctx context.Context) (int64, error)
}
