package gateway

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidInput is returned when a required network/coin/field is
	// missing from a request.
	ErrInvalidInput = errors.New("network, coin and coin asset can't be empty")

	// ErrUnsupportedCombination is returned when no engine exists for the
	// (ledger family, coin kind) pair.
	ErrUnsupportedCombination = errors.New("unsupported network base type / coin kind combination")

	// ErrNodeUnavailable is returned when the remote RPC node cannot be
	// reached on a write path. Read paths swallow it into an empty result.
	ErrNodeUnavailable = errors.New("ledger node unavailable")

	// ErrBlockHeightRequired is returned by UTXO-family transaction
	// lookups invoked without a containing block height.
	ErrBlockHeightRequired = errors.New("block height is required")

	// ErrParamsRequired is returned by GetMaxFee when the engine needs
	// fee-estimation parameters and none were supplied.
	ErrParamsRequired = errors.New("fee estimation params required")
)

// InsufficientFundsError reports, in the asset's display precision, exactly
// how much was required, how much exists, and the shortfall, so the caller
// can retry with a smaller amount. FeeAsset is set when the shortage is in
// the native asset paying gas for a token transfer rather than in the asset
// being sent.
type InsufficientFundsError struct {
	AssetCode string
	FeeAsset  bool
	Required  decimal.Decimal
	Available decimal.Decimal
	Shortage  decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	kind := "balance"
	if e.FeeAsset {
		kind = "fee balance"
	}
	return fmt.Sprintf(
		"insufficient %s %s including fee: required %s %s, exists %s %s, shortage %s %s. Try a smaller amount, or wait for the balance sync",
		e.AssetCode, kind,
		e.Required.StringFixed(10), e.AssetCode,
		e.Available.StringFixed(10), e.AssetCode,
		e.Shortage.StringFixed(12), e.AssetCode,
	)
}

// FeeTooHighError means the network's gas estimate exceeded the configured
// ceiling: sending now would run out of gas or overpay.
type FeeTooHighError struct {
	AssetCode   string
	NetworkSlug string
	GasNeeded   uint64
	GasLimit    uint64
}

func (e *FeeTooHighError) Error() string {
	return fmt.Sprintf(
		"network is too busy, fee is too high: sending %s on %s would run out of gas (gas needed=%d, gas limit=%d)",
		e.AssetCode, e.NetworkSlug, e.GasNeeded, e.GasLimit,
	)
}

// SubmissionRejectedError wraps a node's outright refusal of a signed
// transaction. For account ledgers it triggers a nonce rollback.
type SubmissionRejectedError struct {
	Err error
}

func (e *SubmissionRejectedError) Error() string {
	return fmt.Sprintf("transaction rejected by node: %v", e.Err)
}

func (e *SubmissionRejectedError) Unwrap() error { return e.Err }
