package chain

import (
	"errors"
	"fmt"
)

// BaseType is the ledger family of a network: money as discrete unspent
// outputs (Bitcoin-like) vs account balances on a smart-contract chain
// (Ethereum-like).
type BaseType int

const (
	BaseTypeUTXO BaseType = iota + 1
	BaseTypeAccount
)

func (b BaseType) String() string {
	switch b {
	case BaseTypeUTXO:
		return "utxo"
	case BaseTypeAccount:
		return "account"
	default:
		return fmt.Sprintf("basetype(%d)", int(b))
	}
}

// CoinKind distinguishes a ledger's native asset from a contract-issued token.
type CoinKind int

const (
	CoinNative CoinKind = iota + 1
	CoinToken
)

func (k CoinKind) String() string {
	switch k {
	case CoinNative:
		return "native"
	case CoinToken:
		return "token"
	default:
		return fmt.Sprintf("coinkind(%d)", int(k))
	}
}

const (
	StatusActive   = 1
	StatusDisabled = 0
)

// Network slugs we seed out of the box
const (
	SlugBTCMainnet    = "btc_mainnet"
	SlugBTCTestnet    = "btc_testnet"
	SlugETHMainnet    = "eth_mainnet"
	SlugETHGoerli     = "eth_goerli"
	SlugPolygonMumbai = "polygon_mumbai"
)

// Network describes one blockchain we can operate on. Rows are seeded by the
// persistence layer and read-only here.
type Network struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Slug        string `json:"slug"`
	// Ledger family, decides which engine the gateway dispatches to
	BaseType       BaseType `json:"base_type"`
	NativeCurrency string   `json:"native_currency"`
	RPCURL         string   `json:"rpc_url"`
	WSSURL         string   `json:"wss_url,omitempty"`
	// EIP-155 chain id, decimal string. Required for account networks,
	// meaningless for UTXO ones.
	ChainID           string `json:"chain_id,omitempty"`
	BlockConfirmation int    `json:"block_confirmation"`
	ExplorerURL       string `json:"explorer_url,omitempty"`
	Status            int    `json:"status"`
}

// Asset is a fungible unit definition (BTC, ETH, USDT...). The Decimal here
// is the canonical precision; the Coin binding below may override it.
type Asset struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Code    string `json:"code"`
	Symbol  string `json:"symbol,omitempty"`
	Decimal int32  `json:"decimal"`
	Status  int    `json:"status"`
}

// Coin binds one Asset to one Network. Its Decimal is the authoritative
// precision for all arithmetic on that binding.
type Coin struct {
	ID              int64    `json:"id"`
	UID             string   `json:"uid"`
	NetworkID       int64    `json:"network_id"`
	AssetID         int64    `json:"asset_id"`
	Kind            CoinKind `json:"kind"`
	Decimal         int32    `json:"decimal"`
	ContractAddress string   `json:"contract_address,omitempty"`
	Status          int      `json:"status"`

	Asset   *Asset   `json:"-"`
	Network *Network `json:"-"`
}

var (
	errTokenNeedsContract = errors.New("token coin requires a contract address")
	errNativeHasContract  = errors.New("native coin must not carry a contract address")
)

// Validate enforces the kind/contract-address invariant.
func (c *Coin) Validate() error {
	switch c.Kind {
	case CoinToken:
		if c.ContractAddress == "" {
			return errTokenNeedsContract
		}
	case CoinNative:
		if c.ContractAddress != "" {
			return errNativeHasContract
		}
	default:
		return fmt.Errorf("unknown coin kind %d", int(c.Kind))
	}
	return nil
}

// AssetCode is a nil-safe accessor for error messages.
func (c *Coin) AssetCode() string {
	if c == nil || c.Asset == nil {
		return ""
	}
	return c.Asset.Code
}

// networkFeeLimit is the per-network transaction fee limit. For UTXO
// networks this is the byte fee rate in smallest units per vbyte; for
// account networks it is the gas limit ceiling we are willing to send with.
var networkFeeLimit = map[string]uint64{
	SlugBTCMainnet:    1,
	SlugBTCTestnet:    1,
	SlugETHMainnet:    21000,
	SlugETHGoerli:     21000,
	SlugPolygonMumbai: 21000,
}

// FeeLimit returns the fee limit configured for the network slug.
func FeeLimit(slug string) (uint64, error) {
	limit, ok := networkFeeLimit[slug]
	if !ok {
		return 0, fmt.Errorf("no transaction fee limit configured for network %q", slug)
	}
	return limit, nil
}

// SetFeeLimit overrides the limit for a slug. Used when seeding custom
// networks from config.
func SetFeeLimit(slug string, limit uint64) {
	networkFeeLimit[slug] = limit
}
