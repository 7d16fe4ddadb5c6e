// Package wallet is the dispatch layer: it maps a (ledger family, coin
// kind) pair onto the engine that implements it and exposes the combined
// surface as one gateway.CoinService.
package wallet

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/shykerbogdan/coin-gateway/chain"
	"github.com/shykerbogdan/coin-gateway/gateway"
	"github.com/shykerbogdan/coin-gateway/noncer"
	"github.com/shykerbogdan/coin-gateway/store"
	"github.com/shykerbogdan/coin-gateway/wallet/btcwallet"
	"github.com/shykerbogdan/coin-gateway/wallet/ethwallet"
)

// Deps carries everything the engines need. The two clients are optional:
// left nil, each engine dials the network's RPC URL on Init. Tests inject
// fakes here.
type Deps struct {
	UTXOs  store.UTXOStore
	Coins  store.CoinStore
	Nonces *noncer.Sequencer
	Locks  *store.KeyMutex

	BTCClient btcwallet.NodeClient
	EthConn   ethwallet.Conn
}

// Gateway routes every gateway.CoinService call to the engine selected at
// Init time from the (base type, coin kind) table.
type Gateway struct {
	deps Deps
	svc  gateway.CoinService
}

var _ gateway.CoinService = (*Gateway)(nil)

func NewGateway(deps Deps) *Gateway {
	if deps.Locks == nil {
		deps.Locks = store.NewKeyMutex()
	}
	if deps.Nonces == nil {
		deps.Nonces = noncer.New(store.NewMemory(), deps.Locks)
	}
	return &Gateway{deps: deps}
}

// Init binds the gateway to one coin on one network. An unknown
// (base type, kind) pair is ErrUnsupportedCombination; there is no fallback
// engine.
func (g *Gateway) Init(network *chain.Network, coin *chain.Coin) error {
	if network == nil || coin == nil || coin.Asset == nil {
		return gateway.ErrInvalidInput
	}

	svc, err := g.serviceFor(network.BaseType, coin.Kind)
	if err != nil {
		return err
	}
	if err := svc.Init(network, coin); err != nil {
		return err
	}
	g.svc = svc
	return nil
}

func (g *Gateway) serviceFor(base chain.BaseType, kind chain.CoinKind) (gateway.CoinService, error) {
	switch base {
	case chain.BaseTypeUTXO:
		if kind == chain.CoinNative {
			return btcwallet.New(g.deps.BTCClient, g.deps.UTXOs, g.deps.Locks), nil
		}
	case chain.BaseTypeAccount:
		switch kind {
		case chain.CoinNative:
			return ethwallet.New(g.deps.EthConn, g.deps.Nonces, g.deps.Locks), nil
		case chain.CoinToken:
			// the token engine routes its fee-balance check through a
			// fresh gateway so it estimates like any native caller would
			deps := g.deps
			return ethwallet.NewToken(g.deps.EthConn, g.deps.Nonces, g.deps.Locks, g.deps.Coins, func() gateway.CoinService {
				return NewGateway(deps)
			}), nil
		}
	}
	return nil, gateway.ErrUnsupportedCombination
}

func (g *Gateway) CreateWallet() (*gateway.NodeWallet, error) {
	return g.svc.CreateWallet()
}

func (g *Gateway) ValidateAddress(address string) bool {
	return g.svc.ValidateAddress(address)
}

func (g *Gateway) ValidateTxHash(txHash string) bool {
	return g.svc.ValidateTxHash(txHash)
}

func (g *Gateway) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	return g.svc.GetBalance(ctx, address)
}

func (g *Gateway) GetTransaction(ctx context.Context, txHash string, blockHeight int64) (interface{}, error) {
	return g.svc.GetTransaction(ctx, txHash, blockHeight)
}

func (g *Gateway) SendCoin(ctx context.Context, data gateway.CoinSendParam) (*gateway.CoinTx, error) {
	return g.svc.SendCoin(ctx, data)
}

func (g *Gateway) EstimateFee(ctx context.Context, data gateway.FeeEstimationParam) (*gateway.FeeEstimate, error) {
	return g.svc.EstimateFee(ctx, data)
}

func (g *Gateway) GetMaxFee(ctx context.Context, data *gateway.FeeEstimationParam) (decimal.Decimal, error) {
	return g.svc.GetMaxFee(ctx, data)
}

// NetworkGateway returns the coin-agnostic capability set for a network.
func (g *Gateway) NetworkGateway(network *chain.Network) (gateway.NetworkService, error) {
	if network == nil {
		return nil, gateway.ErrInvalidInput
	}
	var svc gateway.NetworkService
	switch network.BaseType {
	case chain.BaseTypeUTXO:
		svc = btcwallet.NewNetworkService(g.deps.BTCClient)
	case chain.BaseTypeAccount:
		svc = ethwallet.NewNetworkService(g.deps.EthConn)
	default:
		return nil, gateway.ErrUnsupportedCombination
	}
	if err := svc.Init(network); err != nil {
		return nil, err
	}
	return svc, nil
}
