package wallet

import (
	"context"
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/shykerbogdan/coin-gateway/chain"
	"github.com/shykerbogdan/coin-gateway/gateway"
	"github.com/shykerbogdan/coin-gateway/store"
	"github.com/shykerbogdan/coin-gateway/wallet/btcwallet"
)

type stubBTCNode struct{}

func (stubBTCNode) ScanAddressUTXOs(_ context.Context, _ string) (*btcwallet.ScanResult, error) {
	return &btcwallet.ScanResult{}, nil
}
func (stubBTCNode) GetBlockHash(_ context.Context, _ int64) (*chainhash.Hash, error) {
	return &chainhash.Hash{}, nil
}
func (stubBTCNode) GetRawTransaction(_ context.Context, txid string, _ *chainhash.Hash) (*btcjson.TxRawResult, error) {
	return &btcjson.TxRawResult{Txid: txid}, nil
}
func (stubBTCNode) SendRawTransaction(_ context.Context, tx *wire.MsgTx) (*chainhash.Hash, error) {
	h := tx.TxHash()
	return &h, nil
}
func (stubBTCNode) GetBlockCount(_ context.Context) (int64, error) { return 100, nil }

type stubEthConn struct {
	balance     *big.Int
	gasPrice    *big.Int
	gasEstimate uint64
}

func (s stubEthConn) GetBalance(_ context.Context, _ common.Address) (*big.Int, error) {
	return s.balance, nil
}
func (s stubEthConn) GetGasPrice(_ context.Context) (*big.Int, error) { return s.gasPrice, nil }
func (s stubEthConn) GetTransactionCount(_ context.Context, _ common.Address) (uint64, error) {
	return 0, nil
}
func (s stubEthConn) EstimateGas(_ context.Context, _ ethereum.CallMsg) (uint64, error) {
	return s.gasEstimate, nil
}
func (s stubEthConn) CallContract(_ context.Context, _ ethereum.CallMsg) ([]byte, error) {
	return common.LeftPadBytes(big.NewInt(10_000_000).Bytes(), 32), nil
}
func (s stubEthConn) SendTransaction(_ context.Context, _ *types.Transaction) error { return nil }
func (s stubEthConn) GetTransaction(_ context.Context, _ common.Hash) (*types.Transaction, bool, error) {
	return nil, false, ethereum.NotFound
}
func (s stubEthConn) GetTransactionReceipt(_ context.Context, _ common.Hash) (*types.Receipt, error) {
	return nil, ethereum.NotFound
}
func (s stubEthConn) GetBlockNumber(_ context.Context) (uint64, error) { return 100, nil }

func seededDeps(t *testing.T) (Deps, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()

	btcNet := &chain.Network{ID: 1, Slug: chain.SlugBTCTestnet, BaseType: chain.BaseTypeUTXO, NativeCurrency: "BTC", Status: chain.StatusActive}
	ethNet := &chain.Network{ID: 2, Slug: chain.SlugETHGoerli, BaseType: chain.BaseTypeAccount, NativeCurrency: "ETH", ChainID: "5", Status: chain.StatusActive}
	mumbai := &chain.Network{ID: 3, Slug: chain.SlugPolygonMumbai, BaseType: chain.BaseTypeAccount, NativeCurrency: "MATIC", ChainID: "80001", Status: chain.StatusActive}
	mem.AddNetwork(btcNet)
	mem.AddNetwork(ethNet)
	mem.AddNetwork(mumbai)

	btc := &chain.Asset{ID: 1, Code: "BTC", Decimal: 8}
	eth := &chain.Asset{ID: 2, Code: "ETH", Decimal: 18}
	matic := &chain.Asset{ID: 3, Code: "MATIC", Decimal: 18}
	usdt := &chain.Asset{ID: 4, Code: "USDT", Decimal: 6}
	mem.AddAsset(btc)
	mem.AddAsset(eth)
	mem.AddAsset(matic)
	mem.AddAsset(usdt)

	require.NoError(t, mem.AddCoin(&chain.Coin{ID: 1, NetworkID: 1, AssetID: 1, Kind: chain.CoinNative, Decimal: 8, Asset: btc, Network: btcNet}))
	require.NoError(t, mem.AddCoin(&chain.Coin{ID: 2, NetworkID: 2, AssetID: 2, Kind: chain.CoinNative, Decimal: 18, Asset: eth, Network: ethNet}))
	require.NoError(t, mem.AddCoin(&chain.Coin{ID: 3, NetworkID: 3, AssetID: 3, Kind: chain.CoinNative, Decimal: 18, Asset: matic, Network: mumbai}))
	require.NoError(t, mem.AddCoin(&chain.Coin{ID: 4, NetworkID: 3, AssetID: 4, Kind: chain.CoinToken, Decimal: 6,
		ContractAddress: "0x1086919c68c599FbfF0452F484a5c1063cC736F6", Asset: usdt, Network: mumbai}))

	deps := Deps{
		UTXOs: mem,
		Coins: mem,
		BTCClient: stubBTCNode{},
		EthConn: stubEthConn{
			balance:     mustBig(t, "10000000000000000000"),
			gasPrice:    big.NewInt(50),
			gasEstimate: 21000,
		},
	}
	return deps, mem
}

func mustBig(t *testing.T, s string) *big.Int {
	t.Helper()
	b, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok)
	return b
}

func coinOn(t *testing.T, mem *store.Memory, slug, code string) (*chain.Network, *chain.Coin) {
	t.Helper()
	n, err := mem.FindNetwork(slug)
	require.NoError(t, err)
	c, err := mem.FindCoin(slug, code)
	require.NoError(t, err)
	return n, c
}

func TestDispatchTable(t *testing.T) {
	deps, mem := seededDeps(t)

	for _, tc := range []struct {
		slug string
		code string
	}{
		{chain.SlugBTCTestnet, "BTC"},
		{chain.SlugETHGoerli, "ETH"},
		{chain.SlugPolygonMumbai, "MATIC"},
		{chain.SlugPolygonMumbai, "USDT"},
	} {
		g := NewGateway(deps)
		n, c := coinOn(t, mem, tc.slug, tc.code)
		require.NoError(t, g.Init(n, c), "%s/%s", tc.slug, tc.code)

		w, err := g.CreateWallet()
		require.NoError(t, err)
		require.True(t, g.ValidateAddress(w.Address), "%s/%s address %s", tc.slug, tc.code, w.Address)
	}
}

func TestDispatchRejectsUnsupportedCombination(t *testing.T) {
	deps, mem := seededDeps(t)

	// a token on a UTXO ledger has no engine
	n, _ := coinOn(t, mem, chain.SlugBTCTestnet, "BTC")
	_, c := coinOn(t, mem, chain.SlugPolygonMumbai, "USDT")
	g := NewGateway(deps)
	require.ErrorIs(t, g.Init(n, c), gateway.ErrUnsupportedCombination)
}

func TestDispatchRejectsMissingInput(t *testing.T) {
	deps, mem := seededDeps(t)
	g := NewGateway(deps)

	n, c := coinOn(t, mem, chain.SlugETHGoerli, "ETH")
	require.ErrorIs(t, g.Init(nil, c), gateway.ErrInvalidInput)
	require.ErrorIs(t, g.Init(n, nil), gateway.ErrInvalidInput)

	orphan := *c
	orphan.Asset = nil
	require.ErrorIs(t, g.Init(n, &orphan), gateway.ErrInvalidInput)
}

func TestGatewayDelegates(t *testing.T) {
	deps, mem := seededDeps(t)
	g := NewGateway(deps)

	n, c := coinOn(t, mem, chain.SlugETHGoerli, "ETH")
	require.NoError(t, g.Init(n, c))

	w, err := g.CreateWallet()
	require.NoError(t, err)

	est, err := g.EstimateFee(context.Background(), gateway.FeeEstimationParam{
		From:   w.Address,
		To:     "0x690B9A9E9aa1C9dB991C7721a92d351Db4FaC990",
		Amount: decimal.New(500_000, -18),
	})
	require.NoError(t, err)
	require.True(t, est.Fee.Equal(decimal.New(21000*50, -18)))
}

func TestTokenFeeRoutesThroughNativeGateway(t *testing.T) {
	deps, mem := seededDeps(t)
	g := NewGateway(deps)

	n, c := coinOn(t, mem, chain.SlugPolygonMumbai, "USDT")
	require.NoError(t, g.Init(n, c))

	w, err := g.CreateWallet()
	require.NoError(t, err)

	est, err := g.EstimateFee(context.Background(), gateway.FeeEstimationParam{
		From:   w.Address,
		To:     "0x690B9A9E9aa1C9dB991C7721a92d351Db4FaC990",
		Amount: decimal.RequireFromString("5"),
	})
	require.NoError(t, err)

	// fee comes back denominated in MATIC, the network's native coin
	_, native := coinOn(t, mem, chain.SlugPolygonMumbai, "MATIC")
	require.Equal(t, native.ID, est.FeeCoinID)
	require.Equal(t, native.AssetID, est.FeeAssetID)
	require.True(t, est.Fee.Equal(decimal.New(21000*50, -18)))
}

func TestNetworkGateway(t *testing.T) {
	deps, mem := seededDeps(t)
	g := NewGateway(deps)

	btcNet, err := mem.FindNetwork(chain.SlugBTCTestnet)
	require.NoError(t, err)
	ns, err := g.NetworkGateway(btcNet)
	require.NoError(t, err)
	height, err := ns.GetBlockNumber(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(100), height)

	ethNet, err := mem.FindNetwork(chain.SlugETHGoerli)
	require.NoError(t, err)
	ns, err = g.NetworkGateway(ethNet)
	require.NoError(t, err)
	height, err = ns.GetBlockNumber(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(100), height)

	_, err = g.NetworkGateway(nil)
	require.ErrorIs(t, err, gateway.ErrInvalidInput)
}
