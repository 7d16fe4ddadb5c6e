package ethwallet

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/shykerbogdan/coin-gateway/chain"
	"github.com/shykerbogdan/coin-gateway/gateway"
	"github.com/shykerbogdan/coin-gateway/noncer"
	"github.com/shykerbogdan/coin-gateway/store"
)

var (
	mumbaiNetwork = &chain.Network{
		ID: 3, Slug: chain.SlugPolygonMumbai, BaseType: chain.BaseTypeAccount,
		NativeCurrency: "MATIC", ChainID: "80001", BlockConfirmation: 30,
		Status: chain.StatusActive,
	}
	maticAsset = &chain.Asset{ID: 3, Code: "MATIC", Decimal: 18}
	usdtAsset  = &chain.Asset{ID: 4, Code: "USDT", Decimal: 6}

	maticCoin = &chain.Coin{
		ID: 3, NetworkID: 3, AssetID: 3, Kind: chain.CoinNative, Decimal: 18,
		Asset: maticAsset, Network: mumbaiNetwork, Status: chain.StatusActive,
	}
	usdtCoin = &chain.Coin{
		ID: 4, NetworkID: 3, AssetID: 4, Kind: chain.CoinToken, Decimal: 6,
		ContractAddress: "0x1086919c68c599FbfF0452F484a5c1063cC736F6",
		Asset:           usdtAsset, Network: mumbaiNetwork, Status: chain.StatusActive,
	}
)

// fakeNative stands in for the dispatcher's native-coin gateway during the
// fee-balance check.
type fakeNative struct {
	balance decimal.Decimal
}

func (f *fakeNative) Init(_ *chain.Network, _ *chain.Coin) error       { return nil }
func (f *fakeNative) CreateWallet() (*gateway.NodeWallet, error)       { return nil, nil }
func (f *fakeNative) ValidateAddress(_ string) bool                    { return true }
func (f *fakeNative) ValidateTxHash(_ string) bool                     { return true }
func (f *fakeNative) GetBalance(_ context.Context, _ string) (decimal.Decimal, error) {
	return f.balance, nil
}
func (f *fakeNative) GetTransaction(_ context.Context, _ string, _ int64) (interface{}, error) {
	return nil, nil
}
func (f *fakeNative) SendCoin(_ context.Context, _ gateway.CoinSendParam) (*gateway.CoinTx, error) {
	return nil, nil
}
func (f *fakeNative) EstimateFee(_ context.Context, _ gateway.FeeEstimationParam) (*gateway.FeeEstimate, error) {
	return nil, nil
}
func (f *fakeNative) GetMaxFee(_ context.Context, _ *gateway.FeeEstimationParam) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func tokenStore(t *testing.T, withNative bool) *store.Memory {
	t.Helper()
	mem := store.NewMemory()
	mem.AddNetwork(mumbaiNetwork)
	mem.AddAsset(maticAsset)
	mem.AddAsset(usdtAsset)
	if withNative {
		require.NoError(t, mem.AddCoin(maticCoin))
	}
	require.NoError(t, mem.AddCoin(usdtCoin))
	return mem
}

func newTokenService(t *testing.T, conn *fakeConn, native *fakeNative, withNativeCoin bool) (*TokenService, *gateway.NodeWallet) {
	t.Helper()
	svc := NewToken(conn, noncer.New(store.NewMemory(), store.NewKeyMutex()), store.NewKeyMutex(),
		tokenStore(t, withNativeCoin), func() gateway.CoinService { return native })
	require.NoError(t, svc.Init(mumbaiNetwork, usdtCoin))

	w, err := svc.CreateWallet()
	require.NoError(t, err)
	return svc, w
}

func tokenUnits(units int64) []byte {
	return common.LeftPadBytes(big.NewInt(units).Bytes(), 32)
}

func TestTokenInitRejectsNativeBinding(t *testing.T) {
	svc := NewToken(&fakeConn{}, noncer.New(store.NewMemory(), nil), nil,
		tokenStore(t, true), func() gateway.CoinService { return &fakeNative{} })
	require.Error(t, svc.Init(mumbaiNetwork, maticCoin))
}

func TestTokenGetBalance(t *testing.T) {
	conn := &fakeConn{callResult: tokenUnits(2_000_000)}
	svc, w := newTokenService(t, conn, &fakeNative{}, true)

	bal, err := svc.GetBalance(context.Background(), w.Address)
	require.NoError(t, err)
	require.True(t, bal.Equal(decimal.RequireFromString("2")), "balance %s", bal)
}

func TestTokenEstimateFeeShortOnToken(t *testing.T) {
	conn := &fakeConn{
		callResult: tokenUnits(2_000_000), // 2 USDT
		gasPrice:   big.NewInt(50),
	}
	native := &fakeNative{balance: decimal.RequireFromString("10")}
	svc, w := newTokenService(t, conn, native, true)

	_, err := svc.EstimateFee(context.Background(), gateway.FeeEstimationParam{
		From:   w.Address,
		To:     "0x690B9A9E9aa1C9dB991C7721a92d351Db4FaC990",
		Amount: decimal.RequireFromString("5"),
	})
	var insuf *gateway.InsufficientFundsError
	require.ErrorAs(t, err, &insuf)
	require.Equal(t, "USDT", insuf.AssetCode)
	require.False(t, insuf.FeeAsset)
	require.True(t, insuf.Shortage.Equal(decimal.RequireFromString("3")), "shortage %s", insuf.Shortage)
}

func TestTokenEstimateFeeShortOnFeeAsset(t *testing.T) {
	conn := &fakeConn{
		callResult:  tokenUnits(10_000_000),
		gasPrice:    big.NewInt(50),
		gasEstimate: 21000,
	}
	// no native funds at all: the ceiling 21000*50 wei cannot be covered
	native := &fakeNative{balance: decimal.Zero}
	svc, w := newTokenService(t, conn, native, true)

	_, err := svc.EstimateFee(context.Background(), gateway.FeeEstimationParam{
		From:   w.Address,
		To:     "0x690B9A9E9aa1C9dB991C7721a92d351Db4FaC990",
		Amount: decimal.RequireFromString("5"),
	})
	var insuf *gateway.InsufficientFundsError
	require.ErrorAs(t, err, &insuf)
	require.Equal(t, "MATIC", insuf.AssetCode)
	require.True(t, insuf.FeeAsset)
	require.True(t, insuf.Required.Equal(wei(t, 21000*50)), "required %s", insuf.Required)
}

func TestTokenEstimateFeeNeedsNativeCoin(t *testing.T) {
	conn := &fakeConn{
		callResult: tokenUnits(10_000_000),
		gasPrice:   big.NewInt(50),
	}
	svc, w := newTokenService(t, conn, &fakeNative{}, false)

	_, err := svc.EstimateFee(context.Background(), gateway.FeeEstimationParam{
		From:   w.Address,
		To:     "0x690B9A9E9aa1C9dB991C7721a92d351Db4FaC990",
		Amount: decimal.RequireFromString("5"),
	})
	require.ErrorIs(t, err, store.ErrNativeCoinNotFound)
}

func TestTokenEstimateFee(t *testing.T) {
	conn := &fakeConn{
		callResult:  tokenUnits(10_000_000),
		gasPrice:    big.NewInt(50),
		gasEstimate: 21000,
	}
	native := &fakeNative{balance: decimal.RequireFromString("10")}
	svc, w := newTokenService(t, conn, native, true)

	est, err := svc.EstimateFee(context.Background(), gateway.FeeEstimationParam{
		From:   w.Address,
		To:     "0x690B9A9E9aa1C9dB991C7721a92d351Db4FaC990",
		Amount: decimal.RequireFromString("5"),
	})
	require.NoError(t, err)
	// the fee is denominated in the native coin, not the token
	require.True(t, est.Fee.Equal(wei(t, 21000*50)))
	require.Equal(t, maticCoin.ID, est.FeeCoinID)
	require.Equal(t, maticCoin.AssetID, est.FeeAssetID)
}

func TestTokenEstimateFeeRejectsGasAboveCeiling(t *testing.T) {
	conn := &fakeConn{
		callResult:  tokenUnits(10_000_000),
		gasPrice:    big.NewInt(50),
		gasEstimate: 60000,
	}
	native := &fakeNative{balance: decimal.RequireFromString("10")}
	svc, w := newTokenService(t, conn, native, true)

	_, err := svc.EstimateFee(context.Background(), gateway.FeeEstimationParam{
		From:   w.Address,
		To:     "0x690B9A9E9aa1C9dB991C7721a92d351Db4FaC990",
		Amount: decimal.RequireFromString("5"),
	})
	var tooHigh *gateway.FeeTooHighError
	require.ErrorAs(t, err, &tooHigh)
	require.Equal(t, "USDT", tooHigh.AssetCode)
}

func TestTokenEstimateFeeRejectsNonPositiveAmount(t *testing.T) {
	conn := &fakeConn{
		callResult: tokenUnits(10_000_000),
		gasPrice:   big.NewInt(50),
	}
	svc, w := newTokenService(t, conn, &fakeNative{}, true)

	for _, amount := range []string{"0", "-5"} {
		_, err := svc.EstimateFee(context.Background(), gateway.FeeEstimationParam{
			From:   w.Address,
			To:     "0x690B9A9E9aa1C9dB991C7721a92d351Db4FaC990",
			Amount: decimal.RequireFromString(amount),
		})
		require.ErrorIs(t, err, gateway.ErrInvalidInput, "amount %s", amount)
	}
}

func TestTokenGetMaxFee(t *testing.T) {
	conn := &fakeConn{gasPrice: big.NewInt(50)}
	svc, _ := newTokenService(t, conn, &fakeNative{}, true)

	// the ceiling is denominated in the native coin's display units
	max, err := svc.GetMaxFee(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, max.Equal(wei(t, 21000*50)), "max fee %s", max)
}

func TestTokenGetMaxFeeNeedsNativeCoin(t *testing.T) {
	conn := &fakeConn{gasPrice: big.NewInt(50)}
	svc, _ := newTokenService(t, conn, &fakeNative{}, false)

	_, err := svc.GetMaxFee(context.Background(), nil)
	require.ErrorIs(t, err, store.ErrNativeCoinNotFound)
}

func TestTokenSendCoin(t *testing.T) {
	conn := &fakeConn{
		callResult:  tokenUnits(10_000_000),
		gasPrice:    big.NewInt(50),
		gasEstimate: 21000,
		txCount:     9,
	}
	native := &fakeNative{balance: decimal.RequireFromString("10")}
	svc, w := newTokenService(t, conn, native, true)

	to := "0x690B9A9E9aa1C9dB991C7721a92d351Db4FaC990"
	tx, err := svc.SendCoin(context.Background(), gateway.CoinSendParam{
		From:       w.Address,
		To:         to,
		Amount:     decimal.RequireFromString("5"),
		PrivateKey: w.PrivateKey,
	})
	require.NoError(t, err)
	require.NotEmpty(t, tx.TxHash)
	require.Len(t, conn.sent, 1)

	sent := conn.sent[0]
	require.Equal(t, uint64(9), sent.Nonce())
	// value rides in the calldata, the tx itself moves nothing
	require.Equal(t, "0", sent.Value().String())
	require.Equal(t, common.HexToAddress(usdtCoin.ContractAddress), *sent.To())
	require.Equal(t, []byte{0xa9, 0x05, 0x9c, 0xbb}, sent.Data()[:4])

	// transfer(to, 5 USDT in smallest units)
	require.Equal(t, common.HexToAddress(to), common.BytesToAddress(sent.Data()[4:36]))
	require.Equal(t, "5000000", new(big.Int).SetBytes(sent.Data()[36:68]).String())
}

func TestTokenDecimals(t *testing.T) {
	conn := &fakeConn{callResult: tokenUnits(6)}
	svc, _ := newTokenService(t, conn, &fakeNative{}, true)

	d, err := svc.Decimals(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint8(6), d)
}
