package ethwallet

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/shykerbogdan/coin-gateway/chain"
	"github.com/shykerbogdan/coin-gateway/currency"
	"github.com/shykerbogdan/coin-gateway/gateway"
	"github.com/shykerbogdan/coin-gateway/noncer"
	"github.com/shykerbogdan/coin-gateway/store"
)

// The slice of the ERC20 ABI this engine calls.
const erc20ABI = `[
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`

// TokenService implements gateway.CoinService for ERC20-style token coins.
// Transfers and balances go through the token contract; gas is paid in the
// network's native asset, which is why fee estimation resolves the native
// Coin and checks a second balance.
type TokenService struct {
	svc      *Service
	contract common.Address
	erc20    abi.ABI
	coins    store.CoinStore

	// newNativeGateway builds a fresh dispatcher so the fee-balance check
	// runs through the same path any caller would use for the native coin.
	newNativeGateway func() gateway.CoinService
}

// NewToken wires a token engine. coins resolves the network's native Coin;
// newNativeGateway comes from the dispatcher.
func NewToken(client Conn, nonces *noncer.Sequencer, locks *store.KeyMutex, coins store.CoinStore, newNativeGateway func() gateway.CoinService) *TokenService {
	return &TokenService{
		svc:              New(client, nonces, locks),
		coins:            coins,
		newNativeGateway: newNativeGateway,
	}
}

func (s *TokenService) Init(network *chain.Network, coin *chain.Coin) error {
	if err := s.svc.Init(network, coin); err != nil {
		return err
	}
	if coin.Kind != chain.CoinToken || coin.ContractAddress == "" {
		return fmt.Errorf("coin %s is not a token binding", coin.AssetCode())
	}
	s.contract = common.HexToAddress(coin.ContractAddress)

	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return fmt.Errorf("parsing erc20 abi: %w", err)
	}
	s.erc20 = parsed
	return nil
}

func (s *TokenService) CreateWallet() (*gateway.NodeWallet, error) { return createWallet() }

func (s *TokenService) ValidateAddress(address string) bool { return s.svc.ValidateAddress(address) }

func (s *TokenService) ValidateTxHash(txHash string) bool { return s.svc.ValidateTxHash(txHash) }

// GetBalance reads balanceOf(address) from the contract, in the token
// coin's display units.
func (s *TokenService) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	raw, err := s.call(ctx, "balanceOf", common.HexToAddress(address))
	if err != nil {
		return decimal.Zero, err
	}
	balance, ok := raw.(*big.Int)
	if !ok {
		return decimal.Zero, fmt.Errorf("unexpected balanceOf result %T", raw)
	}
	return currency.FromSmallestUnit(balance, s.svc.coin.Decimal), nil
}

func (s *TokenService) GetTransaction(ctx context.Context, txHash string, blockHeight int64) (interface{}, error) {
	return s.svc.GetTransaction(ctx, txHash, blockHeight)
}

// EstimateFee checks two balances independently: the token balance against
// the requested amount, and the native balance against the worst-case gas
// cost. Either shortage fails on its own, tagged so the caller knows which
// asset ran short. The fee comes back denominated in the native coin.
func (s *TokenService) EstimateFee(ctx context.Context, data gateway.FeeEstimationParam) (*gateway.FeeEstimate, error) {
	if !data.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", gateway.ErrInvalidInput)
	}
	balance, err := s.GetBalance(ctx, data.From)
	if err != nil {
		return nil, err
	}
	if data.Amount.GreaterThan(balance) {
		return nil, &gateway.InsufficientFundsError{
			AssetCode: s.svc.coin.AssetCode(),
			Required:  data.Amount,
			Available: balance,
			Shortage:  currency.Sub(data.Amount, balance),
		}
	}

	// A token network without its native coin configured is broken;
	// estimating a fee in the wrong unit would be worse than failing.
	nativeCoin, err := s.coins.NativeCoin(s.svc.network)
	if err != nil {
		return nil, err
	}

	gasPrice, err := s.svc.conn.GetGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrNodeUnavailable, err)
	}
	maxFee := currency.FromSmallestUnit(mulByUint(gasPrice, s.svc.gasLimit), nativeCoin.Decimal)

	native := s.newNativeGateway()
	if err := native.Init(s.svc.network, nativeCoin); err != nil {
		return nil, err
	}
	feeBalance, err := native.GetBalance(ctx, data.From)
	if err != nil {
		return nil, err
	}
	if maxFee.GreaterThan(feeBalance) {
		return nil, &gateway.InsufficientFundsError{
			AssetCode: nativeCoin.AssetCode(),
			FeeAsset:  true,
			Required:  maxFee,
			Available: feeBalance,
			Shortage:  currency.Sub(maxFee, feeBalance),
		}
	}

	transferData, err := s.transferData(data.To, data.Amount)
	if err != nil {
		return nil, err
	}
	from := common.HexToAddress(data.From)
	gas, err := s.svc.conn.EstimateGas(ctx, ethereum.CallMsg{
		From:     from,
		To:       &s.contract,
		Data:     transferData,
		GasPrice: gasPrice,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrNodeUnavailable, err)
	}
	if gas > s.svc.gasLimit {
		return nil, &gateway.FeeTooHighError{
			AssetCode:   s.svc.coin.AssetCode(),
			NetworkSlug: s.svc.network.Slug,
			GasNeeded:   gas,
			GasLimit:    s.svc.gasLimit,
		}
	}

	return &gateway.FeeEstimate{
		Fee:        currency.FromSmallestUnit(mulByUint(gasPrice, gas), nativeCoin.Decimal),
		FeeCoinID:  nativeCoin.ID,
		FeeAssetID: nativeCoin.AssetID,
	}, nil
}

// SendCoin broadcasts an ABI-encoded transfer to the token contract, nonce
// sequencing and rejection rollback identical to the native engine.
func (s *TokenService) SendCoin(ctx context.Context, data gateway.CoinSendParam) (*gateway.CoinTx, error) {
	key := s.svc.network.Slug + "/" + strings.ToLower(data.From)
	s.svc.locks.Lock(key)
	defer s.svc.locks.Unlock(key)

	if _, err := s.EstimateFee(ctx, gateway.FeeEstimationParam{From: data.From, To: data.To, Amount: data.Amount}); err != nil {
		return nil, err
	}

	gasPrice, err := s.svc.conn.GetGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrNodeUnavailable, err)
	}
	from := common.HexToAddress(data.From)
	txCount, err := s.svc.conn.GetTransactionCount(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrNodeUnavailable, err)
	}
	nonce, err := s.svc.nonces.Allocate(s.svc.network, data.From, txCount)
	if err != nil {
		return nil, err
	}

	transferData, err := s.transferData(data.To, data.Amount)
	if err != nil {
		return nil, err
	}
	tx := types.NewTransaction(nonce, s.contract, big.NewInt(0), s.svc.gasLimit, gasPrice, transferData)

	return s.svc.signAndSend(ctx, tx, nonce, data.From, data.PrivateKey)
}

// GetMaxFee reports the native-asset ceiling in the native coin's display
// units, same denomination the native engine reports.
func (s *TokenService) GetMaxFee(ctx context.Context, _ *gateway.FeeEstimationParam) (decimal.Decimal, error) {
	nativeCoin, err := s.coins.NativeCoin(s.svc.network)
	if err != nil {
		return decimal.Zero, err
	}
	gasPrice, err := s.svc.conn.GetGasPrice(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", gateway.ErrNodeUnavailable, err)
	}
	return currency.FromSmallestUnit(mulByUint(gasPrice, s.svc.gasLimit), nativeCoin.Decimal), nil
}

// Decimals reads the token contract's own precision. Useful for auditing a
// Coin binding against the deployed contract.
func (s *TokenService) Decimals(ctx context.Context) (uint8, error) {
	raw, err := s.call(ctx, "decimals")
	if err != nil {
		return 0, err
	}
	d, ok := raw.(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals result %T", raw)
	}
	return d, nil
}

// Allowance reads the ERC20 allowance from owner to spender, in smallest
// units.
func (s *TokenService) Allowance(ctx context.Context, owner, spender string) (*big.Int, error) {
	raw, err := s.call(ctx, "allowance", common.HexToAddress(owner), common.HexToAddress(spender))
	if err != nil {
		return nil, err
	}
	amount, ok := raw.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected allowance result %T", raw)
	}
	return amount, nil
}

func (s *TokenService) transferData(to string, amount decimal.Decimal) ([]byte, error) {
	return s.erc20.Pack("transfer", common.HexToAddress(to), currency.ToSmallestUnit(amount, s.svc.coin.Decimal))
}

func (s *TokenService) call(ctx context.Context, method string, args ...interface{}) (interface{}, error) {
	input, err := s.erc20.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	output, err := s.svc.conn.CallContract(ctx, ethereum.CallMsg{To: &s.contract, Data: input})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrNodeUnavailable, err)
	}
	results, err := s.erc20.Unpack(method, output)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("empty %s result", method)
	}
	return results[0], nil
}
