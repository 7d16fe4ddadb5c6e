// Package ethwallet is the transaction engine for account-based
// smart-contract ledgers: native value transfers and ERC20 token transfers,
// gas-priced fee estimation against a per-network ceiling, nonce-sequenced
// EIP-155 signing, and broadcast through a JSON-RPC node.
package ethwallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	logging "github.com/ipfs/go-log/v2"
	"github.com/shopspring/decimal"

	"github.com/shykerbogdan/coin-gateway/chain"
	"github.com/shykerbogdan/coin-gateway/currency"
	"github.com/shykerbogdan/coin-gateway/gateway"
	"github.com/shykerbogdan/coin-gateway/noncer"
	"github.com/shykerbogdan/coin-gateway/store"
	"github.com/shykerbogdan/coin-gateway/wallet/ethwallet/conn"
)

var log = logging.Logger("ethwallet")

var (
	addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	txHashPattern  = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
)

const defaultConfirmPollInterval = 15 * time.Second

// Conn is the narrow contract the engines need from the node adapter.
// conn.EthConn satisfies it; tests substitute a fake.
type Conn interface {
	GetBalance(ctx context.Context, address common.Address) (*big.Int, error)
	GetGasPrice(ctx context.Context) (*big.Int, error)
	GetTransactionCount(ctx context.Context, address common.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	GetTransaction(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	GetTransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	GetBlockNumber(ctx context.Context) (uint64, error)
}

var _ Conn = (*conn.EthConn)(nil)

// Service implements gateway.CoinService for a network's native asset.
type Service struct {
	network  *chain.Network
	coin     *chain.Coin
	conn     Conn
	chainID  *big.Int
	gasLimit uint64

	nonces *noncer.Sequencer
	locks  *store.KeyMutex

	// WaitForConfirm makes SendCoin block-poll until the network's
	// configured confirmation depth before returning. Off by default.
	WaitForConfirm      bool
	confirmPollInterval time.Duration
}

// New returns an engine that dials the network's RPC node on Init unless a
// client is supplied.
func New(client Conn, nonces *noncer.Sequencer, locks *store.KeyMutex) *Service {
	if locks == nil {
		locks = store.NewKeyMutex()
	}
	return &Service{
		conn:                client,
		nonces:              nonces,
		locks:               locks,
		confirmPollInterval: defaultConfirmPollInterval,
	}
}

func (s *Service) Init(network *chain.Network, coin *chain.Coin) error {
	if network == nil || coin == nil || coin.Asset == nil {
		return gateway.ErrInvalidInput
	}
	if err := coin.Validate(); err != nil {
		return err
	}
	s.network = network
	s.coin = coin

	chainID, err := parseChainID(network)
	if err != nil {
		return err
	}
	s.chainID = chainID

	gasLimit, err := chain.FeeLimit(network.Slug)
	if err != nil {
		return err
	}
	s.gasLimit = gasLimit

	if s.conn == nil {
		c, err := conn.NewEthConn(network.RPCURL)
		if err != nil {
			return err
		}
		s.conn = c
	}
	return nil
}

func parseChainID(network *chain.Network) (*big.Int, error) {
	id, ok := new(big.Int).SetString(network.ChainID, 10)
	if !ok || network.ChainID == "" {
		return nil, fmt.Errorf("account network %s needs a numeric chain id, got %q", network.Slug, network.ChainID)
	}
	return id, nil
}

// CreateWallet generates a fresh account key pair. One address format for
// the whole family, no chain-param branching.
func (s *Service) CreateWallet() (*gateway.NodeWallet, error) {
	return createWallet()
}

func createWallet() (*gateway.NodeWallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &gateway.NodeWallet{
		PrivateKey: "0x" + common.Bytes2Hex(crypto.FromECDSA(key)),
		Address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
	}, nil
}

func (s *Service) ValidateAddress(address string) bool {
	return addressPattern.MatchString(address)
}

func (s *Service) ValidateTxHash(txHash string) bool {
	return txHashPattern.MatchString(txHash)
}

func (s *Service) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	wei, err := s.conn.GetBalance(ctx, common.HexToAddress(address))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", gateway.ErrNodeUnavailable, err)
	}
	return currency.FromSmallestUnit(wei, s.coin.Decimal), nil
}

// GetTransaction looks a transaction up by hash alone; the block height
// argument is ignored on this ledger family. Lookup failures yield
// (nil, nil).
func (s *Service) GetTransaction(ctx context.Context, txHash string, _ int64) (interface{}, error) {
	tx, _, err := s.conn.GetTransaction(ctx, common.HexToHash(txHash))
	if err != nil {
		return nil, nil
	}
	return tx, nil
}

// EstimateFee prices a native transfer. It first bounds the cost with the
// network's gas-limit ceiling (amount + maxFee must fit in the balance),
// then asks the node for the actual gas estimate, rejecting it if the
// network is congested past the ceiling.
func (s *Service) EstimateFee(ctx context.Context, data gateway.FeeEstimationParam) (*gateway.FeeEstimate, error) {
	if !data.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", gateway.ErrInvalidInput)
	}
	gasPrice, err := s.conn.GetGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrNodeUnavailable, err)
	}

	maxFee := currency.FromSmallestUnit(mulByUint(gasPrice, s.gasLimit), s.coin.Decimal)
	balance, err := s.GetBalance(ctx, data.From)
	if err != nil {
		return nil, err
	}

	required := currency.Add(data.Amount, maxFee)
	if required.GreaterThan(balance) {
		return nil, &gateway.InsufficientFundsError{
			AssetCode: s.coin.AssetCode(),
			Required:  required,
			Available: balance,
			Shortage:  currency.Sub(required, balance),
		}
	}

	to := common.HexToAddress(data.To)
	gas, err := s.conn.EstimateGas(ctx, ethereum.CallMsg{
		From:     common.HexToAddress(data.From),
		To:       &to,
		Value:    currency.ToSmallestUnit(data.Amount, s.coin.Decimal),
		GasPrice: gasPrice,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrNodeUnavailable, err)
	}
	if gas > s.gasLimit {
		return nil, &gateway.FeeTooHighError{
			AssetCode:   s.coin.AssetCode(),
			NetworkSlug: s.network.Slug,
			GasNeeded:   gas,
			GasLimit:    s.gasLimit,
		}
	}

	return &gateway.FeeEstimate{
		Fee:        currency.FromSmallestUnit(mulByUint(gasPrice, gas), s.coin.Decimal),
		FeeCoinID:  s.coin.ID,
		FeeAssetID: s.coin.AssetID,
	}, nil
}

// GetMaxFee is gasLimit x current gas price in display units. The params
// are not needed on this family.
func (s *Service) GetMaxFee(ctx context.Context, _ *gateway.FeeEstimationParam) (decimal.Decimal, error) {
	gasPrice, err := s.conn.GetGasPrice(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", gateway.ErrNodeUnavailable, err)
	}
	return currency.FromSmallestUnit(mulByUint(gasPrice, s.gasLimit), s.coin.Decimal), nil
}

// SendCoin re-runs the fee estimate as a pre-flight check, allocates a
// nonce, signs an EIP-155 value transfer and broadcasts it. A node that
// rejects the submission outright rolls the nonce back; a submission that
// merely fails to confirm in time stays allocated and is reported as
// pending.
func (s *Service) SendCoin(ctx context.Context, data gateway.CoinSendParam) (*gateway.CoinTx, error) {
	key := s.network.Slug + "/" + strings.ToLower(data.From)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	if _, err := s.EstimateFee(ctx, gateway.FeeEstimationParam{From: data.From, To: data.To, Amount: data.Amount}); err != nil {
		return nil, err
	}

	gasPrice, err := s.conn.GetGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrNodeUnavailable, err)
	}
	from := common.HexToAddress(data.From)
	txCount, err := s.conn.GetTransactionCount(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrNodeUnavailable, err)
	}
	nonce, err := s.nonces.Allocate(s.network, data.From, txCount)
	if err != nil {
		return nil, err
	}

	to := common.HexToAddress(data.To)
	tx := types.NewTransaction(nonce, to, currency.ToSmallestUnit(data.Amount, s.coin.Decimal), s.gasLimit, gasPrice, nil)

	return s.signAndSend(ctx, tx, nonce, data.From, data.PrivateKey)
}

// signAndSend is shared by the native and token engines.
func (s *Service) signAndSend(ctx context.Context, tx *types.Transaction, nonce uint64, from, privateKey string) (*gateway.CoinTx, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("bad private key: %w", err)
	}
	signed, err := types.SignTx(tx, types.NewEIP155Signer(s.chainID), key)
	if err != nil {
		return nil, err
	}

	if err := s.conn.SendTransaction(ctx, signed); err != nil {
		if isConfirmTimeout(err) {
			// accepted but unconfirmed, the nonce stays allocated
			return &gateway.CoinTx{TxHash: signed.Hash().Hex()}, nil
		}
		if rbErr := s.nonces.Rollback(s.network, from, nonce); rbErr != nil {
			log.Errorw("nonce rollback failed", "network", s.network.Slug, "address", from, "nonce", nonce, "err", rbErr)
		}
		log.Errorw("coin send failed", "network", s.network.Slug, "txhash", signed.Hash().Hex(), "err", err)
		return nil, &gateway.SubmissionRejectedError{Err: err}
	}

	if s.WaitForConfirm {
		s.waitForTxConfirmed(ctx, signed.Hash(), s.network.BlockConfirmation)
	}
	return &gateway.CoinTx{TxHash: signed.Hash().Hex()}, nil
}

func isConfirmTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(err.Error(), "not mined within")
}

// waitForTxConfirmed polls the block height until the transaction is depth
// blocks deep, then verifies it still exists. It gives up by logging, never
// by failing the send that preceded it.
func (s *Service) waitForTxConfirmed(ctx context.Context, hash common.Hash, depth int) {
	var mined uint64
	for {
		receipt, err := s.conn.GetTransactionReceipt(ctx, hash)
		if err == nil && receipt != nil && receipt.BlockNumber != nil {
			mined = receipt.BlockNumber.Uint64()
			break
		}
		if !s.sleep(ctx) {
			return
		}
	}

	confirmations := 0
	for confirmations < depth {
		if !s.sleep(ctx) {
			return
		}
		current, err := s.conn.GetBlockNumber(ctx)
		if err != nil {
			log.Errorw("confirmation poll failed", "txhash", hash.Hex(), "err", err)
			return
		}
		confirmations = int(current - mined)
	}

	if tx, _, err := s.conn.GetTransaction(ctx, hash); err != nil || tx == nil {
		log.Errorw("transaction disappeared after confirmation wait", "txhash", hash.Hex())
	}
}

func (s *Service) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		log.Warnw("confirmation wait cancelled", "err", ctx.Err())
		return false
	case <-time.After(s.confirmPollInterval):
		return true
	}
}

func mulByUint(price *big.Int, n uint64) *big.Int {
	return new(big.Int).Mul(price, new(big.Int).SetUint64(n))
}
