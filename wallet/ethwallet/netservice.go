package ethwallet

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/shykerbogdan/coin-gateway/chain"
	"github.com/shykerbogdan/coin-gateway/currency"
	"github.com/shykerbogdan/coin-gateway/gateway"
	"github.com/shykerbogdan/coin-gateway/wallet/ethwallet/conn"
)

// NetworkService is the per-network capability set for account ledgers.
type NetworkService struct {
	network *chain.Network
	conn    Conn
}

var _ gateway.NetworkService = (*NetworkService)(nil)

func NewNetworkService(client Conn) *NetworkService {
	return &NetworkService{conn: client}
}

func (s *NetworkService) Init(network *chain.Network) error {
	if network == nil {
		return gateway.ErrInvalidInput
	}
	if _, err := parseChainID(network); err != nil {
		return err
	}
	s.network = network
	if s.conn == nil {
		c, err := conn.NewEthConn(network.RPCURL)
		if err != nil {
			return err
		}
		s.conn = c
	}
	return nil
}

func (s *NetworkService) CreateWallet() (*gateway.NodeWallet, error) { return createWallet() }

func (s *NetworkService) ValidateAddress(address string) bool {
	return addressPattern.MatchString(address)
}

func (s *NetworkService) ValidateTxHash(txHash string) bool {
	return txHashPattern.MatchString(txHash)
}

func (s *NetworkService) GetTransaction(ctx context.Context, txHash string, _ int64) (interface{}, error) {
	tx, _, err := s.conn.GetTransaction(ctx, common.HexToHash(txHash))
	if err != nil {
		return nil, nil
	}
	return tx, nil
}

// GetConfirmedTransaction returns the transaction only once its receipt is
// at least BlockConfirmation blocks deep; otherwise (nil, nil).
func (s *NetworkService) GetConfirmedTransaction(ctx context.Context, txHash string, _ int64) (interface{}, error) {
	hash := common.HexToHash(txHash)
	receipt, err := s.conn.GetTransactionReceipt(ctx, hash)
	if err != nil || receipt == nil || receipt.BlockNumber == nil {
		return nil, nil
	}
	current, err := s.conn.GetBlockNumber(ctx)
	if err != nil {
		return nil, nil
	}
	if current < receipt.BlockNumber.Uint64()+uint64(s.network.BlockConfirmation) {
		return nil, nil
	}
	tx, _, err := s.conn.GetTransaction(ctx, hash)
	if err != nil {
		return nil, nil
	}
	return tx, nil
}

func (s *NetworkService) GetTransactionReceipt(ctx context.Context, txHash string) (*types.Receipt, error) {
	receipt, err := s.conn.GetTransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		return nil, nil
	}
	return receipt, nil
}

// GetMaxFee is the gas-limit ceiling priced at the current gas price.
// coinDecimal scales the result to display units; pass a negative value for
// raw smallest units.
func (s *NetworkService) GetMaxFee(ctx context.Context, coinDecimal int32) (decimal.Decimal, error) {
	gasPrice, err := s.conn.GetGasPrice(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", gateway.ErrNodeUnavailable, err)
	}
	gasLimit, err := chain.FeeLimit(s.network.Slug)
	if err != nil {
		return decimal.Zero, err
	}
	raw := mulByUint(gasPrice, gasLimit)
	if coinDecimal < 0 {
		return decimal.NewFromBigInt(raw, 0), nil
	}
	return currency.FromSmallestUnit(raw, coinDecimal), nil
}

func (s *NetworkService) GetBlockNumber(ctx context.Context) (int64, error) {
	n, err := s.conn.GetBlockNumber(ctx)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}
