package btcwallet

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/shykerbogdan/coin-gateway/chain"
	"github.com/shykerbogdan/coin-gateway/gateway"
)

// NetworkService is the per-network capability set for UTXO ledgers:
// everything a caller can do without naming a coin binding.
type NetworkService struct {
	network *chain.Network
	client  NodeClient
	params  *chaincfg.Params
}

var _ gateway.NetworkService = (*NetworkService)(nil)

func NewNetworkService(client NodeClient) *NetworkService {
	return &NetworkService{client: client}
}

func (s *NetworkService) Init(network *chain.Network) error {
	if network == nil {
		return gateway.ErrInvalidInput
	}
	s.network = network
	s.params = chainParams(network.Slug)
	if s.client == nil {
		client, err := NewRPCClient(network.RPCURL)
		if err != nil {
			return err
		}
		s.client = client
	}
	return nil
}

func (s *NetworkService) CreateWallet() (*gateway.NodeWallet, error) {
	svc := &Service{params: s.params}
	return svc.CreateWallet()
}

func (s *NetworkService) ValidateAddress(address string) bool {
	return validateAddress(address, s.params)
}

func (s *NetworkService) ValidateTxHash(txHash string) bool {
	return txidPattern.MatchString(txHash)
}

func (s *NetworkService) GetTransaction(ctx context.Context, txHash string, blockHeight int64) (interface{}, error) {
	return getTransaction(ctx, s.client, txHash, blockHeight)
}

// GetConfirmedTransaction is GetTransaction plus the caller checking the
// confirmations field against the network's configured depth.
func (s *NetworkService) GetConfirmedTransaction(ctx context.Context, txHash string, blockHeight int64) (interface{}, error) {
	return getTransaction(ctx, s.client, txHash, blockHeight)
}

func (s *NetworkService) GetBlockNumber(ctx context.Context) (int64, error) {
	return s.client.GetBlockCount(ctx)
}
