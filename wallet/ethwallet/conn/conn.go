// Package conn is the thin adapter between the account engines and an
// Ethereum-family JSON-RPC node.
package conn

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

type EthConn struct {
	url    string
	client *ethclient.Client
}

func NewEthConn(rawurl string) (*EthConn, error) {
	url := strings.TrimRight(rawurl, "/")
	client, err := ethclient.Dial(url)
	if err != nil {
		return nil, err
	}
	return &EthConn{url: url, client: client}, nil
}

func (c *EthConn) GetBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	return c.client.BalanceAt(ctx, address, nil)
}

func (c *EthConn) GetGasPrice(ctx context.Context) (*big.Int, error) {
	return c.client.SuggestGasPrice(ctx)
}

func (c *EthConn) GetTransactionCount(ctx context.Context, address common.Address) (uint64, error) {
	return c.client.NonceAt(ctx, address, nil)
}

func (c *EthConn) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return c.client.EstimateGas(ctx, msg)
}

func (c *EthConn) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	return c.client.CallContract(ctx, msg, nil)
}

func (c *EthConn) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	return c.client.SendTransaction(ctx, tx)
}

func (c *EthConn) GetTransaction(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	return c.client.TransactionByHash(ctx, hash)
}

func (c *EthConn) GetTransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return c.client.TransactionReceipt(ctx, hash)
}

func (c *EthConn) GetBlockNumber(ctx context.Context) (uint64, error) {
	return c.client.BlockNumber(ctx)
}
