// Package btcwallet is the transaction engine for UTXO-family networks:
// P2WPKH wallet creation, coin selection and fee estimation against the
// local unspent-output cache, raw transaction assembly and witness signing,
// and broadcast through a Bitcoin-family RPC node.
package btcwallet

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	logging "github.com/ipfs/go-log/v2"
	"github.com/shopspring/decimal"

	"github.com/shykerbogdan/coin-gateway/chain"
	"github.com/shykerbogdan/coin-gateway/currency"
	"github.com/shykerbogdan/coin-gateway/gateway"
	"github.com/shykerbogdan/coin-gateway/store"
)

var log = logging.Logger("btcwallet")

var txidPattern = regexp.MustCompile(`^[a-fA-F0-9]{64}$`)

// Service implements gateway.CoinService for the UTXO ledger family.
type Service struct {
	network *chain.Network
	coin    *chain.Coin
	client  NodeClient
	params  *chaincfg.Params
	byteFee uint64

	utxos store.UTXOStore
	locks *store.KeyMutex
}

// New returns an engine that will dial the network's RPC node on Init.
// Pass a non-nil client to override (tests do).
func New(client NodeClient, utxos store.UTXOStore, locks *store.KeyMutex) *Service {
	if locks == nil {
		locks = store.NewKeyMutex()
	}
	return &Service{client: client, utxos: utxos, locks: locks}
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
	s.params = chainParams(network.Slug)

	byteFee, err := chain.FeeLimit(network.Slug)
	if err != nil {
		return err
	}
	s.byteFee = byteFee

	if s.client == nil {
		client, err := NewRPCClient(network.RPCURL)
		if err != nil {
			return err
		}
		s.client = client
	}
	return nil
}

func chainParams(slug string) *chaincfg.Params {
	if slug == chain.SlugBTCMainnet {
		return &chaincfg.MainNetParams
	}
	return &chaincfg.TestNet3Params
}

// CreateWallet generates a fresh key pair and its segwit address for this
// network's chain params. The private key goes to the caller and is not
// retained.
func (s *Service) CreateWallet() (*gateway.NodeWallet, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	addr, err := p2wpkhAddress(priv.PubKey().SerializeCompressed(), s.params)
	if err != nil {
		return nil, err
	}
	return &gateway.NodeWallet{
		PrivateKey: hex.EncodeToString(priv.Serialize()),
		Address:    addr.EncodeAddress(),
	}, nil
}

func p2wpkhAddress(compressedPub []byte, params *chaincfg.Params) (*btcutil.AddressWitnessPubKeyHash, error) {
	return btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(compressedPub), params)
}

// ValidateAddress accepts any address that decodes to a spendable output
// script under this network's chain params.
func (s *Service) ValidateAddress(address string) bool {
	return validateAddress(address, s.params)
}

func validateAddress(address string, params *chaincfg.Params) bool {
	addr, err := btcutil.DecodeAddress(address, params)
	if err != nil || !addr.IsForNet(params) {
		return false
	}
	_, err = txscript.PayToAddrScript(addr)
	return err == nil
}

func (s *Service) ValidateTxHash(txHash string) bool {
	return txidPattern.MatchString(txHash)
}

// GetBalance asks the node to scan the utxo set for the address and returns
// the total in display units.
func (s *Service) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	result, err := s.client.ScanAddressUTXOs(ctx, address)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", gateway.ErrNodeUnavailable, err)
	}
	return result.TotalAmount, nil
}

// GetTransaction needs the containing block height: this ledger family has
// no lookup by hash alone. Any lookup failure yields (nil, nil).
func (s *Service) GetTransaction(ctx context.Context, txHash string, blockHeight int64) (interface{}, error) {
	return getTransaction(ctx, s.client, txHash, blockHeight)
}

func getTransaction(ctx context.Context, client NodeClient, txHash string, blockHeight int64) (interface{}, error) {
	if blockHeight < 0 {
		return nil, gateway.ErrBlockHeightRequired
	}
	blockHash, err := client.GetBlockHash(ctx, blockHeight)
	if err != nil {
		return nil, nil
	}
	tx, err := client.GetRawTransaction(ctx, txHash, blockHash)
	if err != nil {
		return nil, nil
	}
	return tx, nil
}

// EstimateFee runs coin selection without broadcasting and reports the fee
// it would pay, denominated in this coin.
func (s *Service) EstimateFee(_ context.Context, data gateway.FeeEstimationParam) (*gateway.FeeEstimate, error) {
	sel, err := s.selectCoins(data.From, data.Amount)
	if err != nil {
		return nil, err
	}
	return &gateway.FeeEstimate{
		Fee:        currency.FromSmallestUnitInt(sel.fee, s.coin.Decimal),
		FeeCoinID:  s.coin.ID,
		FeeAssetID: s.coin.AssetID,
	}, nil
}

func (s *Service) GetMaxFee(ctx context.Context, data *gateway.FeeEstimationParam) (decimal.Decimal, error) {
	if data == nil {
		return decimal.Zero, gateway.ErrParamsRequired
	}
	est, err := s.EstimateFee(ctx, *data)
	if err != nil {
		return decimal.Zero, err
	}
	return est.Fee, nil
}

// SendCoin selects inputs, builds and signs the raw transaction, broadcasts
// it, and retires the spent outputs from the cache. Selection through
// retirement runs under the (network, address) lock so a concurrent send
// for the same address cannot consume the same outputs.
func (s *Service) SendCoin(ctx context.Context, data gateway.CoinSendParam) (*gateway.CoinTx, error) {
	key := s.network.Slug + "/" + strings.ToLower(data.From)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	sel, err := s.selectCoins(data.From, data.Amount)
	if err != nil {
		return nil, err
	}

	tx, err := s.buildSignedTx(sel, data.From, data.To, data.PrivateKey)
	if err != nil {
		return nil, err
	}

	if _, err := s.client.SendRawTransaction(ctx, tx); err != nil {
		var rpcErr *btcjson.RPCError
		if errors.As(err, &rpcErr) {
			return nil, &gateway.SubmissionRejectedError{Err: err}
		}
		return nil, fmt.Errorf("%w: %v", gateway.ErrNodeUnavailable, err)
	}

	ids := make([]string, len(sel.inputs))
	for i, in := range sel.inputs {
		ids[i] = in.ID
	}
	if err := s.utxos.MarkSpent(ids); err != nil {
		// The tx is on the wire; a cache that still shows these as
		// spendable risks a double-spend attempt on the next send.
		log.Errorw("failed to retire spent utxos", "network", s.network.Slug, "ids", ids, "err", err)
		return nil, err
	}

	txid := tx.TxHash().String()
	log.Infow("broadcast", "network", s.network.Slug, "txid", txid, "inputs", len(sel.inputs), "fee", sel.fee, "change", sel.change)
	return &gateway.CoinTx{TxHash: txid}, nil
}

func (s *Service) buildSignedTx(sel *selection, from, to, privHex string) (*wire.MsgTx, error) {
	keyBytes, err := hex.DecodeString(privHex)
	if err != nil {
		return nil, fmt.Errorf("bad private key: %w", err)
	}
	priv, pub := btcec.PrivKeyFromBytes(keyBytes)

	senderAddr, err := p2wpkhAddress(pub.SerializeCompressed(), s.params)
	if err != nil {
		return nil, err
	}
	// every input of ours spends the same P2WPKH script
	prevOutScript, err := txscript.PayToAddrScript(senderAddr)
	if err != nil {
		return nil, err
	}

	destAddr, err := btcutil.DecodeAddress(to, s.params)
	if err != nil {
		return nil, fmt.Errorf("bad destination address: %w", err)
	}
	destScript, err := txscript.PayToAddrScript(destAddr)
	if err != nil {
		return nil, err
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for _, in := range sel.inputs {
		h, err := chainhash.NewHashFromStr(in.TxID)
		if err != nil {
			return nil, fmt.Errorf("bad cached utxo txid %q: %w", in.TxID, err)
		}
		op := wire.NewOutPoint(h, in.Vout)
		tx.AddTxIn(wire.NewTxIn(op, nil, nil))
		fetcher.AddPrevOut(*op, wire.NewTxOut(in.Amount, prevOutScript))
	}

	tx.AddTxOut(wire.NewTxOut(sel.amount, destScript))
	if sel.change > 0 {
		changeAddr, err := btcutil.DecodeAddress(from, s.params)
		if err != nil {
			return nil, fmt.Errorf("bad change address: %w", err)
		}
		changeScript, err := txscript.PayToAddrScript(changeAddr)
		if err != nil {
			return nil, err
		}
		tx.AddTxOut(wire.NewTxOut(sel.change, changeScript))
	}

	// each input signs against its own amount
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)
	for i, in := range sel.inputs {
		witness, err := txscript.WitnessSignature(tx, sigHashes, i, in.Amount, prevOutScript, txscript.SigHashAll, priv, true)
		if err != nil {
			return nil, fmt.Errorf("signing input %d: %w", i, err)
		}
		tx.TxIn[i].Witness = witness
	}
	return tx, nil
}
