// Package store is the persistence boundary the gateway consumes: the local
// unspent-output cache, per-address nonce counters, and the read-only
// Network/Asset/Coin descriptors. A real deployment backs these with SQL;
// the Memory implementation here serves the CLI and tests.
package store

import (
	"errors"
	"sync"

	"github.com/shykerbogdan/coin-gateway/chain"
)

const (
	UTXOActive = 1
	UTXOSpent  = 2
)

// UTXO mirrors one remote unspent output for an address we manage. Amount is
// in the ledger's smallest unit (satoshi). Rows are created by the sync
// process and consumed by the UTXO engine.
type UTXO struct {
	ID          string
	NetworkSlug string
	Address     string
	TxID        string
	Vout        uint32
	Amount      int64
	Status      int
}

// NonceRecord is the per-(network, address) counter ordering account-ledger
// submissions. Nonce holds the next value to hand out.
type NonceRecord struct {
	NetworkID int64
	Address   string
	Nonce     uint64
}

type UTXOStore interface {
	// ActiveUTXOs returns the cached ACTIVE outputs for an address in
	// storage order. Address matching is case-insensitive.
	ActiveUTXOs(networkSlug, address string) ([]*UTXO, error)
	// MarkSpent retires outputs the moment they are included in a
	// broadcast transaction.
	MarkSpent(ids []string) error
	AddUTXO(u *UTXO) error
}

type NonceStore interface {
	// GetOrCreateNonce lazily creates the counter on first use.
	GetOrCreateNonce(networkID int64, address string) (*NonceRecord, error)
	UpdateNonce(networkID int64, address string, nonce uint64) error
}

var ErrNativeCoinNotFound = errors.New("native coin not found")

type CoinStore interface {
	FindNetwork(slug string) (*chain.Network, error)
	// FindCoin resolves the unique (asset code, network slug) binding.
	FindCoin(networkSlug, assetCode string) (*chain.Coin, error)
	// NativeCoin resolves the Coin bound to the network's native currency.
	// The token engine denominates gas in it.
	NativeCoin(network *chain.Network) (*chain.Coin, error)
}

// KeyMutex hands out one mutex per (network, address) so two sends for the
// same address serialize from selection through commit, while different
// addresses proceed in parallel.
type KeyMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyMutex() *KeyMutex {
	return &KeyMutex{locks: map[string]*sync.Mutex{}}
}

func (k *KeyMutex) Lock(key string) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()
	m.Lock()
}

func (k *KeyMutex) Unlock(key string) {
	k.mu.Lock()
	m := k.locks[key]
	k.mu.Unlock()
	if m != nil {
		m.Unlock()
	}
}
