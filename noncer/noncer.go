// Package noncer serializes nonce allocation for account-ledger sends. The
// chain-observed transaction count alone is not safe during rapid
// consecutive sends (the node can report a stale count before the previous
// submission lands), so we track our own counter per (network, address) and
// take whichever is ahead.
package noncer

import (
	logging "github.com/ipfs/go-log/v2"

	"github.com/shykerbogdan/coin-gateway/chain"
	"github.com/shykerbogdan/coin-gateway/store"
)

var log = logging.Logger("noncer")

type Sequencer struct {
	nonces store.NonceStore
	locks  *store.KeyMutex
}

func New(nonces store.NonceStore, locks *store.KeyMutex) *Sequencer {
	if locks == nil {
		locks = store.NewKeyMutex()
	}
	return &Sequencer{nonces: nonces, locks: locks}
}

// Allocate hands out the next nonce for (network, address), given the
// transaction count the chain currently reports. The stored counter holds
// the next value to issue, so a fresh record at chain count 0 yields 0
// exactly once; allocations are gap-free and never repeat absent an
// explicit Rollback.
func (s *Sequencer) Allocate(network *chain.Network, address string, chainCount uint64) (uint64, error) {
	key := lockKey(network, address)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	rec, err := s.nonces.GetOrCreateNonce(network.ID, address)
	if err != nil {
		return 0, err
	}

	nonce := rec.Nonce
	if chainCount > nonce {
		nonce = chainCount
	}

	if err := s.nonces.UpdateNonce(network.ID, address, nonce+1); err != nil {
		return 0, err
	}
	log.Debugw("allocated nonce", "network", network.Slug, "address", address, "chainCount", chainCount, "nonce", nonce)
	return nonce, nil
}

// Rollback returns an allocated nonce after the node rejected the
// submission outright (not merely failed to confirm it). The counter is
// rewound so the next Allocate re-issues the same value.
func (s *Sequencer) Rollback(network *chain.Network, address string, allocated uint64) error {
	key := lockKey(network, address)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	log.Debugw("rolling back nonce", "network", network.Slug, "address", address, "allocated", allocated)
	return s.nonces.UpdateNonce(network.ID, address, allocated)
}

func lockKey(network *chain.Network, address string) string {
	return "nonce/" + network.Slug + "/" + address
}
