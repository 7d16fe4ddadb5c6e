package store

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shykerbogdan/coin-gateway/chain"
)

// Memory keeps the whole store in maps behind one RWMutex. Good enough for
// the CLI and for tests; swap for a SQL-backed implementation in a real
// deployment.
type Memory struct {
	mu sync.RWMutex

	networks []*chain.Network
	assets   []*chain.Asset
	coins    []*chain.Coin

	// insertion order matters: the UTXO engine consumes these
	// last-to-first
	utxos  []*UTXO
	nonces map[string]*NonceRecord

	nextUTXOID int
}

func NewMemory() *Memory {
	return &Memory{nonces: map[string]*NonceRecord{}}
}

func (m *Memory) AddNetwork(n *chain.Network) { m.mu.Lock(); m.networks = append(m.networks, n); m.mu.Unlock() }
func (m *Memory) AddAsset(a *chain.Asset)     { m.mu.Lock(); m.assets = append(m.assets, a); m.mu.Unlock() }

func (m *Memory) AddCoin(c *chain.Coin) error {
	if err := c.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, have := range m.coins {
		if have.NetworkID == c.NetworkID && have.AssetID == c.AssetID {
			return fmt.Errorf("coin already exists for asset %d on network %d", c.AssetID, c.NetworkID)
		}
	}
	m.coins = append(m.coins, c)
	return nil
}

func (m *Memory) FindNetwork(slug string) (*chain.Network, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, n := range m.networks {
		if n.Slug == slug {
			return n, nil
		}
	}
	return nil, fmt.Errorf("network not found: %s", slug)
}

func (m *Memory) FindCoin(networkSlug, assetCode string) (*chain.Coin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := m.findNetworkLocked(networkSlug)
	if n == nil {
		return nil, fmt.Errorf("network not found: %s", networkSlug)
	}
	for _, c := range m.coins {
		if c.NetworkID == n.ID && c.Asset != nil && strings.EqualFold(c.Asset.Code, assetCode) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("coin not found: %s on %s", assetCode, networkSlug)
}

func (m *Memory) NativeCoin(network *chain.Network) (*chain.Coin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.coins {
		if c.NetworkID == network.ID && c.Asset != nil && strings.EqualFold(c.Asset.Code, network.NativeCurrency) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w for network: %s", ErrNativeCoinNotFound, network.Slug)
}

func (m *Memory) findNetworkLocked(slug string) *chain.Network {
	for _, n := range m.networks {
		if n.Slug == slug {
			return n
		}
	}
	return nil
}

func (m *Memory) AddUTXO(u *UTXO) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		m.nextUTXOID++
		u.ID = fmt.Sprintf("utxo-%d", m.nextUTXOID)
	}
	if u.Status == 0 {
		u.Status = UTXOActive
	}
	m.utxos = append(m.utxos, u)
	return nil
}

func (m *Memory) ActiveUTXOs(networkSlug, address string) ([]*UTXO, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*UTXO
	for _, u := range m.utxos {
		if u.Status == UTXOActive && u.NetworkSlug == networkSlug && strings.EqualFold(u.Address, address) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *Memory) MarkSpent(ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	for _, u := range m.utxos {
		if want[u.TxID+":"+fmt.Sprint(u.Vout)] || want[u.ID] {
			u.Status = UTXOSpent
		}
	}
	return nil
}

func nonceKey(networkID int64, address string) string {
	return fmt.Sprintf("%d/%s", networkID, strings.ToLower(address))
}

func (m *Memory) GetOrCreateNonce(networkID int64, address string) (*NonceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := nonceKey(networkID, address)
	rec, ok := m.nonces[key]
	if !ok {
		rec = &NonceRecord{NetworkID: networkID, Address: address}
		m.nonces[key] = rec
	}
	// return a copy, callers persist through UpdateNonce
	cp := *rec
	return &cp, nil
}

func (m *Memory) UpdateNonce(networkID int64, address string, nonce uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := nonceKey(networkID, address)
	rec, ok := m.nonces[key]
	if !ok {
		rec = &NonceRecord{NetworkID: networkID, Address: address}
		m.nonces[key] = rec
	}
	rec.Nonce = nonce
	return nil
}
