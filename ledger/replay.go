package ledger

import (
	"sort"
	"sync"

	"github.com/greenpoints/greenledger/block"
	"github.com/greenpoints/greenledger/types"
)

// balanceCache holds the balances replayed at a given chain height. Blocks
// are append-only, so a cache for height h is extended by replaying only the
// blocks past h.
type balanceCache struct {
	mu       sync.Mutex
	height   int
	balances map[string]float64
}

// at returns the balances for chain, replaying whatever the cache is missing.
// The returned map must not be modified.
func (c *balanceCache) at(chain []*block.Block) map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.balances == nil || c.height > len(chain) {
		c.balances = make(map[string]float64)
		c.height = 0
	}
	if c.height == len(chain) {
		return c.balances
	}
	// copy on extend so maps handed out earlier stay stable
	next := make(map[string]float64, len(c.balances))
	for k, v := range c.balances {
		next[k] = v
	}
	for _, b := range chain[c.height:] {
		applyBlock(next, b)
	}
	c.balances = next
	c.height = len(chain)
	return next
}

func applyBlock(balances map[string]float64, b *block.Block) {
	for _, tx := range b.Transactions() {
		balances[tx.Sender] -= tx.Amount
		balances[tx.Recipient] += tx.Amount
	}
}

// Balance returns sum(received) - sum(sent) for address over every
// committed transaction. Pending transactions do not count.
func (l *Ledger) Balance(address string) float64 {
	chain, _, _ := l.snapshot()
	return l.balances.at(chain)[address]
}

// Balances returns the balance of every address that appears in the chain.
func (l *Ledger) Balances() map[string]float64 {
	chain, _, _ := l.snapshot()
	src := l.balances.at(chain)
	out := make(map[string]float64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// History returns every committed transaction touching address, in chain
// order, with the block that holds it.
func (l *Ledger) History(address string) []types.HistoryEntry {
	chain, _, _ := l.snapshot()
	history := make([]types.HistoryEntry, 0)
	for _, b := range chain {
		for _, tx := range b.Transactions() {
			if tx.Touches(address) {
				history = append(history, types.HistoryEntry{
					Transaction: tx.Clone(),
					BlockIndex:  b.Index,
					BlockHash:   b.Hash,
				})
			}
		}
	}
	return history
}

// AccountBalance is one leaderboard row.
type AccountBalance struct {
	Rank    int     `json:"rank"`
	Address string  `json:"address"`
	Balance float64 `json:"balance"`
}

// Leaderboard ranks addresses by balance, highest first, ties broken by
// address. The system account is excluded. limit <= 0 returns everyone.
func (l *Ledger) Leaderboard(limit int) []AccountBalance {
	balances := l.Balances()
	delete(balances, types.SystemSender)

	rows := make([]AccountBalance, 0, len(balances))
	for addr, bal := range balances {
		rows = append(rows, AccountBalance{Address: addr, Balance: bal})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Balance != rows[j].Balance {
			return rows[i].Balance > rows[j].Balance
		}
		return rows[i].Address < rows[j].Address
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

// Stats is a summary of the ledger for dashboards.
type Stats struct {
	ChainLength      int     `json:"chain_length"`
	PendingCount     int     `json:"pending_count"`
	TransactionCount int     `json:"transaction_count"`
	RecordCount      int     `json:"record_count"`
	Accounts         int     `json:"accounts"`
	TotalCirculation float64 `json:"total_circulation"`
	TotalMined       float64 `json:"total_mined"`
	Difficulty       int     `json:"difficulty"`
	MiningReward     float64 `json:"mining_reward"`
	ProofOfWork      bool    `json:"proof_of_work"`
	LatestHash       string  `json:"latest_hash"`
	Valid            bool    `json:"valid"`
}

func (l *Ledger) Stats() Stats {
	chain, difficulty, reward := l.snapshot()
	st := Stats{
		ChainLength:  len(chain),
		PendingCount: l.pool.Len(),
		Difficulty:   difficulty,
		MiningReward: reward,
		ProofOfWork:  l.cfg.ProofOfWork,
	}
	if len(chain) > 0 {
		st.LatestHash = chain[len(chain)-1].Hash
	}
	for _, b := range chain {
		for _, e := range b.Data {
			switch e.Kind {
			case types.EntryKindTransaction:
				st.TransactionCount++
				if e.Transaction != nil && e.Transaction.Type == types.TxTypeMiningReward {
					st.TotalMined += e.Transaction.Amount
				}
			case types.EntryKindRecord:
				st.RecordCount++
			}
		}
	}
	for addr, bal := range l.balances.at(chain) {
		if addr == types.SystemSender {
			continue
		}
		st.Accounts++
		if bal > 0 {
			st.TotalCirculation += bal
		}
	}
	st.Valid = l.Validate().Valid
	return st
}
