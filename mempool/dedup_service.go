package mempool

import (
	"fmt"
	"sync"

	"github.com/greenpoints/greenledger/logx"
)

// DedupService remembers the ids of committed transactions and the block
// that holds each one, so a resubmitted transaction can be rejected.
type DedupService struct {
	mu          sync.RWMutex
	txBlockByID map[string]int
}

func NewDedupService() *DedupService {
	return &DedupService{
		txBlockByID: make(map[string]int),
	}
}

func (ds *DedupService) IsDuplicate(txID string) bool {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	_, exists := ds.txBlockByID[txID]
	return exists
}

// BlockOf returns the index of the block that committed txID.
func (ds *DedupService) BlockOf(txID string) (int, bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	idx, exists := ds.txBlockByID[txID]
	return idx, exists
}

func (ds *DedupService) Add(blockIndex int, txIDs []string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	for _, id := range txIDs {
		if prev, exists := ds.txBlockByID[id]; exists {
			logx.Warn("DEDUP SERVICE", fmt.Sprintf("transaction %s already committed in block %d, seen again in block %d", id, prev, blockIndex))
			continue
		}
		ds.txBlockByID[id] = blockIndex
	}
}

func (ds *DedupService) Len() int {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return len(ds.txBlockByID)
}
