package interfaces

import (
	"time"

	"github.com/greenpoints/greenledger/block"
	"github.com/greenpoints/greenledger/ledger"
	"github.com/greenpoints/greenledger/types"
)

type SubmitTxRequest struct {
	Sender    string            `json:"from"`
	Recipient string            `json:"to"`
	Amount    float64           `json:"amount"`
	Type      string            `json:"type"`
	Timestamp *time.Time        `json:"timestamp,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type SubmitTxResponse struct {
	Ok    bool   `json:"ok"`
	TxID  string `json:"transaction_id,omitempty"`
	Error string `json:"error,omitempty"`
}

type PendingTxsResponse struct {
	TotalCount int                  `json:"total_count"`
	PendingTxs []*types.Transaction `json:"pending_txs"`
}

type AppendRecordResponse struct {
	BlockHash  string `json:"block_hash"`
	BlockIndex int    `json:"block_index"`
}

type BalanceResponse struct {
	Address string  `json:"address"`
	Balance float64 `json:"balance"`
}

type HistoryResponse struct {
	Address string               `json:"address"`
	Count   int                  `json:"count"`
	Entries []types.HistoryEntry `json:"entries"`
}

type LeaderboardResponse struct {
	Accounts []ledger.AccountBalance `json:"accounts"`
}

type NewAddressResponse struct {
	Username string `json:"username"`
	Address  string `json:"address"`
}

type SettingChange struct {
	Setting  string  `json:"setting"`
	OldValue float64 `json:"old_value"`
	NewValue float64 `json:"new_value"`
}

// AdminAction is one entry of the administrative action log.
type AdminAction struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	AdminID   string    `json:"admin_id,omitempty"`
}

type ActionLogResponse struct {
	TotalActions int           `json:"total_actions"`
	Actions      []AdminAction `json:"actions"`
}

// ExportDocument is a full backup of the ledger state.
type ExportDocument struct {
	ExportTimestamp time.Time                `json:"export_timestamp"`
	Chain           []*block.Block           `json:"chain"`
	Pending         []*types.Transaction     `json:"pending"`
	Difficulty      int                      `json:"difficulty"`
	Schedule        block.DifficultySchedule `json:"difficulty_schedule"`
	MiningReward    float64                  `json:"mining_reward"`
	AdminLog        []AdminAction            `json:"admin_log"`
}

type HealthStatus string

const (
	HealthServing    HealthStatus = "SERVING"
	HealthNotServing HealthStatus = "NOT_SERVING"
)

type HealthCheckResponse struct {
	Status       HealthStatus `json:"status"`
	NodeName     string       `json:"node_name"`
	Timestamp    int64        `json:"timestamp"`
	Uptime       uint64       `json:"uptime"`
	ChainLength  int          `json:"chain_length"`
	PendingCount int          `json:"pending_count"`
	Difficulty   int          `json:"difficulty"`
	ChainValid   bool         `json:"chain_valid"`
	Version      string       `json:"version"`
	ErrorMessage string       `json:"error_message,omitempty"`
}
