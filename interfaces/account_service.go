package interfaces

import "context"

type AccountService interface {
	GetBalance(ctx context.Context, address string) (*BalanceResponse, error)
	GetHistory(ctx context.Context, address string) (*HistoryResponse, error)
	GetLeaderboard(ctx context.Context, limit int) (*LeaderboardResponse, error)
	NewAddress(ctx context.Context, username string) (*NewAddressResponse, error)
}
