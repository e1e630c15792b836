package interfaces

import (
	"context"

	"github.com/greenpoints/greenledger/block"
)

type AdminService interface {
	SetDifficulty(ctx context.Context, difficulty int, adminID string) (*SettingChange, error)
	SetMiningReward(ctx context.Context, reward float64, adminID string) (*SettingChange, error)
	ForceMine(ctx context.Context, minerAddr string, adminID string) (*block.Block, error)
	Actions(ctx context.Context, limit int) (*ActionLogResponse, error)
	Export(ctx context.Context, adminID string) (*ExportDocument, error)
}
