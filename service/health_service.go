package service

import (
	"context"
	"fmt"
	"time"

	"github.com/greenpoints/greenledger/interfaces"
	"github.com/greenpoints/greenledger/ledger"
)

const Version = "1.0.0"

type HealthServiceImpl struct {
	ledger    *ledger.Ledger
	nodeName  string
	startedAt time.Time
}

func NewHealthService(ld *ledger.Ledger, nodeName string) *HealthServiceImpl {
	return &HealthServiceImpl{ledger: ld, nodeName: nodeName, startedAt: time.Now()}
}

func (hs *HealthServiceImpl) Check(ctx context.Context) (*interfaces.HealthCheckResponse, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("health check: %w", ctx.Err())
	default:
	}

	now := time.Now()
	resp := &interfaces.HealthCheckResponse{
		Status:    interfaces.HealthServing,
		NodeName:  hs.nodeName,
		Timestamp: now.Unix(),
		Uptime:    uint64(now.Sub(hs.startedAt).Seconds()),
		Version:   Version,
	}
	if hs.ledger == nil {
		resp.Status = interfaces.HealthNotServing
		resp.ErrorMessage = "Ledger is not available"
		return resp, nil
	}

	report := hs.ledger.Validate()
	resp.ChainLength = report.Length
	resp.ChainValid = report.Valid
	resp.PendingCount = hs.ledger.PendingCount()
	resp.Difficulty = hs.ledger.Difficulty()
	if !report.Valid {
		resp.Status = interfaces.HealthNotServing
		resp.ErrorMessage = report.Err().Error()
	}
	return resp, nil
}
