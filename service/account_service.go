package service

import (
	"context"
	"fmt"
	"time"

	"github.com/greenpoints/greenledger/interfaces"
	"github.com/greenpoints/greenledger/ledger"
	"github.com/greenpoints/greenledger/logx"
	"github.com/greenpoints/greenledger/wallet"
)

type AccountServiceImpl struct {
	ledger *ledger.Ledger
}

func NewAccountService(ld *ledger.Ledger) *AccountServiceImpl {
	return &AccountServiceImpl{ledger: ld}
}

func (s *AccountServiceImpl) GetBalance(ctx context.Context, address string) (*interfaces.BalanceResponse, error) {
	return &interfaces.BalanceResponse{
		Address: address,
		Balance: s.ledger.Balance(address),
	}, nil
}

func (s *AccountServiceImpl) GetHistory(ctx context.Context, address string) (*interfaces.HistoryResponse, error) {
	entries := s.ledger.History(address)
	return &interfaces.HistoryResponse{
		Address: address,
		Count:   len(entries),
		Entries: entries,
	}, nil
}

func (s *AccountServiceImpl) GetLeaderboard(ctx context.Context, limit int) (*interfaces.LeaderboardResponse, error) {
	return &interfaces.LeaderboardResponse{Accounts: s.ledger.Leaderboard(limit)}, nil
}

func (s *AccountServiceImpl) NewAddress(ctx context.Context, username string) (*interfaces.NewAddressResponse, error) {
	w, err := wallet.New(username, time.Now())
	if err != nil {
		return nil, err
	}
	logx.Info("ACCOUNT", fmt.Sprintf("Issued address %s for %s", w.Address, w.Username))
	return &interfaces.NewAddressResponse{Username: w.Username, Address: w.Address}, nil
}
