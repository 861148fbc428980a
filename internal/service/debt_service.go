package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/api"
	"github.com/mmynk/splitledger/internal/ledger"
)

// DebtService implements the Connect DebtService on top of the debt ledger.
type DebtService struct {
	debts *ledger.DebtLedger
}

var _ api.DebtServiceHandler = (*DebtService)(nil)

// NewDebtService creates a new DebtService.
func NewDebtService(debts *ledger.DebtLedger) *DebtService {
	return &DebtService{debts: debts}
}

func (s *DebtService) CreateDebt(ctx context.Context, req *connect.Request[api.CreateDebtRequest]) (*connect.Response[api.CreateDebtResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("CreateDebt request received",
		"group_id", req.Msg.GroupID,
		"bill_id", req.Msg.BillID,
		"amount", req.Msg.Amount,
	)

	debt, err := s.debts.CreateDebt(ctx, userID, ledger.CreateDebtInput{
		GroupID:    req.Msg.GroupID,
		BillID:     req.Msg.BillID,
		FromUserID: req.Msg.FromUserID,
		ToUserID:   req.Msg.ToUserID,
		Amount:     req.Msg.Amount,
		DueDate:    req.Msg.DueDate.TimePtr(),
		Note:       req.Msg.Note,
	})
	if err != nil {
		return nil, toConnectError(ctx, "CreateDebt", err)
	}
	return connect.NewResponse(&api.CreateDebtResponse{Debt: debt}), nil
}

func (s *DebtService) SettleDebt(ctx context.Context, req *connect.Request[api.SettleDebtRequest]) (*connect.Response[api.SettleDebtResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("SettleDebt request received", "debt_id", req.Msg.DebtID, "amount", req.Msg.Amount)

	debt, settlement, err := s.debts.SettleDebt(ctx, userID, req.Msg.DebtID, ledger.SettleInput{
		Amount: req.Msg.Amount,
		Method: req.Msg.Method,
		Date:   req.Msg.Date.Time(),
		Notes:  req.Msg.Notes,
	})
	if err != nil {
		return nil, toConnectError(ctx, "SettleDebt", err)
	}
	return connect.NewResponse(&api.SettleDebtResponse{Debt: debt, Settlement: settlement}), nil
}

func (s *DebtService) GetDebtHistory(ctx context.Context, req *connect.Request[api.GetDebtHistoryRequest]) (*connect.Response[api.GetDebtHistoryResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}

	debt, err := s.debts.GetDebtHistory(ctx, userID, req.Msg.DebtID)
	if err != nil {
		return nil, toConnectError(ctx, "GetDebtHistory", err)
	}
	return connect.NewResponse(&api.GetDebtHistoryResponse{
		DebtID:          debt.ID,
		Amount:          debt.Amount,
		RemainingAmount: debt.RemainingAmount,
		Status:          debt.Status,
		Settlements:     debt.Settlements,
	}), nil
}

func (s *DebtService) GetGroupDebts(ctx context.Context, req *connect.Request[api.GetGroupDebtsRequest]) (*connect.Response[api.GetGroupDebtsResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}

	page, err := ledger.NewPage(req.Msg.Page, req.Msg.Limit)
	if err != nil {
		return nil, toConnectError(ctx, "GetGroupDebts", err)
	}
	debts, info, err := s.debts.GetGroupDebts(ctx, userID, req.Msg.GroupID, ledger.DebtQuery{
		UserID: req.Msg.UserID,
		Status: req.Msg.Status,
	}, page)
	if err != nil {
		return nil, toConnectError(ctx, "GetGroupDebts", err)
	}
	return connect.NewResponse(&api.GetGroupDebtsResponse{Debts: debts, Pagination: info}), nil
}

func (s *DebtService) GetMyDebts(ctx context.Context, req *connect.Request[api.GetMyDebtsRequest]) (*connect.Response[api.GetMyDebtsResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}

	page, err := ledger.NewPage(req.Msg.Page, req.Msg.Limit)
	if err != nil {
		return nil, toConnectError(ctx, "GetMyDebts", err)
	}
	debts, info, err := s.debts.GetMyDebts(ctx, userID, ledger.DebtQuery{
		GroupID: req.Msg.GroupID,
		Status:  req.Msg.Status,
		Role:    ledger.DebtRole(req.Msg.Role),
	}, page)
	if err != nil {
		return nil, toConnectError(ctx, "GetMyDebts", err)
	}
	return connect.NewResponse(&api.GetMyDebtsResponse{Debts: debts, Pagination: info}), nil
}

func (s *DebtService) DisputeDebt(ctx context.Context, req *connect.Request[api.DisputeDebtRequest]) (*connect.Response[api.DisputeDebtResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}

	debt, err := s.debts.DisputeDebt(ctx, userID, req.Msg.DebtID)
	if err != nil {
		return nil, toConnectError(ctx, "DisputeDebt", err)
	}
	return connect.NewResponse(&api.DisputeDebtResponse{Debt: debt}), nil
}

func (s *DebtService) SendReminder(ctx context.Context, req *connect.Request[api.SendReminderRequest]) (*connect.Response[api.SendReminderResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}

	debt, err := s.debts.SendReminder(ctx, userID, req.Msg.DebtID)
	if err != nil {
		return nil, toConnectError(ctx, "SendReminder", err)
	}
	return connect.NewResponse(&api.SendReminderResponse{Debt: debt}), nil
}

// GetGroupBalances nets the outstanding debts of a group per member.
func (s *DebtService) GetGroupBalances(ctx context.Context, req *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("GetGroupBalances request received", "group_id", req.Msg.GroupID)

	result, err := s.debts.GetGroupBalances(ctx, userID, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(ctx, "GetGroupBalances", err)
	}

	slog.Info("GetGroupBalances successful",
		"group_id", result.GroupID,
		"members_count", len(result.Balances),
		"debts_count", len(result.Edges),
	)
	return connect.NewResponse(&api.GetGroupBalancesResponse{
		GroupID:  result.GroupID,
		Balances: result.Balances,
		Edges:    result.Edges,
	}), nil
}
