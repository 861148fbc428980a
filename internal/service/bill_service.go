package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/api"
	"github.com/mmynk/splitledger/internal/ledger"
)

// BillService implements the Connect BillService on top of the bill manager.
type BillService struct {
	bills *ledger.BillManager
}

var _ api.BillServiceHandler = (*BillService)(nil)

// NewBillService creates a new BillService.
func NewBillService(bills *ledger.BillManager) *BillService {
	return &BillService{bills: bills}
}

// CreateBill creates a bill and seeds the owed amounts of its participants.
func (s *BillService) CreateBill(ctx context.Context, req *connect.Request[api.CreateBillRequest]) (*connect.Response[api.CreateBillResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("CreateBill request received",
		"group_id", req.Msg.GroupID,
		"amount", req.Msg.Amount,
		"participants_count", len(req.Msg.Participants),
	)

	bill, err := s.bills.CreateBill(ctx, userID, ledger.CreateBillInput{
		GroupID:      req.Msg.GroupID,
		Title:        req.Msg.Title,
		Amount:       req.Msg.Amount,
		Currency:     req.Msg.Currency,
		Category:     req.Msg.Category,
		SplitMethod:  req.Msg.SplitMethod,
		PayerID:      req.Msg.PayerID,
		Participants: req.Msg.Participants,
	})
	if err != nil {
		return nil, toConnectError(ctx, "CreateBill", err)
	}
	return connect.NewResponse(&api.CreateBillResponse{Bill: bill}), nil
}

// GetBill retrieves a bill by ID.
func (s *BillService) GetBill(ctx context.Context, req *connect.Request[api.GetBillRequest]) (*connect.Response[api.GetBillResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}

	bill, err := s.bills.GetBill(ctx, userID, req.Msg.BillID)
	if err != nil {
		return nil, toConnectError(ctx, "GetBill", err)
	}
	return connect.NewResponse(&api.GetBillResponse{Bill: bill}), nil
}

// UpdateBill applies the fields set in the request.
func (s *BillService) UpdateBill(ctx context.Context, req *connect.Request[api.UpdateBillRequest]) (*connect.Response[api.UpdateBillResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("UpdateBill request received", "bill_id", req.Msg.BillID)

	bill, err := s.bills.UpdateBill(ctx, userID, req.Msg.BillID, ledger.BillUpdate{
		Title:        req.Msg.Title,
		Amount:       req.Msg.Amount,
		Currency:     req.Msg.Currency,
		Category:     req.Msg.Category,
		SplitMethod:  req.Msg.SplitMethod,
		PayerID:      req.Msg.PayerID,
		Participants: req.Msg.Participants,
	})
	if err != nil {
		return nil, toConnectError(ctx, "UpdateBill", err)
	}
	return connect.NewResponse(&api.UpdateBillResponse{Bill: bill}), nil
}

// DeleteBill removes a bill without payments.
func (s *BillService) DeleteBill(ctx context.Context, req *connect.Request[api.DeleteBillRequest]) (*connect.Response[api.DeleteBillResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("DeleteBill request received", "bill_id", req.Msg.BillID)

	if err := s.bills.DeleteBill(ctx, userID, req.Msg.BillID); err != nil {
		return nil, toConnectError(ctx, "DeleteBill", err)
	}
	return connect.NewResponse(&api.DeleteBillResponse{}), nil
}

// CancelBill marks a bill cancelled.
func (s *BillService) CancelBill(ctx context.Context, req *connect.Request[api.CancelBillRequest]) (*connect.Response[api.CancelBillResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("CancelBill request received", "bill_id", req.Msg.BillID)

	bill, err := s.bills.CancelBill(ctx, userID, req.Msg.BillID)
	if err != nil {
		return nil, toConnectError(ctx, "CancelBill", err)
	}
	return connect.NewResponse(&api.CancelBillResponse{Bill: bill}), nil
}

// ListGroupBills returns one page of a group's bills.
func (s *BillService) ListGroupBills(ctx context.Context, req *connect.Request[api.ListGroupBillsRequest]) (*connect.Response[api.ListGroupBillsResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}

	page, err := ledger.NewPage(req.Msg.Page, req.Msg.Limit)
	if err != nil {
		return nil, toConnectError(ctx, "ListGroupBills", err)
	}
	bills, info, err := s.bills.ListGroupBills(ctx, userID, req.Msg.GroupID, req.Msg.Status, page)
	if err != nil {
		return nil, toConnectError(ctx, "ListGroupBills", err)
	}

	slog.Info("ListGroupBills successful", "group_id", req.Msg.GroupID, "count", len(bills), "total", info.TotalItems)
	return connect.NewResponse(&api.ListGroupBillsResponse{Bills: bills, Pagination: info}), nil
}

// AddPayment records a payment against a bill.
func (s *BillService) AddPayment(ctx context.Context, req *connect.Request[api.AddPaymentRequest]) (*connect.Response[api.AddPaymentResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("AddPayment request received", "bill_id", req.Msg.BillID, "amount", req.Msg.Amount)

	bill, payment, err := s.bills.AddPayment(ctx, userID, req.Msg.BillID, ledger.PaymentInput{
		Amount:  req.Msg.Amount,
		PayerID: req.Msg.PayerID,
		PayeeID: req.Msg.PayeeID,
		Date:    req.Msg.Date.Time(),
		Method:  req.Msg.Method,
		Notes:   req.Msg.Notes,
	})
	if err != nil {
		return nil, toConnectError(ctx, "AddPayment", err)
	}
	return connect.NewResponse(&api.AddPaymentResponse{Bill: bill, Payment: payment}), nil
}

// UpdatePayment edits a recorded payment.
func (s *BillService) UpdatePayment(ctx context.Context, req *connect.Request[api.UpdatePaymentRequest]) (*connect.Response[api.UpdatePaymentResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("UpdatePayment request received", "bill_id", req.Msg.BillID, "payment_id", req.Msg.PaymentID)

	bill, err := s.bills.UpdatePayment(ctx, userID, req.Msg.BillID, req.Msg.PaymentID, ledger.PaymentUpdate{
		Amount: req.Msg.Amount,
		Date:   req.Msg.Date.TimePtr(),
		Method: req.Msg.Method,
		Notes:  req.Msg.Notes,
	})
	if err != nil {
		return nil, toConnectError(ctx, "UpdatePayment", err)
	}
	return connect.NewResponse(&api.UpdatePaymentResponse{Bill: bill}), nil
}

// DeletePayment removes a recorded payment.
func (s *BillService) DeletePayment(ctx context.Context, req *connect.Request[api.DeletePaymentRequest]) (*connect.Response[api.DeletePaymentResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("DeletePayment request received", "bill_id", req.Msg.BillID, "payment_id", req.Msg.PaymentID)

	bill, err := s.bills.DeletePayment(ctx, userID, req.Msg.BillID, req.Msg.PaymentID)
	if err != nil {
		return nil, toConnectError(ctx, "DeletePayment", err)
	}
	return connect.NewResponse(&api.DeletePaymentResponse{Bill: bill}), nil
}

// PreviewSplit calculates shares without saving anything.
func (s *BillService) PreviewSplit(ctx context.Context, req *connect.Request[api.PreviewSplitRequest]) (*connect.Response[api.PreviewSplitResponse], error) {
	if _, err := actor(ctx); err != nil {
		return nil, err
	}

	shares, err := s.bills.PreviewSplit(req.Msg.Participants, req.Msg.SplitMethod, req.Msg.Amount)
	if err != nil {
		return nil, toConnectError(ctx, "PreviewSplit", err)
	}
	return connect.NewResponse(&api.PreviewSplitResponse{Participants: shares}), nil
}
