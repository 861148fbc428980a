package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// DebtServiceName is the fully-qualified name of the DebtService service.
const DebtServiceName = packageName + ".DebtService"

const (
	DebtServiceCreateDebtProcedure       = "/" + DebtServiceName + "/CreateDebt"
	DebtServiceSettleDebtProcedure       = "/" + DebtServiceName + "/SettleDebt"
	DebtServiceGetDebtHistoryProcedure   = "/" + DebtServiceName + "/GetDebtHistory"
	DebtServiceGetGroupDebtsProcedure    = "/" + DebtServiceName + "/GetGroupDebts"
	DebtServiceGetMyDebtsProcedure       = "/" + DebtServiceName + "/GetMyDebts"
	DebtServiceDisputeDebtProcedure      = "/" + DebtServiceName + "/DisputeDebt"
	DebtServiceSendReminderProcedure     = "/" + DebtServiceName + "/SendReminder"
	DebtServiceGetGroupBalancesProcedure = "/" + DebtServiceName + "/GetGroupBalances"
)

type CreateDebtRequest struct {
	GroupID    string     `json:"groupId"`
	BillID     string     `json:"billId"`
	FromUserID string     `json:"fromUserId"`
	ToUserID   string     `json:"toUserId"`
	Amount     float64    `json:"amount"`
	DueDate    *Timestamp `json:"dueDate,omitempty"`
	Note       string     `json:"note,omitempty"`
}

type CreateDebtResponse struct {
	Debt *models.Debt `json:"debt"`
}

type SettleDebtRequest struct {
	DebtID string     `json:"debtId"`
	Amount float64    `json:"amount"`
	Method string     `json:"method,omitempty"`
	Date   *Timestamp `json:"date,omitempty"`
	Notes  string     `json:"notes,omitempty"`
}

type SettleDebtResponse struct {
	Debt       *models.Debt       `json:"debt"`
	Settlement *models.Settlement `json:"settlement"`
}

type GetDebtHistoryRequest struct {
	DebtID string `json:"debtId"`
}

type GetDebtHistoryResponse struct {
	DebtID          string              `json:"debtId"`
	Amount          float64             `json:"amount"`
	RemainingAmount float64             `json:"remainingAmount"`
	Status          models.DebtStatus   `json:"status"`
	Settlements     []models.Settlement `json:"settlements"`
}

// GetGroupDebtsRequest lists a group's debts, optionally those of one user.
type GetGroupDebtsRequest struct {
	GroupID string            `json:"groupId"`
	UserID  string            `json:"userId,omitempty"`
	Status  models.DebtStatus `json:"status,omitempty"`
	Page    int               `json:"page,omitempty"`
	Limit   int               `json:"limit,omitempty"`
}

type GetGroupDebtsResponse struct {
	Debts      []*models.Debt   `json:"debts"`
	Pagination storage.PageInfo `json:"pagination"`
}

// GetMyDebtsRequest lists the caller's debts. Role is "debtor", "creditor"
// or empty for both.
type GetMyDebtsRequest struct {
	GroupID string            `json:"groupId,omitempty"`
	Role    string            `json:"role,omitempty"`
	Status  models.DebtStatus `json:"status,omitempty"`
	Page    int               `json:"page,omitempty"`
	Limit   int               `json:"limit,omitempty"`
}

type GetMyDebtsResponse struct {
	Debts      []*models.Debt   `json:"debts"`
	Pagination storage.PageInfo `json:"pagination"`
}

type DisputeDebtRequest struct {
	DebtID string `json:"debtId"`
}

type DisputeDebtResponse struct {
	Debt *models.Debt `json:"debt"`
}

type SendReminderRequest struct {
	DebtID string `json:"debtId"`
}

type SendReminderResponse struct {
	Debt *models.Debt `json:"debt"`
}

type GetGroupBalancesRequest struct {
	GroupID string `json:"groupId"`
}

type GetGroupBalancesResponse struct {
	GroupID  string                     `json:"groupId"`
	Balances []calculator.MemberBalance `json:"balances"`
	Edges    []calculator.DebtEdge      `json:"edges"`
}

// DebtServiceHandler is implemented by the server.
type DebtServiceHandler interface {
	CreateDebt(context.Context, *connect.Request[CreateDebtRequest]) (*connect.Response[CreateDebtResponse], error)
	SettleDebt(context.Context, *connect.Request[SettleDebtRequest]) (*connect.Response[SettleDebtResponse], error)
	GetDebtHistory(context.Context, *connect.Request[GetDebtHistoryRequest]) (*connect.Response[GetDebtHistoryResponse], error)
	GetGroupDebts(context.Context, *connect.Request[GetGroupDebtsRequest]) (*connect.Response[GetGroupDebtsResponse], error)
	GetMyDebts(context.Context, *connect.Request[GetMyDebtsRequest]) (*connect.Response[GetMyDebtsResponse], error)
	DisputeDebt(context.Context, *connect.Request[DisputeDebtRequest]) (*connect.Response[DisputeDebtResponse], error)
	SendReminder(context.Context, *connect.Request[SendReminderRequest]) (*connect.Response[SendReminderResponse], error)
	GetGroupBalances(context.Context, *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error)
}

// NewDebtServiceHandler returns the mount path and handler of svc.
func NewDebtServiceHandler(svc DebtServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	return route(servicePath("DebtService"), map[string]http.Handler{
		DebtServiceCreateDebtProcedure:       unary(DebtServiceCreateDebtProcedure, svc.CreateDebt, opts),
		DebtServiceSettleDebtProcedure:       unary(DebtServiceSettleDebtProcedure, svc.SettleDebt, opts),
		DebtServiceGetDebtHistoryProcedure:   unary(DebtServiceGetDebtHistoryProcedure, svc.GetDebtHistory, opts),
		DebtServiceGetGroupDebtsProcedure:    unary(DebtServiceGetGroupDebtsProcedure, svc.GetGroupDebts, opts),
		DebtServiceGetMyDebtsProcedure:       unary(DebtServiceGetMyDebtsProcedure, svc.GetMyDebts, opts),
		DebtServiceDisputeDebtProcedure:      unary(DebtServiceDisputeDebtProcedure, svc.DisputeDebt, opts),
		DebtServiceSendReminderProcedure:     unary(DebtServiceSendReminderProcedure, svc.SendReminder, opts),
		DebtServiceGetGroupBalancesProcedure: unary(DebtServiceGetGroupBalancesProcedure, svc.GetGroupBalances, opts),
	})
}

// DebtServiceClient calls a remote DebtService.
type DebtServiceClient interface {
	DebtServiceHandler
}

// NewDebtServiceClient creates a client for the service at baseURL.
func NewDebtServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) DebtServiceClient {
	return &debtServiceClient{
		createDebt:       newClient[CreateDebtRequest, CreateDebtResponse](httpClient, baseURL, DebtServiceCreateDebtProcedure, opts),
		settleDebt:       newClient[SettleDebtRequest, SettleDebtResponse](httpClient, baseURL, DebtServiceSettleDebtProcedure, opts),
		getDebtHistory:   newClient[GetDebtHistoryRequest, GetDebtHistoryResponse](httpClient, baseURL, DebtServiceGetDebtHistoryProcedure, opts),
		getGroupDebts:    newClient[GetGroupDebtsRequest, GetGroupDebtsResponse](httpClient, baseURL, DebtServiceGetGroupDebtsProcedure, opts),
		getMyDebts:       newClient[GetMyDebtsRequest, GetMyDebtsResponse](httpClient, baseURL, DebtServiceGetMyDebtsProcedure, opts),
		disputeDebt:      newClient[DisputeDebtRequest, DisputeDebtResponse](httpClient, baseURL, DebtServiceDisputeDebtProcedure, opts),
		sendReminder:     newClient[SendReminderRequest, SendReminderResponse](httpClient, baseURL, DebtServiceSendReminderProcedure, opts),
		getGroupBalances: newClient[GetGroupBalancesRequest, GetGroupBalancesResponse](httpClient, baseURL, DebtServiceGetGroupBalancesProcedure, opts),
	}
}

type debtServiceClient struct {
	createDebt       *connect.Client[CreateDebtRequest, CreateDebtResponse]
	settleDebt       *connect.Client[SettleDebtRequest, SettleDebtResponse]
	getDebtHistory   *connect.Client[GetDebtHistoryRequest, GetDebtHistoryResponse]
	getGroupDebts    *connect.Client[GetGroupDebtsRequest, GetGroupDebtsResponse]
	getMyDebts       *connect.Client[GetMyDebtsRequest, GetMyDebtsResponse]
	disputeDebt      *connect.Client[DisputeDebtRequest, DisputeDebtResponse]
	sendReminder     *connect.Client[SendReminderRequest, SendReminderResponse]
	getGroupBalances *connect.Client[GetGroupBalancesRequest, GetGroupBalancesResponse]
}

func (c *debtServiceClient) CreateDebt(ctx context.Context, req *connect.Request[CreateDebtRequest]) (*connect.Response[CreateDebtResponse], error) {
	return c.createDebt.CallUnary(ctx, req)
}

func (c *debtServiceClient) SettleDebt(ctx context.Context, req *connect.Request[SettleDebtRequest]) (*connect.Response[SettleDebtResponse], error) {
	return c.settleDebt.CallUnary(ctx, req)
}

func (c *debtServiceClient) GetDebtHistory(ctx context.Context, req *connect.Request[GetDebtHistoryRequest]) (*connect.Response[GetDebtHistoryResponse], error) {
	return c.getDebtHistory.CallUnary(ctx, req)
}

func (c *debtServiceClient) GetGroupDebts(ctx context.Context, req *connect.Request[GetGroupDebtsRequest]) (*connect.Response[GetGroupDebtsResponse], error) {
	return c.getGroupDebts.CallUnary(ctx, req)
}

func (c *debtServiceClient) GetMyDebts(ctx context.Context, req *connect.Request[GetMyDebtsRequest]) (*connect.Response[GetMyDebtsResponse], error) {
	return c.getMyDebts.CallUnary(ctx, req)
}

func (c *debtServiceClient) DisputeDebt(ctx context.Context, req *connect.Request[DisputeDebtRequest]) (*connect.Response[DisputeDebtResponse], error) {
	return c.disputeDebt.CallUnary(ctx, req)
}

func (c *debtServiceClient) SendReminder(ctx context.Context, req *connect.Request[SendReminderRequest]) (*connect.Response[SendReminderResponse], error) {
	return c.sendReminder.CallUnary(ctx, req)
}

func (c *debtServiceClient) GetGroupBalances(ctx context.Context, req *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error) {
	return c.getGroupBalances.CallUnary(ctx, req)
}
