package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// BillServiceName is the fully-qualified name of the BillService service.
const BillServiceName = packageName + ".BillService"

const (
	BillServiceCreateBillProcedure     = "/" + BillServiceName + "/CreateBill"
	BillServiceGetBillProcedure        = "/" + BillServiceName + "/GetBill"
	BillServiceUpdateBillProcedure     = "/" + BillServiceName + "/UpdateBill"
	BillServiceDeleteBillProcedure     = "/" + BillServiceName + "/DeleteBill"
	BillServiceCancelBillProcedure     = "/" + BillServiceName + "/CancelBill"
	BillServiceListGroupBillsProcedure = "/" + BillServiceName + "/ListGroupBills"
	BillServiceAddPaymentProcedure     = "/" + BillServiceName + "/AddPayment"
	BillServiceUpdatePaymentProcedure  = "/" + BillServiceName + "/UpdatePayment"
	BillServiceDeletePaymentProcedure  = "/" + BillServiceName + "/DeletePayment"
	BillServicePreviewSplitProcedure   = "/" + BillServiceName + "/PreviewSplit"
)

type CreateBillRequest struct {
	GroupID      string               `json:"groupId"`
	Title        string               `json:"title,omitempty"`
	Amount       float64              `json:"amount"`
	Currency     string               `json:"currency,omitempty"`
	Category     string               `json:"category,omitempty"`
	SplitMethod  models.SplitMethod   `json:"splitMethod,omitempty"`
	PayerID      string               `json:"payerId,omitempty"`
	Participants []models.Participant `json:"participants"`
}

type CreateBillResponse struct {
	Bill *models.Bill `json:"bill"`
}

type GetBillRequest struct {
	BillID string `json:"billId"`
}

type GetBillResponse struct {
	Bill *models.Bill `json:"bill"`
}

// UpdateBillRequest changes only the fields that are set. Participants
// replaces the participant list when present.
type UpdateBillRequest struct {
	BillID       string               `json:"billId"`
	Title        *string              `json:"title,omitempty"`
	Amount       *float64             `json:"amount,omitempty"`
	Currency     *string              `json:"currency,omitempty"`
	Category     *string              `json:"category,omitempty"`
	SplitMethod  *models.SplitMethod  `json:"splitMethod,omitempty"`
	PayerID      *string              `json:"payerId,omitempty"`
	Participants []models.Participant `json:"participants,omitempty"`
}

type UpdateBillResponse struct {
	Bill *models.Bill `json:"bill"`
}

type DeleteBillRequest struct {
	BillID string `json:"billId"`
}

type DeleteBillResponse struct{}

type CancelBillRequest struct {
	BillID string `json:"billId"`
}

type CancelBillResponse struct {
	Bill *models.Bill `json:"bill"`
}

// ListGroupBillsRequest pages through a group's bills. Zero Page and Limit
// select the defaults.
type ListGroupBillsRequest struct {
	GroupID string            `json:"groupId"`
	Status  models.BillStatus `json:"status,omitempty"`
	Page    int               `json:"page,omitempty"`
	Limit   int               `json:"limit,omitempty"`
}

type ListGroupBillsResponse struct {
	Bills      []*models.Bill   `json:"bills"`
	Pagination storage.PageInfo `json:"pagination"`
}

// AddPaymentRequest records a payment. PayerID defaults to the caller and
// PayeeID to the bill payer.
type AddPaymentRequest struct {
	BillID  string     `json:"billId"`
	Amount  float64    `json:"amount"`
	PayerID string     `json:"payerId,omitempty"`
	PayeeID string     `json:"payeeId,omitempty"`
	Date    *Timestamp `json:"date,omitempty"`
	Method  string     `json:"method,omitempty"`
	Notes   string     `json:"notes,omitempty"`
}

type AddPaymentResponse struct {
	Bill    *models.Bill        `json:"bill"`
	Payment *models.BillPayment `json:"payment"`
}

type UpdatePaymentRequest struct {
	BillID    string     `json:"billId"`
	PaymentID string     `json:"paymentId"`
	Amount    *float64   `json:"amount,omitempty"`
	Date      *Timestamp `json:"date,omitempty"`
	Method    *string    `json:"method,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
}

type UpdatePaymentResponse struct {
	Bill *models.Bill `json:"bill"`
}

type DeletePaymentRequest struct {
	BillID    string `json:"billId"`
	PaymentID string `json:"paymentId"`
}

type DeletePaymentResponse struct {
	Bill *models.Bill `json:"bill"`
}

// PreviewSplitRequest computes shares without saving a bill.
type PreviewSplitRequest struct {
	Amount       float64              `json:"amount"`
	SplitMethod  models.SplitMethod   `json:"splitMethod,omitempty"`
	Participants []models.Participant `json:"participants"`
}

type PreviewSplitResponse struct {
	Participants []models.Participant `json:"participants"`
}

// BillServiceHandler is implemented by the server.
type BillServiceHandler interface {
	CreateBill(context.Context, *connect.Request[CreateBillRequest]) (*connect.Response[CreateBillResponse], error)
	GetBill(context.Context, *connect.Request[GetBillRequest]) (*connect.Response[GetBillResponse], error)
	UpdateBill(context.Context, *connect.Request[UpdateBillRequest]) (*connect.Response[UpdateBillResponse], error)
	DeleteBill(context.Context, *connect.Request[DeleteBillRequest]) (*connect.Response[DeleteBillResponse], error)
	CancelBill(context.Context, *connect.Request[CancelBillRequest]) (*connect.Response[CancelBillResponse], error)
	ListGroupBills(context.Context, *connect.Request[ListGroupBillsRequest]) (*connect.Response[ListGroupBillsResponse], error)
	AddPayment(context.Context, *connect.Request[AddPaymentRequest]) (*connect.Response[AddPaymentResponse], error)
	UpdatePayment(context.Context, *connect.Request[UpdatePaymentRequest]) (*connect.Response[UpdatePaymentResponse], error)
	DeletePayment(context.Context, *connect.Request[DeletePaymentRequest]) (*connect.Response[DeletePaymentResponse], error)
	PreviewSplit(context.Context, *connect.Request[PreviewSplitRequest]) (*connect.Response[PreviewSplitResponse], error)
}

// NewBillServiceHandler returns the mount path and handler of svc.
func NewBillServiceHandler(svc BillServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	return route(servicePath("BillService"), map[string]http.Handler{
		BillServiceCreateBillProcedure:     unary(BillServiceCreateBillProcedure, svc.CreateBill, opts),
		BillServiceGetBillProcedure:        unary(BillServiceGetBillProcedure, svc.GetBill, opts),
		BillServiceUpdateBillProcedure:     unary(BillServiceUpdateBillProcedure, svc.UpdateBill, opts),
		BillServiceDeleteBillProcedure:     unary(BillServiceDeleteBillProcedure, svc.DeleteBill, opts),
		BillServiceCancelBillProcedure:     unary(BillServiceCancelBillProcedure, svc.CancelBill, opts),
		BillServiceListGroupBillsProcedure: unary(BillServiceListGroupBillsProcedure, svc.ListGroupBills, opts),
		BillServiceAddPaymentProcedure:     unary(BillServiceAddPaymentProcedure, svc.AddPayment, opts),
		BillServiceUpdatePaymentProcedure:  unary(BillServiceUpdatePaymentProcedure, svc.UpdatePayment, opts),
		BillServiceDeletePaymentProcedure:  unary(BillServiceDeletePaymentProcedure, svc.DeletePayment, opts),
		BillServicePreviewSplitProcedure:   unary(BillServicePreviewSplitProcedure, svc.PreviewSplit, opts),
	})
}

// BillServiceClient calls a remote BillService.
type BillServiceClient interface {
	BillServiceHandler
}

// NewBillServiceClient creates a client for the service at baseURL.
func NewBillServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) BillServiceClient {
	return &billServiceClient{
		createBill:     newClient[CreateBillRequest, CreateBillResponse](httpClient, baseURL, BillServiceCreateBillProcedure, opts),
		getBill:        newClient[GetBillRequest, GetBillResponse](httpClient, baseURL, BillServiceGetBillProcedure, opts),
		updateBill:     newClient[UpdateBillRequest, UpdateBillResponse](httpClient, baseURL, BillServiceUpdateBillProcedure, opts),
		deleteBill:     newClient[DeleteBillRequest, DeleteBillResponse](httpClient, baseURL, BillServiceDeleteBillProcedure, opts),
		cancelBill:     newClient[CancelBillRequest, CancelBillResponse](httpClient, baseURL, BillServiceCancelBillProcedure, opts),
		listGroupBills: newClient[ListGroupBillsRequest, ListGroupBillsResponse](httpClient, baseURL, BillServiceListGroupBillsProcedure, opts),
		addPayment:     newClient[AddPaymentRequest, AddPaymentResponse](httpClient, baseURL, BillServiceAddPaymentProcedure, opts),
		updatePayment:  newClient[UpdatePaymentRequest, UpdatePaymentResponse](httpClient, baseURL, BillServiceUpdatePaymentProcedure, opts),
		deletePayment:  newClient[DeletePaymentRequest, DeletePaymentResponse](httpClient, baseURL, BillServiceDeletePaymentProcedure, opts),
		previewSplit:   newClient[PreviewSplitRequest, PreviewSplitResponse](httpClient, baseURL, BillServicePreviewSplitProcedure, opts),
	}
}

type billServiceClient struct {
	createBill     *connect.Client[CreateBillRequest, CreateBillResponse]
	getBill        *connect.Client[GetBillRequest, GetBillResponse]
	updateBill     *connect.Client[UpdateBillRequest, UpdateBillResponse]
	deleteBill     *connect.Client[DeleteBillRequest, DeleteBillResponse]
	cancelBill     *connect.Client[CancelBillRequest, CancelBillResponse]
	listGroupBills *connect.Client[ListGroupBillsRequest, ListGroupBillsResponse]
	addPayment     *connect.Client[AddPaymentRequest, AddPaymentResponse]
	updatePayment  *connect.Client[UpdatePaymentRequest, UpdatePaymentResponse]
	deletePayment  *connect.Client[DeletePaymentRequest, DeletePaymentResponse]
	previewSplit   *connect.Client[PreviewSplitRequest, PreviewSplitResponse]
}

func (c *billServiceClient) CreateBill(ctx context.Context, req *connect.Request[CreateBillRequest]) (*connect.Response[CreateBillResponse], error) {
	return c.createBill.CallUnary(ctx, req)
}

func (c *billServiceClient) GetBill(ctx context.Context, req *connect.Request[GetBillRequest]) (*connect.Response[GetBillResponse], error) {
	return c.getBill.CallUnary(ctx, req)
}

func (c *billServiceClient) UpdateBill(ctx context.Context, req *connect.Request[UpdateBillRequest]) (*connect.Response[UpdateBillResponse], error) {
	return c.updateBill.CallUnary(ctx, req)
}

func (c *billServiceClient) DeleteBill(ctx context.Context, req *connect.Request[DeleteBillRequest]) (*connect.Response[DeleteBillResponse], error) {
	return c.deleteBill.CallUnary(ctx, req)
}

func (c *billServiceClient) CancelBill(ctx context.Context, req *connect.Request[CancelBillRequest]) (*connect.Response[CancelBillResponse], error) {
	return c.cancelBill.CallUnary(ctx, req)
}

func (c *billServiceClient) ListGroupBills(ctx context.Context, req *connect.Request[ListGroupBillsRequest]) (*connect.Response[ListGroupBillsResponse], error) {
	return c.listGroupBills.CallUnary(ctx, req)
}

func (c *billServiceClient) AddPayment(ctx context.Context, req *connect.Request[AddPaymentRequest]) (*connect.Response[AddPaymentResponse], error) {
	return c.addPayment.CallUnary(ctx, req)
}

func (c *billServiceClient) UpdatePayment(ctx context.Context, req *connect.Request[UpdatePaymentRequest]) (*connect.Response[UpdatePaymentResponse], error) {
	return c.updatePayment.CallUnary(ctx, req)
}

func (c *billServiceClient) DeletePayment(ctx context.Context, req *connect.Request[DeletePaymentRequest]) (*connect.Response[DeletePaymentResponse], error) {
	return c.deletePayment.CallUnary(ctx, req)
}

func (c *billServiceClient) PreviewSplit(ctx context.Context, req *connect.Request[PreviewSplitRequest]) (*connect.Response[PreviewSplitResponse], error) {
	return c.previewSplit.CallUnary(ctx, req)
}
