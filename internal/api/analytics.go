package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/models"
)

// AnalyticsServiceName is the fully-qualified name of the AnalyticsService service.
const AnalyticsServiceName = packageName + ".AnalyticsService"

const (
	AnalyticsServiceGetOverviewProcedure   = "/" + AnalyticsServiceName + "/GetOverview"
	AnalyticsServiceGetMonthlyProcedure    = "/" + AnalyticsServiceName + "/GetMonthly"
	AnalyticsServiceGetYearlyProcedure     = "/" + AnalyticsServiceName + "/GetYearly"
	AnalyticsServiceGetComparisonProcedure = "/" + AnalyticsServiceName + "/GetComparison"
)

// GetOverviewRequest reads the caller's rollups. An empty GroupID spans all groups.
type GetOverviewRequest struct {
	GroupID string `json:"groupId,omitempty"`
}

type GetOverviewResponse struct {
	Overview *models.AnalyticsOverview `json:"overview"`
}

// GetMonthlyRequest reads one year month by month. Zero Year means the current year.
type GetMonthlyRequest struct {
	GroupID string `json:"groupId,omitempty"`
	Year    int    `json:"year,omitempty"`
}

type GetMonthlyResponse struct {
	Months []models.MonthlyAnalytics `json:"months"`
}

type GetYearlyRequest struct {
	GroupID string `json:"groupId,omitempty"`
}

type GetYearlyResponse struct {
	Years []models.YearlyAnalytics `json:"years"`
}

type GetComparisonRequest struct {
	GroupID string `json:"groupId,omitempty"`
}

type GetComparisonResponse struct {
	Comparison *models.AnalyticsComparison `json:"comparison"`
}

// AnalyticsServiceHandler is implemented by the server.
type AnalyticsServiceHandler interface {
	GetOverview(context.Context, *connect.Request[GetOverviewRequest]) (*connect.Response[GetOverviewResponse], error)
	GetMonthly(context.Context, *connect.Request[GetMonthlyRequest]) (*connect.Response[GetMonthlyResponse], error)
	GetYearly(context.Context, *connect.Request[GetYearlyRequest]) (*connect.Response[GetYearlyResponse], error)
	GetComparison(context.Context, *connect.Request[GetComparisonRequest]) (*connect.Response[GetComparisonResponse], error)
}

// NewAnalyticsServiceHandler returns the mount path and handler of svc.
func NewAnalyticsServiceHandler(svc AnalyticsServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	return route(servicePath("AnalyticsService"), map[string]http.Handler{
		AnalyticsServiceGetOverviewProcedure:   unary(AnalyticsServiceGetOverviewProcedure, svc.GetOverview, opts),
		AnalyticsServiceGetMonthlyProcedure:    unary(AnalyticsServiceGetMonthlyProcedure, svc.GetMonthly, opts),
		AnalyticsServiceGetYearlyProcedure:     unary(AnalyticsServiceGetYearlyProcedure, svc.GetYearly, opts),
		AnalyticsServiceGetComparisonProcedure: unary(AnalyticsServiceGetComparisonProcedure, svc.GetComparison, opts),
	})
}

// AnalyticsServiceClient calls a remote AnalyticsService.
type AnalyticsServiceClient interface {
	AnalyticsServiceHandler
}

// NewAnalyticsServiceClient creates a client for the service at baseURL.
func NewAnalyticsServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) AnalyticsServiceClient {
	return &analyticsServiceClient{
		getOverview:   newClient[GetOverviewRequest, GetOverviewResponse](httpClient, baseURL, AnalyticsServiceGetOverviewProcedure, opts),
		getMonthly:    newClient[GetMonthlyRequest, GetMonthlyResponse](httpClient, baseURL, AnalyticsServiceGetMonthlyProcedure, opts),
		getYearly:     newClient[GetYearlyRequest, GetYearlyResponse](httpClient, baseURL, AnalyticsServiceGetYearlyProcedure, opts),
		getComparison: newClient[GetComparisonRequest, GetComparisonResponse](httpClient, baseURL, AnalyticsServiceGetComparisonProcedure, opts),
	}
}

type analyticsServiceClient struct {
	getOverview   *connect.Client[GetOverviewRequest, GetOverviewResponse]
	getMonthly    *connect.Client[GetMonthlyRequest, GetMonthlyResponse]
	getYearly     *connect.Client[GetYearlyRequest, GetYearlyResponse]
	getComparison *connect.Client[GetComparisonRequest, GetComparisonResponse]
}

func (c *analyticsServiceClient) GetOverview(ctx context.Context, req *connect.Request[GetOverviewRequest]) (*connect.Response[GetOverviewResponse], error) {
	return c.getOverview.CallUnary(ctx, req)
}

func (c *analyticsServiceClient) GetMonthly(ctx context.Context, req *connect.Request[GetMonthlyRequest]) (*connect.Response[GetMonthlyResponse], error) {
	return c.getMonthly.CallUnary(ctx, req)
}

func (c *analyticsServiceClient) GetYearly(ctx context.Context, req *connect.Request[GetYearlyRequest]) (*connect.Response[GetYearlyResponse], error) {
	return c.getYearly.CallUnary(ctx, req)
}

func (c *analyticsServiceClient) GetComparison(ctx context.Context, req *connect.Request[GetComparisonRequest]) (*connect.Response[GetComparisonResponse], error) {
	return c.getComparison.CallUnary(ctx, req)
}
