package service

import (
	"context"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/analytics"
	"github.com/mmynk/splitledger/internal/api"
	"github.com/mmynk/splitledger/internal/ledger"
)

// AnalyticsService serves the caller's own rollups. A group filter requires
// membership of that group.
type AnalyticsService struct {
	aggregator *analytics.Aggregator
	guard      *ledger.Guard
	now        func() time.Time
}

var _ api.AnalyticsServiceHandler = (*AnalyticsService)(nil)

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(aggregator *analytics.Aggregator, guard *ledger.Guard) *AnalyticsService {
	return &AnalyticsService{
		aggregator: aggregator,
		guard:      guard,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *AnalyticsService) GetOverview(ctx context.Context, req *connect.Request[api.GetOverviewRequest]) (*connect.Response[api.GetOverviewResponse], error) {
	userID, err := s.reader(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(ctx, "GetOverview", err)
	}

	overview, err := s.aggregator.Overview(ctx, userID, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(ctx, "GetOverview", err)
	}
	return connect.NewResponse(&api.GetOverviewResponse{Overview: overview}), nil
}

func (s *AnalyticsService) GetMonthly(ctx context.Context, req *connect.Request[api.GetMonthlyRequest]) (*connect.Response[api.GetMonthlyResponse], error) {
	userID, err := s.reader(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(ctx, "GetMonthly", err)
	}

	year := req.Msg.Year
	if year == 0 {
		year = s.now().Year()
	}
	months, err := s.aggregator.Monthly(ctx, userID, req.Msg.GroupID, year)
	if err != nil {
		return nil, toConnectError(ctx, "GetMonthly", err)
	}
	return connect.NewResponse(&api.GetMonthlyResponse{Months: months}), nil
}

func (s *AnalyticsService) GetYearly(ctx context.Context, req *connect.Request[api.GetYearlyRequest]) (*connect.Response[api.GetYearlyResponse], error) {
	userID, err := s.reader(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(ctx, "GetYearly", err)
	}

	years, err := s.aggregator.Yearly(ctx, userID, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(ctx, "GetYearly", err)
	}
	return connect.NewResponse(&api.GetYearlyResponse{Years: years}), nil
}

func (s *AnalyticsService) GetComparison(ctx context.Context, req *connect.Request[api.GetComparisonRequest]) (*connect.Response[api.GetComparisonResponse], error) {
	userID, err := s.reader(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(ctx, "GetComparison", err)
	}

	comparison, err := s.aggregator.Compare(ctx, userID, req.Msg.GroupID, s.now())
	if err != nil {
		return nil, toConnectError(ctx, "GetComparison", err)
	}
	return connect.NewResponse(&api.GetComparisonResponse{Comparison: comparison}), nil
}

func (s *AnalyticsService) reader(ctx context.Context, groupID string) (string, error) {
	userID, err := actor(ctx)
	if err != nil {
		return "", err
	}
	if groupID != "" {
		if _, err := s.guard.RequireReader(ctx, groupID, userID); err != nil {
			return "", err
		}
	}
	return userID, nil
}
