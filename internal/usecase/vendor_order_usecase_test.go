package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"
	"github.com/jedmamosto/tupv-project-sub000/internal/events"
	"github.com/jedmamosto/tupv-project-sub000/internal/logger"
	repo "github.com/jedmamosto/tupv-project-sub000/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type vendorFixture struct {
	shops  *MockShopRepository
	orders *MockOrderRepository
	audit  *MockAuditLogRepository
	events *events.Recorder
	uc     *VendorOrderUsecase
}

func newVendorFixture() vendorFixture {
	f := vendorFixture{
		shops:  new(MockShopRepository),
		orders: new(MockOrderRepository),
		audit:  new(MockAuditLogRepository),
		events: &events.Recorder{},
	}
	f.uc = NewVendorOrderUsecase(f.shops, f.orders, f.audit, f.events, logger.Discard())
	return f
}

func TestAllowedActions(t *testing.T) {
	assert.Empty(t, AllowedActions(model.OrderStatusCompleted))
	assert.Empty(t, AllowedActions(model.OrderStatusCancelled))

	pending := AllowedActions(model.OrderStatusPending)
	require.Len(t, pending, 2)
	assert.Equal(t, model.OrderStatusProcessing, pending[0].Status)
	assert.Equal(t, "Start preparing", pending[0].Label)
	assert.Equal(t, model.OrderStatusCancelled, pending[1].Status)

	processing := AllowedActions(model.OrderStatusProcessing)
	require.Len(t, processing, 2)
	assert.Equal(t, model.OrderStatusCompleted, processing[0].Status)
}

func TestVendorUpdateStatus_Success(t *testing.T) {
	f := newVendorFixture()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	f.shops.On("FindByOwner", ctx, "v1").Return(model.Shop{ID: "s1", OwnerID: "v1"}, nil)
	f.orders.On("FindByID", ctx, "ORD-1").Return(model.Order{ID: "ORD-1", ShopID: "s1", UserID: "u1", Status: model.OrderStatusPending}, nil)
	f.orders.On("UpdateStatus", ctx, "ORD-1", model.OrderStatusProcessing).
		Return(model.Order{ID: "ORD-1", ShopID: "s1", UserID: "u1", Status: model.OrderStatusProcessing, UpdatedAt: now}, nil)
	f.audit.On("Create", ctx, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.ActorUserID == "v1" &&
			l.Action == model.AuditActionUpdateOrderStatus &&
			l.ResourceType == model.AuditResourceOrder &&
			l.ResourceID == "ORD-1" &&
			strings.Contains(l.BeforeJSON, `"pending"`) &&
			strings.Contains(l.AfterJSON, `"processing"`)
	})).Return(nil)

	out, err := f.uc.UpdateStatus(ctx, "v1", "ORD-1", UpdateOrderStatusRequest{Status: "processing"})

	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusProcessing, out.Status)
	require.Len(t, out.Actions, 2)
	assert.Equal(t, model.OrderStatusCompleted, out.Actions[0].Status)
	f.audit.AssertExpectations(t)

	evs := f.events.All()
	require.Len(t, evs, 1)
	assert.Equal(t, events.RoutingKeyStatusChanged, evs[0].RoutingKey)
	assert.Equal(t, model.OrderStatusPending, evs[0].Event.OldStatus)
	assert.Equal(t, model.OrderStatusProcessing, evs[0].Event.NewStatus)
	assert.Equal(t, "v1", evs[0].Event.ChangedBy)
	assert.Equal(t, now, evs[0].Event.OccurredAt)
}

func TestVendorUpdateStatus_IllegalTransitionIsConflict(t *testing.T) {
	f := newVendorFixture()
	ctx := context.Background()

	f.shops.On("FindByOwner", ctx, "v1").Return(model.Shop{ID: "s1"}, nil)
	f.orders.On("FindByID", ctx, "ORD-1").Return(model.Order{ID: "ORD-1", ShopID: "s1", Status: model.OrderStatusCompleted}, nil)
	f.orders.On("UpdateStatus", ctx, "ORD-1", model.OrderStatusPending).
		Return(model.Order{}, fmt.Errorf("%w: completed -> pending", model.ErrIllegalTransition))

	_, err := f.uc.UpdateStatus(ctx, "v1", "ORD-1", UpdateOrderStatusRequest{Status: "pending"})

	assert.Equal(t, http.StatusConflict, statusOf(err))
	assert.True(t, errors.Is(err, model.ErrIllegalTransition))
	f.audit.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Empty(t, f.events.All())
}

func TestVendorUpdateStatus_OtherShopIsNotFound(t *testing.T) {
	f := newVendorFixture()
	ctx := context.Background()

	f.shops.On("FindByOwner", ctx, "v1").Return(model.Shop{ID: "s1"}, nil)
	f.orders.On("FindByID", ctx, "ORD-9").Return(model.Order{ID: "ORD-9", ShopID: "s2", Status: model.OrderStatusPending}, nil)

	_, err := f.uc.UpdateStatus(ctx, "v1", "ORD-9", UpdateOrderStatusRequest{Status: "processing"})

	assert.Equal(t, http.StatusNotFound, statusOf(err))
	f.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestVendorUpdateStatus_InvalidStatus(t *testing.T) {
	f := newVendorFixture()

	_, err := f.uc.UpdateStatus(context.Background(), "v1", "ORD-1", UpdateOrderStatusRequest{Status: "shipped"})

	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
	assert.Contains(t, he.Fields, "status")
}

func TestVendorUpdateStatus_AuditFailureDoesNotFailUpdate(t *testing.T) {
	f := newVendorFixture()
	ctx := context.Background()

	f.shops.On("FindByOwner", ctx, "v1").Return(model.Shop{ID: "s1"}, nil)
	f.orders.On("FindByID", ctx, "ORD-1").Return(model.Order{ID: "ORD-1", ShopID: "s1", Status: model.OrderStatusProcessing}, nil)
	f.orders.On("UpdateStatus", ctx, "ORD-1", model.OrderStatusCompleted).
		Return(model.Order{ID: "ORD-1", ShopID: "s1", Status: model.OrderStatusCompleted}, nil)
	f.audit.On("Create", ctx, mock.Anything).Return(errors.New("db down"))

	out, err := f.uc.UpdateStatus(ctx, "v1", "ORD-1", UpdateOrderStatusRequest{Status: "completed"})
	require.NoError(t, err)
	assert.Empty(t, out.Actions)
}

func TestVendorListOrders_FilterAndShopLookupFailure(t *testing.T) {
	t.Run("filters by status", func(t *testing.T) {
		f := newVendorFixture()
		ctx := context.Background()
		f.shops.On("FindByOwner", ctx, "v1").Return(model.Shop{ID: "s1"}, nil)
		f.orders.On("ListByShop", ctx, repo.ShopOrderFilter{ShopID: "s1", Status: model.OrderStatusPending}).
			Return([]model.Order{{ID: "ORD-1", Status: model.OrderStatusPending}}, nil)

		outs, err := f.uc.ListOrders(ctx, "v1", "pending")
		require.NoError(t, err)
		require.Len(t, outs, 1)
		assert.Len(t, outs[0].Actions, 2)
	})

	t.Run("invalid status", func(t *testing.T) {
		f := newVendorFixture()
		_, err := f.uc.ListOrders(context.Background(), "v1", "nope")
		assert.Equal(t, http.StatusBadRequest, statusOf(err))
	})

	t.Run("shop lookup failure is surfaced", func(t *testing.T) {
		f := newVendorFixture()
		ctx := context.Background()
		f.shops.On("FindByOwner", ctx, "v1").Return(model.Shop{}, errors.New("connection refused"))

		outs, err := f.uc.ListOrders(ctx, "v1", "")
		assert.Nil(t, outs)
		he, ok := AsHTTPError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusInternalServerError, he.Status)
		assert.Equal(t, "failed to load shop", he.Message)
	})
}

func TestVendorOrderHistory(t *testing.T) {
	f := newVendorFixture()
	ctx := context.Background()
	f.shops.On("FindByOwner", ctx, "v1").Return(model.Shop{ID: "s1"}, nil)
	f.orders.On("FindByID", ctx, "ORD-1").Return(model.Order{ID: "ORD-1", ShopID: "s1"}, nil)
	f.audit.On("List", ctx, repo.AuditLogFilter{
		Action:       model.AuditActionUpdateOrderStatus,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   "ORD-1",
	}).Return(nil, nil)

	logs, err := f.uc.OrderHistory(ctx, "v1", "ORD-1")
	require.NoError(t, err)
	assert.NotNil(t, logs)
	assert.Empty(t, logs)
}

func TestDashboard(t *testing.T) {
	f := newVendorFixture()
	ctx := context.Background()
	f.shops.On("FindByOwner", ctx, "v1").Return(model.Shop{
		ID: "s1", Name: "Kusina",
		MenuItems: []model.MenuItem{{ID: "m1", Available: true}, {ID: "m2"}},
	}, nil)

	orders := []model.Order{
		{ID: "o1", Status: model.OrderStatusCompleted, Total: decimal.RequireFromString("124.00")},
		{ID: "o2", Status: model.OrderStatusCompleted, Total: decimal.RequireFromString("85.50")},
		{ID: "o3", Status: model.OrderStatusPending, Total: decimal.NewFromInt(40)},
		{ID: "o4", Status: model.OrderStatusCancelled, Total: decimal.NewFromInt(99)},
		{ID: "o5", Status: model.OrderStatusProcessing, Total: decimal.NewFromInt(10)},
		{ID: "o6", Status: model.OrderStatusPending, Total: decimal.NewFromInt(10)},
	}
	f.orders.On("ListByShop", ctx, repo.ShopOrderFilter{ShopID: "s1"}).Return(orders, nil)

	out, err := f.uc.Dashboard(ctx, "v1")
	require.NoError(t, err)

	assert.Equal(t, 6, out.TotalOrders)
	assert.Equal(t, 2, out.Counts[model.OrderStatusCompleted])
	assert.Equal(t, 2, out.Counts[model.OrderStatusPending])
	assert.Equal(t, 1, out.Counts[model.OrderStatusCancelled])
	assert.Equal(t, "209.50", out.Revenue.StringFixed(2))
	assert.Equal(t, 2, out.MenuItems)
	assert.Equal(t, 1, out.Available)
	require.Len(t, out.RecentOrders, recentOrdersLimit)
	assert.Equal(t, "o1", out.RecentOrders[0].ID)
}
