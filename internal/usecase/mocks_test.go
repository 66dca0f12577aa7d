package usecase

import (
	"context"

	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"
	"github.com/jedmamosto/tupv-project-sub000/internal/navigation"
	"github.com/jedmamosto/tupv-project-sub000/internal/payment"
	repo "github.com/jedmamosto/tupv-project-sub000/internal/repository"

	"github.com/stretchr/testify/mock"
)

// =====================
// Repository mocks
// =====================

type MockUserRepository struct{ mock.Mock }

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, userID string) (*model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) IncrementTokenVersion(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type MockShopRepository struct{ mock.Mock }

func (m *MockShopRepository) List(ctx context.Context) ([]model.Shop, error) {
	args := m.Called(ctx)
	shops, _ := args.Get(0).([]model.Shop)
	return shops, args.Error(1)
}

func (m *MockShopRepository) FindByID(ctx context.Context, shopID string) (model.Shop, error) {
	args := m.Called(ctx, shopID)
	s, _ := args.Get(0).(model.Shop)
	return s, args.Error(1)
}

func (m *MockShopRepository) FindByOwner(ctx context.Context, ownerID string) (model.Shop, error) {
	args := m.Called(ctx, ownerID)
	s, _ := args.Get(0).(model.Shop)
	return s, args.Error(1)
}

func (m *MockShopRepository) Create(ctx context.Context, shop model.Shop) (model.Shop, error) {
	args := m.Called(ctx, shop)
	s, _ := args.Get(0).(model.Shop)
	return s, args.Error(1)
}

func (m *MockShopRepository) Update(ctx context.Context, shop model.Shop) error {
	args := m.Called(ctx, shop)
	return args.Error(0)
}

type MockOrderRepository struct{ mock.Mock }

func (m *MockOrderRepository) Create(ctx context.Context, order model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) FindByID(ctx context.Context, orderID string) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *MockOrderRepository) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	args := m.Called(ctx, userID)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Error(1)
}

func (m *MockOrderRepository) ListByShop(ctx context.Context, f repo.ShopOrderFilter) ([]model.Order, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) (model.Order, error) {
	args := m.Called(ctx, orderID, status)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

type MockAuditLogRepository struct{ mock.Mock }

func (m *MockAuditLogRepository) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockAuditLogRepository) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, f)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Error(1)
}

// =====================
// Validator / session / gateway mocks
// =====================

type MockAuthValidator struct{ mock.Mock }

func (m *MockAuthValidator) ValidateSignup(ctx context.Context, req *SignupRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockAuthValidator) ValidateLogin(ctx context.Context, req LoginRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

type MockInventoryValidator struct{ mock.Mock }

func (m *MockInventoryValidator) ValidateMenuItem(req *MenuItemRequest) error {
	args := m.Called(req)
	return args.Error(0)
}

func (m *MockInventoryValidator) ValidateShopProfile(req *ShopProfileRequest) error {
	args := m.Called(req)
	return args.Error(0)
}

type MockSessions struct{ mock.Mock }

func (m *MockSessions) Start(ctx context.Context, u *model.User) {
	m.Called(ctx, u)
}

func (m *MockSessions) End(ctx context.Context, userID string) {
	m.Called(ctx, userID)
}

func (m *MockSessions) Subscribe(userID string, fn func(navigation.State)) func() {
	args := m.Called(userID, fn)
	unsubscribe, _ := args.Get(0).(func())
	return unsubscribe
}

type MockGateway struct{ mock.Mock }

func (m *MockGateway) CreateCheckoutSession(ctx context.Context, secretKey string, req payment.CheckoutRequest) (payment.CheckoutSession, error) {
	args := m.Called(ctx, secretKey, req)
	s, _ := args.Get(0).(payment.CheckoutSession)
	return s, args.Error(1)
}

func (m *MockGateway) GetCheckoutSession(ctx context.Context, secretKey, sessionID string) (payment.CheckoutSession, error) {
	args := m.Called(ctx, secretKey, sessionID)
	s, _ := args.Get(0).(payment.CheckoutSession)
	return s, args.Error(1)
}

// HTTPErrorのステータスを取り出す（HTTPErrorでなければ0）
func statusOf(err error) int {
	if he, ok := AsHTTPError(err); ok {
		return he.Status
	}
	return 0
}
