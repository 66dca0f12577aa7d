package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/jedmamosto/tupv-project-sub000/internal/cache"
	"github.com/jedmamosto/tupv-project-sub000/internal/cart"
	"github.com/jedmamosto/tupv-project-sub000/internal/config"
	"github.com/jedmamosto/tupv-project-sub000/internal/docstore"
	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"
	"github.com/jedmamosto/tupv-project-sub000/internal/events"
	infrarepo "github.com/jedmamosto/tupv-project-sub000/internal/infra/repository"
	"github.com/jedmamosto/tupv-project-sub000/internal/logger"
	"github.com/jedmamosto/tupv-project-sub000/internal/payment"
	"github.com/jedmamosto/tupv-project-sub000/internal/session"
	"github.com/jedmamosto/tupv-project-sub000/internal/usecase"
	"github.com/jedmamosto/tupv-project-sub000/internal/validator"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =====================
// テスト用アプリ
// =====================

type fakeGateway struct {
	mu       sync.Mutex
	keys     []string
	requests []payment.CheckoutRequest
	fail     error
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, secretKey string, req payment.CheckoutRequest) (payment.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail != nil {
		return payment.CheckoutSession{}, g.fail
	}
	g.keys = append(g.keys, secretKey)
	g.requests = append(g.requests, req)
	return payment.CheckoutSession{
		ID:            "cs_" + req.ReferenceNumber,
		CheckoutURL:   "https://checkout.test/" + req.ReferenceNumber,
		Status:        "active",
		PaymentStatus: payment.PaymentStatusUnpaid,
	}, nil
}

func (g *fakeGateway) GetCheckoutSession(_ context.Context, _ string, sessionID string) (payment.CheckoutSession, error) {
	return payment.CheckoutSession{
		ID:            sessionID,
		CheckoutURL:   "https://checkout.test/" + strings.TrimPrefix(sessionID, "cs_"),
		Status:        "active",
		PaymentStatus: payment.PaymentStatusPaid,
	}, nil
}

type testApp struct {
	e         *echo.Echo
	gateway   *fakeGateway
	publisher *events.Recorder
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	cfg := config.Config{JWTSecret: "handler-test-secret", AppBaseURL: "http://canteen.test"}
	log := logger.Discard()

	store := docstore.NewMemoryStore()
	users := infrarepo.NewUserRepository(store)
	shops := infrarepo.NewShopRepository(store)
	orders := infrarepo.NewOrderRepository(store)
	audits := infrarepo.NewAuditLogRepository(store)

	carts := cart.NewRegistry()
	sessions := session.NewManager(users, cache.NopProfileCache{}, carts, log)
	gateway := &fakeGateway{}
	publisher := &events.Recorder{}

	authUC := usecase.NewAuthUsecase(cfg, users, shops, validator.NewAuthValidator(users), sessions, log)
	shopUC := usecase.NewShopUsecase(shops)
	cartUC := usecase.NewCartUsecase(shops, carts)
	orderUC := usecase.NewOrderUsecase(users, shops, orders, carts, gateway, publisher, log, cfg.AppBaseURL)
	vendorUC := usecase.NewVendorOrderUsecase(shops, orders, audits, publisher, log)
	inventoryUC := usecase.NewInventoryUsecase(shops, users, audits, validator.NewInventoryValidator(), log)

	g := Guard{Cfg: cfg, Profiles: sessions, Log: log}
	e := echo.New()
	NewAuthHandler(authUC).RegisterRoutes(e, g)
	NewNavigationHandler().RegisterRoutes(e, g)
	NewShopHandler(shopUC).RegisterRoutes(e, g)
	NewCartHandler(cartUC).RegisterRoutes(e, g)
	NewOrderHandler(orderUC).RegisterRoutes(e, g)
	NewVendorHandler(vendorUC, inventoryUC).RegisterRoutes(e, g)

	return &testApp{e: e, gateway: gateway, publisher: publisher}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (a *testApp) signupCustomer(t *testing.T, email string) usecase.AuthResponse {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/auth/signup", "", usecase.SignupRequest{
		Email: email, Password: "secret123", ConfirmPassword: "secret123",
		DisplayName: "Juan", Role: "customer", StudentID: "tupv-23-0001",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeJSON[usecase.AuthResponse](t, rec)
}

func (a *testApp) signupVendor(t *testing.T, email string) usecase.AuthResponse {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/auth/signup", "", usecase.SignupRequest{
		Email: email, Password: "secret123", ConfirmPassword: "secret123",
		DisplayName: "Nena", Role: "vendor", ShopName: "Kusina ni Nena",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeJSON[usecase.AuthResponse](t, rec)
}

func (a *testApp) addMenuItem(t *testing.T, token, name, price string) model.MenuItem {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/vendor/shop/items", token, map[string]any{"name": name, "price": price})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeJSON[model.MenuItem](t, rec)
}

// =====================
// auth
// =====================

func TestAuth_SignupMeLogoutLogin(t *testing.T) {
	app := newTestApp(t)

	signed := app.signupCustomer(t, "juan@tupv.edu.ph")
	assert.Equal(t, "TUPV-23-0001", signed.User.StudentID)
	assert.Equal(t, "customer", signed.User.Role)
	assert.NotEmpty(t, signed.Token.AccessToken)

	rec := app.do(t, http.MethodGet, "/auth/me", signed.Token.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "juan@tupv.edu.ph", decodeJSON[usecase.UserDTO](t, rec).Email)

	rec = app.do(t, http.MethodPost, "/auth/logout", signed.Token.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// 古いトークンはtoken_versionが合わない
	rec = app.do(t, http.MethodGet, "/auth/me", signed.Token.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(t, http.MethodPost, "/auth/login", "", usecase.LoginRequest{Email: "juan@tupv.edu.ph", Password: "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)
	again := decodeJSON[usecase.AuthResponse](t, rec)
	assert.Equal(t, 1, again.Token.TokenVersion)

	rec = app.do(t, http.MethodGet, "/auth/me", again.Token.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_SignupErrors(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/auth/signup", "", usecase.SignupRequest{
		Email: "not-an-email", Password: "123", ConfirmPassword: "456", Role: "customer", StudentID: "TUPV-230001",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeJSON[ErrorResponse](t, rec)
	assert.Equal(t, "validation error", body.Error)
	assert.Contains(t, body.Fields, "email")
	assert.Contains(t, body.Fields, "student_id")

	app.signupVendor(t, "nena@tupv.edu.ph")
	rec = app.do(t, http.MethodPost, "/auth/signup", "", usecase.SignupRequest{
		Email: "nena@tupv.edu.ph", Password: "secret123", ConfirmPassword: "secret123",
		DisplayName: "Other", Role: "vendor", ShopName: "Other",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = app.do(t, http.MethodPost, "/auth/login", "", usecase.LoginRequest{Email: "nena@tupv.edu.ph", Password: "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid email or password", decodeJSON[ErrorResponse](t, rec).Error)
}

func TestAuth_InvalidBody(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	app.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid body", decodeJSON[ErrorResponse](t, rec).Error)
}

// =====================
// navigation
// =====================

func TestNavigation_Decide(t *testing.T) {
	app := newTestApp(t)
	customer := app.signupCustomer(t, "juan@tupv.edu.ph")
	vendor := app.signupVendor(t, "nena@tupv.edu.ph")

	cases := []struct {
		name     string
		token    string
		segment  string
		redirect bool
		target   string
	}{
		{"anonymous in customer group", "", "(customer)", true, "/login"},
		{"anonymous in auth group", "", "(auth)", false, ""},
		{"customer at root", customer.Token.AccessToken, "", true, "/"},
		{"customer in vendor group", customer.Token.AccessToken, "(vendor)", true, "/"},
		{"customer in customer group", customer.Token.AccessToken, "(customer)", false, ""},
		{"vendor in customer group", vendor.Token.AccessToken, "(customer)", true, "/vendor"},
		{"vendor in auth group", vendor.Token.AccessToken, "(auth)", true, "/vendor"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := app.do(t, http.MethodGet, "/navigation/decide?segment="+tc.segment, tc.token, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			out := decodeJSON[DecideResponse](t, rec)
			assert.Equal(t, tc.redirect, out.Decision.Redirect)
			assert.Equal(t, tc.target, out.Decision.Target)
		})
	}

	rec := app.do(t, http.MethodGet, "/navigation/decide?segment=(admin)", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodGet, "/navigation/decide?segment=(customer)", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNavigation_Tabs(t *testing.T) {
	app := newTestApp(t)
	vendor := app.signupVendor(t, "nena@tupv.edu.ph")

	rec := app.do(t, http.MethodGet, "/navigation/tabs", vendor.Token.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeJSON[TabsResponse](t, rec)
	require.Len(t, out.Tabs, 3)
	assert.Equal(t, "/vendor", out.Tabs[0].Path)

	rec = app.do(t, http.MethodGet, "/navigation/tabs", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeJSON[TabsResponse](t, rec).Tabs, 2)
}

// =====================
// ロールガード
// =====================

func TestRoleGroups(t *testing.T) {
	app := newTestApp(t)
	customer := app.signupCustomer(t, "juan@tupv.edu.ph")
	vendor := app.signupVendor(t, "nena@tupv.edu.ph")

	assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodGet, "/cart", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodGet, "/vendor/dashboard", customer.Token.AccessToken, nil).Code)
	assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodGet, "/shops", vendor.Token.AccessToken, nil).Code)
	assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodPost, "/checkout", vendor.Token.AccessToken, nil).Code)
}

// =====================
// 注文の一連の流れ
// =====================

func TestOrderingFlow_CounterPayment(t *testing.T) {
	app := newTestApp(t)
	vendor := app.signupVendor(t, "nena@tupv.edu.ph")
	customer := app.signupCustomer(t, "juan@tupv.edu.ph")
	vt, ct := vendor.Token.AccessToken, customer.Token.AccessToken

	adobo := app.addMenuItem(t, vt, "Adobo", "100.00")
	rice := app.addMenuItem(t, vt, "Extra rice", "12.00")
	hidden := app.addMenuItem(t, vt, "Halo-halo", "60.00")
	rec := app.do(t, http.MethodPatch, "/vendor/shop/items/"+hidden.ID+"/availability", vt, map[string]any{"available": false})
	require.Equal(t, http.StatusOK, rec.Code)

	// 一覧とメニュー（非公開は出ない）
	rec = app.do(t, http.MethodGet, "/shops", ct, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	shops := decodeJSON[[]usecase.ShopSummary](t, rec)
	require.Len(t, shops, 1)
	assert.Equal(t, vendor.User.ShopID, shops[0].ID)

	rec = app.do(t, http.MethodGet, "/shops/"+shops[0].ID, ct, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeJSON[usecase.ShopDetail](t, rec).MenuItems, 2)

	// カート
	add := func(itemID string) *httptest.ResponseRecorder {
		return app.do(t, http.MethodPost, "/cart/items", ct, usecase.AddCartItemRequest{ShopID: shops[0].ID, MenuItemID: itemID})
	}
	require.Equal(t, http.StatusOK, add(adobo.ID).Code)
	require.Equal(t, http.StatusOK, add(rice.ID).Code)
	assert.Equal(t, http.StatusConflict, add(hidden.ID).Code)

	rec = app.do(t, http.MethodPatch, "/cart/items/"+rice.ID, ct, map[string]any{"quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decodeJSON[cart.Snapshot](t, rec)
	assert.True(t, snap.Total.Equal(decimal.NewFromInt(124)))

	// 支払い方法なし
	rec = app.do(t, http.MethodPost, "/checkout", ct, usecase.CheckoutRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeJSON[ErrorResponse](t, rec).Fields, "payment_method")

	rec = app.do(t, http.MethodPost, "/checkout", ct, usecase.CheckoutRequest{PaymentMethod: "counter"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	placed := decodeJSON[usecase.CheckoutResponse](t, rec)
	assert.True(t, strings.HasPrefix(placed.Order.ID, "ORD-"))
	assert.True(t, placed.Order.Total.Equal(decimal.NewFromInt(124)))
	assert.Equal(t, model.OrderStatusPending, placed.Order.Status)
	assert.Empty(t, placed.CheckoutURL)

	// 注文後はカートが空
	rec = app.do(t, http.MethodGet, "/cart", ct, nil)
	assert.Equal(t, 0, decodeJSON[cart.Snapshot](t, rec).Count)

	rec = app.do(t, http.MethodGet, "/orders", ct, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeJSON[[]model.Order](t, rec), 1)

	// vendor側
	rec = app.do(t, http.MethodGet, "/vendor/orders?status=pending", vt, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pending := decodeJSON[[]usecase.VendorOrderOutput](t, rec)
	require.Len(t, pending, 1)
	assert.Len(t, pending[0].Actions, 2)

	rec = app.do(t, http.MethodPut, "/vendor/orders/"+placed.Order.ID+"/status", vt, usecase.UpdateOrderStatusRequest{Status: "processing"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodPut, "/vendor/orders/"+placed.Order.ID+"/status", vt, usecase.UpdateOrderStatusRequest{Status: "pending"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = app.do(t, http.MethodPut, "/vendor/orders/"+placed.Order.ID+"/status", vt, usecase.UpdateOrderStatusRequest{Status: "completed"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeJSON[usecase.VendorOrderOutput](t, rec).Actions)

	rec = app.do(t, http.MethodGet, "/vendor/orders/"+placed.Order.ID+"/history", vt, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeJSON[[]model.AuditLog](t, rec), 2)

	rec = app.do(t, http.MethodGet, "/vendor/dashboard", vt, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dash := decodeJSON[usecase.DashboardOutput](t, rec)
	assert.Equal(t, 1, dash.TotalOrders)
	assert.Equal(t, 1, dash.Counts[model.OrderStatusCompleted])
	assert.True(t, dash.Revenue.Equal(decimal.NewFromInt(124)))

	// placed + processing + completed
	assert.Len(t, app.publisher.All(), 3)
}

func TestOrderingFlow_OnlinePayment(t *testing.T) {
	app := newTestApp(t)
	vendor := app.signupVendor(t, "nena@tupv.edu.ph")
	customer := app.signupCustomer(t, "juan@tupv.edu.ph")
	vt, ct := vendor.Token.AccessToken, customer.Token.AccessToken

	adobo := app.addMenuItem(t, vt, "Adobo", "100.00")
	rec := app.do(t, http.MethodPost, "/cart/items", ct, usecase.AddCartItemRequest{ShopID: vendor.User.ShopID, MenuItemID: adobo.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	// 秘密鍵が未登録
	rec = app.do(t, http.MethodPost, "/checkout", ct, usecase.CheckoutRequest{PaymentMethod: "online"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = app.do(t, http.MethodPut, "/vendor/shop", vt, map[string]any{"name": "Kusina ni Nena", "payment_secret_key": "sk_test_123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "sk_test_123")
	assert.True(t, decodeJSON[usecase.VendorShopOutput](t, rec).AcceptsOnlinePayment)

	rec = app.do(t, http.MethodPost, "/checkout", ct, usecase.CheckoutRequest{PaymentMethod: "online"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	placed := decodeJSON[usecase.CheckoutResponse](t, rec)
	assert.Equal(t, "https://checkout.test/"+placed.Order.ID, placed.CheckoutURL)
	assert.Equal(t, "cs_"+placed.Order.ID, placed.Order.PaymentRefID)

	require.Len(t, app.gateway.requests, 1)
	assert.Equal(t, "sk_test_123", app.gateway.keys[0])
	assert.Equal(t, "http://canteen.test/order/"+placed.Order.ID, app.gateway.requests[0].SuccessURL)

	rec = app.do(t, http.MethodGet, "/orders/"+placed.Order.ID+"/payment", ct, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, payment.PaymentStatusPaid, decodeJSON[usecase.PaymentStatusOutput](t, rec).PaymentStatus)

	// 他人の注文は見えない
	other := app.signupCustomer(t, "pedro@tupv.edu.ph")
	rec = app.do(t, http.MethodGet, "/orders/"+placed.Order.ID, other.Token.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderingFlow_GatewayFailureKeepsCart(t *testing.T) {
	app := newTestApp(t)
	vendor := app.signupVendor(t, "nena@tupv.edu.ph")
	customer := app.signupCustomer(t, "juan@tupv.edu.ph")
	vt, ct := vendor.Token.AccessToken, customer.Token.AccessToken

	adobo := app.addMenuItem(t, vt, "Adobo", "100.00")
	require.Equal(t, http.StatusOK, app.do(t, http.MethodPut, "/vendor/shop", vt, map[string]any{"name": "Kusina", "payment_secret_key": "sk_test_123"}).Code)
	require.Equal(t, http.StatusOK, app.do(t, http.MethodPost, "/cart/items", ct, usecase.AddCartItemRequest{ShopID: vendor.User.ShopID, MenuItemID: adobo.ID}).Code)

	app.gateway.fail = &payment.Error{StatusCode: http.StatusServiceUnavailable, Code: "unavailable", Detail: "down"}
	rec := app.do(t, http.MethodPost, "/checkout", ct, usecase.CheckoutRequest{PaymentMethod: "online"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = app.do(t, http.MethodGet, "/cart", ct, nil)
	assert.Equal(t, 1, decodeJSON[cart.Snapshot](t, rec).Count)

	rec = app.do(t, http.MethodGet, "/orders", ct, nil)
	assert.Empty(t, decodeJSON[[]model.Order](t, rec))
}

func TestInventory_Validation(t *testing.T) {
	app := newTestApp(t)
	vendor := app.signupVendor(t, "nena@tupv.edu.ph")
	vt := vendor.Token.AccessToken

	rec := app.do(t, http.MethodPost, "/vendor/shop/items", vt, map[string]any{"name": "", "price": "-1"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decodeJSON[ErrorResponse](t, rec).Fields
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "price")

	item := app.addMenuItem(t, vt, "Adobo", "100")
	rec = app.do(t, http.MethodPut, "/vendor/shop/items/"+item.ID, vt, map[string]any{"name": "Chicken Adobo", "price": "110"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Chicken Adobo", decodeJSON[model.MenuItem](t, rec).Name)

	assert.Equal(t, http.StatusNoContent, app.do(t, http.MethodDelete, "/vendor/shop/items/"+item.ID, vt, nil).Code)
	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodDelete, "/vendor/shop/items/"+item.ID, vt, nil).Code)

	rec = app.do(t, http.MethodGet, "/vendor/shop", vt, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeJSON[usecase.VendorShopOutput](t, rec).MenuItems)
}
