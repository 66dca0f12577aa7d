package usecase

import (
	"context"
	"net/http"
	"testing"

	"github.com/jedmamosto/tupv-project-sub000/internal/config"
	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"
	"github.com/jedmamosto/tupv-project-sub000/internal/logger"
	"github.com/jedmamosto/tupv-project-sub000/internal/navigation"
	repo "github.com/jedmamosto/tupv-project-sub000/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test-secret"

type authFixture struct {
	users     *MockUserRepository
	shops     *MockShopRepository
	validator *MockAuthValidator
	sessions  *MockSessions
	uc        *AuthUsecase
}

func newAuthFixture() authFixture {
	f := authFixture{
		users:     new(MockUserRepository),
		shops:     new(MockShopRepository),
		validator: new(MockAuthValidator),
		sessions:  new(MockSessions),
	}
	f.uc = NewAuthUsecase(config.Config{JWTSecret: testJWTSecret}, f.users, f.shops, f.validator, f.sessions, logger.Discard())
	return f
}

func parseClaims(t *testing.T, token string) jwt.MapClaims {
	t.Helper()
	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) { return []byte(testJWTSecret), nil })
	require.NoError(t, err)
	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	return claims
}

func TestSignup_Customer(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.validator.On("ValidateSignup", ctx, mock.AnythingOfType("*usecase.SignupRequest")).Return(nil)
	f.users.On("Create", ctx, mock.MatchedBy(func(u *model.User) bool {
		return u.Role == model.RoleCustomer &&
			u.StudentID == "TUPV-23-0001" &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret1")) == nil
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*model.User).ID = "u1"
	}).Return(nil)
	f.sessions.On("Start", ctx, mock.AnythingOfType("*model.User")).Return()

	res, err := f.uc.Signup(ctx, SignupRequest{
		Email:           "juan@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		DisplayName:     "Juan",
		Role:            "customer",
		StudentID:       "TUPV-23-0001",
	})

	require.NoError(t, err)
	assert.Equal(t, "u1", res.User.ID)
	assert.Equal(t, "customer", res.User.Role)
	assert.Empty(t, res.User.ShopID)

	claims := parseClaims(t, res.Token.AccessToken)
	assert.Equal(t, "u1", claims["sub"])
	assert.Equal(t, "customer", claims["role"])
	assert.Equal(t, float64(0), claims["tv"])

	f.shops.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.sessions.AssertExpectations(t)
}

func TestSignup_VendorCreatesShop(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.validator.On("ValidateSignup", ctx, mock.Anything).Return(nil)
	f.users.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).(*model.User).ID = "v1"
	}).Return(nil)
	f.shops.On("Create", ctx, mock.MatchedBy(func(s model.Shop) bool {
		return s.OwnerID == "v1" && s.Name == "Kusina"
	})).Return(model.Shop{ID: "s1", OwnerID: "v1", Name: "Kusina"}, nil)
	f.sessions.On("Start", ctx, mock.Anything).Return()

	res, err := f.uc.Signup(ctx, SignupRequest{
		Email:       "nena@example.com",
		Password:    "secret1",
		DisplayName: "Nena",
		Role:        "vendor",
		ShopName:    "Kusina",
		StudentID:   "TUPV-23-0001",
	})

	require.NoError(t, err)
	assert.Equal(t, "s1", res.User.ShopID)
	// vendorに学籍番号は保存しない
	assert.Empty(t, res.User.StudentID)
	f.shops.AssertExpectations(t)
}

func TestSignup_ValidationErrorStopsEarly(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.validator.On("ValidateSignup", ctx, mock.Anything).
		Return(NewValidationError(map[string]string{"email": "enter a valid email address"}))

	_, err := f.uc.Signup(ctx, SignupRequest{Email: "bad"})

	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
	assert.Equal(t, "enter a valid email address", he.Fields["email"])
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.validator.On("ValidateSignup", ctx, mock.Anything).Return(nil)
	f.users.On("Create", ctx, mock.Anything).Return(repo.ErrAlreadyExists)

	_, err := f.uc.Signup(ctx, SignupRequest{Email: "a@b.c", Password: "secret1", Role: "customer"})
	assert.Equal(t, http.StatusConflict, statusOf(err))
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	vendor := &model.User{ID: "v1", Email: "nena@example.com", PasswordHash: string(hash), Role: model.RoleVendor, TokenVersion: 3, PaymentSecretKey: "sk_test"}

	t.Run("success returns shop id and token version", func(t *testing.T) {
		f := newAuthFixture()
		ctx := context.Background()
		f.validator.On("ValidateLogin", ctx, mock.Anything).Return(nil)
		f.users.On("FindByEmail", ctx, "nena@example.com").Return(vendor, nil)
		f.shops.On("FindByOwner", ctx, "v1").Return(model.Shop{ID: "s1"}, nil)
		f.sessions.On("Start", ctx, vendor).Return()

		res, err := f.uc.Login(ctx, LoginRequest{Email: "nena@example.com", Password: "secret1"})
		require.NoError(t, err)
		assert.Equal(t, "s1", res.User.ShopID)
		assert.Equal(t, 3, res.Token.TokenVersion)
		assert.Equal(t, float64(3), parseClaims(t, res.Token.AccessToken)["tv"])
	})

	t.Run("wrong password", func(t *testing.T) {
		f := newAuthFixture()
		ctx := context.Background()
		f.validator.On("ValidateLogin", ctx, mock.Anything).Return(nil)
		f.users.On("FindByEmail", ctx, "nena@example.com").Return(vendor, nil)

		_, err := f.uc.Login(ctx, LoginRequest{Email: "nena@example.com", Password: "nope123"})
		assert.Equal(t, http.StatusUnauthorized, statusOf(err))
		f.sessions.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
	})

	t.Run("unknown email", func(t *testing.T) {
		f := newAuthFixture()
		ctx := context.Background()
		f.validator.On("ValidateLogin", ctx, mock.Anything).Return(nil)
		f.users.On("FindByEmail", ctx, "ghost@example.com").Return(nil, repo.ErrNotFound)

		_, err := f.uc.Login(ctx, LoginRequest{Email: "ghost@example.com", Password: "secret1"})
		assert.Equal(t, http.StatusUnauthorized, statusOf(err))
	})
}

func TestLogout(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	f.users.On("IncrementTokenVersion", ctx, "u1").Return(nil)
	f.sessions.On("End", ctx, "u1").Return()

	require.NoError(t, f.uc.Logout(ctx, "u1"))
	f.users.AssertExpectations(t)
	f.sessions.AssertExpectations(t)
}

func TestLogout_UnknownUser(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	f.users.On("IncrementTokenVersion", ctx, "gone").Return(repo.ErrNotFound)

	err := f.uc.Logout(ctx, "gone")
	assert.Equal(t, http.StatusUnauthorized, statusOf(err))
	f.sessions.AssertNotCalled(t, "End", mock.Anything, mock.Anything)
}

func TestWatchState(t *testing.T) {
	f := newAuthFixture()
	unsubscribed := false
	f.sessions.On("Subscribe", "u1", mock.Anything).Return(func() { unsubscribed = true })

	unsubscribe, err := f.uc.WatchState("u1", func(navigation.State) {})
	require.NoError(t, err)
	unsubscribe()
	assert.True(t, unsubscribed)

	_, err = f.uc.WatchState("", func(navigation.State) {})
	assert.Equal(t, http.StatusUnauthorized, statusOf(err))
	f.sessions.AssertNumberOfCalls(t, "Subscribe", 1)
}

func TestMe_DoesNotExposeSecrets(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	f.users.On("FindByID", ctx, "u1").Return(&model.User{
		ID: "u1", Email: "juan@example.com", Role: model.RoleCustomer, PasswordHash: "hash", StudentID: "TUPV-23-0001",
	}, nil)

	dto, err := f.uc.Me(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, UserDTO{ID: "u1", Email: "juan@example.com", Role: "customer", StudentID: "TUPV-23-0001"}, *dto)
}
