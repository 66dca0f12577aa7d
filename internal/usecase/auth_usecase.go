package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jedmamosto/tupv-project-sub000/internal/config"
	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"
	"github.com/jedmamosto/tupv-project-sub000/internal/logger"
	"github.com/jedmamosto/tupv-project-sub000/internal/navigation"
	"github.com/jedmamosto/tupv-project-sub000/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// accesstokenの有効期限（refreshtokenは無いので1営業日ぶん）
const accessTokenTTL = 12 * time.Hour

// usecaseがValidatorInterfaceに依存する約束
type AuthValidator interface {
	// reqを正規化（学籍番号の大文字化など）してから検証する
	ValidateSignup(ctx context.Context, req *SignupRequest) error
	ValidateLogin(ctx context.Context, req LoginRequest) error
}

// ログイン状態の開始・終了を受け取る（session.Manager）
type SessionLifecycle interface {
	Start(ctx context.Context, u *model.User)
	End(ctx context.Context, userID string)
	Subscribe(userID string, fn func(navigation.State)) (unsubscribe func())
}

type SignupRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	DisplayName     string `json:"display_name"`
	Role            string `json:"role"`
	StudentID       string `json:"student_id"`
	// vendorのみ
	ShopName string `json:"shop_name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserDTO struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	DisplayName  string `json:"display_name"`
	Role         string `json:"role"`
	StudentID    string `json:"student_id,omitempty"`
	ShopID       string `json:"shop_id,omitempty"`
	TokenVersion int    `json:"token_version"`
}

type JwtAccessTokenDTO struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenVersion int    `json:"token_version"`
}

type AuthResponse struct {
	User  UserDTO           `json:"user"`
	Token JwtAccessTokenDTO `json:"token"`
}

type AuthUsecase struct {
	cfg       config.Config
	users     repository.UserRepository
	shops     repository.ShopRepository
	validator AuthValidator
	sessions  SessionLifecycle
	log       *logger.Logger
}

func NewAuthUsecase(
	cfg config.Config,
	users repository.UserRepository,
	shops repository.ShopRepository,
	validator AuthValidator,
	sessions SessionLifecycle,
	log *logger.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		cfg:       cfg,
		users:     users,
		shops:     shops,
		validator: validator,
		sessions:  sessions,
		log:       log,
	}
}

// Signup はアカウントを作ってそのままログインさせる。vendorは店舗も作る。
func (u *AuthUsecase) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	//入力検証（validatorに寄せる）
	if err := u.validator.ValidateSignup(ctx, &req); err != nil {
		return nil, err
	}

	//パスワードは必ずハッシュ化して保存（平文保存しない）
	pwHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, WrapHTTPError(http.StatusInternalServerError, "internal error", err)
	}

	user := &model.User{
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: string(pwHash),
		Role:         model.Role(req.Role),
		TokenVersion: 0,
	}
	if user.Role == model.RoleCustomer {
		user.StudentID = req.StudentID
	}

	if err := u.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, NewHTTPError(http.StatusConflict, "email already used")
		}
		return nil, WrapHTTPError(http.StatusInternalServerError, "db error", err)
	}

	var shopID string
	if user.Role == model.RoleVendor {
		shop, err := u.shops.Create(ctx, model.Shop{
			OwnerID:   user.ID,
			Name:      req.ShopName,
			MenuItems: []model.MenuItem{},
		})
		if err != nil {
			return nil, WrapHTTPError(http.StatusInternalServerError, "db error", err)
		}
		shopID = shop.ID
	}

	u.log.Info("signup", "", "user signed up",
		slog.String("user_id", user.ID), slog.String("role", string(user.Role)))

	return u.signIn(ctx, user, shopID)
}

func (u *AuthUsecase) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := u.validator.ValidateLogin(ctx, req); err != nil {
		return nil, err
	}

	user, err := u.users.FindByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}
	if err != nil {
		return nil, WrapHTTPError(http.StatusInternalServerError, "db error", err)
	}

	//パスワード照合（bcrypt）
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}

	shopID, err := u.shopIDOf(ctx, user)
	if err != nil {
		return nil, err
	}
	return u.signIn(ctx, user, shopID)
}

// Logout はtoken_versionを上げて発行済みトークンを無効にし、カートを捨てる
func (u *AuthUsecase) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := u.users.IncrementTokenVersion(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewHTTPError(http.StatusUnauthorized, "unauthorized")
		}
		return WrapHTTPError(http.StatusInternalServerError, "db error", err)
	}
	u.sessions.End(ctx, userID)
	return nil
}

// WatchState はuserIDの認証状態の変化を受け取る（SSE用）。ログアウトで未ログイン状態が届く。
func (u *AuthUsecase) WatchState(userID string, fn func(navigation.State)) (unsubscribe func(), err error) {
	if userID == "" {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return u.sessions.Subscribe(userID, fn), nil
}

func (u *AuthUsecase) Me(ctx context.Context, userID string) (*UserDTO, error) {
	if userID == "" {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	user, err := u.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err != nil {
		return nil, WrapHTTPError(http.StatusInternalServerError, "db error", err)
	}

	shopID, err := u.shopIDOf(ctx, user)
	if err != nil {
		return nil, err
	}
	dto := toUserDTO(user, shopID)
	return &dto, nil
}

func (u *AuthUsecase) signIn(ctx context.Context, user *model.User, shopID string) (*AuthResponse, error) {
	token, expiresIn, err := u.issueAccessToken(user)
	if err != nil {
		return nil, WrapHTTPError(http.StatusInternalServerError, "internal error", err)
	}

	u.sessions.Start(ctx, user)

	return &AuthResponse{
		User: toUserDTO(user, shopID),
		Token: JwtAccessTokenDTO{
			AccessToken:  token,
			ExpiresIn:    expiresIn,
			TokenVersion: user.TokenVersion,
		},
	}, nil
}

// vendorの店舗ID（店舗が無いvendorは空）
func (u *AuthUsecase) shopIDOf(ctx context.Context, user *model.User) (string, error) {
	if user.Role != model.RoleVendor {
		return "", nil
	}
	shop, err := u.shops.FindByOwner(ctx, user.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", WrapHTTPError(http.StatusInternalServerError, "db error", err)
	}
	return shop.ID, nil
}

// HS256でsub/role/tvを入れたJWTを発行する
func (u *AuthUsecase) issueAccessToken(user *model.User) (string, int, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"tv":   user.TokenVersion,
		"iat":  now.Unix(),
		"exp":  now.Add(accessTokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(u.cfg.JWTSecret))
	if err != nil {
		return "", 0, err
	}
	return signed, int(accessTokenTTL.Seconds()), nil
}

// model.UserをAPI返却用DTOに変換。秘密鍵とハッシュは出さない。
func toUserDTO(u *model.User, shopID string) UserDTO {
	return UserDTO{
		ID:           u.ID,
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		Role:         string(u.Role),
		StudentID:    u.StudentID,
		ShopID:       shopID,
		TokenVersion: u.TokenVersion,
	}
}
