package validator

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"
	"github.com/jedmamosto/tupv-project-sub000/internal/repository"
	"github.com/jedmamosto/tupv-project-sub000/internal/usecase"

	playground "github.com/go-playground/validator/v10"
)

// validator/v10のエンジン。フィールド名はjsonタグを使う。
func newEngine() *playground.Validate {
	v := playground.New(playground.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	_ = v.RegisterValidation("student_id", func(fl playground.FieldLevel) bool {
		return IsValidStudentID(fl.Field().String())
	})

	return v
}

// サインアップ入力
type signupForm struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	DisplayName     string `json:"display_name" validate:"required,max=80"`
	Role            string `json:"role" validate:"required,oneof=customer vendor"`
	StudentID       string `json:"student_id" validate:"omitempty,student_id"`
	ShopName        string `json:"shop_name" validate:"omitempty,max=80"`
}

type loginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authValidator struct {
	v     *playground.Validate
	users repository.UserRepository
}

// Usecaseは interface を依存注入
func NewAuthValidator(users repository.UserRepository) usecase.AuthValidator {
	return &authValidator{v: newEngine(), users: users}
}

// サインアップの入力を検証。学籍番号は大文字化してから検証し、reqにも反映する。
func (a *authValidator) ValidateSignup(ctx context.Context, req *usecase.SignupRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	req.ShopName = strings.TrimSpace(req.ShopName)
	req.StudentID = NormalizeStudentID(req.StudentID)

	form := signupForm{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		DisplayName:     req.DisplayName,
		Role:            req.Role,
		StudentID:       req.StudentID,
		ShopName:        req.ShopName,
	}

	fields := fieldErrors(a.v.Struct(form))

	// ロールごとの必須項目
	switch model.Role(req.Role) {
	case model.RoleCustomer:
		if req.StudentID == "" {
			fields = put(fields, "student_id", "student id is required")
		}
	case model.RoleVendor:
		if req.ShopName == "" {
			fields = put(fields, "shop_name", "shop name is required")
		}
	}

	if len(fields) > 0 {
		return usecase.NewValidationError(fields)
	}

	// email重複チェック（DBが必要）
	_, err := a.users.FindByEmail(ctx, req.Email)
	if err == nil {
		return usecase.NewHTTPError(http.StatusConflict, "email already used")
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return usecase.WrapHTTPError(http.StatusInternalServerError, "db error", err)
	}
	return nil
}

// ログインの入力を検証
func (a *authValidator) ValidateLogin(_ context.Context, req usecase.LoginRequest) error {
	form := loginForm{
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	}
	if fields := fieldErrors(a.v.Struct(form)); len(fields) > 0 {
		return usecase.NewValidationError(fields)
	}
	return nil
}

// validator/v10のエラーを「フィールド→メッセージ」に変換する
func fieldErrors(err error) map[string]string {
	if err == nil {
		return nil
	}
	var ve playground.ValidationErrors
	if !errors.As(err, &ve) {
		return map[string]string{"_": err.Error()}
	}

	out := make(map[string]string, len(ve))
	for _, fe := range ve {
		key := fe.Field()
		if _, dup := out[key]; dup {
			continue
		}
		out[key] = message(fe)
	}
	return out
}

func message(fe playground.FieldError) string {
	label := strings.ReplaceAll(fe.Field(), "_", " ")

	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return "enter a valid email address"
	case "min":
		return label + " must be at least " + fe.Param() + " characters"
	case "max":
		return label + " must be at most " + fe.Param() + " characters"
	case "eqfield":
		return "passwords do not match"
	case "oneof":
		return label + " must be one of: " + fe.Param()
	case "student_id":
		return "student id must look like TUPV-23-0001"
	case "startswith":
		return label + " must start with " + fe.Param()
	default:
		return label + " is invalid"
	}
}

func put(m map[string]string, key, msg string) map[string]string {
	if m == nil {
		m = map[string]string{}
	}
	if _, ok := m[key]; !ok {
		m[key] = msg
	}
	return m
}
