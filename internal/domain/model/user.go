package model

import "time"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
)

// 作成後にロールは変わらない
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleVendor
}

type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	DisplayName  string `json:"display_name"`
	PasswordHash string `json:"password_hash"`
	Role         Role   `json:"role"`

	//学籍番号（customerのみ）
	StudentID string `json:"student_id,omitempty"`

	//決済ゲートウェイのシークレットキー（vendorのみ）
	PaymentSecretKey string `json:"payment_secret_key,omitempty"`

	TokenVersion int       `json:"token_version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
