package model

import "time"

type AuditAction string

const (
	//注文ステータスを更新した操作。
	AuditActionUpdateOrderStatus AuditAction = "UPDATE_ORDER_STATUS"
	//メニューを更新した操作。
	AuditActionUpdateMenu AuditAction = "UPDATE_MENU"
	//店舗プロフィール（名前・カテゴリ・決済キー）を更新した操作。
	AuditActionUpdateShopProfile AuditAction = "UPDATE_SHOP_PROFILE"
)

// 何に対する操作か
type AuditResourceType string

const (
	AuditResourceOrder AuditResourceType = "order"
	AuditResourceShop  AuditResourceType = "shop"
)

// 監査ログ（vendor操作ログ）。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID           string            `json:"id"`
	ActorUserID  string            `json:"actor_user_id"`
	Action       AuditAction       `json:"action"`
	ResourceType AuditResourceType `json:"resource_type"`
	ResourceID   string            `json:"resource_id"`
	BeforeJSON   string            `json:"before_json"`
	AfterJSON    string            `json:"after_json"`
	CreatedAt    time.Time         `json:"created_at"`
}
