package repository

import (
	"context"
	"time"

	"github.com/jedmamosto/tupv-project-sub000/internal/docstore"
	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"
	repo "github.com/jedmamosto/tupv-project-sub000/internal/repository"

	"gorm.io/gorm"
)

// audit_logsテーブルの1行。postgresのときは監査ログだけ列で持つ。
type auditLogRow struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)"`
	ActorUserID  string    `gorm:"type:varchar(64);not null;index"`
	Action       string    `gorm:"type:varchar(40);not null;index:idx_audit_target,priority:1"`
	ResourceType string    `gorm:"type:varchar(20);not null;index:idx_audit_target,priority:2"`
	ResourceID   string    `gorm:"type:varchar(64);not null;index:idx_audit_target,priority:3"`
	BeforeJSON   string    `gorm:"type:jsonb;not null"`
	AfterJSON    string    `gorm:"type:jsonb;not null"`
	CreatedAt    time.Time `gorm:"not null;index"`
}

func (auditLogRow) TableName() string { return "audit_logs" }

type auditLogGormRepository struct {
	db *gorm.DB
}

func NewAuditLogGormRepository(db *gorm.DB) repo.AuditLogRepository {
	return &auditLogGormRepository{db: db}
}

// テーブル作成
func MigrateAuditLogs(db *gorm.DB) error {
	return db.AutoMigrate(&auditLogRow{})
}

func (r *auditLogGormRepository) Create(ctx context.Context, log model.AuditLog) error {
	log.ID = docstore.EnsureID(log.ID)
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	row := auditLogRow{
		ID:           log.ID,
		ActorUserID:  log.ActorUserID,
		Action:       string(log.Action),
		ResourceType: string(log.ResourceType),
		ResourceID:   log.ResourceID,
		BeforeJSON:   jsonOrEmpty(log.BeforeJSON),
		AfterJSON:    jsonOrEmpty(log.AfterJSON),
		CreatedAt:    log.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *auditLogGormRepository) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	q := r.db.WithContext(ctx).Model(&auditLogRow{})

	if filter.ActorUserID != "" {
		q = q.Where("actor_user_id = ?", filter.ActorUserID)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", string(filter.Action))
	}
	if filter.ResourceType != "" {
		q = q.Where("resource_type = ?", string(filter.ResourceType))
	}
	if filter.ResourceID != "" {
		q = q.Where("resource_id = ?", filter.ResourceID)
	}

	//新しい順
	q = q.Order("created_at DESC")

	// limit
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q = q.Limit(limit)

	var rows []auditLogRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	logs := make([]model.AuditLog, 0, len(rows))
	for _, row := range rows {
		logs = append(logs, model.AuditLog{
			ID:           row.ID,
			ActorUserID:  row.ActorUserID,
			Action:       model.AuditAction(row.Action),
			ResourceType: model.AuditResourceType(row.ResourceType),
			ResourceID:   row.ResourceID,
			BeforeJSON:   row.BeforeJSON,
			AfterJSON:    row.AfterJSON,
			CreatedAt:    row.CreatedAt,
		})
	}
	return logs, nil
}

// jsonb列は空文字を受け付けない
func jsonOrEmpty(s string) string {
	if s == "" {
		return "{}"
	}
	return s
}
