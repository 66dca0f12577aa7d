package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jedmamosto/tupv-project-sub000/internal/docstore"

	"gorm.io/gorm"
)

// documentsテーブルの1行。本体はJSONBで持つ。
type documentRow struct {
	Collection string    `gorm:"primaryKey;type:varchar(64)"`
	ID         string    `gorm:"primaryKey;type:varchar(64)"`
	Data       string    `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time `gorm:"not null;index"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (documentRow) TableName() string { return "documents" }

type GormStore struct {
	db *gorm.DB
}

// DI
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// テーブル作成
func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(&documentRow{})
}

func (s *GormStore) Get(ctx context.Context, collection, id string) docstore.Result[docstore.Document] {
	var row documentRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return docstore.Fail[docstore.Document](fmt.Errorf("%w: %s/%s", docstore.ErrNotFound, collection, id))
	}
	if err != nil {
		return docstore.Fail[docstore.Document](err)
	}
	return docstore.OK(row.toDocument(), row.ID)
}

func (s *GormStore) List(ctx context.Context, collection string, filters ...docstore.Filter) docstore.Result[[]docstore.Document] {
	q := s.db.WithContext(ctx).Where("collection = ?", collection)
	for _, f := range filters {
		q = q.Where("data->>? = ?", f.Field, f.Value)
	}

	var rows []documentRow
	if err := q.Order("created_at asc").Order("id asc").Find(&rows).Error; err != nil {
		return docstore.Fail[[]docstore.Document](err)
	}

	out := make([]docstore.Document, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDocument())
	}
	return docstore.OK(out, "")
}

func (s *GormStore) FindOne(ctx context.Context, collection, field, value string) docstore.Result[docstore.Document] {
	var row documentRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND data->>? = ?", collection, field, value).
		Order("created_at asc").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return docstore.Fail[docstore.Document](fmt.Errorf("%w: %s/%s=%s", docstore.ErrNotFound, collection, field, value))
	}
	if err != nil {
		return docstore.Fail[docstore.Document](err)
	}
	return docstore.OK(row.toDocument(), row.ID)
}

func (s *GormStore) Create(ctx context.Context, collection, id string, data any) docstore.Result[docstore.Document] {
	raw, err := docstore.Encode(data)
	if err != nil {
		return docstore.Fail[docstore.Document](err)
	}

	now := time.Now()
	row := documentRow{
		Collection: collection,
		ID:         docstore.EnsureID(id),
		Data:       string(raw),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return docstore.Fail[docstore.Document](fmt.Errorf("%w: %s/%s", docstore.ErrAlreadyExists, collection, row.ID))
		}
		return docstore.Fail[docstore.Document](err)
	}
	return docstore.OK(row.toDocument(), row.ID)
}

func (s *GormStore) Update(ctx context.Context, collection, id string, data any) docstore.Result[docstore.Document] {
	raw, err := docstore.Encode(data)
	if err != nil {
		return docstore.Fail[docstore.Document](err)
	}

	res := s.db.WithContext(ctx).
		Model(&documentRow{}).
		Where("collection = ? AND id = ?", collection, id).
		Updates(map[string]interface{}{
			"data":       string(raw),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return docstore.Fail[docstore.Document](res.Error)
	}
	// 0件更新は「対象がない」
	if res.RowsAffected == 0 {
		return docstore.Fail[docstore.Document](fmt.Errorf("%w: %s/%s", docstore.ErrNotFound, collection, id))
	}
	return docstore.OK(docstore.Document{ID: id, Data: raw}, id)
}

func (r documentRow) toDocument() docstore.Document {
	return docstore.Document{ID: r.ID, Data: json.RawMessage(r.Data)}
}

var _ docstore.Store = (*GormStore)(nil)
