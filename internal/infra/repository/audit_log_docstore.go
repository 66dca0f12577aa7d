package repository

import (
	"context"
	"sort"

	"github.com/jedmamosto/tupv-project-sub000/internal/docstore"
	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"
	repo "github.com/jedmamosto/tupv-project-sub000/internal/repository"
)

type auditLogDocRepository struct {
	store docstore.Store
}

func NewAuditLogRepository(store docstore.Store) repo.AuditLogRepository {
	return &auditLogDocRepository{store: store}
}

func (r *auditLogDocRepository) Create(ctx context.Context, log model.AuditLog) error {
	log.ID = docstore.EnsureID(log.ID)
	res := r.store.Create(ctx, docstore.CollectionAuditLogs, log.ID, log)
	return translate(res.Err())
}

func (r *auditLogDocRepository) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	var filters []docstore.Filter
	if filter.ActorUserID != "" {
		filters = append(filters, docstore.Where("actor_user_id", filter.ActorUserID))
	}
	if filter.Action != "" {
		filters = append(filters, docstore.Where("action", string(filter.Action)))
	}
	if filter.ResourceType != "" {
		filters = append(filters, docstore.Where("resource_type", string(filter.ResourceType)))
	}
	if filter.ResourceID != "" {
		filters = append(filters, docstore.Where("resource_id", filter.ResourceID))
	}

	res := docstore.DecodeList[model.AuditLog](r.store.List(ctx, docstore.CollectionAuditLogs, filters...))
	if err := res.Err(); err != nil {
		return nil, translate(err)
	}
	logs := res.Data

	//新しい順
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].CreatedAt.After(logs[j].CreatedAt) })

	// limit
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}
