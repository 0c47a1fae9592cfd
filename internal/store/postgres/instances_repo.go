package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"lexcrm/backend/internal/domain"
)

type InstanceRepo struct {
	db bun.IDB
}

func NewInstanceRepo(db bun.IDB) *InstanceRepo {
	return &InstanceRepo{db: db}
}

func (r *InstanceRepo) Create(ctx context.Context, inst domain.GatewayInstance) (domain.GatewayInstance, error) {
	m := inst
	if _, err := r.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.GatewayInstance{}, mapError(err)
	}
	return m, nil
}

func (r *InstanceRepo) List(ctx context.Context) ([]domain.GatewayInstance, error) {
	var rows []domain.GatewayInstance
	err := r.db.NewSelect().
		Model(&rows).
		OrderExpr("gi.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *InstanceRepo) Get(ctx context.Context, id uuid.UUID) (domain.GatewayInstance, error) {
	var g domain.GatewayInstance
	err := r.db.NewSelect().
		Model(&g).
		Where("gi.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.GatewayInstance{}, mapError(err)
	}
	return g, nil
}

// First returns the earliest registered instance, used for outgoing messages.
func (r *InstanceRepo) First(ctx context.Context) (domain.GatewayInstance, error) {
	var g domain.GatewayInstance
	err := r.db.NewSelect().
		Model(&g).
		OrderExpr("gi.created_at ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.GatewayInstance{}, mapError(err)
	}
	return g, nil
}

func (r *InstanceRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	res, err := r.db.NewUpdate().
		Model((*domain.GatewayInstance)(nil)).
		Set("status = ?", status).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res)
}

func (r *InstanceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*domain.GatewayInstance)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res)
}
