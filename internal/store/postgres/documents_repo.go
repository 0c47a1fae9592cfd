package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"lexcrm/backend/internal/domain"
)

type DocumentRepo struct {
	db bun.IDB
}

func NewDocumentRepo(db bun.IDB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Create(ctx context.Context, d domain.Document) (domain.Document, error) {
	m := d
	if _, err := r.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Document{}, mapError(err)
	}
	return m, nil
}

func (r *DocumentRepo) Get(ctx context.Context, id uuid.UUID) (domain.Document, error) {
	var d domain.Document
	err := r.db.NewSelect().
		Model(&d).
		Where("d.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Document{}, mapError(err)
	}
	return d, nil
}

func (r *DocumentRepo) ListByClient(ctx context.Context, clientID uuid.UUID) ([]domain.Document, error) {
	var rows []domain.Document
	err := r.db.NewSelect().
		Model(&rows).
		Where("d.client_id = ?", clientID).
		OrderExpr("d.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *DocumentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*domain.Document)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res)
}
