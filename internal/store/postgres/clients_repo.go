package postgres

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"lexcrm/backend/internal/domain"
	"lexcrm/backend/internal/store"
)

const clientSearchLimit = 200

// likeEscaper makes user input match literally under ILIKE's default escape character.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type ClientRepo struct {
	db bun.IDB
}

func NewClientRepo(db bun.IDB) *ClientRepo {
	return &ClientRepo{db: db}
}

func (r *ClientRepo) Create(ctx context.Context, c domain.Client) (domain.Client, error) {
	m := c
	if _, err := r.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Client{}, mapError(err)
	}
	return m, nil
}

func (r *ClientRepo) Get(ctx context.Context, id uuid.UUID) (domain.Client, error) {
	var c domain.Client
	err := r.db.NewSelect().
		Model(&c).
		Where("c.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Client{}, mapError(err)
	}
	return c, nil
}

// List returns clients ordered by name; a non-empty query matches name, phone
// or tax id case-insensitively.
func (r *ClientRepo) List(ctx context.Context, query string) ([]domain.Client, error) {
	var rows []domain.Client
	q := r.db.NewSelect().Model(&rows)
	if query = strings.TrimSpace(query); query != "" {
		pattern := "%" + likeEscaper.Replace(query) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("c.name ILIKE ?", pattern).
				WhereOr("c.phone ILIKE ?", pattern).
				WhereOr("c.tax_id ILIKE ?", pattern)
		})
	}
	err := q.
		OrderExpr("c.name ASC, c.created_at ASC").
		Limit(clientSearchLimit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ClientRepo) Update(ctx context.Context, id uuid.UUID, patch store.ClientPatch) (domain.Client, error) {
	if patch.Empty() {
		return r.Get(ctx, id)
	}

	q := r.db.NewUpdate().
		Model((*domain.Client)(nil)).
		Where("id = ?", id)
	if patch.Name != nil {
		q = q.Set("name = ?", *patch.Name)
	}
	if patch.TaxID != nil {
		q = q.Set("tax_id = ?", nullIfBlank(*patch.TaxID))
	}
	if patch.Email != nil {
		q = q.Set("email = ?", nullIfBlank(*patch.Email))
	}
	if patch.Notes != nil {
		q = q.Set("notes = ?", nullIfBlank(*patch.Notes))
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return domain.Client{}, mapError(err)
	}
	if err := requireAffected(res); err != nil {
		return domain.Client{}, err
	}
	return r.Get(ctx, id)
}

func (r *ClientRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*domain.Client)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res)
}

func nullIfBlank(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
