package postgres

import (
	"context"

	"github.com/uptrace/bun"

	"lexcrm/backend/internal/domain"
	"lexcrm/backend/internal/store"
)

type ConversationRepo struct {
	db bun.IDB
}

func NewConversationRepo(db bun.IDB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

func (r *ConversationRepo) Append(ctx context.Context, m domain.ConversationMessage) (domain.ConversationMessage, error) {
	row := m
	if _, err := r.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return domain.ConversationMessage{}, mapError(err)
	}
	return row, nil
}

func (r *ConversationRepo) List(ctx context.Context, mq store.MessageQuery) ([]domain.ConversationMessage, error) {
	var rows []domain.ConversationMessage
	q := r.db.NewSelect().
		Model(&rows).
		Where("m.phone = ?", mq.Phone)
	if mq.NewestFirst {
		q = q.OrderExpr("m.created_at DESC")
	} else {
		q = q.OrderExpr("m.created_at ASC")
	}
	if mq.Limit > 0 {
		q = q.Limit(mq.Limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}
