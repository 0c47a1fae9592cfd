package postgres

import (
	"context"

	"github.com/uptrace/bun"

	"lexcrm/backend/internal/domain"
)

type DashboardRepo struct {
	db bun.IDB
}

func NewDashboardRepo(db bun.IDB) *DashboardRepo {
	return &DashboardRepo{db: db}
}

func (r *DashboardRepo) Dashboard(ctx context.Context, recent int) (domain.Dashboard, error) {
	var out domain.Dashboard
	var err error

	if out.TotalClients, err = r.db.NewSelect().Model((*domain.Client)(nil)).Count(ctx); err != nil {
		return domain.Dashboard{}, err
	}
	out.ActiveAppointments, err = r.db.NewSelect().
		Model((*domain.Appointment)(nil)).
		Where("status = ?", domain.AppointmentActive).
		Count(ctx)
	if err != nil {
		return domain.Dashboard{}, err
	}
	out.ActiveUsers, err = r.db.NewSelect().
		Model((*domain.User)(nil)).
		Where("active").
		Count(ctx)
	if err != nil {
		return domain.Dashboard{}, err
	}
	if out.TotalInstances, err = r.db.NewSelect().Model((*domain.GatewayInstance)(nil)).Count(ctx); err != nil {
		return domain.Dashboard{}, err
	}

	if recent > 0 {
		err = r.db.NewRaw(`SELECT COALESCE(NULLIF(c.name, ''), m.phone) AS name, m.phone, m.created_at
			FROM conversation_messages AS m
			LEFT JOIN clients AS c ON c.phone = m.phone
			ORDER BY m.created_at DESC
			LIMIT ?`, recent).
			Scan(ctx, &out.Recent)
		if err != nil {
			return domain.Dashboard{}, err
		}
	}
	return out, nil
}
