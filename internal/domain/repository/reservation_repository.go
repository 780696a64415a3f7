package repository

import (
	"context"
	"time"

	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

// ReservationRepository persistencia de reservas y sus líneas de asignación.
type ReservationRepository interface {
	Create(ctx context.Context, r *entity.Reservation) error
	GetByID(ctx context.Context, id string) (*entity.Reservation, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Reservation, error)
	UpdateStatus(ctx context.Context, r *entity.Reservation) error
	// ListExpiredHeld ids de reservas HELD con expires_at <= now.
	ListExpiredHeld(ctx context.Context, now time.Time, limit int) ([]string, error)
}
