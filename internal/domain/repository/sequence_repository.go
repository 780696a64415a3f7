package repository

import "context"

// SequenceRepository contadores monótonos por prefijo. Next no debe serializar transacciones
// que no comparten filas de stock.
type SequenceRepository interface {
	Next(ctx context.Context, prefix string) (int64, error)
}
