package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNoEncontrado = errors.New("registro no encontrado")
	ErrDuplicado    = errors.New("registro duplicado")
	// ErrConflicto: the row changed state under us (e.g. the caja was closed)
	ErrConflicto = errors.New("el registro cambio de estado")
)

const pgUniqueViolation = "23505"

// traducir maps driver errors onto the package sentinels so services never
// depend on gorm or pgx directly.
func traducir(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNoEncontrado
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicado
	}
	return err
}
