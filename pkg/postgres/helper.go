package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// IsForeignKeyViolation проверяет, является ли ошибка нарушением внешнего ключа (SQLSTATE 23503).
func IsForeignKeyViolation(err error) bool {
	return hasSQLState(err, "23503")
}

// IsUniqueViolation reports a unique constraint violation (SQLSTATE 23505).
func IsUniqueViolation(err error) bool {
	return hasSQLState(err, "23505")
}

func hasSQLState(err error, code string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == code
	}
	return false
}
