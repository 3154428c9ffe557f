package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	// MySQL (error code 1062)
	if strings.Contains(err.Error(), "Error 1062") {
		return true
	}

	// SQLite (error code 2067)
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return true
	}

	return false
}

// ErrorDetail is what the driver tells us about a failed statement.
type ErrorDetail struct {
	Code   string
	Detail string
	Hint   string
}

// Describe extracts SQLSTATE, detail and hint when the driver exposes them.
func Describe(err error) ErrorDetail {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return ErrorDetail{
			Code:   pgErr.Code,
			Detail: pgErr.Detail,
			Hint:   pgErr.Hint,
		}
	}
	return ErrorDetail{}
}
