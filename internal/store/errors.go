package store

import (
	"database/sql"
	"errors"

	"pos-service/internal/apperr"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// notFound converts sql.ErrNoRows into an apperr NotFound for entity
func notFound(err error, entity string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(entity, id)
	}
	return err
}

// duplicate converts a unique violation into an apperr Duplicate
func duplicate(err error, message string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return apperr.Duplicate(message, err)
	}
	return err
}

// requireRow reports NotFound when an UPDATE or DELETE touched nothing
func requireRow(res sql.Result, entity string, id any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound(entity, id)
	}
	return nil
}
