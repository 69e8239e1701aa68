package postgres

import (
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fastygo/volunteers/domain"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

// likePattern escapes LIKE metacharacters and wraps term for a substring match.
func likePattern(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(term) + "%"
}

func nullableID(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

func calendarDay(d domain.Date) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func notFound(err error, target *domain.Error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return target
	}
	return err
}
