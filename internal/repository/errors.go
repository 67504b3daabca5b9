package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	// ErrOverlap is raised by the storage-level guard on confirmed reservations.
	ErrOverlap = errors.New("overlapping confirmed reservation")
)

const (
	pgUniqueViolation    = "23505"
	pgExclusionViolation = "23P01"

	confirmedSlotIndex = "idx_reservations_confirmed_slot"
)

// mapError translates driver errors into the package sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgExclusionViolation:
			return ErrOverlap
		case pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == confirmedSlotIndex:
			return ErrOverlap
		case pgErr.Code == pgUniqueViolation:
			return ErrDuplicate
		}
		return err
	}

	// modernc sqlite reports constraint failures as plain text
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		if strings.Contains(msg, "reservations.resource_id") {
			return ErrOverlap
		}
		return ErrDuplicate
	}
	return err
}

type txKey struct{}

// conn returns the transaction bound to ctx, or db.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// Transactor runs fn inside one database transaction. Repository calls made
// with the ctx passed to fn join that transaction.
type Transactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) *Transactor {
	return &Transactor{db: db}
}

func (t *Transactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// Models lists every table for AutoMigrate.
func Models() []any {
	return []any{&userModel{}, &resourceModel{}, &reservationModel{}, &settingsModel{}}
}
