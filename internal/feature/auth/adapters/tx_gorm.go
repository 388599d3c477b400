// Package adapters はauthフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"cuecards_backend/internal/feature/auth/usecase"
)

type txKey struct{}

// gormTransactor runs callbacks inside a gorm transaction carried on the context.
type gormTransactor struct {
	db *gorm.DB
}

var _ usecase.Transactor = (*gormTransactor)(nil)

// NewGormTransactor creates a new instance of gormTransactor.
func NewGormTransactor(db *gorm.DB) *gormTransactor {
	return &gormTransactor{db: db}
}

// WithinTransaction はfnを1つのトランザクションで実行します。
// fnがエラーを返した場合はロールバックされます。既にトランザクション内であればセーブポイントになります。
func (t *gormTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return conn(ctx, t.db).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// conn returns the transaction stored in ctx, or db bound to ctx.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// isDuplicateKey reports a unique constraint violation.
// gorm translates it when TranslateError is enabled; the PostgreSQL code 23505 covers the rest.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
