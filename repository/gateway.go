package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/hpmalinova/Money-Ledger/contract"
	"github.com/hpmalinova/Money-Ledger/logger"
)

// MySQL server error numbers for foreign key failures.
const (
	errRowIsReferenced = 1451
	errNoReferencedRow = 1452
)

// Gateway owns connection lifecycle: each scope takes a dedicated
// connection from the pool and returns it on every exit path.
type Gateway struct {
	db *sql.DB
}

func NewGateway(db *sql.DB) *Gateway {
	return &Gateway{db: db}
}

func (g *Gateway) Close() error {
	return g.db.Close()
}

func (g *Gateway) Ping(ctx context.Context) error {
	if err := g.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", contract.ErrPersistence, err)
	}
	return nil
}

func (g *Gateway) WithTransaction(ctx context.Context, fn func(contract.Tx) error) error {
	return g.run(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, fn)
}

func (g *Gateway) WithSnapshot(ctx context.Context, fn func(contract.Tx) error) error {
	return g.run(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}, fn)
}

func (g *Gateway) run(ctx context.Context, opts *sql.TxOptions, fn func(contract.Tx) error) (err error) {
	conn, err := g.db.Conn(ctx)
	if err != nil {
		return classify(err)
	}
	defer conn.Close()

	// BEGIN TRANSACTION
	tx, err := conn.BeginTx(ctx, opts)
	if err != nil {
		return classify(err)
	}

	// DEFER ROLLBACK
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log := logger.FromContext(ctx)
			log.Warn().Err(rbErr).Msg("rollback failed")
		}
	}()

	if err = fn(tx); err != nil {
		return classify(err)
	}

	// COMMIT TRANSACTION
	if err = tx.Commit(); err != nil {
		return classify(err)
	}
	return nil
}

// classify maps store errors onto the contract taxonomy. Errors that
// already belong to it pass through unchanged.
func classify(err error) error {
	if contract.IsClassified(err) {
		return err
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case errRowIsReferenced, errNoReferencedRow:
			return fmt.Errorf("%w: %s", contract.ErrReferentialViolation, myErr.Message)
		}
	}
	return fmt.Errorf("%w: %w", contract.ErrPersistence, err)
}
