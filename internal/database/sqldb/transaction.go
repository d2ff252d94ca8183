package sqldb

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
)

type txContextKey struct{}

// ContextWithTx returns a context carrying tx
func ContextWithTx(ctx context.Context, tx *sqlx.Tx) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// TxFromContext returns the transaction carried by ctx, if any
func TxFromContext(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(txContextKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}

// WithTransaction runs fn inside one transaction. The transaction travels on the context handed
// to fn, so every store call and event handler using that context joins the same unit of work.
// When ctx already carries a transaction fn joins it and the outer caller decides the outcome.
func (c *Client) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txID := "tx_" + uuid.Must(uuid.NewV4()).String()
	c.metrics.StartTransaction(txID, string(c.dialect))

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			c.metrics.RollbackTransaction(txID, fmt.Errorf("panic: %v", p))
			panic(p)
		}
	}()

	if err := fn(ContextWithTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			c.metrics.FailTransaction(txID, rbErr)
			return fmt.Errorf("transaction error: %w, rollback error: %v", err, rbErr)
		}
		c.metrics.RollbackTransaction(txID, err)
		return err
	}

	if err := tx.Commit(); err != nil {
		c.metrics.FailTransaction(txID, err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	c.metrics.CommitTransaction(txID)

	return nil
}
