package testutil

import (
	"context"

	"github.com/doug-martin/goqu/v9"
)

// Transactor runs the callback with a nil transaction. It counts calls and
// records whether the last callback failed, which is what a rollback would be.
type Transactor struct {
	Calls      int
	RolledBack bool
}

func (t *Transactor) WithinTransaction(ctx context.Context, fn func(tx *goqu.TxDatabase) error) error {
	t.Calls++
	err := fn(nil)
	t.RolledBack = err != nil
	return err
}
