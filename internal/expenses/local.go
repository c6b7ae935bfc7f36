package expenses

import (
	"context"
	"encoding/json"
	"sync"

	"expense-client/internal/kvstore"
	"expense-client/internal/logger"
	"expense-client/internal/models"

	"go.uber.org/zap"
)

// Local keeps the ledger in memory and writes the whole list through to the
// key-value store after every mutation.
type Local struct {
	mu    sync.Mutex
	state []models.Expense

	kv  *kvstore.Store
	log *logger.Logger
}

// NewLocal loads the persisted ledger. An unreadable copy starts empty.
func NewLocal(ctx context.Context, kv *kvstore.Store, log *logger.Logger) *Local {
	if log == nil {
		log = logger.NewNop()
	}
	l := &Local{kv: kv, log: log.With(zap.String("component", "expenses.local"))}

	if raw, ok := kv.Get(ctx, kvstore.KeyExpenses); ok {
		if err := json.Unmarshal([]byte(raw), &l.state); err != nil {
			l.log.Warn(ctx, "persisted expenses are unreadable", zap.Error(err))
			l.state = nil
		}
	}
	return l
}

// List returns the current ledger.
func (l *Local) List(context.Context) ([]models.Expense, error) {
	return l.Expenses(), nil
}

// Expenses returns a copy of the current ledger.
func (l *Local) Expenses() []models.Expense {
	l.mu.Lock()
	defer l.mu.Unlock()
	return clone(l.state)
}

// Add validates d, assigns the next id and appends it.
func (l *Local) Add(ctx context.Context, d Draft) error {
	tx, err := check(d)
	if err != nil {
		return err
	}

	l.mu.Lock()
	var maxID int64
	for _, e := range l.state {
		maxID = max(maxID, e.ID)
	}
	e := models.Expense{
		ID:          maxID + 1,
		Description: tx.Description,
		Amount:      tx.Sum,
		Category:    tx.Category,
		Date:        tx.Date,
	}
	l.state = append(l.state, e)
	snapshot := clone(l.state)
	l.mu.Unlock()

	l.persist(ctx, snapshot)
	l.log.Debug(ctx, "expense added", zap.Int64("id", e.ID))
	return nil
}

// Delete removes the expense with id. Unknown ids are ignored.
func (l *Local) Delete(ctx context.Context, id int64) error {
	l.mu.Lock()
	kept := l.state[:0:0]
	for _, e := range l.state {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	removed := len(kept) != len(l.state)
	l.state = kept
	snapshot := clone(l.state)
	l.mu.Unlock()

	if !removed {
		l.log.Debug(ctx, "expense not found", zap.Int64("id", id))
	}
	l.persist(ctx, snapshot)
	return nil
}

func (l *Local) persist(ctx context.Context, list []models.Expense) {
	if list == nil {
		list = []models.Expense{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		l.log.Error(ctx, "encode expenses", zap.Error(err))
		return
	}
	l.kv.Set(ctx, kvstore.KeyExpenses, string(raw))
}
