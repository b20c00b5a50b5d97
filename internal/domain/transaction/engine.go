package transaction

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/fsorch/internal/domain/mutation"
	"github.com/GriffinCanCode/fsorch/internal/infrastructure/logging"
	"github.com/GriffinCanCode/fsorch/internal/shared/id"
)

// Executor applies and reverts single mutations.
type Executor interface {
	Capture(ctx context.Context, d mutation.Descriptor) (*mutation.Backup, error)
	Apply(ctx context.Context, d mutation.Descriptor) error
	Revert(ctx context.Context, d mutation.Descriptor, b *mutation.Backup) error
}

// Recorder receives lifecycle observations.
type Recorder interface {
	TransactionStarted()
	TransactionFinished(state string)
	RecordRollbackStep(err error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

type record struct {
	// run serializes Commit, Rollback and AddOperation.
	run sync.Mutex

	mu sync.RWMutex
	tx Transaction
}

func (r *record) state() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tx.State
}

func (r *record) update(now time.Time, fn func(tx *Transaction)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.tx)
	r.tx.UpdatedAt = now
}

// Engine owns the transaction table.
type Engine struct {
	exec     Executor
	log      *logging.Logger
	recorder Recorder
	now      func() time.Time

	mu  sync.RWMutex
	txs map[id.TransactionID]*record
}

// NewEngine creates a transaction engine applying steps through exec.
func NewEngine(exec Executor, opts ...Option) *Engine {
	e := &Engine{
		exec: exec,
		log:  logging.NewNop(),
		now:  time.Now,
		txs:  make(map[id.TransactionID]*record),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.Named("transaction")
	return e
}

// Create registers a new pending transaction.
func (e *Engine) Create() id.TransactionID {
	txID := id.NewTransactionID()
	now := e.now()

	e.mu.Lock()
	e.txs[txID] = &record{tx: Transaction{
		ID:         txID,
		State:      StatePending,
		Operations: []Operation{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}}
	e.mu.Unlock()

	if e.recorder != nil {
		e.recorder.TransactionStarted()
	}
	e.log.Debug("transaction created", logging.TxID(txID))
	return txID
}

func (e *Engine) get(txID id.TransactionID) (*record, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rec, ok := e.txs[txID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, txID)
	}
	return rec, nil
}

// AddOperation appends d to a pending transaction.
func (e *Engine) AddOperation(txID id.TransactionID, d mutation.Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	rec, err := e.get(txID)
	if err != nil {
		return err
	}

	rec.run.Lock()
	defer rec.run.Unlock()

	if s := rec.state(); s != StatePending {
		return fmt.Errorf("%w: cannot add operation to %s transaction %s", ErrInvalidState, s, txID)
	}
	rec.update(e.now(), func(tx *Transaction) {
		tx.Operations = append(tx.Operations, Operation{Descriptor: d})
	})
	return nil
}

// Commit applies every step in insertion order. If a step fails, the steps
// already applied are reverted in reverse order and a *CommitError is
// returned. If a reversal fails the transaction ends in StateFailed and a
// *RollbackError is returned instead.
//
// Cancelling ctx stops the commit before the next step and rolls back.
// Rollback itself is not cancelled.
func (e *Engine) Commit(ctx context.Context, txID id.TransactionID) error {
	rec, err := e.get(txID)
	if err != nil {
		return err
	}

	rec.run.Lock()
	defer rec.run.Unlock()

	if s := rec.state(); s != StatePending {
		return fmt.Errorf("%w: cannot commit %s transaction %s", ErrInvalidState, s, txID)
	}
	rec.update(e.now(), func(tx *Transaction) { tx.State = StateCommitting })

	// Operations only change under run, which this goroutine holds.
	ops := rec.tx.Operations
	log := e.log.With(logging.TxID(txID))

	for i := range ops {
		d := ops[i].Descriptor
		if err := e.step(ctx, rec, i, d); err != nil {
			cause := &CommitError{TxID: txID, Step: i + 1, Kind: d.Kind, Path: d.Path, Err: err}
			log.Warn("transaction step failed, rolling back",
				logging.Step(cause.Step),
				zap.String("kind", string(d.Kind)),
				logging.Path(d.Path),
				zap.Error(err),
			)
			return e.abort(context.WithoutCancel(ctx), rec, cause)
		}
	}

	rec.update(e.now(), func(tx *Transaction) { tx.State = StateCommitted })
	e.finished(StateCommitted)
	log.Info("transaction committed", zap.Int("steps", len(ops)))
	return nil
}

// step captures the backup for step i, unless the descriptor arrived with
// one, and applies it.
func (e *Engine) step(ctx context.Context, rec *record, i int, d mutation.Descriptor) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if d.Backup == nil {
		backup, err := e.exec.Capture(ctx, d)
		if err != nil {
			return err
		}
		rec.update(e.now(), func(tx *Transaction) { tx.Operations[i].Descriptor.Backup = backup })
	}

	if err := e.exec.Apply(ctx, d); err != nil {
		return err
	}
	rec.update(e.now(), func(tx *Transaction) { tx.Operations[i].Applied = true })
	return nil
}

// abort rolls back after cause and records the terminal state.
func (e *Engine) abort(ctx context.Context, rec *record, cause *CommitError) error {
	rec.update(e.now(), func(tx *Transaction) {
		tx.State = StateRollingBack
		tx.Error = cause.Error()
		tx.FailedStep = cause.Step
	})

	if err := e.rollback(ctx, rec, cause); err != nil {
		rec.update(e.now(), func(tx *Transaction) {
			tx.State = StateFailed
			tx.Error = err.Error()
		})
		e.finished(StateFailed)
		e.log.Error("transaction rollback failed",
			logging.TxID(cause.TxID),
			logging.Step(err.Step),
			logging.FailedStep(cause.Step),
			zap.Error(err.Err),
		)
		return err
	}

	rec.update(e.now(), func(tx *Transaction) { tx.State = StateRolledBack })
	e.finished(StateRolledBack)
	e.log.Info("transaction rolled back",
		logging.TxID(cause.TxID),
		logging.FailedStep(cause.Step),
	)
	return cause
}

// rollback reverts every applied, not yet reverted step from last to
// first. It stops at the first reversal that fails.
func (e *Engine) rollback(ctx context.Context, rec *record, cause *CommitError) *RollbackError {
	ops := rec.tx.Operations
	for i := len(ops) - 1; i >= 0; i-- {
		if !ops[i].Applied || ops[i].Reverted {
			continue
		}

		d := ops[i].Descriptor
		err := e.exec.Revert(ctx, d, d.Backup)
		if e.recorder != nil {
			e.recorder.RecordRollbackStep(err)
		}
		if err != nil {
			return &RollbackError{TxID: rec.tx.ID, Step: i + 1, Kind: d.Kind, Path: d.Path, Err: err, Cause: cause}
		}
		rec.update(e.now(), func(tx *Transaction) { tx.Operations[i].Reverted = true })
	}
	return nil
}

// Rollback discards a pending transaction. Nothing has been applied, so no
// I/O is performed. Any other state is rejected: a committing transaction
// rolls itself back on failure, and a terminal one cannot change.
func (e *Engine) Rollback(ctx context.Context, txID id.TransactionID) error {
	rec, err := e.get(txID)
	if err != nil {
		return err
	}

	rec.run.Lock()
	defer rec.run.Unlock()

	if s := rec.state(); s != StatePending {
		return fmt.Errorf("%w: cannot roll back %s transaction %s", ErrInvalidState, s, txID)
	}
	rec.update(e.now(), func(tx *Transaction) { tx.State = StateRolledBack })
	e.finished(StateRolledBack)
	e.log.Info("transaction discarded", logging.TxID(txID))
	return nil
}

// Status returns a copy of the transaction.
func (e *Engine) Status(txID id.TransactionID) (Transaction, error) {
	rec, err := e.get(txID)
	if err != nil {
		return Transaction{}, err
	}
	rec.mu.RLock()
	defer rec.mu.RUnlock()
	return rec.tx.clone(), nil
}

// List returns copies of every transaction in creation order.
func (e *Engine) List() []Transaction {
	e.mu.RLock()
	recs := make([]*record, 0, len(e.txs))
	for _, rec := range e.txs {
		recs = append(recs, rec)
	}
	e.mu.RUnlock()

	out := make([]Transaction, 0, len(recs))
	for _, rec := range recs {
		rec.mu.RLock()
		out = append(out, rec.tx.clone())
		rec.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Prune removes terminal transactions last updated more than olderThan
// ago and returns how many were removed.
func (e *Engine) Prune(olderThan time.Duration) int {
	cutoff := e.now().Add(-olderThan)

	e.mu.Lock()
	defer e.mu.Unlock()

	removed := 0
	for txID, rec := range e.txs {
		rec.mu.RLock()
		stale := rec.tx.State.Terminal() && rec.tx.UpdatedAt.Before(cutoff)
		rec.mu.RUnlock()
		if stale {
			delete(e.txs, txID)
			removed++
		}
	}
	if removed > 0 {
		e.log.Debug("pruned transactions", zap.Int("count", removed))
	}
	return removed
}

func (e *Engine) finished(s State) {
	if e.recorder != nil {
		e.recorder.TransactionFinished(string(s))
	}
}
