package service

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/rl1809/voice-inventory/internal/core/domain"
	"github.com/rl1809/voice-inventory/internal/port"
)

var ErrLedgerClosed = errors.New("ledger closed")

// Ledger queues inventory transactions for asynchronous persistence.
// Workers drain Queue and append each entry to a port.TransactionLog.
type Ledger struct {
	queue   chan domain.Transaction
	mu      sync.Mutex
	closed  bool
	entropy *ulid.MonotonicEntropy
	log     *zap.Logger
}

func NewLedger(queueSize int, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		queue:   make(chan domain.Transaction, queueSize),
		entropy: ulid.Monotonic(rand.Reader, 0),
		log:     log,
	}
}

// Record stamps tx with an ID and time and enqueues it. It blocks while the
// queue is full until ctx is done.
func (l *Ledger) Record(ctx context.Context, tx domain.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrLedgerClosed
	}

	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	if tx.ID == "" {
		id, err := ulid.New(ulid.Timestamp(tx.CreatedAt), l.entropy)
		if err != nil {
			return err
		}
		tx.ID = id.String()
	}

	select {
	case l.queue <- tx:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Ledger) Queue() <-chan domain.Transaction {
	return l.queue
}

func (l *Ledger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.queue)
	}
}

// Run appends queued transactions to sink until the queue is closed.
func (l *Ledger) Run(ctx context.Context, id int, sink port.TransactionLog) {
	l.log.Info("ledger worker started", zap.Int("worker_id", id))

	for tx := range l.queue {
		if err := sink.Append(ctx, tx); err != nil {
			l.log.Error("failed to persist transaction",
				zap.Int("worker_id", id),
				zap.String("tx_id", tx.ID),
				zap.String("product", tx.ProductName),
				zap.Error(err),
			)
			continue
		}
		l.log.Debug("transaction persisted",
			zap.Int("worker_id", id),
			zap.String("tx_id", tx.ID),
			zap.String("type", string(tx.Type)),
		)
	}

	l.log.Info("ledger worker stopped", zap.Int("worker_id", id))
}
