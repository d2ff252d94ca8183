// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package observability

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/qolzam/telar/apps/crud/internal/pkg/log"
)

// TransactionMetrics describes one unit of work
type TransactionMetrics struct {
	TransactionID string
	Dialect       string
	StartTime     time.Time
	Duration      time.Duration
	Status        string
	ErrorMessage  string
}

// Stats is a snapshot of the collector counters
type Stats struct {
	Active          int64
	Total           int64
	Committed       int64
	RolledBack      int64
	Failed          int64
	AverageDuration time.Duration
}

// MetricsCollector tracks transaction outcomes for one database client
type MetricsCollector struct {
	activeTransactions     int64
	totalTransactions      int64
	committedTransactions  int64
	rolledBackTransactions int64
	failedTransactions     int64
	totalDuration          int64 // nanoseconds
	mu                     sync.RWMutex
	transactions           map[string]*TransactionMetrics
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		transactions: make(map[string]*TransactionMetrics),
	}
}

// StartTransaction records the start of a new transaction
func (mc *MetricsCollector) StartTransaction(txID, dialect string) {
	atomic.AddInt64(&mc.activeTransactions, 1)
	atomic.AddInt64(&mc.totalTransactions, 1)

	mc.mu.Lock()
	mc.transactions[txID] = &TransactionMetrics{
		TransactionID: txID,
		Dialect:       dialect,
		StartTime:     time.Now(),
		Status:        "active",
	}
	mc.mu.Unlock()

	log.Debug("Transaction started: %s (%s)", txID, dialect)
}

// CommitTransaction records a successful transaction commit
func (mc *MetricsCollector) CommitTransaction(txID string) {
	atomic.AddInt64(&mc.committedTransactions, 1)
	mc.finish(txID, "committed", nil)
}

// RollbackTransaction records a transaction rollback caused by err
func (mc *MetricsCollector) RollbackTransaction(txID string, err error) {
	atomic.AddInt64(&mc.rolledBackTransactions, 1)
	mc.finish(txID, "rolled_back", err)
}

// FailTransaction records a transaction that could neither commit nor roll back cleanly
func (mc *MetricsCollector) FailTransaction(txID string, err error) {
	atomic.AddInt64(&mc.failedTransactions, 1)
	mc.finish(txID, "failed", err)
}

func (mc *MetricsCollector) finish(txID, status string, err error) {
	atomic.AddInt64(&mc.activeTransactions, -1)

	mc.mu.Lock()
	defer mc.mu.Unlock()

	metrics, exists := mc.transactions[txID]
	if !exists {
		return
	}
	delete(mc.transactions, txID)

	metrics.Status = status
	metrics.Duration = time.Since(metrics.StartTime)
	atomic.AddInt64(&mc.totalDuration, int64(metrics.Duration))
	if err != nil {
		metrics.ErrorMessage = err.Error()
	}

	switch status {
	case "committed":
		log.Debug("Transaction committed: %s (duration: %v)", txID, metrics.Duration)
	case "rolled_back":
		log.Debug("Transaction rolled back: %s (duration: %v, error: %v)", txID, metrics.Duration, err)
	default:
		log.Error("Transaction failed: %s (duration: %v, error: %v)", txID, metrics.Duration, err)
	}
}

// Active returns the metrics of a transaction that has not finished yet
func (mc *MetricsCollector) Active(txID string) *TransactionMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if metrics, exists := mc.transactions[txID]; exists {
		copy := *metrics
		return &copy
	}
	return nil
}

// Stats returns the collector counters
func (mc *MetricsCollector) Stats() Stats {
	committed := atomic.LoadInt64(&mc.committedTransactions)
	rolledBack := atomic.LoadInt64(&mc.rolledBackTransactions)
	failed := atomic.LoadInt64(&mc.failedTransactions)

	var avg time.Duration
	if completed := committed + rolledBack + failed; completed > 0 {
		avg = time.Duration(atomic.LoadInt64(&mc.totalDuration) / completed)
	}

	return Stats{
		Active:          atomic.LoadInt64(&mc.activeTransactions),
		Total:           atomic.LoadInt64(&mc.totalTransactions),
		Committed:       committed,
		RolledBack:      rolledBack,
		Failed:          failed,
		AverageDuration: avg,
	}
}
