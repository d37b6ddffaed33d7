// Package executor implements the Batch Executor component (§4.D): it
// applies resolved assignment operations with bounded concurrency,
// per-item retry with exponential backoff, and a continue-on-error policy
// shared by the bulk pipeline (D) and the Template Executor (F).
//
// Bounded dispatch is a buffered channel used as a semaphore plus a
// sync.WaitGroup, the same shape the donor codebase uses for its own
// goroutine-dispatched job scheduling, generalized from per-job to
// per-item dispatch.
package executor

import (
	"context"
	"sync"
	"time"

	"github.com/identitycore/idcenter/internal/directory"
	"github.com/identitycore/idcenter/internal/errs"
	"github.com/identitycore/idcenter/internal/metrics"
	"github.com/identitycore/idcenter/pkg/models"
)

// Tuning holds the concurrency/batch/rate-delay knobs the performance
// optimiser table in §4.D selects by input size.
type Tuning struct {
	MaxConcurrent int
	BatchSize     int
	RateDelay     time.Duration
}

// TuningFor implements the §4.D lookup table: ≤10 accounts,
// 11-50 accounts, and >50 accounts each get progressively more aggressive
// concurrency/batch settings; revoke gets the more aggressive of two
// adjacent buckets.
func TuningFor(accountCount int, op models.BulkOperation) Tuning {
	var t Tuning
	switch {
	case accountCount <= 10:
		maxConcurrent := accountCount
		if maxConcurrent > 15 {
			maxConcurrent = 15
		}
		if maxConcurrent < 1 {
			maxConcurrent = 1
		}
		t = Tuning{MaxConcurrent: maxConcurrent, BatchSize: accountCount, RateDelay: 100 * time.Millisecond}
	case accountCount <= 50:
		t = Tuning{MaxConcurrent: 25, BatchSize: 50, RateDelay: 50 * time.Millisecond}
	default:
		t = Tuning{MaxConcurrent: 30, BatchSize: 50, RateDelay: 20 * time.Millisecond}
	}
	if t.BatchSize < 1 {
		t.BatchSize = 1
	}
	if op == models.OpRevoke {
		t.MaxConcurrent += t.MaxConcurrent / 5
		if t.RateDelay > 20*time.Millisecond {
			t.RateDelay = t.RateDelay / 2
		}
	}
	return t
}

// Options configures one Batch Executor run.
type Options struct {
	InstanceArn       string
	DryRun            bool
	ContinueOnError   bool
	MaxRetries        int // default 2
	PerItemTimeout    time.Duration // default 60s
	Tuning            Tuning
}

// DefaultOptions returns §4.D's documented defaults.
func DefaultOptions() Options {
	return Options{MaxRetries: 2, PerItemTimeout: 60 * time.Second}
}

// Executor applies assign/revoke operations with bounded concurrency.
type Executor struct {
	client directory.Client
}

// New constructs an Executor against the given directory capability.
func New(client directory.Client) *Executor {
	return &Executor{client: client}
}

// Process implements §4.D's contract: it divides records into fixed-size
// batches, dispatches each batch's items concurrently bounded by
// MaxConcurrent, and aggregates the results.
func (e *Executor) Process(ctx context.Context, records []models.BulkRecord, op models.BulkOperation, opts Options) models.BulkResults {
	results := models.BulkResults{OpType: op}

	tuning := opts.Tuning
	if tuning.MaxConcurrent <= 0 {
		tuning = TuningFor(len(records), op)
	}
	if opts.PerItemTimeout <= 0 {
		opts.PerItemTimeout = 60 * time.Second
	}

	batchSize := tuning.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}

	var mu sync.Mutex
	cancelled := false

	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		sem := make(chan struct{}, tuning.MaxConcurrent)
		var wg sync.WaitGroup

		for _, rec := range batch {
			mu.Lock()
			stop := cancelled
			mu.Unlock()
			if stop {
				mu.Lock()
				results.Skipped = append(results.Skipped, models.BulkItemResult{Record: rec, Status: "skipped-cancelled"})
				mu.Unlock()
				continue
			}

			sem <- struct{}{}
			wg.Add(1)
			go func(rec models.BulkRecord) {
				defer wg.Done()
				defer func() { <-sem }()

				item := e.processOne(ctx, rec, op, opts)

				mu.Lock()
				defer mu.Unlock()
				switch {
				case item.Status == "failed":
					results.Failed = append(results.Failed, item)
					if !opts.ContinueOnError {
						cancelled = true
					}
				case item.Status == "already-exists", item.Status == "already-absent", item.Status == "created", item.Status == "deleted":
					results.Successful = append(results.Successful, item)
				default:
					results.Skipped = append(results.Skipped, item)
				}
			}(rec)
		}
		wg.Wait()
	}

	results.TotalProcessed = len(results.Successful) + len(results.Failed) + len(results.Skipped)
	return results
}

// processOne runs one assign/revoke operation through the existence-check,
// dispatch, and retry-classify algorithm in §4.D.
func (e *Executor) processOne(ctx context.Context, rec models.BulkRecord, op models.BulkOperation, opts Options) (result models.BulkItemResult) {
	defer func() { metrics.ItemsProcessed.WithLabelValues(result.Status).Inc() }()

	start := time.Now()
	result = models.BulkItemResult{Record: rec}

	if opts.DryRun {
		result.Status = "dry-run"
		result.Duration = time.Since(start)
		return result
	}

	a := models.Assignment{
		AccountID:        rec.AccountID,
		PermissionSetArn: rec.PermissionSetArn,
		PrincipalType:    rec.PrincipalType,
		PrincipalID:      rec.PrincipalID,
	}

	itemCtx, cancel := context.WithTimeout(ctx, opts.PerItemTimeout)
	defer cancel()

	existing, _, err := e.client.ListAssignments(itemCtx, a.AccountID, a.PermissionSetArn, directory.Page{})
	if err != nil {
		result.Status = "failed"
		result.Message = err.Error()
		result.Duration = time.Since(start)
		return result
	}

	present := false
	for _, ex := range existing {
		if ex.PrincipalType == a.PrincipalType && ex.PrincipalID == a.PrincipalID {
			present = true
			break
		}
	}

	if op == models.OpAssign && present {
		result.Status = "already-exists"
		result.Duration = time.Since(start)
		return result
	}
	if op == models.OpRevoke && !present {
		result.Status = "already-absent"
		result.Duration = time.Since(start)
		return result
	}

	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}

	var lastErr error
retry:
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if op == models.OpAssign {
			lastErr = e.client.CreateAssignment(itemCtx, a)
		} else {
			lastErr = e.client.DeleteAssignment(itemCtx, a)
		}
		if lastErr == nil {
			break
		}
		if !errs.IsTransient(lastErr) || attempt == maxRetries {
			break
		}
		metrics.ItemsRetried.Inc()
		select {
		case <-time.After(errs.NextDelay(attempt, errs.DefaultBase, errs.DefaultCap)):
		case <-itemCtx.Done():
			lastErr = itemCtx.Err()
			break retry
		}
	}

	if lastErr != nil {
		result.Status = "failed"
		result.Message = lastErr.Error()
		result.Duration = time.Since(start)
		return result
	}

	if op == models.OpAssign {
		result.Status = "created"
	} else {
		result.Status = "deleted"
	}
	result.Duration = time.Since(start)
	return result
}
