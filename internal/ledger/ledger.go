// Package ledger implements the balance mutation writers: every movement of
// money changes one or more stored balances and appends the matching ledger
// entries inside a single database transaction, so a balance and the
// ledger that explains it always agree.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"github.com/stanrainier/stan-finance-tracker/internal/feed"
	"github.com/stanrainier/stan-finance-tracker/internal/metrics"
)

// Options tunes the writers.
type Options struct {
	// MaxRetries is how many times a transaction is re-run after a version
	// conflict or a busy database. Zero means no retry.
	MaxRetries int
	// RetryBackoff is multiplied by the attempt number between retries.
	RetryBackoff time.Duration
	// ZeroSettledReceivables zeroes a receivable's amount when it is paid.
	ZeroSettledReceivables bool
}

// Service runs the writers and readers for all users.
type Service struct {
	db   *gorm.DB
	feed feed.Publisher
	opts Options
	now  func() time.Time
}

// New creates a Service. pub may be nil when nobody listens for changes.
func New(db *gorm.DB, pub feed.Publisher, opts Options) *Service {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Service{db: db, feed: pub, opts: opts, now: time.Now}
}

// DB exposes the underlying handle for read-only collaborators such as
// exports and backups.
func (s *Service) DB() *gorm.DB { return s.db }

// changes collects the documents a writer touched; they are announced on the
// feed only once the transaction has committed.
type changes []feed.Event

func (c *changes) add(collection, id string, op feed.Op) {
	*c = append(*c, feed.Event{Collection: collection, ID: id, Op: op})
}

// write runs fn in a transaction, retrying on conflicts, and records metrics.
// fn must not keep state across attempts other than through its own outputs,
// which it must reassign on every run.
func (s *Service) write(ctx context.Context, uid, op string, fn func(tx *gorm.DB, ch *changes) error) error {
	start := time.Now()
	defer func() {
		metrics.LedgerWriteSeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	var (
		ch  changes
		err error
	)
	for attempt := 0; ; attempt++ {
		ch = ch[:0]
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(tx, &ch)
		})
		if err == nil || !retryable(err) || attempt >= s.opts.MaxRetries {
			break
		}
		metrics.LedgerRetries.WithLabelValues(op).Inc()
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(s.opts.RetryBackoff * time.Duration(attempt+1)):
			continue
		}
		break
	}

	switch {
	case err == nil:
		metrics.LedgerWrites.WithLabelValues(op, "ok").Inc()
		if s.feed != nil && len(ch) > 0 {
			s.feed.Publish(uid, ch...)
		}
		return nil
	case IsValidation(err) || IsNotFound(err):
		metrics.LedgerWrites.WithLabelValues(op, "rejected").Inc()
		return err
	}

	metrics.LedgerWrites.WithLabelValues(op, "error").Inc()
	if retryable(err) && !errors.Is(err, ErrConflict) {
		err = fmt.Errorf("%w: %v", ErrConflict, err)
	}
	log.Printf("ledger: %s failed for user %s: %v", op, uid, err)
	return fmt.Errorf("%s: %w", op, err)
}

// retryable reports version conflicts and SQLite lock contention.
func retryable(err error) bool {
	if errors.Is(err, ErrConflict) {
		return true
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

// saveVersioned updates a versioned row only if nobody else changed it since
// it was read. fields gets the bumped version added.
func saveVersioned(tx *gorm.DB, model interface{}, id string, version int64, fields map[string]interface{}) error {
	fields["version"] = version + 1
	res := tx.Model(model).Where("id = ? AND version = ?", id, version).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// lookup turns gorm's not-found into the given sentinel.
func lookup(err error, notFound error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return fmt.Errorf("load %s: %w", what, err)
}

// startOfTomorrow is the first instant a date_incurred may not reach.
func (s *Service) startOfTomorrow() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
}
