// Package sqlite provides the durable Store implementation backed by a
// single SQLite database file. It uses gorm over the pure-Go glebarez
// driver, so the binary stays cgo-free.
package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"roster/internal/store"
)

// Store is a sqlite-backed store.Store. The zero value is not usable; call
// Open. The same type doubles as the transaction handle: inTx marks handles
// whose db is already a transaction, so nested RunInTransaction calls join
// instead of opening a savepoint chain.
type Store struct {
	db   *gorm.DB
	inTx bool
	now  func() time.Time
}

// Open opens (creating if needed) the database at path and migrates the
// schema. The busy timeout makes concurrent writers queue instead of
// failing with SQLITE_BUSY.
func Open(path string) (*Store, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)"
	}
	// gorm's default logger writes to stdout, which the stdio transport
	// owns; keep the database quiet and let callers log.
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	if err := db.AutoMigrate(
		&projectRow{},
		&featureRow{},
		&taskRow{},
		&dependencyRow{},
		&roleTransitionRow{},
		&sectionRow{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) nowUTC() time.Time {
	return s.now().UTC()
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// transact runs fn inside a transaction, reusing the current one when the
// receiver already is a transaction handle.
func (s *Store) transact(ctx context.Context, fn func(tx *Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&Store{db: db, inTx: true, now: s.now})
	})
}

// RunInTransaction implements store.Store. A cancelled context after fn
// returns still rolls the transaction back.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return s.transact(ctx, func(tx *Store) error {
		if err := fn(tx); err != nil {
			return err
		}
		return ctx.Err()
	})
}

func stamp(createdAt, modifiedAt *time.Time, now time.Time) {
	if createdAt.IsZero() {
		*createdAt = now
	}
	if modifiedAt.IsZero() {
		*modifiedAt = *createdAt
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func anyTagMatch(tags, wanted []string) bool {
	for _, tag := range tags {
		for _, w := range wanted {
			if strings.EqualFold(tag, w) {
				return true
			}
		}
	}
	return false
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}
