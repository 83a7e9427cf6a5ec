package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/fwojciec/starcat"
	"github.com/fwojciec/starcat/bloom"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ starcat.EntryService = (*EntryService)(nil)

// bloomFPRate is the false positive rate of the known-ID filter used
// during merges. A false positive costs one extra primary key lookup.
const bloomFPRate = 0.01

// bloomHeadroom multiplies the stored entry count when the known-ID filter
// is rebuilt, so later merges can add entries without another rebuild.
const bloomHeadroom = 2

var entryColumns = []string{"id", "owner", "name", "url", "stars", "language", "created_at", "updated_at"}

// EntryService implements starcat.EntryService using SQLite.
type EntryService struct {
	db *DB

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewEntryService creates a new EntryService.
func NewEntryService(db *DB) *EntryService {
	return &EntryService{db: db, Now: time.Now}
}

// MergeEntries folds a fresh listing into the store as a superset union.
// Entries missing from the listing are retained.
func (s *EntryService) MergeEntries(ctx context.Context, entries []*starcat.Entry) (*starcat.MergeResult, error) {
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	known, dirty, err := loadKnownIDs(ctx, tx, len(entries))
	if err != nil {
		return nil, err
	}

	now := formatRFC3339(s.Now())
	result := &starcat.MergeResult{SyncID: uuid.New().String()}
	for _, e := range entries {
		exists := false
		if known.Test(e.ID) {
			if exists, err = entryExists(ctx, tx, e.ID); err != nil {
				return nil, err
			}
		}

		if exists {
			query, args, err := sq.Update("entries").
				Set("stars", e.Stars).
				Set("language", e.Language).
				Set("updated_at", now).
				Where(sq.Eq{"id": e.ID}).
				ToSql()
			if err != nil {
				return nil, err
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return nil, fmt.Errorf("update entry %s: %w", e.ID, err)
			}
			result.Updated++
			continue
		}

		query, args, err := sq.Insert("entries").
			Columns(entryColumns...).
			Values(e.ID, e.Owner, e.Name, e.URL, e.Stars, e.Language, now, now).
			ToSql()
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("insert entry %s: %w", e.ID, err)
		}
		known.Add(e.ID)
		dirty = true
		result.Added++
	}

	if dirty {
		if err := saveKnownIDs(ctx, tx, known); err != nil {
			return nil, err
		}
	}

	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&result.Total); err != nil {
		return nil, err
	}

	query, args, err := sq.Insert("syncs").
		Columns("id", "listed", "added", "updated", "total", "created_at").
		Values(result.SyncID, len(entries), result.Added, result.Updated, result.Total, now).
		ToSql()
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("record sync: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

// loadKnownIDs returns the persisted filter of stored IDs. Negative answers
// let merges insert without a lookup. The filter is rebuilt from the table,
// and reported dirty, when it is missing, unreadable, or too small for the
// stored entries plus the incoming listing. Deleted IDs stay in the filter
// and only cost a lookup.
func loadKnownIDs(ctx context.Context, tx *sql.Tx, incoming int) (known *bloom.Filter, dirty bool, err error) {
	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&count); err != nil {
		return nil, false, err
	}

	var capacity int64
	var data []byte
	err = tx.QueryRowContext(ctx, "SELECT capacity, data FROM entry_filter WHERE id = 1").Scan(&capacity, &data)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, false, err
	case capacity >= int64(count+incoming):
		if known, err := bloom.DecodeFilter(data, uint(capacity)); err == nil {
			return known, false, nil
		}
	}

	known = bloom.NewFilter(uint(bloomHeadroom*(count+incoming)), bloomFPRate)
	rows, err := tx.QueryContext(ctx, "SELECT id FROM entries")
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, false, err
		}
		known.Add(id)
	}
	return known, true, rows.Err()
}

func saveKnownIDs(ctx context.Context, tx *sql.Tx, known *bloom.Filter) error {
	data, err := known.MarshalBinary()
	if err != nil {
		return err
	}
	query, args, err := sq.Insert("entry_filter").
		Columns("id", "capacity", "data").
		Values(1, int64(known.Capacity()), data).
		Suffix("ON CONFLICT(id) DO UPDATE SET capacity = excluded.capacity, data = excluded.data").
		ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save known ids: %w", err)
	}
	return nil
}

func entryExists(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM entries WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

// FindEntryByID retrieves an entry by ID.
func (s *EntryService) FindEntryByID(ctx context.Context, id string) (*starcat.Entry, error) {
	entries, err := s.FindEntries(ctx, starcat.EntryFilter{IDs: []string{id}, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, starcat.Errorf(starcat.ENOTFOUND, "entry %s not found", id)
	}
	return entries[0], nil
}

// FindEntries retrieves entries matching the filter, ordered by descending
// stars with ties broken by ID.
func (s *EntryService) FindEntries(ctx context.Context, filter starcat.EntryFilter) ([]*starcat.Entry, error) {
	b := sq.Select(entryColumns...).From("entries")
	if filter.IDs != nil {
		b = b.Where(sq.Eq{"id": filter.IDs})
	}
	if filter.Language != nil {
		b = b.Where(sq.Eq{"language": *filter.Language})
	}
	if filter.MinStars != nil {
		b = b.Where(sq.GtOrEq{"stars": *filter.MinStars})
	}
	b = paginate(b.OrderBy("stars DESC", "id ASC"), filter.Limit, filter.Offset)

	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*starcat.Entry{}
	for rows.Next() {
		var e starcat.Entry
		var createdAt, updatedAt string
		if err := rows.Scan(&e.ID, &e.Owner, &e.Name, &e.URL, &e.Stars, &e.Language, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if e.CreatedAt, err = parseRFC3339(createdAt, "created_at"); err != nil {
			return nil, err
		}
		if e.UpdatedAt, err = parseRFC3339(updatedAt, "updated_at"); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// DeleteEntry permanently removes an entry.
func (s *EntryService) DeleteEntry(ctx context.Context, id string) error {
	query, args, err := sq.Delete("entries").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return starcat.Errorf(starcat.ENOTFOUND, "entry %s not found", id)
	}
	return nil
}
