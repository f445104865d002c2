package record

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/gwarden/gwarden/internal/database"
)

type postgresRepository struct {
	db database.Database
}

// NewRepository returns the postgres backed Repository. Per-user serialization
// is provided by running every read-modify-write inside a transaction holding
// a FOR UPDATE row lock.
func NewRepository(db database.Database) Repository {
	return &postgresRepository{db: db}
}

// lockRow reads the user's sequence inside the transaction, locking the row
// until commit. A missing row is reported as database.ErrNoResult.
func (r *postgresRepository) lockRow(ctx context.Context, tx pgx.Tx, kind Kind, userID uint64) ([]json.RawMessage, error) {
	query, args, errQuery := r.db.Builder().
		Select(kind.column()).
		From(kind.table()).
		Where("user_id = ?", int64(userID)). //nolint:gosec
		Suffix("FOR UPDATE").
		ToSql()
	if errQuery != nil {
		return nil, database.DBErr(errQuery)
	}

	var payload []byte
	if errScan := tx.QueryRow(ctx, query, args...).Scan(&payload); errScan != nil {
		return nil, database.DBErr(errScan)
	}

	var entries []json.RawMessage
	if errUnmarshal := json.Unmarshal(payload, &entries); errUnmarshal != nil {
		return nil, errUnmarshal //nolint:wrapcheck
	}

	return entries, nil
}

func (r *postgresRepository) writeRow(ctx context.Context, tx pgx.Tx, kind Kind, userID uint64, entries []json.RawMessage) error {
	payload, errMarshal := json.Marshal(entries)
	if errMarshal != nil {
		return errMarshal //nolint:wrapcheck
	}

	query, args, errQuery := r.db.Builder().
		Update(kind.table()).
		Set(kind.column(), payload).
		Where("user_id = ?", int64(userID)).
		ToSql()
	if errQuery != nil {
		return database.DBErr(errQuery)
	}

	if _, errExec := tx.Exec(ctx, query, args...); errExec != nil {
		return database.DBErr(errExec)
	}

	return nil
}

func (r *postgresRepository) insertRow(ctx context.Context, tx pgx.Tx, kind Kind, userID uint64, entries []json.RawMessage) error {
	payload, errMarshal := json.Marshal(entries)
	if errMarshal != nil {
		return errMarshal //nolint:wrapcheck
	}

	query, args, errQuery := r.db.Builder().
		Insert(kind.table()).
		Columns("user_id", kind.column()).
		Values(int64(userID), payload).
		ToSql()
	if errQuery != nil {
		return database.DBErr(errQuery)
	}

	if _, errExec := tx.Exec(ctx, query, args...); errExec != nil {
		return database.DBErr(errExec)
	}

	return nil
}

func (r *postgresRepository) Append(ctx context.Context, kind Kind, userID uint64, entry json.RawMessage) (int, error) {
	var newLen int

	errTx := r.db.WrapTx(ctx, func(tx pgx.Tx) error {
		entries, errLock := r.lockRow(ctx, tx, kind, userID)
		if errLock != nil {
			if !errors.Is(errLock, database.ErrNoResult) {
				return errLock
			}

			newLen = 1

			return r.insertRow(ctx, tx, kind, userID, []json.RawMessage{entry})
		}

		entries = append(entries, entry)
		newLen = len(entries)

		return r.writeRow(ctx, tx, kind, userID, entries)
	})
	if errTx != nil {
		return 0, errTx
	}

	return newLen, nil
}

func (r *postgresRepository) Remove(ctx context.Context, kind Kind, userID uint64, match func(json.RawMessage) bool) error {
	return r.db.WrapTx(ctx, func(tx pgx.Tx) error {
		entries, errLock := r.lockRow(ctx, tx, kind, userID)
		if errLock != nil {
			return errLock
		}

		matchIdx := -1

		for idx, entry := range entries {
			if match(entry) {
				matchIdx = idx

				break
			}
		}

		if matchIdx == -1 {
			return database.ErrNoResult
		}

		entries = append(entries[:matchIdx], entries[matchIdx+1:]...)

		return r.writeRow(ctx, tx, kind, userID, entries)
	})
}

func (r *postgresRepository) Clear(ctx context.Context, kind Kind, userID uint64) (int, error) {
	var removed int

	errTx := r.db.WrapTx(ctx, func(tx pgx.Tx) error {
		entries, errLock := r.lockRow(ctx, tx, kind, userID)
		if errLock != nil {
			return errLock
		}

		removed = len(entries)

		query, args, errQuery := r.db.Builder().
			Delete(kind.table()).
			Where("user_id = ?", int64(userID)).
			ToSql()
		if errQuery != nil {
			return database.DBErr(errQuery)
		}

		if _, errExec := tx.Exec(ctx, query, args...); errExec != nil {
			return database.DBErr(errExec)
		}

		return nil
	})
	if errTx != nil {
		return 0, errTx
	}

	return removed, nil
}

func (r *postgresRepository) ReadAll(ctx context.Context, kind Kind, userID uint64) ([]json.RawMessage, error) {
	row, errRow := r.db.QueryRowBuilder(ctx, r.db.Builder().
		Select(kind.column()).
		From(kind.table()).
		Where("user_id = ?", int64(userID)))
	if errRow != nil {
		return nil, database.DBErr(errRow)
	}

	var payload []byte
	if errScan := row.Scan(&payload); errScan != nil {
		return nil, database.DBErr(errScan)
	}

	var entries []json.RawMessage
	if errUnmarshal := json.Unmarshal(payload, &entries); errUnmarshal != nil {
		return nil, errUnmarshal //nolint:wrapcheck
	}

	return entries, nil
}
