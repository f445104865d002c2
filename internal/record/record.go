// Package record implements the durable per-user moderation record store. Two
// independent record kinds are tracked, each persisted as an ordered JSON list
// keyed by the subject user id.
package record

import (
	"context"
	"encoding/json"
)

// Kind selects which per-user record sequence an operation applies to.
type Kind int

const (
	// ModerationActions is the append-only log of actions taken against a user.
	ModerationActions Kind = iota
	// Warnings is the editable sequence of warnings issued to a user.
	Warnings
)

func (k Kind) table() string {
	if k == ModerationActions {
		return "moderation_actions"
	}

	return "warns"
}

func (k Kind) column() string {
	if k == ModerationActions {
		return "actions"
	}

	return "warn_data"
}

func (k Kind) String() string {
	if k == ModerationActions {
		return "moderation_actions"
	}

	return "warns"
}

// Repository is the storage contract for per-user record sequences. A row is
// created on first append and destroyed only by Clear. Implementations must
// serialize read-modify-write cycles per (kind, user) so concurrent appends
// never drop entries.
type Repository interface {
	// Append adds entry to the end of the user's sequence, creating the row when
	// absent. Returns the sequence length after the append.
	Append(ctx context.Context, kind Kind, userID uint64, entry json.RawMessage) (int, error)
	// Remove deletes the first entry matched by the predicate. Returns
	// database.ErrNoResult when the row or a matching entry does not exist.
	Remove(ctx context.Context, kind Kind, userID uint64, match func(json.RawMessage) bool) error
	// Clear drops the user's row entirely, returning how many entries it held.
	// Returns database.ErrNoResult when no row existed.
	Clear(ctx context.Context, kind Kind, userID uint64) (int, error)
	// ReadAll returns the full ordered sequence. Returns database.ErrNoResult
	// when no row exists.
	ReadAll(ctx context.Context, kind Kind, userID uint64) ([]json.RawMessage, error)
}

// Store is a thin façade over a Repository which owns the JSON round-tripping
// of typed records.
type Store struct {
	repo Repository
}

func NewStore(repo Repository) Store {
	return Store{repo: repo}
}

// Append marshals rec and appends it to the user's sequence, returning the new
// sequence length.
func (s Store) Append(ctx context.Context, kind Kind, userID uint64, rec any) (int, error) {
	raw, errMarshal := json.Marshal(rec)
	if errMarshal != nil {
		return 0, errMarshal //nolint:wrapcheck
	}

	return s.repo.Append(ctx, kind, userID, raw)
}

func (s Store) Remove(ctx context.Context, kind Kind, userID uint64, match func(json.RawMessage) bool) error {
	return s.repo.Remove(ctx, kind, userID, match)
}

func (s Store) Clear(ctx context.Context, kind Kind, userID uint64) (int, error) {
	return s.repo.Clear(ctx, kind, userID)
}

func (s Store) ReadAll(ctx context.Context, kind Kind, userID uint64) ([]json.RawMessage, error) {
	return s.repo.ReadAll(ctx, kind, userID)
}

// ReadAllInto unmarshals the user's full sequence into out, which must be a
// pointer to a slice type.
func (s Store) ReadAllInto(ctx context.Context, kind Kind, userID uint64, out any) error {
	rows, errRead := s.repo.ReadAll(ctx, kind, userID)
	if errRead != nil {
		return errRead
	}

	merged, errMarshal := json.Marshal(rows)
	if errMarshal != nil {
		return errMarshal //nolint:wrapcheck
	}

	return json.Unmarshal(merged, out) //nolint:wrapcheck
}
