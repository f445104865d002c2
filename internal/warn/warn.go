// Package warn implements the per-user warning ledger: issuing warnings with
// unique identifiers, removing them by id, and paging through a user's history.
package warn

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	"slices"
	"strconv"
	"unicode/utf8"

	"github.com/gwarden/gwarden/internal/database"
	"github.com/gwarden/gwarden/internal/record"
)

const (
	idLength       = 10
	maxReasonChars = 150
	// PageSize is the fixed number of warnings shown per page.
	PageSize = 5

	maxIDAttempts = 5
)

// idAlphabet is the persisted identifier format: ascii letters, digits, then
// hex digits. The repeated 0-9a-fA-F runs bias draws toward those characters;
// the alphabet is kept as-is so new ids are indistinguishable from ones
// already stored.
const idAlphabet = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"0123456789" +
	"0123456789abcdefABCDEF"

var (
	ErrReasonTooLong  = errors.New("reason cannot be more than 150 characters")
	ErrIDGeneration   = errors.New("failed to generate a warning id")
	ErrInvalidPage    = errors.New("page number must be 1 or greater")
	ErrPageOutOfRange = errors.New("page number is out of range")
)

// Warning is one warning issued against a subject user. The subject id is the
// storage key, not part of the stored entry.
type Warning struct {
	SubjectID   uint64 `json:"-"`
	ID          string `json:"id"`
	Reason      string `json:"reason"`
	ModeratorID uint64 `json:"moderator"`
}

// Page is one page of a user's warning history.
type Page struct {
	Entries []Warning
	Number  int
	// Total is the user's full warning count, Pages the page count at PageSize.
	Total int
	Pages int
}

// Ledger issues and manages warnings. It performs data integrity checks only;
// permission and role-hierarchy enforcement belong to the caller.
type Ledger struct {
	store record.Store
}

func NewLedger(store record.Store) *Ledger {
	return &Ledger{store: store}
}

// Warn validates the reason, generates an identifier unique within the
// subject's existing sequence and appends the warning. Returns the stored
// warning and the English ordinal of its position ("1st", "2nd", ...).
func (l *Ledger) Warn(ctx context.Context, subjectID uint64, moderatorID uint64, reason string) (Warning, string, error) {
	if utf8.RuneCountInString(reason) > maxReasonChars {
		return Warning{}, "", ErrReasonTooLong
	}

	existing, errList := l.List(ctx, subjectID)
	if errList != nil && !errors.Is(errList, database.ErrNoResult) {
		return Warning{}, "", errList
	}

	warningID, errID := newID(existing)
	if errID != nil {
		return Warning{}, "", errID
	}

	warning := Warning{
		SubjectID:   subjectID,
		ID:          warningID,
		Reason:      reason,
		ModeratorID: moderatorID,
	}

	newLen, errAppend := l.store.Append(ctx, record.Warnings, subjectID, warning)
	if errAppend != nil {
		return Warning{}, "", errAppend
	}

	return warning, Ordinal(newLen), nil
}

// Remove deletes the warning with the given id. Identifiers are case
// sensitive. Returns database.ErrNoResult when the user has no warnings or no
// warning carries the id; the sequence is left unchanged in that case.
func (l *Ledger) Remove(ctx context.Context, subjectID uint64, warningID string) error {
	return l.store.Remove(ctx, record.Warnings, subjectID, func(raw json.RawMessage) bool {
		var entry Warning

		return json.Unmarshal(raw, &entry) == nil && entry.ID == warningID
	})
}

// RemoveAll clears the subject's entire warning sequence, returning how many
// warnings were removed. Returns database.ErrNoResult when none existed.
func (l *Ledger) RemoveAll(ctx context.Context, subjectID uint64) (int, error) {
	return l.store.Clear(ctx, record.Warnings, subjectID)
}

// List returns the subject's full warning history, oldest first.
func (l *Ledger) List(ctx context.Context, subjectID uint64) ([]Warning, error) {
	var warnings []Warning
	if errRead := l.store.ReadAllInto(ctx, record.Warnings, subjectID, &warnings); errRead != nil {
		return nil, errRead
	}

	for idx := range warnings {
		warnings[idx].SubjectID = subjectID
	}

	return warnings, nil
}

// GetPage returns the 1-indexed page of the subject's warning history. Page
// numbers below 1 are a validation error; pages past the end are out of range.
// A subject with no warnings yields database.ErrNoResult.
func (l *Ledger) GetPage(ctx context.Context, subjectID uint64, page int) (Page, error) {
	if page < 1 {
		return Page{}, ErrInvalidPage
	}

	warnings, errList := l.List(ctx, subjectID)
	if errList != nil {
		return Page{}, errList
	}

	var (
		total = len(warnings)
		pages = (total + PageSize - 1) / PageSize
	)

	if page > pages {
		return Page{}, ErrPageOutOfRange
	}

	first := (page - 1) * PageSize

	return Page{
		Entries: warnings[first:min(first+PageSize, total)],
		Number:  page,
		Total:   total,
		Pages:   pages,
	}, nil
}

// Ordinal renders n as an English ordinal: 1st, 2nd, 3rd, 4th, 11th, 21st.
func Ordinal(n int) string {
	key := n % 100
	if key >= 20 {
		key = n % 10
	}

	suffix := "th"

	switch key {
	case 1:
		suffix = "st"
	case 2:
		suffix = "nd"
	case 3:
		suffix = "rd"
	}

	return strconv.Itoa(n) + suffix
}

func newID(existing []Warning) (string, error) {
	for range maxIDAttempts {
		generated, errGen := generateID()
		if errGen != nil {
			return "", errGen
		}

		taken := slices.ContainsFunc(existing, func(entry Warning) bool {
			return entry.ID == generated
		})

		if !taken {
			return generated, nil
		}
	}

	return "", ErrIDGeneration
}

func generateID() (string, error) {
	ret := make([]byte, idLength)

	for idx := range idLength {
		num, errRand := rand.Int(rand.Reader, big.NewInt(int64(len(idAlphabet))))
		if errRand != nil {
			return "", errors.Join(errRand, ErrIDGeneration)
		}

		ret[idx] = idAlphabet[num.Int64()]
	}

	return string(ret), nil
}
