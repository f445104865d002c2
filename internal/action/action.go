// Package action persists the per-user moderation action log and mirrors each
// recorded action to the mod-log notification channel.
package action

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrUnknownKind = errors.New("unknown action kind")

// Kind is the type of moderation action taken against a user.
type Kind int

const (
	Ban Kind = iota
	Softban
	Kick
	RevokeBan
	Timeout
	TimeoutRemove
	Warn
	RevokeWarn
	AllWarningsRemoved
	Lock
	Unlock
)

// String returns the wire/display label. These values are persisted, do not
// change them without a data migration.
func (k Kind) String() string {
	switch k {
	case Ban:
		return "Ban"
	case Softban:
		return "Softban"
	case Kick:
		return "Kick"
	case RevokeBan:
		return "Revoke ban"
	case Timeout:
		return "Timeout"
	case TimeoutRemove:
		return "Timeout remove"
	case Warn:
		return "Warn"
	case RevokeWarn:
		return "Revoke warn"
	case AllWarningsRemoved:
		return "All warnings removed"
	case Lock:
		return "Lock"
	case Unlock:
		return "Unlock"
	default:
		return "Unknown"
	}
}

// ParseKind maps a user supplied label back onto a Kind. Matching is case
// insensitive and spaces may be written as underscores ("revoke_ban").
func ParseKind(arg string) (Kind, error) {
	normalized := strings.ToLower(strings.ReplaceAll(arg, "_", " "))

	for kind := Ban; kind <= Unlock; kind++ {
		if strings.ToLower(kind.String()) == normalized {
			return kind, nil
		}
	}

	return Ban, fmt.Errorf("%w: %s", ErrUnknownKind, arg)
}

// Action is one moderation action against a subject user. The subject id is
// also the storage key; it is embedded here so a single value carries the full
// context through logging and notification.
type Action struct {
	SubjectID   uint64 `json:"-"`
	Kind        string `json:"action"`
	Reason      string `json:"reason"`
	ModeratorID uint64 `json:"moderator"`
	// CreatedOn is stored as unix epoch seconds for round-trip stability.
	CreatedOn int64 `json:"at"`
	// WarningID is set for Warn/RevokeWarn actions.
	WarningID string `json:"warning_id,omitempty"`
	// Duration is set for Timeout actions, in seconds.
	Duration int64 `json:"duration,omitempty"`
}

// New creates an Action stamped with the current time.
func New(subjectID uint64, kind Kind, reason string, moderatorID uint64) Action {
	return Action{
		SubjectID:   subjectID,
		Kind:        kind.String(),
		Reason:      reason,
		ModeratorID: moderatorID,
		CreatedOn:   time.Now().Unix(),
	}
}

func (a Action) WithWarningID(warningID string) Action {
	a.WarningID = warningID

	return a
}

func (a Action) WithDuration(duration time.Duration) Action {
	a.Duration = int64(duration.Seconds())

	return a
}
