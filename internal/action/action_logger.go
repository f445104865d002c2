package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	embed "github.com/leighmacdonald/discordgo-embed"

	"github.com/gwarden/gwarden/internal/database"
	"github.com/gwarden/gwarden/internal/notification"
	"github.com/gwarden/gwarden/internal/record"
	"github.com/gwarden/gwarden/pkg/log"
)

const colourAction = 14327864

// Logger records moderation actions. Persistence is the hard guarantee;
// the channel notification is sent only after the record is durable and its
// failure is swallowed.
type Logger struct {
	store        record.Store
	notifier     notification.Notifier
	logChannelID string
}

func NewLogger(store record.Store, notifier notification.Notifier, logChannelID string) *Logger {
	return &Logger{
		store:        store,
		notifier:     notifier,
		logChannelID: logChannelID,
	}
}

// Record appends the action to the subject's moderation history, then mirrors
// it to the mod-log channel. A storage failure is returned to the caller; a
// notification failure is not.
func (l *Logger) Record(ctx context.Context, act Action) error {
	if _, errAppend := l.store.Append(ctx, record.ModerationActions, act.SubjectID, act); errAppend != nil {
		return errAppend
	}

	if l.logChannelID != "" {
		l.notifier.SendChannel(l.logChannelID, renderAction(act))
	}

	slog.Info("Recorded moderation action",
		slog.String("action", act.Kind),
		slog.Uint64("subject_id", act.SubjectID),
		slog.Uint64("moderator_id", act.ModeratorID))

	return nil
}

// History returns the subject's full action log, oldest first. A user with no
// history yields an empty slice.
func (l *Logger) History(ctx context.Context, subjectID uint64) ([]Action, error) {
	var actions []Action

	if errRead := l.store.ReadAllInto(ctx, record.ModerationActions, subjectID, &actions); errRead != nil {
		if errors.Is(errRead, database.ErrNoResult) {
			return nil, nil
		}

		slog.Error("Failed to load action history", log.ErrAttr(errRead), slog.Uint64("subject_id", subjectID))

		return nil, errRead
	}

	for idx := range actions {
		actions[idx].SubjectID = subjectID
	}

	return actions, nil
}

func renderAction(act Action) *discordgo.MessageEmbed {
	msgEmbed := embed.NewEmbed().
		SetTitle("ACTION | "+act.Kind).
		SetColor(colourAction).
		AddField("User", fmt.Sprintf("%d", act.SubjectID)).
		AddField("Moderator", fmt.Sprintf("%d", act.ModeratorID))

	if act.Reason != "" {
		msgEmbed.AddField("Reason", act.Reason)
	}

	if act.WarningID != "" {
		msgEmbed.AddField("ID", act.WarningID)
	}

	if act.Duration > 0 {
		msgEmbed.AddField("Duration", (time.Duration(act.Duration) * time.Second).String())
	}

	msgEmbed.Timestamp = time.Unix(act.CreatedOn, 0).UTC().Format(time.RFC3339)

	return msgEmbed.Truncate().MessageEmbed
}
