package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/gwarden/gwarden/internal/action"
	"github.com/gwarden/gwarden/internal/automod"
	"github.com/gwarden/gwarden/pkg/log"
)

const moderatorPermissions = discordgo.PermissionAdministrator |
	discordgo.PermissionManageGuild |
	discordgo.PermissionManageMessages

const checkTimeout = time.Second * 30

func (b *Bot) onMessageCreate(session *discordgo.Session, event *discordgo.MessageCreate) {
	b.moderate(session, event.Message)
}

func (b *Bot) onMessageUpdate(session *discordgo.Session, event *discordgo.MessageUpdate) {
	b.moderate(session, event.Message)
}

func (b *Bot) moderate(session *discordgo.Session, msg *discordgo.Message) {
	if msg == nil || msg.Author == nil {
		return
	}

	if b.conf.GuildID != "" && msg.GuildID != b.conf.GuildID {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	decision, errCheck := b.engine.Check(ctx, engineMessage(msg, b.isModerator(session, msg), b.channelNSFW(session, msg.ChannelID)))
	if errCheck != nil {
		slog.Error("Failed to evaluate message", log.ErrAttr(errCheck), slog.String("message_id", msg.ID))

		return
	}

	if !decision.Matched {
		return
	}

	b.takeAction(ctx, session, msg, decision)
}

// takeAction deletes the message, posts the short-lived notice and records the
// action. Deletion failures mean the message is already gone or permissions
// are missing; both are swallowed.
func (b *Bot) takeAction(ctx context.Context, session *discordgo.Session, msg *discordgo.Message, decision automod.Decision) {
	if errDelete := session.ChannelMessageDelete(msg.ChannelID, msg.ID); errDelete != nil {
		slog.Debug("Failed to delete message", log.ErrAttr(errDelete), slog.String("message_id", msg.ID))
	}

	notice := fmt.Sprintf("%s, %s", msg.Author.Mention(), decision.Notice)

	sent, errNotice := session.ChannelMessageSend(msg.ChannelID, notice)
	if errNotice != nil {
		slog.Debug("Failed to send notice", log.ErrAttr(errNotice))
	} else if b.conf.DeleteNoticeAfter > 0 {
		time.AfterFunc(b.conf.DeleteNoticeAfter, func() {
			if errClean := session.ChannelMessageDelete(sent.ChannelID, sent.ID); errClean != nil {
				slog.Debug("Failed to delete notice", log.ErrAttr(errClean))
			}
		})
	}

	authorID := parseID(msg.Author.ID)

	if b.actions != nil {
		act := action.New(authorID, action.Warn, "automod: "+decision.Rule.String(), parseID(session.State.User.ID))
		if errRecord := b.actions.Record(ctx, act); errRecord != nil {
			slog.Error("Failed to record automod action", log.ErrAttr(errRecord))
		}
	}

	b.SendDM(authorID, "Your message was removed: "+decision.Notice)

	slog.Info("Automod matched message",
		slog.String("rule", decision.Rule.String()),
		slog.Uint64("author_id", authorID),
		slog.String("channel_id", msg.ChannelID))
}

func (b *Bot) isModerator(session *discordgo.Session, msg *discordgo.Message) bool {
	perms, errPerms := session.State.MessagePermissions(msg)
	if errPerms != nil {
		return false
	}

	return perms&moderatorPermissions != 0
}

func (b *Bot) channelNSFW(session *discordgo.Session, channelID string) bool {
	channel, errChannel := session.State.Channel(channelID)
	if errChannel != nil {
		return false
	}

	return channel.NSFW
}

// engineMessage converts a gateway message into the engine's view of it.
func engineMessage(msg *discordgo.Message, authorIsModerator bool, channelNSFW bool) automod.Message {
	var mentions []uint64
	for _, mentioned := range msg.Mentions {
		mentions = append(mentions, parseID(mentioned.ID))
	}

	var attachments []string
	for _, attachment := range msg.Attachments {
		attachments = append(attachments, attachment.URL)
	}

	createdAt := msg.Timestamp
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return automod.Message{
		ID:                msg.ID,
		GuildID:           msg.GuildID,
		ChannelID:         msg.ChannelID,
		ChannelNSFW:       channelNSFW,
		AuthorID:          parseID(msg.Author.ID),
		AuthorIsBot:       msg.Author.Bot,
		AuthorIsModerator: authorIsModerator,
		Content:           msg.Content,
		Mentions:          mentions,
		Attachments:       attachments,
		CreatedAt:         createdAt,
	}
}

func parseID(snowflake string) uint64 {
	parsed, errParse := strconv.ParseUint(snowflake, 10, 64)
	if errParse != nil {
		return 0
	}

	return parsed
}

func formatID(userID uint64) string {
	return strconv.FormatUint(userID, 10)
}
