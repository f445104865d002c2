// Package discord owns the bot session. It implements the outbound Notifier
// surface and feeds inbound guild messages through the automod engine.
package discord

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/gwarden/gwarden/internal/action"
	"github.com/gwarden/gwarden/internal/automod"
	"github.com/gwarden/gwarden/internal/config"
	"github.com/gwarden/gwarden/pkg/log"
)

var ErrSessionCreate = errors.New("failed to create discord session")

type Bot struct {
	session *discordgo.Session
	engine  *automod.Engine
	actions *action.Logger
	conf    config.DiscordConfig

	connectedMu sync.RWMutex
	connected   bool
}

func New(conf config.DiscordConfig, engine *automod.Engine) (*Bot, error) {
	if conf.Token == "" {
		return nil, config.ErrMissingToken
	}

	session, errSession := discordgo.New("Bot " + conf.Token)
	if errSession != nil {
		return nil, errors.Join(errSession, ErrSessionCreate)
	}

	session.UserAgent = "gwarden (https://github.com/gwarden/gwarden)"
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	bot := &Bot{session: session, engine: engine, conf: conf}

	session.AddHandler(bot.onConnect)
	session.AddHandler(bot.onDisconnect)
	session.AddHandler(bot.onMessageCreate)
	session.AddHandler(bot.onMessageUpdate)

	return bot, nil
}

// BindActionLogger attaches the action logger after construction; the logger
// itself notifies through this bot, so the two are wired in a second step.
func (b *Bot) BindActionLogger(actions *action.Logger) {
	b.actions = actions
}

func (b *Bot) Start() error {
	if errOpen := b.session.Open(); errOpen != nil {
		return errors.Join(errOpen, ErrSessionCreate)
	}

	return nil
}

func (b *Bot) Shutdown() {
	if errClose := b.session.Close(); errClose != nil {
		slog.Error("Failed to close discord session cleanly", log.ErrAttr(errClose))
	}
}

func (b *Bot) onConnect(_ *discordgo.Session, _ *discordgo.Connect) {
	b.connectedMu.Lock()
	b.connected = true
	b.connectedMu.Unlock()

	slog.Info("Connected to discord gateway")
}

func (b *Bot) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	b.connectedMu.Lock()
	b.connected = false
	b.connectedMu.Unlock()

	slog.Info("Disconnected from discord gateway")
}

func (b *Bot) isConnected() bool {
	b.connectedMu.RLock()
	defer b.connectedMu.RUnlock()

	return b.connected
}

// SendChannel delivers an embed to the channel. Delivery failures are logged
// and swallowed.
func (b *Bot) SendChannel(channelID string, embed *discordgo.MessageEmbed) {
	if channelID == "" || embed == nil {
		return
	}

	if !b.isConnected() {
		slog.Warn("Tried to send message while disconnected", slog.String("channel_id", channelID))

		return
	}

	if _, errSend := b.session.ChannelMessageSendEmbed(channelID, embed); errSend != nil {
		slog.Error("Failed to send channel message", log.ErrAttr(errSend), slog.String("channel_id", channelID))
	}
}

// SendDM delivers a direct message. Users with closed DMs are a normal case;
// failures are logged and swallowed.
func (b *Bot) SendDM(userID uint64, message string) {
	if !b.isConnected() {
		return
	}

	channel, errChannel := b.session.UserChannelCreate(formatID(userID))
	if errChannel != nil {
		slog.Debug("Failed to open dm channel", log.ErrAttr(errChannel), slog.Uint64("user_id", userID))

		return
	}

	if _, errSend := b.session.ChannelMessageSend(channel.ID, message); errSend != nil {
		slog.Debug("Failed to send dm", log.ErrAttr(errSend), slog.Uint64("user_id", userID))
	}
}
