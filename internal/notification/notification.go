// Package notification defines the outbound notification surface used by the
// moderation core. Delivery is best effort; persistence never depends on it.
package notification

import (
	"github.com/bwmarrin/discordgo"
)

// Notifier sends rendered notifications to the configured mod-log channel and
// direct messages to users. Implementations must swallow delivery failures;
// callers treat every send as fire-and-forget.
type Notifier interface {
	SendChannel(channelID string, embed *discordgo.MessageEmbed)
	SendDM(userID uint64, message string)
}

type nullNotifier struct{}

func (nullNotifier) SendChannel(_ string, _ *discordgo.MessageEmbed) {}

func (nullNotifier) SendDM(_ uint64, _ string) {}

// NewNullNotifier returns a Notifier which discards everything. Used by tests
// and when the bot runs without a configured log channel.
func NewNullNotifier() Notifier {
	return nullNotifier{}
}
