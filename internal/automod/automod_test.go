package automod_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gwarden/gwarden/internal/automod"
	"github.com/gwarden/gwarden/internal/metrics"
	"github.com/gwarden/gwarden/internal/thirdparty"
)

type phishFunc func(ctx context.Context, message string) ([]thirdparty.PhishMatch, error)

func (f phishFunc) Check(ctx context.Context, message string) ([]thirdparty.PhishMatch, error) {
	return f(ctx, message)
}

type nsfwFunc func(ctx context.Context, imageURL string) (float64, error)

func (f nsfwFunc) Score(ctx context.Context, imageURL string) (float64, error) {
	return f(ctx, imageURL)
}

func noPhish(_ context.Context, _ string) ([]thirdparty.PhishMatch, error) {
	return nil, nil
}

func noNSFW(_ context.Context, _ string) (float64, error) {
	return 0, nil
}

func newEngine(conf automod.Config, phish phishFunc, nsfw nsfwFunc) *automod.Engine {
	return automod.NewEngine(conf,
		automod.NewWindow(automod.SpamLookback, 1000),
		phish, nsfw, metrics.NewCollector())
}

func guildMessage(authorID uint64, content string) automod.Message {
	return automod.Message{
		ID:        "msg-1",
		GuildID:   "guild-1",
		ChannelID: "chan-1",
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

func TestCheckGuards(t *testing.T) {
	conf := automod.Config{Badwords: true, CustomBadwords: []string{"heck"}}
	engine := newEngine(conf, noPhish, noNSFW)

	blocked := guildMessage(1, "heck")

	match, errMatch := engine.Check(t.Context(), blocked)
	require.NoError(t, errMatch)
	require.True(t, match.Matched)

	noGuild := blocked
	noGuild.GuildID = ""

	decision, errCheck := engine.Check(t.Context(), noGuild)
	require.NoError(t, errCheck)
	require.False(t, decision.Matched)

	fromBot := blocked
	fromBot.AuthorIsBot = true

	decision, errCheck = engine.Check(t.Context(), fromBot)
	require.NoError(t, errCheck)
	require.False(t, decision.Matched)

	fromMod := blocked
	fromMod.AuthorIsModerator = true

	decision, errCheck = engine.Check(t.Context(), fromMod)
	require.NoError(t, errCheck)
	require.False(t, decision.Matched)

	ownerConf := conf
	ownerConf.Owners = []uint64{1}

	decision, errCheck = newEngine(ownerConf, noPhish, noNSFW).Check(t.Context(), blocked)
	require.NoError(t, errCheck)
	require.False(t, decision.Matched)

	ignoredConf := conf
	ignoredConf.IgnoredChannels = []string{"chan-1"}

	decision, errCheck = newEngine(ignoredConf, noPhish, noNSFW).Check(t.Context(), blocked)
	require.NoError(t, errCheck)
	require.False(t, decision.Matched)
}

// A message matching both badwords and caps must resolve to badwords, the
// higher priority rule.
func TestCheckOrderDeterminism(t *testing.T) {
	engine := newEngine(automod.Config{
		Badwords:       true,
		Caps:           true,
		CapsThreshold:  50,
		CustomBadwords: []string{"heck"},
	}, noPhish, noNSFW)

	decision, errCheck := engine.Check(t.Context(), guildMessage(1, "HECK THIS PLACE"))
	require.NoError(t, errCheck)
	require.True(t, decision.Matched)
	require.Equal(t, automod.RuleBadwords, decision.Rule)
}

func TestCheckCaps(t *testing.T) {
	engine := newEngine(automod.Config{Caps: true, CapsThreshold: 50}, noPhish, noNSFW)

	cases := []struct {
		content string
		matched bool
	}{
		{"AAAAAAA", true},
		{"Aaaaaaa", false},
		{"AAAAAA", false}, // below the minimum length, ratio is irrelevant
		{"AAAAbbbb", true},
		{"AAAbbbbb", false},
	}

	for _, testCase := range cases {
		decision, errCheck := engine.Check(t.Context(), guildMessage(1, testCase.content))
		require.NoError(t, errCheck)
		require.Equal(t, testCase.matched, decision.Matched, testCase.content)
	}
}

func TestCheckInvites(t *testing.T) {
	engine := newEngine(automod.Config{Invites: true}, noPhish, noNSFW)

	cases := []struct {
		content string
		matched bool
	}{
		{"join discord.gg/abc123", true},
		{"https://www.discord.com/invite/abc", true},
		{"https://dsc.gg/something", true},
		{"invite.gg/x", true},
		{"see you on example.com", false},
		{"discord.gg/", false},
	}

	for _, testCase := range cases {
		decision, errCheck := engine.Check(t.Context(), guildMessage(1, testCase.content))
		require.NoError(t, errCheck)
		require.Equal(t, testCase.matched, decision.Matched, testCase.content)
		if testCase.matched {
			require.Equal(t, automod.RuleInvites, decision.Rule)
		}
	}
}

func TestCheckSpamBurst(t *testing.T) {
	engine := newEngine(automod.Config{Spam: true, SpamBurst: 3, SpamMessageLimit: 500}, noPhish, noNSFW)

	for idx := range 2 {
		decision, errCheck := engine.Check(t.Context(), guildMessage(5, fmt.Sprintf("hello %d", idx)))
		require.NoError(t, errCheck)
		require.False(t, decision.Matched)
	}

	decision, errCheck := engine.Check(t.Context(), guildMessage(5, "hello again"))
	require.NoError(t, errCheck)
	require.True(t, decision.Matched)
	require.Equal(t, automod.RuleSpam, decision.Rule)

	// A different author is unaffected by the burst.
	other, errOther := engine.Check(t.Context(), guildMessage(6, "hello"))
	require.NoError(t, errOther)
	require.False(t, other.Matched)
}

func TestCheckSpamMessageLength(t *testing.T) {
	engine := newEngine(automod.Config{Spam: true, SpamBurst: 100, SpamMessageLimit: 10}, noPhish, noNSFW)

	decision, errCheck := engine.Check(t.Context(), guildMessage(1, "0123456789A"))
	require.NoError(t, errCheck)
	require.True(t, decision.Matched)

	short, errShort := engine.Check(t.Context(), guildMessage(2, "012345678"))
	require.NoError(t, errShort)
	require.False(t, short.Matched)
}

func TestCheckPhish(t *testing.T) {
	flagged := []thirdparty.PhishMatch{{URL: "free-nitro.example", Type: "phishing", TrustRating: 0.99}}

	engine := newEngine(automod.Config{Phish: true}, func(_ context.Context, _ string) ([]thirdparty.PhishMatch, error) {
		return flagged, nil
	}, noNSFW)

	decision, errCheck := engine.Check(t.Context(), guildMessage(1, "grab it at https://free-nitro.example/claim"))
	require.NoError(t, errCheck)
	require.True(t, decision.Matched)
	require.Equal(t, automod.RulePhish, decision.Rule)
	require.Equal(t, flagged, decision.PhishMatches)
	require.Contains(t, decision.Notice, "phishing")

	// Without a URL in the message the service is never consulted.
	called := false

	engine = newEngine(automod.Config{Phish: true}, func(_ context.Context, _ string) ([]thirdparty.PhishMatch, error) {
		called = true

		return flagged, nil
	}, noNSFW)

	plain, errPlain := engine.Check(t.Context(), guildMessage(1, "no links here"))
	require.NoError(t, errPlain)
	require.False(t, plain.Matched)
	require.False(t, called)
}

// A classifier outage must never block a message.
func TestCheckPhishFailOpen(t *testing.T) {
	engine := newEngine(automod.Config{Phish: true}, func(_ context.Context, _ string) ([]thirdparty.PhishMatch, error) {
		return nil, errors.New("connection refused")
	}, noNSFW)

	decision, errCheck := engine.Check(t.Context(), guildMessage(1, "see https://maybe-bad.example/x"))
	require.NoError(t, errCheck)
	require.False(t, decision.Matched)
}

func TestCheckNSFW(t *testing.T) {
	scores := map[string]float64{
		"https://cdn.example/one.png": 0.2,
		"https://cdn.example/two.png": 0.9,
	}

	engine := newEngine(automod.Config{NSFW: true}, noPhish, func(_ context.Context, imageURL string) (float64, error) {
		return scores[imageURL], nil
	})

	msg := guildMessage(1, "look at this")
	msg.Attachments = []string{"https://cdn.example/one.png", "https://cdn.example/two.png"}

	decision, errCheck := engine.Check(t.Context(), msg)
	require.NoError(t, errCheck)
	require.True(t, decision.Matched)
	require.Equal(t, automod.RuleNSFW, decision.Rule)

	// NSFW channels are exempt.
	exempt := msg
	exempt.ChannelNSFW = true

	decision, errCheck = engine.Check(t.Context(), exempt)
	require.NoError(t, errCheck)
	require.False(t, decision.Matched)
}

// A failure scoring one URL does not stop the rest of the batch.
func TestCheckNSFWPerURLFailure(t *testing.T) {
	engine := newEngine(automod.Config{NSFW: true}, noPhish, func(_ context.Context, imageURL string) (float64, error) {
		if imageURL == "https://cdn.example/broken.png" {
			return 0, errors.New("service error")
		}

		return 0.95, nil
	})

	msg := guildMessage(1, "")
	msg.Attachments = []string{"https://cdn.example/broken.png", "https://cdn.example/nope.png"}

	decision, errCheck := engine.Check(t.Context(), msg)
	require.NoError(t, errCheck)
	require.True(t, decision.Matched)
}

func TestCheckMentions(t *testing.T) {
	conf := automod.Config{Mentions: true, MentionLimit: 3}

	msg := guildMessage(1, "hey everyone")
	msg.Mentions = []uint64{2, 3, 4, 5}

	decision, errCheck := newEngine(conf, noPhish, noNSFW).Check(t.Context(), msg)
	require.NoError(t, errCheck)
	require.True(t, decision.Matched)
	require.Equal(t, automod.RuleMentions, decision.Rule)

	// Self mentions never count.
	selfHeavy := guildMessage(1, "me me me")
	selfHeavy.Mentions = []uint64{1, 1, 1, 1, 2}

	decision, errCheck = newEngine(conf, noPhish, noNSFW).Check(t.Context(), selfHeavy)
	require.NoError(t, errCheck)
	require.False(t, decision.Matched)

	// Repeats of one user collapse to a single mention when duplicates are
	// disallowed.
	repeated := guildMessage(1, "spam ping")
	repeated.Mentions = []uint64{2, 2, 2, 2, 2}

	decision, errCheck = newEngine(conf, noPhish, noNSFW).Check(t.Context(), repeated)
	require.NoError(t, errCheck)
	require.False(t, decision.Matched)

	allowDup := conf
	allowDup.AllowDuplicateMentions = true

	decision, errCheck = newEngine(allowDup, noPhish, noNSFW).Check(t.Context(), repeated)
	require.NoError(t, errCheck)
	require.True(t, decision.Matched)
}

func TestParseRuleKind(t *testing.T) {
	kind, errParse := automod.ParseRuleKind("badwords")
	require.NoError(t, errParse)
	require.Equal(t, automod.RuleBadwords, kind)

	kind, errParse = automod.ParseRuleKind("NSFW")
	require.NoError(t, errParse)
	require.Equal(t, automod.RuleNSFW, kind)

	_, errParse = automod.ParseRuleKind("bogus")
	require.ErrorIs(t, errParse, automod.ErrUnknownRule)
}

func TestConfigEnabledUnknownRule(t *testing.T) {
	_, errEnabled := automod.Config{}.Enabled(automod.RuleKind(99))
	require.ErrorIs(t, errEnabled, automod.ErrUnknownRule)
}
