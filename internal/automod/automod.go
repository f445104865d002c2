// Package automod implements the message rule engine. Rules run in a fixed
// priority order against each inbound message and evaluation stops at the
// first match, so at most one action is taken per message.
package automod

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/gwarden/gwarden/internal/metrics"
	"github.com/gwarden/gwarden/internal/thirdparty"
	"github.com/gwarden/gwarden/pkg/fp"
	"github.com/gwarden/gwarden/pkg/log"
)

// RuleKind identifies one content rule.
type RuleKind int

const (
	RuleBadwords RuleKind = iota
	RuleCaps
	RuleInvites
	RuleSpam
	RulePhish
	RuleNSFW
	RuleMentions
)

// EvaluationOrder is the fixed priority in which rules run.
var EvaluationOrder = []RuleKind{ //nolint:gochecknoglobals
	RuleBadwords, RuleCaps, RuleInvites, RuleSpam, RulePhish, RuleNSFW, RuleMentions,
}

func (k RuleKind) String() string {
	switch k {
	case RuleBadwords:
		return "badwords"
	case RuleCaps:
		return "caps"
	case RuleInvites:
		return "invites"
	case RuleSpam:
		return "spam"
	case RulePhish:
		return "phish"
	case RuleNSFW:
		return "nsfw"
	case RuleMentions:
		return "mentions"
	default:
		return "unknown"
	}
}

var ErrUnknownRule = errors.New("unknown automod rule")

// ParseRuleKind maps a configured rule name onto its kind.
func ParseRuleKind(name string) (RuleKind, error) {
	for _, kind := range EvaluationOrder {
		if kind.String() == strings.ToLower(name) {
			return kind, nil
		}
	}

	return 0, fmt.Errorf("%w: %s", ErrUnknownRule, name)
}

const (
	// A message shorter than this never trips the caps rule.
	minCapsLength = 7
	// Score at or above which an image is considered nsfw.
	nsfwScoreThreshold = 0.8
	// How far back the spam rule looks.
	SpamLookback = time.Second * 10
)

var (
	inviteRegex = regexp.MustCompile(
		`(?:https://www\.|https://|www\.)?(?:discord\.gg|discord\.com/invite|dis\.gd/invite|dsc\.io|dsc\.gg|invite\.gg)/[a-zA-Z0-9_-]`)
	urlRegex = regexp.MustCompile(
		`(?i)\b(?:https?://|www\d{0,3}\.|[a-z0-9.\-]+\.[a-z]{2,4}/)[^\s<>]+`)
)

// Config controls which rules run and their thresholds.
type Config struct {
	Badwords bool
	Caps     bool
	Invites  bool
	Spam     bool
	Phish    bool
	NSFW     bool
	Mentions bool

	// CapsThreshold is the percentage of uppercase characters at which the caps
	// rule trips.
	CapsThreshold int
	// SpamBurst is how many messages within the lookback window count as spam.
	SpamBurst int
	// SpamMessageLimit is the character count at which a single message counts
	// as spam.
	SpamMessageLimit int
	// MentionLimit is the highest allowed mention count; the rule trips above it.
	MentionLimit           int
	AllowDuplicateMentions bool

	// CustomBadwords replaces the default blacklist wholesale when non-empty.
	CustomBadwords []string
	// IgnoredChannels are exempt from all rules.
	IgnoredChannels []string
	// Owners bypass all rules, in addition to members with moderator permissions.
	Owners []uint64
}

// Enabled reports whether the given rule is turned on.
func (c Config) Enabled(kind RuleKind) (bool, error) {
	switch kind {
	case RuleBadwords:
		return c.Badwords, nil
	case RuleCaps:
		return c.Caps, nil
	case RuleInvites:
		return c.Invites, nil
	case RuleSpam:
		return c.Spam, nil
	case RulePhish:
		return c.Phish, nil
	case RuleNSFW:
		return c.NSFW, nil
	case RuleMentions:
		return c.Mentions, nil
	default:
		return false, fmt.Errorf("%w: %d", ErrUnknownRule, kind)
	}
}

// Message is the rule engine's view of one inbound message.
type Message struct {
	ID        string
	GuildID   string
	ChannelID string
	// ChannelNSFW exempts the message from the nsfw rule.
	ChannelNSFW bool
	AuthorID    uint64
	AuthorIsBot bool
	// AuthorIsModerator is resolved by the caller from guild permissions.
	AuthorIsModerator bool
	Content           string
	// Mentions are the raw mentioned user ids, duplicates included.
	Mentions []uint64
	// Attachments are the attachment URLs, considered by the nsfw rule.
	Attachments []string
	CreatedAt   time.Time
}

// Decision is the outcome of evaluating one message.
type Decision struct {
	Rule    RuleKind
	Matched bool
	// Notice is the user-facing line explaining the match.
	Notice string
	// PhishMatches carries the flagged domains when Rule is RulePhish.
	PhishMatches []thirdparty.PhishMatch
}

// PhishChecker reports flagged phishing domains for a message text.
type PhishChecker interface {
	Check(ctx context.Context, message string) ([]thirdparty.PhishMatch, error)
}

// NSFWScorer scores a single image URL.
type NSFWScorer interface {
	Score(ctx context.Context, imageURL string) (float64, error)
}

// Engine evaluates messages against the configured rules. External classifier
// failures are treated as non-matches; a service outage must never block chat.
type Engine struct {
	config    Config
	words     *WordList
	window    *Window
	phish     PhishChecker
	nsfw      NSFWScorer
	collector *metrics.Collector
}

func NewEngine(conf Config, window *Window, phish PhishChecker, nsfw NSFWScorer, collector *metrics.Collector) *Engine {
	return &Engine{
		config:    conf,
		words:     NewWordList(conf.CustomBadwords),
		window:    window,
		phish:     phish,
		nsfw:      nsfw,
		collector: collector,
	}
}

// Check evaluates the message. The zero Decision means no rule matched or a
// guard condition exempted the message entirely.
func (e *Engine) Check(ctx context.Context, msg Message) (Decision, error) {
	if msg.GuildID == "" || msg.AuthorIsBot {
		return Decision{}, nil
	}

	e.window.Add(msg.AuthorID, msg.CreatedAt)

	if msg.AuthorIsModerator || slices.Contains(e.config.Owners, msg.AuthorID) {
		return Decision{}, nil
	}

	if slices.Contains(e.config.IgnoredChannels, msg.ChannelID) {
		return Decision{}, nil
	}

	for _, rule := range EvaluationOrder {
		enabled, errEnabled := e.config.Enabled(rule)
		if errEnabled != nil {
			return Decision{}, errEnabled
		}

		if !enabled {
			continue
		}

		if decision := e.evaluate(ctx, rule, msg); decision.Matched {
			e.collector.DecisionCounter.WithLabelValues(rule.String()).Inc()

			return decision, nil
		}
	}

	return Decision{}, nil
}

func (e *Engine) evaluate(ctx context.Context, rule RuleKind, msg Message) Decision {
	switch rule {
	case RuleBadwords:
		return e.checkBadwords(msg)
	case RuleCaps:
		return e.checkCaps(msg)
	case RuleInvites:
		return e.checkInvites(msg)
	case RuleSpam:
		return e.checkSpam(msg)
	case RulePhish:
		return e.checkPhish(ctx, msg)
	case RuleNSFW:
		return e.checkNSFW(ctx, msg)
	case RuleMentions:
		return e.checkMentions(msg)
	default:
		return Decision{}
	}
}

func (e *Engine) checkBadwords(msg Message) Decision {
	if _, matched := e.words.Match(msg.Content); matched {
		return Decision{Rule: RuleBadwords, Matched: true, Notice: "that word is blacklisted."}
	}

	return Decision{Rule: RuleBadwords}
}

func (e *Engine) checkCaps(msg Message) Decision {
	length := utf8.RuneCountInString(msg.Content)
	if length < minCapsLength {
		return Decision{Rule: RuleCaps}
	}

	var upper int

	for _, char := range msg.Content {
		if unicode.IsUpper(char) {
			upper++
		}
	}

	percent := int(math.Round(float64(upper) / float64(length) * 100))
	if percent >= e.config.CapsThreshold {
		return Decision{
			Rule:    RuleCaps,
			Matched: true,
			Notice:  fmt.Sprintf("you exceeded the capitals limit: %d%% of your message length", e.config.CapsThreshold),
		}
	}

	return Decision{Rule: RuleCaps}
}

func (e *Engine) checkInvites(msg Message) Decision {
	if inviteRegex.MatchString(msg.Content) {
		return Decision{Rule: RuleInvites, Matched: true, Notice: "do not send invite links."}
	}

	return Decision{Rule: RuleInvites}
}

func (e *Engine) checkSpam(msg Message) Decision {
	decision := Decision{Rule: RuleSpam, Notice: "stop spamming."}

	if e.window.CountRecent(msg.AuthorID, time.Now()) >= e.config.SpamBurst {
		decision.Matched = true

		return decision
	}

	if utf8.RuneCountInString(msg.Content) >= e.config.SpamMessageLimit {
		decision.Matched = true

		return decision
	}

	return Decision{Rule: RuleSpam}
}

func (e *Engine) checkPhish(ctx context.Context, msg Message) Decision {
	if !urlRegex.MatchString(msg.Content) {
		return Decision{Rule: RulePhish}
	}

	matches, errCheck := e.phish.Check(ctx, msg.Content)
	if errCheck != nil {
		e.collector.ClassifierFailureCounter.WithLabelValues("anti_fish").Inc()
		slog.Warn("Phishing check failed, allowing message", log.ErrAttr(errCheck))

		return Decision{Rule: RulePhish}
	}

	if len(matches) == 0 {
		return Decision{Rule: RulePhish}
	}

	return Decision{
		Rule:         RulePhish,
		Matched:      true,
		Notice:       phishNotice(matches),
		PhishMatches: matches,
	}
}

func phishNotice(matches []thirdparty.PhishMatch) string {
	var builder strings.Builder

	builder.WriteString("phishing links are not allowed here.\n")

	for _, match := range matches {
		domain := match.URL
		if len(domain) > 12 {
			domain = domain[:12] + "..."
		}

		builder.WriteString(fmt.Sprintf("Domain: %s, Type: %s, Surety: %.0f%%\n",
			domain, match.Type, match.TrustRating*100))
	}

	return strings.TrimSuffix(builder.String(), "\n")
}

func (e *Engine) checkNSFW(ctx context.Context, msg Message) Decision {
	if msg.ChannelNSFW {
		return Decision{Rule: RuleNSFW}
	}

	urls := urlRegex.FindAllString(msg.Content, -1)
	urls = append(urls, msg.Attachments...)
	urls = fp.Uniq(urls)
	slices.Sort(urls)

	for _, imageURL := range urls {
		score, errScore := e.nsfw.Score(ctx, imageURL)
		if errScore != nil {
			// Per-URL failures are skipped, the rest of the batch still runs.
			e.collector.ClassifierFailureCounter.WithLabelValues("nsfw_detector").Inc()
			slog.Warn("NSFW check failed, skipping url", log.ErrAttr(errScore))

			continue
		}

		if score >= nsfwScoreThreshold {
			return Decision{Rule: RuleNSFW, Matched: true, Notice: "you are not allowed to send NSFW content here."}
		}
	}

	return Decision{Rule: RuleNSFW}
}

func (e *Engine) checkMentions(msg Message) Decision {
	var mentions []uint64

	for _, mentioned := range msg.Mentions {
		if mentioned != msg.AuthorID {
			mentions = append(mentions, mentioned)
		}
	}

	if !e.config.AllowDuplicateMentions {
		mentions = fp.Uniq(mentions)
	}

	if len(mentions) > e.config.MentionLimit {
		return Decision{
			Rule:    RuleMentions,
			Matched: true,
			Notice:  fmt.Sprintf("too many mentions in a message. Maximum allowed: %d", e.config.MentionLimit),
		}
	}

	return Decision{Rule: RuleMentions}
}
