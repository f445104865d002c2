package automod

import (
	_ "embed"
	"encoding/json"
	"strings"

	"github.com/ryanuber/go-glob"
)

//go:embed data/filtered_words.json
var defaultWordsRaw []byte

// DefaultWords returns the built-in blacklist shipped with the binary.
func DefaultWords() []string {
	var words []string
	if errUnmarshal := json.Unmarshal(defaultWordsRaw, &words); errUnmarshal != nil {
		panic(errUnmarshal)
	}

	return words
}

// WordList matches message words against blacklist entries. Entries are plain
// words or glob patterns and matching is case insensitive.
type WordList struct {
	patterns []string
}

// NewWordList builds a list from the custom entries, falling back to the
// default blacklist when no usable custom entry remains. A non-empty custom
// list replaces the default wholesale.
func NewWordList(custom []string) *WordList {
	var patterns []string

	for _, entry := range custom {
		if trimmed := strings.TrimSpace(entry); trimmed != "" {
			patterns = append(patterns, strings.ToLower(trimmed))
		}
	}

	if len(patterns) == 0 {
		for _, entry := range DefaultWords() {
			patterns = append(patterns, strings.ToLower(entry))
		}
	}

	return &WordList{patterns: patterns}
}

// Match returns the first blacklisted word found in content.
func (l *WordList) Match(content string) (string, bool) {
	if content == "" {
		return "", false
	}

	words := strings.Fields(strings.ToLower(content))

	for _, pattern := range l.patterns {
		for _, word := range words {
			if glob.Glob(pattern, word) {
				return word, true
			}
		}
	}

	return "", false
}
