package automod_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gwarden/gwarden/internal/automod"
)

func TestDefaultWords(t *testing.T) {
	require.NotEmpty(t, automod.DefaultWords())
}

func TestWordListDefaults(t *testing.T) {
	list := automod.NewWordList(nil)

	word, matched := list.Match("oh DAMN that hurt")
	require.True(t, matched)
	require.Equal(t, "damn", word)

	_, matched = list.Match("perfectly fine message")
	require.False(t, matched)

	_, matched = list.Match("")
	require.False(t, matched)
}

// A non-empty custom list replaces the default list wholesale.
func TestWordListCustomReplacement(t *testing.T) {
	list := automod.NewWordList([]string{"banana"})

	_, matched := list.Match("damn")
	require.False(t, matched)

	word, matched := list.Match("i like Banana bread")
	require.True(t, matched)
	require.Equal(t, "banana", word)
}

// Blank custom entries are discarded; all-blank input falls back to defaults.
func TestWordListBlankEntries(t *testing.T) {
	list := automod.NewWordList([]string{"", " ", "\t"})

	_, matched := list.Match("damn")
	require.True(t, matched)
}

func TestWordListGlobPatterns(t *testing.T) {
	list := automod.NewWordList([]string{"scam*"})

	_, matched := list.Match("what a scammer")
	require.True(t, matched)

	_, matched = list.Match("nice scampi recipe")
	require.True(t, matched)

	_, matched = list.Match("no match here")
	require.False(t, matched)
}
