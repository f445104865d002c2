package automod_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gwarden/gwarden/internal/automod"
)

func TestWindowCountRecent(t *testing.T) {
	var (
		window = automod.NewWindow(time.Second*10, 100)
		now    = time.Now()
	)

	window.Add(1, now.Add(-time.Second*15))
	window.Add(1, now.Add(-time.Second*5))
	window.Add(1, now.Add(-time.Second))
	window.Add(2, now.Add(-time.Second))

	require.Equal(t, 2, window.CountRecent(1, now))
	require.Equal(t, 1, window.CountRecent(2, now))
	require.Equal(t, 0, window.CountRecent(3, now))
}

func TestWindowEvictsExpired(t *testing.T) {
	var (
		window = automod.NewWindow(time.Second*10, 100)
		now    = time.Now()
	)

	for idx := range 10 {
		window.Add(1, now.Add(-time.Minute+time.Duration(idx)*time.Second))
	}

	// A fresh write drops everything outside the lookback interval.
	window.Add(1, now)

	require.Equal(t, 1, window.Len())
}

func TestWindowEvictsOverCapacity(t *testing.T) {
	var (
		window = automod.NewWindow(time.Minute, 5)
		now    = time.Now()
	)

	for range 20 {
		window.Add(1, now)
	}

	require.Equal(t, 5, window.Len())
	require.Equal(t, 5, window.CountRecent(1, now))
}
