package ircconn

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTextBudgetLeavesRoomForEnvelope(t *testing.T) {
	budget := TextBudget("#ops")
	line := "PRIVMSG #ops :" + strings.Repeat("x", budget) + "\r\n"
	assert.LessOrEqual(t, len(line)+relayReserve, MaxLineBytes)
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))

	out := Truncate(strings.Repeat("é", 20), 11)
	assert.LessOrEqual(t, len(out), 11)
	assert.True(t, utf8.ValidString(out))
	assert.True(t, strings.HasSuffix(out, "…"))

	assert.Equal(t, "", Truncate("abcdef", 2))
}

func TestPackListWrapsAtLimit(t *testing.T) {
	lines := PackList("cc: ", ", ", []string{"alice", "bob", "carol", "dave"}, 16)
	assert.Equal(t, []string{"cc: alice, bob", "cc: carol, dave"}, lines)
	for _, l := range lines {
		assert.LessOrEqual(t, len(l), 16)
	}

	assert.Empty(t, PackList("cc: ", ", ", nil, 16))
}

func TestWrapBreaksAtSpaces(t *testing.T) {
	assert.Equal(t, []string{"aws: alice,", "bob, carol"}, Wrap("aws: alice, bob, carol", 11))
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, Wrap("abcdefghij", 4))
	assert.Equal(t, []string{"fits"}, Wrap("fits", 10))
}
