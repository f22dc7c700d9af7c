package ircconn

import (
	"strings"
	"unicode/utf8"
)

// MaxLineBytes is the protocol limit of one message, CRLF included.
const MaxLineBytes = 512

// relayReserve leaves room for the ":nick!user@host " source the server
// prepends when it relays our message to other clients.
const relayReserve = 96

const ellipsis = "…"

// TextBudget is the number of text bytes that fit in one PRIVMSG to target.
func TextBudget(target string) int {
	return MaxLineBytes - relayReserve - len("PRIVMSG ") - len(target) - len(" :") - len("\r\n")
}

// Truncate cuts text to at most limit bytes on a rune boundary and marks the
// cut with an ellipsis.
func Truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	if limit < len(ellipsis) {
		return ""
	}
	cut := limit - len(ellipsis)
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return strings.TrimRight(text[:cut], " ") + ellipsis
}

// PackList joins items with sep after head, starting a new line whenever the
// next item would overflow limit bytes. An item longer than a line on its
// own is truncated.
func PackList(head, sep string, items []string, limit int) []string {
	var (
		lines []string
		cur   strings.Builder
		n     int
	)
	flush := func() {
		if n > 0 {
			lines = append(lines, cur.String())
		}
		cur.Reset()
		n = 0
	}
	for _, item := range items {
		add := sep + item
		if n == 0 {
			add = head + item
		}
		if n > 0 && cur.Len()+len(add) > limit {
			flush()
			add = head + item
		}
		cur.WriteString(Truncate(add, limit))
		n++
	}
	flush()
	return lines
}

// Wrap splits text into lines of at most limit bytes, breaking at the last
// space that fits and mid-word only when a word is longer than a line.
func Wrap(text string, limit int) []string {
	if limit <= 0 || len(text) <= limit {
		return []string{text}
	}
	var out []string
	for len(text) > limit {
		cut := strings.LastIndexByte(text[:limit+1], ' ')
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				_, cut = utf8.DecodeRuneInString(text)
			}
		}
		out = append(out, strings.TrimRight(text[:cut], " "))
		text = strings.TrimLeft(text[cut:], " ")
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}
