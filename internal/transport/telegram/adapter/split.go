package adapter

import "strings"

// maxMessageRunes stays under the Bot API's 4096 character limit.
const maxMessageRunes = 4000

// chunkText cuts s into pieces of at most limit runes. Cuts prefer a line
// break and, for HTML, never land inside a tag.
func chunkText(s string, limit int, html bool) []string {
	if limit <= 0 {
		limit = maxMessageRunes
	}
	rest := []rune(s)
	if len(rest) <= limit {
		return []string{s}
	}

	var chunks []string
	for len(rest) > 0 {
		n := len(rest)
		if n > limit {
			n = cutPoint(rest[:limit], html)
		}
		if piece := strings.TrimRight(string(rest[:n]), "\n"); piece != "" {
			chunks = append(chunks, piece)
		}
		rest = rest[n:]
		for len(rest) > 0 && rest[0] == '\n' {
			rest = rest[1:]
		}
	}
	return chunks
}

// cutPoint returns how many runes of window go into the next chunk.
func cutPoint(window []rune, html bool) int {
	n := len(window)
	// A line break in the last two thirds of the window.
	if at := lastRune(window, '\n'); at >= n/3 {
		n = at + 1
	}
	if html {
		open := lastRune(window[:n], '<')
		if open > 1 && open > lastRune(window[:n], '>') {
			n = open
		}
	}
	return n
}

func lastRune(rs []rune, r rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i] == r {
			return i
		}
	}
	return -1
}
