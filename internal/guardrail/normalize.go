package guardrail

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MikeSquared-Agency/honeypot/internal/state"
)

const (
	maxSentences = 2
	maxReplyLen  = 220
	minReplyLen  = 15
)

// clean strips markdown emphasis and wrapping quotes from model output.
func clean(text string) string {
	text = strings.ReplaceAll(text, "*", "")
	text = strings.TrimSpace(text)
	text = strings.Trim(text, `"'`)
	return strings.TrimSpace(text)
}

// tidy enforces the persona's register: no detection-revealing phrases, no
// theatrical interjections, no exclamation marks, at most two sentences.
func (p *Pipeline) tidy(s *state.Session, text string) string {
	text = clean(text)

	lower := strings.ToLower(text)
	for _, phrase := range p.book.Forbidden {
		if strings.Contains(lower, phrase) {
			return p.book.SafeLine
		}
	}

	text = ohNo.ReplaceAllString(text, "")
	text = myGod.ReplaceAllString(text, "")
	text = p.stripRepeatedOpener(s, text)
	text = leadingPunct.ReplaceAllString(text, "")

	text = strings.ReplaceAll(text, "!", ".")
	text = collapseDoubleDots(text)
	text = strings.Join(strings.Fields(text), " ")
	text = upperFirst(text)

	if utf8.RuneCountInString(text) <= minReplyLen {
		return p.book.SafeLine
	}

	sentences := splitSentences(text)
	if len(sentences) > maxSentences {
		sentences = sentences[:maxSentences]
	}
	return truncate(strings.Join(sentences, " "), maxReplyLen)
}

// stripRepeatedOpener removes a panic opener the persona already used to
// start an earlier reply.
func (p *Pipeline) stripRepeatedOpener(s *state.Session, text string) string {
	lower := strings.ToLower(text)
	for _, opener := range p.book.BannedOpeners {
		if !strings.HasPrefix(lower, opener) {
			continue
		}
		for _, prev := range s.Similarity.Responses() {
			if strings.HasPrefix(strings.ToLower(prev), opener) {
				return text[len(opener):]
			}
		}
	}
	return text
}

// collapseDoubleDots turns a stray ".." into "." and leaves ellipses alone.
func collapseDoubleDots(text string) string {
	var b strings.Builder
	run := 0
	flush := func() {
		if run == 2 {
			run = 1
		}
		b.WriteString(strings.Repeat(".", run))
		run = 0
	}
	for _, r := range text {
		if r == '.' {
			run++
			continue
		}
		flush()
		b.WriteRune(r)
	}
	flush()
	return b.String()
}

// splitSentences splits after runs of terminal punctuation followed by
// whitespace or the end of text. Dots followed directly by a character, as
// in "...3456", do not end a sentence.
func splitSentences(text string) []string {
	var out []string
	rs := []rune(text)
	start := 0
	for i := 0; i < len(rs); i++ {
		if !isTerminal(rs[i]) {
			continue
		}
		j := i
		for j+1 < len(rs) && isTerminal(rs[j+1]) {
			j++
		}
		if j+1 == len(rs) || unicode.IsSpace(rs[j+1]) {
			if s := strings.TrimSpace(string(rs[start : j+1])); s != "" {
				out = append(out, s)
			}
			start = j + 1
		}
		i = j
	}
	if s := strings.TrimSpace(string(rs[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// truncate cuts text to at most limit runes on a word boundary.
func truncate(text string, limit int) string {
	rs := []rune(text)
	if len(rs) <= limit {
		return text
	}
	cut := string(rs[:limit-1])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, ",;: ") + "."
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
