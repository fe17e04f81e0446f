// Package cleantext normalizes model-authored text before it reaches the
// robot's speech channel. The robot's TTS and the log pipeline do not handle
// emoji, markdown decoration or full Unicode reliably, so everything is
// folded down to plain ASCII prose.
package cleantext

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLogLen caps the copy of a message stored in the chat log file. The full
// message still reaches the model; only the log line is shortened.
const MaxLogLen = 2000

var (
	// Pictographic and symbol blocks commonly emitted by chat models.
	emojiRe = regexp.MustCompile(`[\x{1F600}-\x{1F64F}\x{1F300}-\x{1F5FF}\x{1F680}-\x{1F6FF}\x{1F700}-\x{1F77F}\x{1F780}-\x{1F7FF}\x{1F800}-\x{1F8FF}\x{1F900}-\x{1F9FF}\x{1FA00}-\x{1FA6F}\x{1FA70}-\x{1FAFF}\x{2702}-\x{27B0}\x{24C2}-\x{1F251}]+`)

	// Text emoticons like :) :( ;) :D :P
	emoticonRe = regexp.MustCompile(`[:;=]-?[)(/\\|dpDP]`)

	whitespaceRe = regexp.MustCompile(`\s+`)

	bangRe     = regexp.MustCompile(`!+`)
	questionRe = regexp.MustCompile(`\?+`)
	dotRe      = regexp.MustCompile(`\.+`)
	dashRe     = regexp.MustCompile(`-+`)
	starRe     = regexp.MustCompile(`\*+`)
	bracketRe  = regexp.MustCompile(`[\[\](){}]`)
	slashRe    = regexp.MustCompile(`[/\\]`)
	quoteRe    = regexp.MustCompile(`"`)

	spaceBeforePunctRe = regexp.MustCompile(`\s+([.,!?;:])`)

	// NFD then strip combining marks, so "perché" becomes "perche".
	asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Normalize cleans text for speech output. It is pure, total and idempotent:
// Normalize(Normalize(x)) == Normalize(x) for any input.
func Normalize(text string) string {
	text = emojiRe.ReplaceAllString(text, "")
	text = emoticonRe.ReplaceAllString(text, "")

	text = whitespaceRe.ReplaceAllString(text, " ")

	text = bangRe.ReplaceAllString(text, "!")
	text = questionRe.ReplaceAllString(text, "?")
	text = dotRe.ReplaceAllString(text, ".")
	text = dashRe.ReplaceAllString(text, "-")
	text = starRe.ReplaceAllString(text, "")
	text = bracketRe.ReplaceAllString(text, "")
	text = slashRe.ReplaceAllString(text, "")
	text = quoteRe.ReplaceAllString(text, "")

	text = spaceBeforePunctRe.ReplaceAllString(text, "$1")

	text = strings.TrimSpace(text)

	text = toASCII(text)

	// Dropped runes can leave stray gaps behind; collapse once more so the
	// whole transform stays idempotent.
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// TruncateForLog caps s at MaxLogLen bytes, backing up to the previous rune
// boundary so a multibyte character is never cut in half.
func TruncateForLog(s string) string {
	if len(s) <= MaxLogLen {
		return s
	}
	cut := MaxLogLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// toASCII folds diacritics to their base letters and drops anything that
// still falls outside printable ASCII.
func toASCII(text string) string {
	folded, _, err := transform.String(asciiFold, text)
	if err != nil {
		folded = text
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if r < 0x80 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
