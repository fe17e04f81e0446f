// Package command recognizes the in-band control grammar that lets a user
// switch the robot's persona mid-conversation without involving the model.
//
// Matching is an ordered list of case-insensitive patterns, first match
// wins. Most phrasings require the "comando di sistema" prefix; a couple of
// playful triggers ("abracadabra diventa", "magia magia diventa") work on
// their own. An unmatched message simply proceeds to normal LLM handling.
package command

import (
	"regexp"
	"strings"
)

// matcher ties a tag to one recognized phrasing of the switch command.
type matcher struct {
	tag string
	re  *regexp.Regexp
}

// Patterns match against the lowercased message, so they are written
// lowercase themselves.
var matchers = []matcher{
	{"ora-sarai", regexp.MustCompile(`comando\s+di\s+sistema\s+ora\s+sarai\s+(\w+)`)},
	{"switch-to", regexp.MustCompile(`switch\s+t[ou]\s+(\w+)`)},
	{"abracadabra", regexp.MustCompile(`abracadabra\s+diventa\s+(\w+)`)},
	{"magia-magia", regexp.MustCompile(`magia magia\s+diventa\s+(\w+)`)},
	{"diventa", regexp.MustCompile(`comando\s+di\s+sistema\s+diventa\s+(\w+)`)},
	{"comportati", regexp.MustCompile(`comando\s+di\s+sistema\s+comportati\s+(?:come|da)\s+(\w+)`)},
	{"cambia-personalita", regexp.MustCompile(`comando\s+di\s+sistema\s+cambia\s+personalit[aà]\s+(?:in|a)\s+(\w+)`)},
	{"ora-sei", regexp.MustCompile(`comando\s+di\s+sistema\s+ora\s+sei\s+(\w+)`)},
	{"attiva", regexp.MustCompile(`comando\s+di\s+sistema\s+attiva\s+(?:la\s+)?personalit[aà]\s+(\w+)`)},
	{"modalita", regexp.MustCompile(`comando\s+di\s+sistema\s+passa\s+(?:a|alla)\s+modalit[aà]\s+(\w+)`)},
}

// Detect checks whether message carries a persona-switch command. It never
// fails and never calls the model; on a match it returns true and the
// captured persona name, otherwise (false, ""). The whole message is
// lowercased before matching, so the captured name is always lowercase and
// lines up with the registry's file-derived persona names.
func Detect(message string) (bool, string) {
	lowered := strings.ToLower(message)
	for _, m := range matchers {
		if sub := m.re.FindStringSubmatch(lowered); sub != nil {
			return true, sub[1]
		}
	}
	return false, ""
}
