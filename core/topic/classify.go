// Package topic decides where a message belongs: it extracts the topic
// name from the "Topic:" marker line and resolves names to forum topic
// ids, creating topics on first use.
package topic

import (
	"regexp"
	"strings"

	"github.com/krau/TopicDex-Bot/pkg/tgplat"
)

var (
	markerRe = regexp.MustCompile(`(?i)Topic:[ \t]*([^\n]+)`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

// Eligible reports whether a message can be routed at all. Only captioned
// media posts are organizable; bare text posts are counted but skipped.
func Eligible(msg tgplat.Message) bool {
	return msg.HasMedia && strings.TrimSpace(msg.Text) != ""
}

// ExtractName returns the topic name from the first "Topic: <name>" line
// of the text, case-insensitive, with surrounding whitespace trimmed and
// internal whitespace runs collapsed to single spaces. Empty string means
// no marker.
func ExtractName(text string) string {
	m := markerRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	name := strings.TrimSpace(m[1])
	return spaceRe.ReplaceAllString(name, " ")
}
