// Package format implements the outbound text pipeline: raw markup is
// neutralized, profanity is censored, then inline emphasis, links and
// mentions are rendered. The censoring step runs before any markup is
// generated so the word filter never matches rendered HTML.
package format

import (
	"html"
	"regexp"
	"strings"
)

const CensorToken = "***"

var (
	boldRe    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicRe  = regexp.MustCompile(`\*([^*]+?)\*`)
	linkRe    = regexp.MustCompile(`https?://[^\s<]+`)
	mentionRe = regexp.MustCompile(`(^|\s)@(\w+)`)
)

// MentionResolver reports whether a mentioned name belongs to an active
// session. Unresolved mentions stay literal text.
type MentionResolver func(name string) bool

type Formatter struct {
	profanity *regexp.Regexp
	resolve   MentionResolver
}

func New(profanityWords []string, resolve MentionResolver) *Formatter {
	f := &Formatter{resolve: resolve}
	if len(profanityWords) > 0 {
		quoted := make([]string, 0, len(profanityWords))
		for _, w := range profanityWords {
			if w = strings.TrimSpace(w); w != "" {
				quoted = append(quoted, regexp.QuoteMeta(w))
			}
		}
		if len(quoted) > 0 {
			f.profanity = regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
		}
	}
	return f
}

// Format applies the full pipeline in its fixed order.
func (f *Formatter) Format(raw string) string {
	out := html.EscapeString(raw)
	out = f.censor(out)
	out = boldRe.ReplaceAllString(out, "<strong>$1</strong>")
	out = italicRe.ReplaceAllString(out, "<em>$1</em>")
	out = linkRe.ReplaceAllStringFunc(out, func(url string) string {
		return `<a href="` + url + `" target="_blank" rel="noopener">` + url + `</a>`
	})
	out = mentionRe.ReplaceAllStringFunc(out, func(m string) string {
		parts := mentionRe.FindStringSubmatch(m)
		lead, name := parts[1], parts[2]
		if f.resolve != nil && f.resolve(name) {
			return lead + `<span class="mention">@` + name + `</span>`
		}
		return m
	})
	return out
}

// CleanName sanitizes and censors a proposed display name without
// rendering any markup.
func (f *Formatter) CleanName(raw string) string {
	return f.censor(html.EscapeString(strings.TrimSpace(raw)))
}

func (f *Formatter) censor(s string) string {
	if f.profanity == nil {
		return s
	}
	return f.profanity.ReplaceAllString(s, CensorToken)
}
