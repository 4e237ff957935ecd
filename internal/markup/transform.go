// Package markup converts Slack mrkdwn into Discord markdown.
package markup

import (
	"fmt"
	"regexp"
	"strings"
)

// MentionResolver maps a Slack user or bot id to a display name.
type MentionResolver func(id string) (string, error)

var (
	mentionRe  = regexp.MustCompile(`<@([A-Z0-9]+)(?:\|[^>]*)?>`)
	specialRe  = regexp.MustCompile(`<!(channel|here|everyone)(?:\|[^>]*)?>`)
	chanRefRe  = regexp.MustCompile(`<#[A-Z0-9]+\|([^>]+)>`)
	linkRe     = regexp.MustCompile(`<((?:https?|mailto:)[^>|\s]+)(?:\|[^>]*)?>`)
	boldRe     = regexp.MustCompile(`\*{1,2}([^*\n]+?)\*{1,2}`)
	strikeRe   = regexp.MustCompile(`~{1,2}([^~\n]+?)~{1,2}`)
	quoteRe    = regexp.MustCompile(`(?m)^&gt;\s?`)
	entityRepl = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&")
)

// Transform rewrites Slack markup into its Discord equivalent. Rules are
// applied in order and each is idempotent on already-converted text. An
// unresolvable user mention is an error; the caller treats it as fatal for
// that message rather than guessing a name.
func Transform(text string, resolve MentionResolver) (string, error) {
	var resolveErr error
	text = mentionRe.ReplaceAllStringFunc(text, func(match string) string {
		id := mentionRe.FindStringSubmatch(match)[1]
		name, err := resolve(id)
		if err != nil {
			if resolveErr == nil {
				resolveErr = fmt.Errorf("resolve mention <@%s>: %w", id, err)
			}
			return match
		}
		return "@" + name
	})
	if resolveErr != nil {
		return "", resolveErr
	}

	text = specialRe.ReplaceAllStringFunc(text, func(match string) string {
		if strings.HasPrefix(match, "<!here") {
			return "@here"
		}
		return "@everyone"
	})

	text = chanRefRe.ReplaceAllString(text, "#$1")

	// Labels are dropped: Discord renders bare URLs, and Slack labels are
	// frequently just the URL again.
	text = linkRe.ReplaceAllString(text, "$1")

	text = boldRe.ReplaceAllString(text, "**$1**")
	text = strikeRe.ReplaceAllString(text, "~~$1~~")
	text = quoteRe.ReplaceAllString(text, "> ")
	text = entityRepl.Replace(text)

	return text, nil
}
