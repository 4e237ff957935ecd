package deploy

import (
	"fmt"
	"strings"

	"github.com/slackcord/slackcord/internal/store"
)

// Discord rejects message content above this length; longer migrated
// messages are split into successive sends.
const maxContentLength = 2000

const separatorLine = "────────────"

// renderContent builds the primary message text: an author header followed
// by the transformed content, optionally preceded by a visual separator.
func renderContent(msg store.Message, separator bool) string {
	var b strings.Builder
	if separator {
		b.WriteString(separatorLine)
		b.WriteString("\n")
	}
	name := msg.AuthorName
	if name == "" {
		name = msg.AuthorSlackID
	}
	b.WriteString("**")
	b.WriteString(name)
	b.WriteString("**")
	if msg.AuthorKind == store.UserKindBot {
		b.WriteString(" [bot]")
	}
	b.WriteString(": ")
	b.WriteString(msg.Content)
	return b.String()
}

// splitContent chunks text into pieces within Discord's content limit,
// preferring line boundaries.
func splitContent(text string) []string {
	if len(text) <= maxContentLength {
		return []string{text}
	}
	var chunks []string
	for len(text) > maxContentLength {
		cut := strings.LastIndexByte(text[:maxContentLength], '\n')
		if cut <= 0 {
			cut = maxContentLength
		}
		chunks = append(chunks, text[:cut])
		text = strings.TrimPrefix(text[cut:], "\n")
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

// renderOversized lists attachments that exceed the upload ceiling as plain
// URLs so nothing is silently dropped.
func renderOversized(oversized []store.Attachment) string {
	var b strings.Builder
	b.WriteString("Files too large to re-upload:")
	for _, att := range oversized {
		b.WriteString(fmt.Sprintf("\n%s (%d bytes)", att.URL, att.Size))
	}
	return b.String()
}
