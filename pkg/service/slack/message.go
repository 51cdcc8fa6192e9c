package slack

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/slack-go/slack"
)

// maxSectionTextBytes is Slack's limit for a section block text
const maxSectionTextBytes = 3000

// BuildBlocks renders a message as Block Kit blocks.
// The second return value is the plain-text fallback used in push notifications.
func BuildBlocks(msg *Message) ([]slack.Block, string) {
	title := msg.Title
	if msg.Priority == "urgent" || msg.Priority == "high" {
		title = ":rotating_light: " + title
	}

	blocks := []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, "*"+escapeMrkdwn(title)+"*", false, false),
			nil, nil,
		),
	}

	if msg.Body != "" {
		body := truncateToMaxBytes(escapeMrkdwn(msg.Body), maxSectionTextBytes)
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, body, false, false),
			nil, nil,
		))
	}

	if msg.Link != "" {
		blocks = append(blocks, slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("<%s|Open in app>", msg.Link), false, false),
		))
	}

	fallback := msg.Title
	if msg.Body != "" {
		fallback += ": " + msg.Body
	}
	return blocks, truncateToMaxBytes(fallback, maxSectionTextBytes)
}

var mrkdwnEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeMrkdwn(s string) string {
	return mrkdwnEscaper.Replace(s)
}

// truncateToMaxBytes cuts s to at most maxBytes without splitting a UTF-8 sequence
func truncateToMaxBytes(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
