package slack

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"
)

// client implements Service interface
type client struct {
	api *slack.Client
}

// Option is a functional option for client configuration
type Option func(*options)

type options struct {
	apiURL string
}

// WithAPIURL points the client at a different Slack API endpoint
func WithAPIURL(url string) Option {
	return func(o *options) {
		o.apiURL = url
	}
}

// New creates a new Slack service with the provided bot token
func New(token string, opts ...Option) (Service, error) {
	if token == "" {
		return nil, goerr.New("Slack bot token is required")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var apiOpts []slack.Option
	if o.apiURL != "" {
		apiOpts = append(apiOpts, slack.OptionAPIURL(o.apiURL))
	}

	return &client{
		api: slack.New(token, apiOpts...),
	}, nil
}

// SendDirectMessage posts the message into the DM conversation with the user
func (c *client) SendDirectMessage(ctx context.Context, slackUserID string, msg *Message) (string, error) {
	if slackUserID == "" {
		return "", goerr.New("Slack user ID is required")
	}

	channel, _, _, err := c.api.OpenConversationContext(ctx, &slack.OpenConversationParameters{
		Users: []string{slackUserID},
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to open DM conversation", goerr.V("slack_user_id", slackUserID))
	}

	blocks, text := BuildBlocks(msg)
	_, ts, err := c.api.PostMessageContext(ctx, channel.ID,
		slack.MsgOptionBlocks(blocks...),
		slack.MsgOptionText(text, false),
	)
	if err != nil {
		return "", goerr.Wrap(err, "failed to post DM",
			goerr.V("slack_user_id", slackUserID),
			goerr.V("channel_id", channel.ID))
	}

	return ts, nil
}

// GetUserInfo retrieves user information for the given user ID
func (c *client) GetUserInfo(ctx context.Context, userID string) (*User, error) {
	user, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get user info", goerr.V("user_id", userID))
	}

	return &User{
		ID:       user.ID,
		Name:     user.Name,
		RealName: user.RealName,
		Email:    user.Profile.Email,
	}, nil
}
