package notify

import (
	"context"

	"github.com/slack-go/slack"

	"github.com/tabwarden/tabwarden/internal/errors"
)

type SlackNotifier struct {
	client  *slack.Client
	channel string
}

func NewSlackNotifier(token, channel string) *SlackNotifier {
	return &SlackNotifier{client: slack.New(token), channel: channel}
}

func (s *SlackNotifier) Name() string { return "slack" }

func (s *SlackNotifier) Send(ctx context.Context, subject, body string) error {
	text := "*" + subject + "*\n" + body
	_, _, err := s.client.PostMessageContext(ctx, s.channel, slack.MsgOptionText(text, false))
	if err != nil {
		return errors.Wrap(errors.MapError(err), "slack post")
	}
	return nil
}

func (s *SlackNotifier) Health(ctx context.Context) error {
	if _, err := s.client.AuthTestContext(ctx); err != nil {
		return errors.Wrap(errors.MapError(err), "slack auth test")
	}
	return nil
}
