package notify

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tabwarden/tabwarden/internal/errors"
)

type TelegramNotifier struct {
	token  string
	chatID int64
	bot    *tgbotapi.BotAPI
}

func NewTelegramNotifier(token string, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{token: token, chatID: chatID}
}

func (t *TelegramNotifier) Name() string { return "telegram" }

// connect is lazy so a misconfigured token surfaces on first use, not at
// registry construction.
func (t *TelegramNotifier) connect() error {
	if t.bot != nil {
		return nil
	}
	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return errors.Wrap(errors.MapError(err), "telegram connect")
	}
	t.bot = bot
	return nil
}

func (t *TelegramNotifier) Send(_ context.Context, subject, body string) error {
	if err := t.connect(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, subject+"\n\n"+body)
	if _, err := t.bot.Send(msg); err != nil {
		return errors.Wrap(errors.MapError(err), "telegram send")
	}
	return nil
}

func (t *TelegramNotifier) Health(_ context.Context) error {
	return t.connect()
}
