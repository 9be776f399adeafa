package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/pribylovaa/match-bot/internal/notify"
)

// Notifier доставляет notify.Message в личный чат пользователя.
type Notifier struct {
	api API
}

var _ notify.Notifier = (*Notifier)(nil)

// NewNotifier создаёт Notifier поверх api.
func NewNotifier(api API) *Notifier {
	return &Notifier{api: api}
}

// Send отправляет сообщение: с PhotoRef — фото с подписью, иначе текст.
func (n *Notifier) Send(ctx context.Context, userID int64, msg notify.Message) error {
	const op = "telegram/Notifier/Send"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := n.api.Send(render(userID, msg)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// render собирает Chattable. Личный чат: chat_id совпадает с user_id.
func render(userID int64, msg notify.Message) tgbotapi.Chattable {
	markup := keyboard(msg.Controls)

	if msg.PhotoRef != "" {
		photo := tgbotapi.NewPhoto(userID, tgbotapi.FileID(msg.PhotoRef))
		photo.Caption = msg.Text
		if markup != nil {
			photo.ReplyMarkup = *markup
		}

		return photo
	}

	m := tgbotapi.NewMessage(userID, msg.Text)
	if markup != nil {
		m.ReplyMarkup = *markup
	}

	return m
}

func keyboard(rows [][]notify.Control) *tgbotapi.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}

	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, c := range row {
			if c.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(c.Label, c.URL))
				continue
			}
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(c.Label, c.Token))
		}
		out = append(out, tgbotapi.NewInlineKeyboardRow(buttons...))
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(out...)

	return &markup
}
