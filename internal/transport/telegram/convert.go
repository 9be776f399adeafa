package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Kind — вид входящего события.
type Kind int8

const (
	KindText Kind = iota + 1
	KindMedia
	KindControl
)

// Event — апдейт, приведённый к событию сервисного слоя.
type Event struct {
	Kind     Kind
	UserID   int64
	Username string
	Text     string
	MediaRef string
	Token    string
	// CallbackID — id callback-запроса, на который нужно ответить (только KindControl).
	CallbackID string
}

// FromUpdate переводит апдейт в событие. ok=false — апдейт не относится к боту
// (служебные сообщения, стикеры, групповые чаты и т.п.).
func FromUpdate(u tgbotapi.Update) (Event, bool) {
	if cq := u.CallbackQuery; cq != nil {
		if cq.From == nil || cq.Data == "" {
			return Event{}, false
		}

		return Event{
			Kind:       KindControl,
			UserID:     cq.From.ID,
			Username:   cq.From.UserName,
			Token:      cq.Data,
			CallbackID: cq.ID,
		}, true
	}

	m := u.Message
	if m == nil || m.From == nil || m.Chat == nil || !m.Chat.IsPrivate() {
		return Event{}, false
	}

	ev := Event{UserID: m.From.ID, Username: m.From.UserName}

	switch {
	case len(m.Photo) > 0:
		ev.Kind = KindMedia
		ev.MediaRef = largest(m.Photo).FileID
	case m.Text != "":
		ev.Kind = KindText
		ev.Text = m.Text
	default:
		return Event{}, false
	}

	return ev, true
}

// largest — вариант фото с наибольшим разрешением.
func largest(sizes []tgbotapi.PhotoSize) tgbotapi.PhotoSize {
	best := sizes[0]
	for _, s := range sizes[1:] {
		if s.Width*s.Height > best.Width*best.Height {
			best = s
		}
	}

	return best
}
