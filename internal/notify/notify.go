// notify — контракт доставки исходящих сообщений пользователю.
package notify

import "context"

// Control — кнопка под сообщением: либо токен действия (Token), либо ссылка (URL).
type Control struct {
	Label string
	Token string
	URL   string
}

// Message — одно исходящее сообщение: текст или фото с подписью, с опциональной клавиатурой.
type Message struct {
	Text     string
	PhotoRef string
	// Controls — ряды кнопок.
	Controls [][]Control
}

// Notifier доставляет сообщения. Ошибки доставки обрабатывает реализация;
// вызывающая сторона не повторяет отправку.
type Notifier interface {
	Send(ctx context.Context, userID int64, msg Message) error
}

// Row — ряд кнопок.
func Row(cs ...Control) []Control { return cs }

// Button — кнопка-действие.
func Button(label, token string) Control { return Control{Label: label, Token: token} }

// Link — кнопка-ссылка.
func Link(label, url string) Control { return Control{Label: label, URL: url} }
