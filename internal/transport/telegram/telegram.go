// telegram — адаптер Telegram Bot API: доставка сообщений (notify.Notifier)
// и приём апдейтов (long-poll или webhook) с передачей в сервисный слой.
package telegram

import (
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// API — используемое подмножество *tgbotapi.BotAPI.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
}

var _ API = (*tgbotapi.BotAPI)(nil)
