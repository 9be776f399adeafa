package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/pribylovaa/match-bot/internal/transport/http/httperr"
	"github.com/pribylovaa/match-bot/pkg/log"
)

// HeaderSecretToken — заголовок, которым Telegram подписывает webhook-запросы
// (значение secret_token из setWebhook).
const HeaderSecretToken = "X-Telegram-Bot-Api-Secret-Token"

// SecretToken пропускает только запросы с верным секретом webhook.
// Пустой secret — проверка выключена.
func SecretToken(secret string) Middleware {
	want := []byte(secret)

	return func(next http.Handler) http.Handler {
		if len(want) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(HeaderSecretToken))
			if subtle.ConstantTimeCompare(got, want) != 1 {
				log.From(r.Context()).Warn("webhook_secret_mismatch")
				httperr.WriteError(w, r, httperr.ErrUnauthorized)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Deadline ограничивает обработку апдейта сверху значением d.
// Более ранний дедлайн клиента сохраняется (так работает context.WithTimeout).
func Deadline(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
