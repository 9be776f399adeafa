// state — таблица несохраняемого пользовательского состояния:
// незавершённые анкеты и счётчики авто-выдачи. Потеря при рестарте
// допустима (анкету можно начать заново через /start), профиль живёт в storage.
package state

import (
	"context"
	"errors"

	"github.com/pribylovaa/match-bot/internal/models"
)

// ErrNotFound — для пользователя нет активной анкеты.
var ErrNotFound = errors.New("state: not found")

// Store — контракт таблицы состояния. Записи разных пользователей независимы.
type Store interface {
	// Session возвращает активную анкету или ErrNotFound.
	Session(ctx context.Context, userID int64) (*models.Session, error)
	// SaveSession создаёт/перезаписывает анкету пользователя.
	SaveSession(ctx context.Context, s *models.Session) error
	// DeleteSession удаляет анкету; отсутствие записи не ошибка.
	DeleteSession(ctx context.Context, userID int64) error
	// Chain возвращает счётчики пользователя (нулевые, если записи нет).
	Chain(ctx context.Context, userID int64) (models.ChainState, error)
	// SaveChain перезаписывает счётчики пользователя.
	SaveChain(ctx context.Context, userID int64, cs models.ChainState) error
	// Close освобождает ресурсы.
	Close() error
}
