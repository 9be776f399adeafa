// storage содержит контракты слоя хранилища match-bot.
//
// Реализации: mongo (прод) и memory (тесты/локальный запуск).
// Все изменения профиля — адресные ($set/$addToSet/$inc), без перезаписи документа целиком.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/pribylovaa/match-bot/internal/models"
)

var (
	// ErrNotFound — профиль не найден.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — профиль с тем же userId уже существует.
	ErrAlreadyExists = errors.New("already exists")
	// ErrPreconditionFailed — условный апдейт не применился (например, квота уже 0).
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrUnavailable — хранилище недоступно (сеть/таймаут/драйвер).
	ErrUnavailable = errors.New("unavailable")
)

// Storage описывает операции над профилями и записями о совпадениях.
type Storage interface {
	// Profile возвращает профиль по userId. Нет записи -> ErrNotFound.
	Profile(ctx context.Context, userID int64) (*models.Profile, error)

	// Candidates возвращает профили, прошедшие предварительный фильтр.
	// Порядок не гарантируется.
	Candidates(ctx context.Context, filter models.CandidateFilter) ([]models.Profile, error)

	// CreateProfile атомарно создаёт профиль. Дубликат userId -> ErrAlreadyExists.
	CreateProfile(ctx context.Context, profile models.Profile) error

	// UpdateProfile применяет частичный апдейт и возвращает профиль после изменения.
	// Нет записи -> ErrNotFound; при RequireQuota и swipeCount <= 0 — ErrPreconditionFailed.
	UpdateProfile(ctx context.Context, userID int64, update models.ProfileUpdate) (*models.Profile, error)

	// CreateMatch создаёт запись о совпадении пары, если её ещё нет.
	// created=true — запись создана этим вызовом.
	CreateMatch(ctx context.Context, a, b int64) (created bool, err error)

	// ExpireSubscriptions снимает подписку у профилей с subscriptionExpiry <= now
	// и выставляет swipeCount=quota. Возвращает затронутые userId.
	ExpireSubscriptions(ctx context.Context, now time.Time, quota int) ([]int64, error)

	// ResetQuotas выставляет swipeCount=quota всем профилям без подписки.
	ResetQuotas(ctx context.Context, quota int) (int64, error)

	// Ping проверяет доступность хранилища (readiness).
	Ping(ctx context.Context) error

	// Close закрывает соединения/ресурсы хранилища.
	Close(ctx context.Context) error
}
