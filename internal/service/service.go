// service содержит бизнес-логику match-bot: анкету, подбор кандидатов,
// обработку свайпов и политику авто-выдачи.
package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/pribylovaa/match-bot/internal/config"
	"github.com/pribylovaa/match-bot/internal/metrics"
	"github.com/pribylovaa/match-bot/internal/notify"
	"github.com/pribylovaa/match-bot/internal/scheduler"
	"github.com/pribylovaa/match-bot/internal/state"
	"github.com/pribylovaa/match-bot/internal/storage"
)

var (
	// ErrValidation — некорректный ответ в анкете; пользователь уже переспрошен.
	ErrValidation = errors.New("validation failed")
	// ErrUnavailable — хранилище недоступно; состояние не продвинуто.
	ErrUnavailable = errors.New("store unavailable")
	// ErrQuotaExceeded — лайк при исчерпанной квоте; ничего не изменено.
	ErrQuotaExceeded = errors.New("swipe quota exceeded")
	// ErrNotFound — профиль пользователя отсутствует.
	ErrNotFound = errors.New("not found")
	// ErrNoCandidate — подходящих кандидатов нет (не путать с ErrUnavailable).
	ErrNoCandidate = errors.New("no candidate")
	// ErrInvalidArgument — неверные входные параметры (битый токен, свайп самого себя и т.п.).
	ErrInvalidArgument = errors.New("invalid argument")
)

// errNoSession — у пользователя нет активной анкеты.
var errNoSession = errors.New("no active session")

// Scheduler — отложенные продолжения авто-выдачи, ключованные по пользователю.
type Scheduler interface {
	Schedule(key int64, gen uint64, d time.Duration, fn scheduler.Func)
	Cancel(key int64) bool
}

// Service — бизнес-логика match-bot.
type Service struct {
	storage  storage.Storage
	state    state.Store
	notifier notify.Notifier
	sched    Scheduler
	locks    *state.Locker
	cfg      config.Config
	metrics  *metrics.Metrics
	validate *validator.Validate

	rndMu sync.Mutex
	rnd   *rand.Rand

	// base — родительский контекст отложенных продолжений (логгер процесса, отмена на shutdown).
	base context.Context
}

// Option — опциональная настройка Service.
type Option func(*Service)

// WithRand задаёт источник случайности для выбора кандидата.
func WithRand(r *rand.Rand) Option {
	return func(s *Service) { s.rnd = r }
}

// WithMetrics задаёт набор метрик.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithBaseContext задаёт контекст, в котором выполняются отложенные продолжения.
func WithBaseContext(ctx context.Context) Option {
	return func(s *Service) { s.base = ctx }
}

// New создает новый экземпляр Service.
func New(st storage.Storage, ss state.Store, n notify.Notifier, sched Scheduler, cfg config.Config, opts ...Option) *Service {
	s := &Service{
		storage:  st,
		state:    ss,
		notifier: n,
		sched:    sched,
		locks:    state.NewLocker(),
		cfg:      cfg,
		validate: validator.New(),
		base:     context.Background(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.rnd == nil {
		s.rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	if s.metrics == nil {
		s.metrics = metrics.New(nil)
	}

	return s
}

// intN — равномерное целое из [0, n).
func (s *Service) intN(n int) int {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()

	return s.rnd.IntN(n)
}
