package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pribylovaa/match-bot/internal/models"
	"github.com/pribylovaa/match-bot/pkg/log"
)

// Outcome — чем закончился шаг выдачи.
type Outcome int8

const (
	// OutcomeCandidate — кандидат показан.
	OutcomeCandidate Outcome = iota + 1
	// OutcomeManual — лимит авто-выдачи, показана кнопка ручного запроса.
	OutcomeManual
	// OutcomeNoCandidate — подходящих кандидатов нет.
	OutcomeNoCandidate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCandidate:
		return "candidate"
	case OutcomeManual:
		return "manual"
	case OutcomeNoCandidate:
		return "no_candidate"
	default:
		return "unknown"
	}
}

// Advance — автоматическая выдача следующего кандидата.
//
// Поведение:
//   - счётчик авто-выдачи >= chain.max_auto: вместо кандидата — кнопка «Find Another Match», счётчик в 0;
//   - кандидат найден: показывается, счётчик +1;
//   - кандидатов нет: сообщение «no matches», счётчик не меняется.
//
// Ошибки: ErrNotFound — нет профиля; ErrUnavailable — сбой хранилища (ничего не показано, счётчик не меняется).
func (s *Service) Advance(ctx context.Context, userID int64) (Outcome, error) {
	const op = "service/autochain/Advance"
	lg := log.From(ctx).With("op", op)

	cs := s.chain(ctx, userID)

	if cs.AutoServed >= s.cfg.Chain.MaxAuto {
		s.send(ctx, userID, withControls(text(textManual), findAnother()))

		cs.AutoServed = 0
		s.saveChain(ctx, userID, cs)

		lg.Debug("auto chain cap reached")

		return OutcomeManual, nil
	}

	requester, err := s.storage.Profile(ctx, userID)
	if err != nil {
		return 0, s.mapProfileErr(lg, op, err)
	}

	out, err := s.deliver(ctx, requester)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if out == OutcomeCandidate {
		cs.AutoServed++
		s.saveChain(ctx, userID, cs)
	}

	return out, nil
}

// RequestMatch — явный запрос кандидата (find_match).
//
// Поведение:
//   - счётчик авто-выдачи сбрасывается в 0, поколение увеличивается (ожидающее продолжение отменяется);
//   - показывается один кандидат; явная выдача в счётчик не засчитывается;
//   - если ник пользователя в мессенджере изменился — он обновляется в профиле.
//
// Ошибки: ErrNotFound — профиль не заполнен; ErrUnavailable — сбой хранилища.
func (s *Service) RequestMatch(ctx context.Context, userID int64, username string) (Outcome, error) {
	const op = "service/autochain/RequestMatch"
	lg := log.From(ctx).With("op", op)

	cs := s.chain(ctx, userID)
	cs.Generation++
	cs.AutoServed = 0
	s.saveChain(ctx, userID, cs)
	s.sched.Cancel(userID)

	requester, err := s.storage.Profile(ctx, userID)
	if err != nil {
		return 0, s.mapProfileErr(lg, op, err)
	}

	s.syncUsername(ctx, requester, username)

	out, err := s.deliver(ctx, requester)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// OnDislike учитывает дизлайк в серии и возвращает true, если этот ход должен
// закончиться кнопкой ручного запроса вместо авто-выдачи.
//
// Каждый chain.streak_upsell_every-й дизлайк пользователь без подписки получает предложение подписки
// (выдачу это не блокирует); каждый chain.streak_manual_every-й — кнопку «Find Another Match».
func (s *Service) OnDislike(ctx context.Context, userID int64, subscribed bool) bool {
	cs := s.chain(ctx, userID)
	cs.DislikeStreak++
	s.saveChain(ctx, userID, cs)

	if cs.DislikeStreak%s.cfg.Chain.StreakUpsellEvery == 0 && !subscribed {
		s.send(ctx, userID, s.upgradePrompt(textUpsell))
	}

	if cs.DislikeStreak%s.cfg.Chain.StreakManualEvery == 0 {
		s.send(ctx, userID, withControls(
			text(fmt.Sprintf(textStreakManual, s.cfg.Chain.StreakManualEvery)),
			findAnother(),
		))

		return true
	}

	return false
}

// deliver выбирает и показывает кандидата. Отсутствие кандидатов — штатный исход, не ошибка.
func (s *Service) deliver(ctx context.Context, requester *models.Profile) (Outcome, error) {
	candidate, err := s.Select(ctx, requester)
	if err != nil {
		if errors.Is(err, ErrNoCandidate) {
			s.send(ctx, requester.UserID, text(textNoMatches))
			return OutcomeNoCandidate, nil
		}

		return 0, err
	}

	s.send(ctx, requester.UserID, candidateCard(candidate))

	return OutcomeCandidate, nil
}

// scheduleContinuation планирует авто-выдачу после паузы с текущим поколением пользователя.
func (s *Service) scheduleContinuation(ctx context.Context, userID int64) {
	cs := s.chain(ctx, userID)
	lg := log.From(ctx)

	s.sched.Schedule(userID, cs.Generation, s.cfg.Chain.MatchDelay, func(gen uint64) {
		s.continueChain(lg, userID, gen)
	})
}

// continueChain — срабатывание отложенного продолжения. Устаревшее поколение — no-op.
func (s *Service) continueChain(lg *slog.Logger, userID int64, gen uint64) {
	const op = "service/autochain/continueChain"

	ctx, cancel := s.eventContext(log.Into(s.base, lg.With("op", op)))
	defer cancel()

	unlock := s.locks.Lock(userID)
	defer unlock()

	if cs := s.chain(ctx, userID); cs.Generation != gen {
		log.From(ctx).Debug("stale continuation skipped", "gen", gen, "current", cs.Generation)
		return
	}

	if _, err := s.Advance(ctx, userID); err != nil {
		s.fail(ctx, userID, err)
	}
}

// touch отмечает явное действие пользователя: поколение +1, ожидающее продолжение отменяется.
func (s *Service) touch(ctx context.Context, userID int64) models.ChainState {
	cs := s.chain(ctx, userID)
	cs.Generation++
	s.saveChain(ctx, userID, cs)
	s.sched.Cancel(userID)

	return cs
}

// resetStreak обнуляет серию дизлайков (после лайка).
func (s *Service) resetStreak(ctx context.Context, userID int64) {
	cs := s.chain(ctx, userID)
	if cs.DislikeStreak == 0 {
		return
	}

	cs.DislikeStreak = 0
	s.saveChain(ctx, userID, cs)
}

// chain читает счётчики. Сбой таблицы состояния не прерывает действие пользователя:
// счётчики некритичны, продолжаем с нулевыми.
func (s *Service) chain(ctx context.Context, userID int64) models.ChainState {
	cs, err := s.state.Chain(ctx, userID)
	if err != nil {
		log.From(ctx).Warn("state error on Chain", "err", err)
		return models.ChainState{}
	}

	return cs
}

func (s *Service) saveChain(ctx context.Context, userID int64, cs models.ChainState) {
	if err := s.state.SaveChain(ctx, userID, cs); err != nil {
		log.From(ctx).Warn("state error on SaveChain", "err", err)
	}
}

// syncUsername обновляет сохранённый ник, если он поменялся в мессенджере.
func (s *Service) syncUsername(ctx context.Context, p *models.Profile, username string) {
	username = strings.TrimSpace(username)
	if username == "" || username == p.Username {
		return
	}

	if _, err := s.storage.UpdateProfile(ctx, p.UserID, models.ProfileUpdate{Username: &username}); err != nil {
		log.From(ctx).Warn("storage error on UpdateProfile(username)", "err", err)
		return
	}

	p.Username = username
}

// eventContext — контекст с дедлайном обработки одного события.
func (s *Service) eventContext(parent context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeouts.Event <= 0 {
		return context.WithCancel(parent)
	}

	return context.WithTimeout(parent, s.cfg.Timeouts.Event)
}
