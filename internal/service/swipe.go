package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pribylovaa/match-bot/internal/models"
	"github.com/pribylovaa/match-bot/internal/storage"
	"github.com/pribylovaa/match-bot/pkg/log"
)

// SwipeResult — итог RecordSwipe.
type SwipeResult struct {
	// Actor — профиль actor после записи решения.
	Actor *models.Profile
	// Target — профиль target; для лайка — прочитанный после записи.
	Target *models.Profile
	// Matched — этим вызовом образовалась новая пара.
	Matched bool
	// Duplicate — решение уже было записано раньше; квота и множества не менялись.
	Duplicate bool
}

// RecordSwipe записывает решение actor по target и проверяет взаимность.
//
// Валидация:
//   - нет профиля actor -> ErrNotFound;
//   - actor == target, target нет или он уже в противоположном множестве -> ErrInvalidArgument.
//
// Поведение/ошибки:
//   - повтор того же решения: Duplicate=true без изменений; повторный лайк заново
//     проходит проверку взаимности (запись о паре идемпотентна, повторного уведомления не будет);
//   - лайк без подписки при swipeCount <= 0 -> ErrQuotaExceeded, ничего не меняется;
//   - лайк: target в likedUsers, swipeCount -1 без подписки и -0 с подпиской (одним условным апдейтом);
//   - дизлайк: target в dislikedUsers, квота не меняется;
//   - после лайка target перечитывается; если он уже лайкнул actor: создаётся запись о паре,
//     Matched=true только у того вызова, который её создал;
//   - сбои хранилища -> ErrUnavailable.
func (s *Service) RecordSwipe(ctx context.Context, sw models.Swipe) (SwipeResult, error) {
	const op = "service/swipe/RecordSwipe"
	lg := log.From(ctx).With("op", op, "target_id", sw.Target, "polarity", sw.Polarity.String())

	actor, err := s.storage.Profile(ctx, sw.Actor)
	if err != nil {
		return SwipeResult{}, s.mapProfileErr(lg, op, err)
	}

	if sw.Actor == sw.Target {
		lg.Warn("invalid argument: self swipe")
		return SwipeResult{}, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	target, err := s.storage.Profile(ctx, sw.Target)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("invalid argument: target profile not found")
			return SwipeResult{}, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		}

		lg.Error("storage error on Profile(target)", "err", err)
		return SwipeResult{}, fmt.Errorf("%s: %w", op, ErrUnavailable)
	}

	if sw.Polarity == models.Dislike {
		return s.recordDislike(ctx, lg, op, actor, target)
	}

	return s.recordLike(ctx, lg, op, actor, target)
}

func (s *Service) recordDislike(ctx context.Context, lg *slog.Logger, op string, actor, target *models.Profile) (SwipeResult, error) {
	switch {
	case actor.Likes(target.UserID):
		lg.Warn("invalid argument: target already liked")
		return SwipeResult{}, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	case actor.Dislikes(target.UserID):
		return SwipeResult{Actor: actor, Target: target, Duplicate: true}, nil
	}

	id := target.UserID
	updated, err := s.storage.UpdateProfile(ctx, actor.UserID, models.ProfileUpdate{AddDisliked: &id})
	if err != nil {
		return SwipeResult{}, s.mapProfileErr(lg, op, err)
	}

	s.metrics.Swipes.WithLabelValues(models.Dislike.String()).Inc()

	return SwipeResult{Actor: updated, Target: target}, nil
}

func (s *Service) recordLike(ctx context.Context, lg *slog.Logger, op string, actor, target *models.Profile) (SwipeResult, error) {
	if actor.Dislikes(target.UserID) {
		lg.Warn("invalid argument: target already disliked")
		return SwipeResult{}, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	res := SwipeResult{Actor: actor, Target: target}

	if actor.Likes(target.UserID) {
		res.Duplicate = true
	} else {
		if !actor.IsSubscribed && actor.SwipeCount <= 0 {
			lg.Info("swipe quota exceeded")
			s.metrics.QuotaRejected.Inc()

			return SwipeResult{}, fmt.Errorf("%s: %w", op, ErrQuotaExceeded)
		}

		id := target.UserID
		update := models.ProfileUpdate{AddLiked: &id}
		if !actor.IsSubscribed {
			update.QuotaDelta = -1
			update.RequireQuota = true
		}

		updated, err := s.storage.UpdateProfile(ctx, actor.UserID, update)
		if err != nil {
			if errors.Is(err, storage.ErrPreconditionFailed) {
				// квоту успел списать параллельный лайк.
				lg.Info("swipe quota exceeded on conditional update")
				s.metrics.QuotaRejected.Inc()

				return SwipeResult{}, fmt.Errorf("%s: %w", op, ErrQuotaExceeded)
			}

			return SwipeResult{}, s.mapProfileErr(lg, op, err)
		}

		s.metrics.Swipes.WithLabelValues(models.Like.String()).Inc()
		res.Actor = updated
	}

	// read-after-write: target мог лайкнуть actor между нашими чтениями.
	fresh, err := s.storage.Profile(ctx, target.UserID)
	if err != nil {
		lg.Error("storage error on Profile(target) after like", "err", err)
		return SwipeResult{}, fmt.Errorf("%s: %w", op, ErrUnavailable)
	}
	res.Target = fresh

	if !fresh.Likes(actor.UserID) {
		return res, nil
	}

	created, err := s.storage.CreateMatch(ctx, actor.UserID, target.UserID)
	if err != nil {
		lg.Error("storage error on CreateMatch", "err", err)
		return SwipeResult{}, fmt.Errorf("%s: %w", op, ErrUnavailable)
	}

	if created {
		s.metrics.Matches.Inc()
		lg.Info("match created")
	}
	res.Matched = created

	return res, nil
}

// Swipe — полный сценарий свайпа: запись, уведомления о паре и продолжение выдачи.
//
// Поведение:
//   - новая пара: обе стороны получают уведомление, следующий кандидат для actor
//     планируется через chain.match_delay;
//   - лайк без пары: серия дизлайков сбрасывается, выдача продолжается сразу;
//   - дизлайк: учитывается серия дизлайков (OnDislike); если она требует ручного запроса —
//     выдача не продолжается, иначе продолжается сразу;
//   - повтор уже записанного решения ничего не выдаёт.
//
// Ошибки RecordSwipe и Advance возвращаются как есть.
func (s *Service) Swipe(ctx context.Context, sw models.Swipe) error {
	const op = "service/swipe/Swipe"

	res, err := s.RecordSwipe(ctx, sw)
	if err != nil {
		return err
	}

	if sw.Polarity == models.Like {
		s.resetStreak(ctx, sw.Actor)

		if res.Matched {
			s.notifyMatch(ctx, res.Actor, res.Target)
			s.scheduleContinuation(ctx, sw.Actor)

			return nil
		}

		if res.Duplicate {
			return nil
		}
	} else {
		if res.Duplicate {
			return nil
		}

		if s.OnDislike(ctx, sw.Actor, res.Actor.IsSubscribed) {
			return nil
		}

		s.send(ctx, sw.Actor, text(textDisliked))
	}

	if _, err := s.Advance(ctx, sw.Actor); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// notifyMatch уведомляет обе стороны. Раскрытие ника решается подпиской получателя.
func (s *Service) notifyMatch(ctx context.Context, actor, target *models.Profile) {
	s.send(ctx, actor.UserID, s.matchCard(actor, target))
	s.send(ctx, target.UserID, s.matchCard(target, actor))
}

// mapProfileErr — маппинг ошибок чтения/апдейта собственного профиля.
func (s *Service) mapProfileErr(lg *slog.Logger, op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		lg.Warn("profile not found")
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	lg.Error("storage error", "err", err)
	return fmt.Errorf("%s: %w", op, ErrUnavailable)
}
