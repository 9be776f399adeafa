package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/pribylovaa/match-bot/internal/models"
	"github.com/pribylovaa/match-bot/internal/notify"
	"github.com/pribylovaa/match-bot/pkg/log"
)

// Виды входящих событий (метки метрик).
const (
	kindText    = "text"
	kindMedia   = "media"
	kindControl = "control"
)

// route — обработчик кнопки. exact — токен целиком, иначе префикс с аргументом.
type route struct {
	token  string
	exact  bool
	handle func(s *Service, ctx context.Context, userID int64, username, arg string) error
}

// routes — единственная регистрация обработчиков кнопок; у каждого токена/префикса ровно один обработчик.
var routes = []route{
	{token: TokenStart, exact: true, handle: func(s *Service, ctx context.Context, id int64, _, _ string) error {
		return s.Start(ctx, id)
	}},
	{token: TokenFindMatch, exact: true, handle: func(s *Service, ctx context.Context, id int64, username, _ string) error {
		_, err := s.RequestMatch(ctx, id, username)
		return err
	}},
	{token: TokenUploadImage, exact: true, handle: func(s *Service, ctx context.Context, id int64, _, _ string) error {
		s.touch(ctx, id)
		return s.RequestPhotoUpdate(ctx, id)
	}},
	{token: PrefixGender, handle: func(s *Service, ctx context.Context, id int64, _, arg string) error {
		return s.onChoice(ctx, id, PrefixGender+arg)
	}},
	{token: PrefixInterest, handle: func(s *Service, ctx context.Context, id int64, _, arg string) error {
		return s.onChoice(ctx, id, PrefixInterest+arg)
	}},
	{token: PrefixLike, handle: func(s *Service, ctx context.Context, id int64, _, arg string) error {
		return s.onSwipe(ctx, id, arg, models.Like)
	}},
	{token: PrefixDislike, handle: func(s *Service, ctx context.Context, id int64, _, arg string) error {
		return s.onSwipe(ctx, id, arg, models.Dislike)
	}},
}

// lookupRoute находит обработчик токена.
func lookupRoute(token string) (route, string, bool) {
	for _, r := range routes {
		if r.exact {
			if token == r.token {
				return r, "", true
			}

			continue
		}

		if arg, ok := strings.CutPrefix(token, r.token); ok {
			return r, arg, true
		}
	}

	return route{}, "", false
}

// OnIncomingText — текстовое сообщение пользователя.
//
//   - /start — начать анкету или показать профиль;
//   - есть анкета — ответ на текущий вопрос;
//   - анкеты нет, профиль есть — показ профиля;
//   - ни анкеты, ни профиля — игнорируется.
func (s *Service) OnIncomingText(ctx context.Context, userID int64, username, input string) {
	s.handle(ctx, kindText, userID, func(ctx context.Context) error {
		if isStartCommand(input) {
			return s.Start(ctx, userID)
		}

		_, err := s.SubmitText(ctx, userID, input)
		if errors.Is(err, errNoSession) {
			return s.showProfile(ctx, userID)
		}

		return err
	})
}

// OnIncomingMedia — фото от пользователя.
//
//   - есть анкета — фото профиля на шаге photo;
//   - ожидается обновление фото (upload_image) — замена profilePic;
//   - иначе при наличии профиля — показ профиля.
func (s *Service) OnIncomingMedia(ctx context.Context, userID int64, username, mediaRef string) {
	s.handle(ctx, kindMedia, userID, func(ctx context.Context) error {
		_, err := s.SubmitPhoto(ctx, userID, username, mediaRef)
		if !errors.Is(err, errNoSession) {
			return err
		}

		if s.chain(ctx, userID).AwaitingPhoto {
			return s.UpdatePhoto(ctx, userID, mediaRef)
		}

		return s.showProfile(ctx, userID)
	})
}

// OnControlSelected — нажатие кнопки с токеном.
func (s *Service) OnControlSelected(ctx context.Context, userID int64, username, token string) {
	s.handle(ctx, kindControl, userID, func(ctx context.Context) error {
		r, arg, ok := lookupRoute(token)
		if !ok {
			log.From(ctx).Warn("unknown control token", "token", token)
			return ErrInvalidArgument
		}

		return r.handle(s, ctx, userID, username, arg)
	})
}

// handle — граница обработки события: логгер с user_id, дедлайн, блокировка пользователя,
// перевод ошибок в ответы пользователю и метрики. Ошибки дальше не распространяются.
func (s *Service) handle(ctx context.Context, kind string, userID int64, fn func(ctx context.Context) error) {
	start := time.Now()

	ctx = log.With(ctx, "user_id", userID, "event", kind)
	ctx, cancel := s.eventContext(ctx)
	defer cancel()

	unlock := s.locks.Lock(userID)
	defer unlock()

	err := fn(ctx)
	outcome := s.fail(ctx, userID, err)

	s.metrics.Events.WithLabelValues(kind, outcome).Inc()
	s.metrics.EventDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// fail переводит ошибку в ответ пользователю и возвращает метку исхода.
func (s *Service) fail(ctx context.Context, userID int64, err error) string {
	lg := log.From(ctx)

	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrInvalidArgument):
		lg.Warn("event rejected", "err", err)
		return "invalid"
	case errors.Is(err, ErrQuotaExceeded):
		s.send(ctx, userID, s.upgradePrompt(textQuota))
		return "quota"
	case errors.Is(err, ErrNotFound):
		s.send(ctx, userID, text(textRestart))
		return "not_found"
	case errors.Is(err, errNoSession):
		return "ignored"
	default:
		lg.Error("event failed", "err", err)
		s.send(ctx, userID, text(textTryAgain))
		return "unavailable"
	}
}

// onChoice — gender_/interest_: выбор в анкете. Без анкеты — показ профиля.
func (s *Service) onChoice(ctx context.Context, userID int64, token string) error {
	_, err := s.SubmitChoice(ctx, userID, token)
	if errors.Is(err, errNoSession) {
		return s.showProfile(ctx, userID)
	}

	return err
}

// onSwipe — like_<id>/dislike_<id>.
func (s *Service) onSwipe(ctx context.Context, userID int64, arg string, polarity models.Polarity) error {
	target, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || target <= 0 {
		log.From(ctx).Warn("invalid swipe target", "arg", arg)
		return ErrInvalidArgument
	}

	s.touch(ctx, userID)

	return s.Swipe(ctx, models.Swipe{Actor: userID, Target: target, Polarity: polarity})
}

// showProfile — переадресация на показ профиля; без профиля событие игнорируется.
func (s *Service) showProfile(ctx context.Context, userID int64) error {
	p, err := s.storage.Profile(ctx, userID)
	if err != nil {
		if errors.Is(s.mapProfileErr(log.From(ctx), "service/events/showProfile", err), ErrNotFound) {
			return errNoSession
		}

		return ErrUnavailable
	}

	s.send(ctx, userID, profileCard(p))

	return nil
}

// send доставляет сообщение; сбой доставки только логируется.
func (s *Service) send(ctx context.Context, userID int64, msg notify.Message) {
	if err := s.notifier.Send(ctx, userID, msg); err != nil {
		log.From(ctx).Warn("notify failed", "to", userID, "err", err)
	}
}

func isStartCommand(input string) bool {
	cmd, _, _ := strings.Cut(strings.TrimSpace(input), " ")
	cmd, _, _ = strings.Cut(cmd, "@")

	return cmd == "/start"
}
