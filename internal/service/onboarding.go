package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pribylovaa/match-bot/internal/models"
	"github.com/pribylovaa/match-bot/internal/state"
	"github.com/pribylovaa/match-bot/internal/storage"
	"github.com/pribylovaa/match-bot/pkg/log"
)

// Start обрабатывает /start.
//
// Поведение:
//   - профиль уже есть: показывает его (анкета не начинается);
//   - профиля нет: создаёт (или перезапускает) анкету с шага name и задаёт первый вопрос;
//   - ошибки хранилища/таблицы состояния -> ErrUnavailable.
func (s *Service) Start(ctx context.Context, userID int64) error {
	const op = "service/onboarding/Start"
	lg := log.From(ctx).With("op", op)

	p, err := s.storage.Profile(ctx, userID)
	switch {
	case err == nil:
		s.send(ctx, userID, profileCard(p))
		return nil
	case errors.Is(err, storage.ErrNotFound):
	default:
		lg.Error("storage error on Profile", "err", err)
		return fmt.Errorf("%s: %w", op, ErrUnavailable)
	}

	sess := &models.Session{UserID: userID, Step: models.StepName}
	if err := s.state.SaveSession(ctx, sess); err != nil {
		lg.Error("state error on SaveSession", "err", err)
		return fmt.Errorf("%s: %w", op, ErrUnavailable)
	}

	lg.Info("onboarding started")
	s.send(ctx, userID, s.prompt(sess))

	return nil
}

// SubmitText применяет текстовый ответ к текущему шагу анкеты и возвращает шаг после обработки.
//
// Валидация:
//   - name/location/interests — непустой текст не длиннее limits.max_text_len;
//   - age — целое в [limits.min_age, limits.max_age];
//   - gender/interestedIn/photo текстом не принимаются.
//
// Поведение/ошибки:
//   - некорректный ответ: переспрашивает тот же шаг и возвращает ErrValidation (шаг не меняется);
//   - нет анкеты -> errNoSession;
//   - ошибка сохранения -> ErrUnavailable, шаг не меняется.
func (s *Service) SubmitText(ctx context.Context, userID int64, input string) (models.Step, error) {
	const op = "service/onboarding/SubmitText"
	lg := log.From(ctx).With("op", op)

	sess, err := s.session(ctx, userID)
	if err != nil {
		return models.StepNone, fmt.Errorf("%s: %w", op, err)
	}

	lg = lg.With("step", sess.Step.String())
	input = strings.TrimSpace(input)

	switch sess.Step {
	case models.StepName, models.StepLocation, models.StepInterests:
		if !s.validText(input) {
			return s.reject(ctx, sess, op)
		}

		switch sess.Step {
		case models.StepName:
			sess.Name = input
		case models.StepLocation:
			sess.Location = input
		default:
			sess.Interests = input
		}
	case models.StepAge:
		age, err := strconv.Atoi(input)
		if err != nil || age < s.cfg.Limits.MinAge || age > s.cfg.Limits.MaxAge {
			lg.Debug("invalid age", "input", input)
			return s.reject(ctx, sess, op)
		}

		sess.Age = age
	default:
		// gender/interestedIn выбираются кнопкой, photo — медиа.
		return s.reject(ctx, sess, op)
	}

	return s.advanceSession(ctx, sess, op)
}

// SubmitChoice применяет выбор кнопкой (gender_<v>, interest_<v>).
// Выбор не для текущего шага или вне перечисления — переспрос и ErrValidation.
func (s *Service) SubmitChoice(ctx context.Context, userID int64, token string) (models.Step, error) {
	const op = "service/onboarding/SubmitChoice"
	lg := log.From(ctx).With("op", op, "token", token)

	sess, err := s.session(ctx, userID)
	if err != nil {
		return models.StepNone, fmt.Errorf("%s: %w", op, err)
	}

	switch {
	case sess.Step == models.StepGender && strings.HasPrefix(token, PrefixGender):
		g := models.Gender(strings.TrimPrefix(token, PrefixGender))
		if !g.Valid() {
			lg.Warn("invalid gender")
			return s.reject(ctx, sess, op)
		}

		sess.Gender = g
	case sess.Step == models.StepInterestedIn && strings.HasPrefix(token, PrefixInterest):
		p := models.Preference(strings.TrimPrefix(token, PrefixInterest))
		if !p.Valid() {
			lg.Warn("invalid preference")
			return s.reject(ctx, sess, op)
		}

		sess.InterestedIn = p
	default:
		lg.Debug("choice does not match step", "step", sess.Step.String())
		return s.reject(ctx, sess, op)
	}

	return s.advanceSession(ctx, sess, op)
}

// SubmitPhoto завершает анкету: собирает профиль с дефолтами и создаёт его одной операцией.
//
// Поведение/ошибки:
//   - фото не на шаге photo: переспрос текущего шага и ErrValidation;
//   - профиль уже существует (гонка двух апдейтов): анкета удаляется, показывается сохранённый профиль;
//   - ошибка хранилища -> ErrUnavailable, анкета остаётся на шаге photo.
func (s *Service) SubmitPhoto(ctx context.Context, userID int64, username, photoRef string) (models.Step, error) {
	const op = "service/onboarding/SubmitPhoto"
	lg := log.From(ctx).With("op", op)

	sess, err := s.session(ctx, userID)
	if err != nil {
		return models.StepNone, fmt.Errorf("%s: %w", op, err)
	}

	if sess.Step != models.StepPhoto || photoRef == "" {
		return s.reject(ctx, sess, op)
	}

	profile := models.Profile{
		UserID:        userID,
		Username:      username,
		Name:          sess.Name,
		Age:           sess.Age,
		Gender:        sess.Gender,
		Location:      sess.Location,
		Interests:     sess.Interests,
		InterestedIn:  sess.InterestedIn,
		ProfilePic:    photoRef,
		IsSubscribed:  false,
		SwipeCount:    s.cfg.Limits.DailySwipes,
		LikedUsers:    []int64{},
		DislikedUsers: []int64{},
	}

	if err := s.validate.Struct(profile); err != nil {
		// Черновик повреждён — анкета начинается заново.
		lg.Error("assembled profile is invalid, restarting onboarding", "err", err)

		restart := &models.Session{UserID: userID, Step: models.StepName}
		if err := s.state.SaveSession(ctx, restart); err != nil {
			lg.Error("state error on SaveSession", "err", err)
			return sess.Step, fmt.Errorf("%s: %w", op, ErrUnavailable)
		}

		s.send(ctx, userID, text(textRestartForm))

		return restart.Step, fmt.Errorf("%s: %w", op, ErrValidation)
	}

	err = s.storage.CreateProfile(ctx, profile)
	switch {
	case err == nil:
		s.metrics.Onboarded.Inc()
		lg.Info("profile created")
	case errors.Is(err, storage.ErrAlreadyExists):
		lg.Warn("profile already exists, discarding session")

		existing, perr := s.storage.Profile(ctx, userID)
		if perr != nil {
			lg.Error("storage error on Profile", "err", perr)
			return sess.Step, fmt.Errorf("%s: %w", op, ErrUnavailable)
		}
		profile = *existing
	default:
		lg.Error("storage error on CreateProfile", "err", err)
		return sess.Step, fmt.Errorf("%s: %w", op, ErrUnavailable)
	}

	if err := s.state.DeleteSession(ctx, userID); err != nil {
		lg.Warn("state error on DeleteSession", "err", err)
	}

	s.send(ctx, userID, profileCard(&profile))

	return models.StepComplete, nil
}

// session достаёт активную анкету; отсутствие -> errNoSession, сбой -> ErrUnavailable.
func (s *Service) session(ctx context.Context, userID int64) (*models.Session, error) {
	sess, err := s.state.Session(ctx, userID)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return nil, errNoSession
		}

		log.From(ctx).Error("state error on Session", "err", err)
		return nil, ErrUnavailable
	}

	return sess, nil
}

// advanceSession переводит анкету на следующий шаг, сохраняет и задаёт следующий вопрос.
func (s *Service) advanceSession(ctx context.Context, sess *models.Session, op string) (models.Step, error) {
	prev := sess.Step
	sess.Step = sess.Step.Next()

	if err := s.state.SaveSession(ctx, sess); err != nil {
		log.From(ctx).Error("state error on SaveSession", "op", op, "err", err)
		return prev, fmt.Errorf("%s: %w", op, ErrUnavailable)
	}

	s.send(ctx, sess.UserID, s.prompt(sess))

	return sess.Step, nil
}

// reject переспрашивает текущий шаг без изменения анкеты.
func (s *Service) reject(ctx context.Context, sess *models.Session, op string) (models.Step, error) {
	s.send(ctx, sess.UserID, s.reprompt(sess))

	return sess.Step, fmt.Errorf("%s: %w", op, ErrValidation)
}

func (s *Service) validText(v string) bool {
	return v != "" && utf8.RuneCountInString(v) <= s.cfg.Limits.MaxTextLen
}
