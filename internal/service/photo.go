package service

import (
	"context"
	"fmt"

	"github.com/pribylovaa/match-bot/internal/models"
	"github.com/pribylovaa/match-bot/pkg/log"
)

// RequestPhotoUpdate — кнопка upload_image: следующее присланное фото заменит фото профиля.
// Ошибки: ErrNotFound — профиля нет; ErrUnavailable — сбой хранилища.
func (s *Service) RequestPhotoUpdate(ctx context.Context, userID int64) error {
	const op = "service/photo/RequestPhotoUpdate"
	lg := log.From(ctx).With("op", op)

	if _, err := s.storage.Profile(ctx, userID); err != nil {
		return s.mapProfileErr(lg, op, err)
	}

	cs := s.chain(ctx, userID)
	cs.AwaitingPhoto = true

	if err := s.state.SaveChain(ctx, userID, cs); err != nil {
		lg.Error("state error on SaveChain", "err", err)
		return fmt.Errorf("%s: %w", op, ErrUnavailable)
	}

	s.send(ctx, userID, text(textAskNewPhoto))

	return nil
}

// UpdatePhoto заменяет profilePic адресным апдейтом и показывает обновлённый профиль.
// Флаг ожидания снимается только после успешной записи.
func (s *Service) UpdatePhoto(ctx context.Context, userID int64, photoRef string) error {
	const op = "service/photo/UpdatePhoto"
	lg := log.From(ctx).With("op", op)

	if photoRef == "" {
		lg.Warn("invalid argument: empty photo ref")
		return fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	p, err := s.storage.UpdateProfile(ctx, userID, models.ProfileUpdate{ProfilePic: &photoRef})
	if err != nil {
		return s.mapProfileErr(lg, op, err)
	}

	cs := s.chain(ctx, userID)
	cs.AwaitingPhoto = false
	s.saveChain(ctx, userID, cs)

	lg.Info("profile photo updated")

	s.send(ctx, userID, text(textPhotoUpdated))
	s.send(ctx, userID, profileCard(p))

	return nil
}
