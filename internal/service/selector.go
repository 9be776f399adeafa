package service

import (
	"context"
	"fmt"

	"github.com/pribylovaa/match-bot/internal/models"
	"github.com/pribylovaa/match-bot/pkg/log"
)

// Select выбирает одного подходящего кандидата для requester.
//
// Кандидат подходит, если:
//   - это не сам requester;
//   - его пол входит в interestedIn requester (everyone — любой);
//   - его interestedIn включает пол requester (или everyone);
//   - requester его ещё не лайкал и не дизлайкал.
//
// Хранилище фильтрует предварительно, предикат перепроверяется здесь.
// Среди подходящих выбор равномерно случайный, без смещения к порядку выдачи хранилища.
//
// Ошибки: ErrNoCandidate — подходящих нет; ErrUnavailable — сбой хранилища.
func (s *Service) Select(ctx context.Context, requester *models.Profile) (*models.Profile, error) {
	const op = "service/selector/Select"
	lg := log.From(ctx).With("op", op)

	if requester == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	candidates, err := s.storage.Candidates(ctx, models.FilterFor(requester))
	if err != nil {
		lg.Error("storage error on Candidates", "err", err)
		s.metrics.Candidates.WithLabelValues("unavailable").Inc()

		return nil, fmt.Errorf("%s: %w", op, ErrUnavailable)
	}

	eligible := make([]*models.Profile, 0, len(candidates))
	for i := range candidates {
		if requester.Eligible(&candidates[i]) {
			eligible = append(eligible, &candidates[i])
		}
	}

	if len(eligible) == 0 {
		lg.Debug("no eligible candidates", "fetched", len(candidates))
		s.metrics.Candidates.WithLabelValues("none").Inc()

		return nil, fmt.Errorf("%s: %w", op, ErrNoCandidate)
	}

	s.metrics.Candidates.WithLabelValues("found").Inc()

	return eligible[s.intN(len(eligible))], nil
}
