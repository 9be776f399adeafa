package mongo

import (
	"context"
	"time"

	"github.com/pribylovaa/match-bot/internal/models"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
)

// CreateMatch — create-if-absent по уникальному индексу pair.
// Дубликат ключа означает, что пару уже записал другой обработчик: created=false без ошибки.
func (m *Mongo) CreateMatch(ctx context.Context, a, b int64) (bool, error) {
	const op = "storage/mongo/CreateMatch"

	if _, err := m.matches.InsertOne(ctx, models.NewMatch(a, b, time.Now().UTC())); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return false, nil
		}

		return false, unavailable(op, err)
	}

	return true, nil
}
