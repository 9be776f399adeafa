package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pribylovaa/match-bot/internal/models"
	"github.com/pribylovaa/match-bot/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Profile — поиск по userId.
func (m *Mongo) Profile(ctx context.Context, userID int64) (*models.Profile, error) {
	const op = "storage/mongo/Profile"

	var p models.Profile
	err := m.profiles.FindOne(ctx, bson.D{{Key: "userId", Value: userID}}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, unavailable(op, err)
	}

	return &p, nil
}

// Candidates — предварительный отбор: исключения по userId, пол из предпочтения, взаимное предпочтение.
func (m *Mongo) Candidates(ctx context.Context, filter models.CandidateFilter) ([]models.Profile, error) {
	const op = "storage/mongo/Candidates"

	q := bson.D{
		{Key: "userId", Value: bson.D{{Key: "$nin", Value: nonNil(filter.Exclude)}}},
		{Key: "gender", Value: bson.D{{Key: "$in", Value: filter.Genders}}},
		{Key: "interestedIn", Value: bson.D{{Key: "$in", Value: filter.InterestedIn}}},
	}

	cur, err := m.profiles.Find(ctx, q)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer cur.Close(ctx)

	out := make([]models.Profile, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, unavailable(op, err)
	}

	return out, nil
}

// CreateProfile — вставка одним документом; дубликат userId -> ErrAlreadyExists.
func (m *Mongo) CreateProfile(ctx context.Context, profile models.Profile) error {
	const op = "storage/mongo/CreateProfile"

	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	// $addToSet не работает по null, поэтому множества всегда массивы.
	profile.LikedUsers = nonNil(profile.LikedUsers)
	profile.DislikedUsers = nonNil(profile.DislikedUsers)

	if _, err := m.profiles.InsertOne(ctx, profile); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return unavailable(op, err)
	}

	return nil
}

// UpdateProfile — адресный апдейт через $set/$addToSet/$inc одной командой findOneAndUpdate.
// RequireQuota добавляет в фильтр swipeCount > 0: списание и добавление в likedUsers
// происходят атомарно или не происходят вовсе.
func (m *Mongo) UpdateProfile(ctx context.Context, userID int64, update models.ProfileUpdate) (*models.Profile, error) {
	const op = "storage/mongo/UpdateProfile"

	// пустой апдейт не трогает документ (и updatedAt), только проверяет условие.
	if update.Empty() {
		p, err := m.Profile(ctx, userID)
		if err != nil {
			return nil, err
		}
		if update.RequireQuota && p.SwipeCount <= 0 {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrPreconditionFailed)
		}

		return p, nil
	}

	filter := bson.D{{Key: "userId", Value: userID}}
	if update.RequireQuota {
		filter = append(filter, bson.E{Key: "swipeCount", Value: bson.D{{Key: "$gt", Value: 0}}})
	}

	set := bson.D{{Key: "updatedAt", Value: time.Now().UTC()}}
	if update.Username != nil {
		set = append(set, bson.E{Key: "username", Value: *update.Username})
	}
	if update.ProfilePic != nil {
		set = append(set, bson.E{Key: "profilePic", Value: *update.ProfilePic})
	}

	doc := bson.D{{Key: "$set", Value: set}}

	addToSet := bson.D{}
	if update.AddLiked != nil {
		addToSet = append(addToSet, bson.E{Key: "likedUsers", Value: *update.AddLiked})
	}
	if update.AddDisliked != nil {
		addToSet = append(addToSet, bson.E{Key: "dislikedUsers", Value: *update.AddDisliked})
	}
	if len(addToSet) > 0 {
		doc = append(doc, bson.E{Key: "$addToSet", Value: addToSet})
	}

	if update.QuotaDelta != 0 {
		doc = append(doc, bson.E{Key: "$inc", Value: bson.D{{Key: "swipeCount", Value: update.QuotaDelta}}})
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var p models.Profile
	err := m.profiles.FindOneAndUpdate(ctx, filter, doc, opts).Decode(&p)
	if err == nil {
		return &p, nil
	}

	if !errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, unavailable(op, err)
	}

	if !update.RequireQuota {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	// Различаем «профиля нет» и «квота кончилась».
	n, err := m.profiles.CountDocuments(ctx, bson.D{{Key: "userId", Value: userID}})
	if err != nil {
		return nil, unavailable(op, err)
	}

	if n == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil, fmt.Errorf("%s: %w", op, storage.ErrPreconditionFailed)
}

// ExpireSubscriptions — снять подписку у истёкших и вернуть квоту.
// Сначала выбираем userId (нужны для уведомлений), затем обновляем только их.
func (m *Mongo) ExpireSubscriptions(ctx context.Context, now time.Time, quota int) ([]int64, error) {
	const op = "storage/mongo/ExpireSubscriptions"

	filter := bson.D{
		{Key: "isSubscribed", Value: true},
		{Key: "subscriptionExpiry", Value: bson.D{{Key: "$lte", Value: now.UTC()}}},
	}

	opts := options.Find().SetProjection(bson.D{{Key: "userId", Value: 1}}).SetSort(bson.D{{Key: "userId", Value: 1}})

	cur, err := m.profiles.Find(ctx, filter, opts)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		UserID int64 `bson:"userId"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, unavailable(op, err)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.UserID)
	}

	_, err = m.profiles.UpdateMany(ctx,
		append(filter, bson.E{Key: "userId", Value: bson.D{{Key: "$in", Value: ids}}}),
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "isSubscribed", Value: false},
			{Key: "swipeCount", Value: quota},
			{Key: "updatedAt", Value: now.UTC()},
		}}},
	)
	if err != nil {
		return nil, unavailable(op, err)
	}

	return ids, nil
}

// ResetQuotas — суточный сброс квоты для всех без подписки.
func (m *Mongo) ResetQuotas(ctx context.Context, quota int) (int64, error) {
	const op = "storage/mongo/ResetQuotas"

	res, err := m.profiles.UpdateMany(ctx,
		bson.D{{Key: "isSubscribed", Value: false}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "swipeCount", Value: quota}}}},
	)
	if err != nil {
		return 0, unavailable(op, err)
	}

	return res.MatchedCount, nil
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}

	return ids
}
