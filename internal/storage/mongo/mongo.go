package mongo

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/pribylovaa/match-bot/internal/config"
	"github.com/pribylovaa/match-bot/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	profilesCollection = "users"
	matchesCollection  = "matches"
	defaultDBName      = "datingBot"
)

// Mongo — тонкий адаптер MongoDB для профилей и совпадений.
type Mongo struct {
	client   *mongodriver.Client
	db       *mongodriver.Database
	profiles *mongodriver.Collection
	matches  *mongodriver.Collection
}

var _ storage.Storage = (*Mongo)(nil)

// New подключается к MongoDB, проверяет его, подготавливает коллекции и обеспечивает индексацию.
func New(ctx context.Context, cfg *config.Config) (*Mongo, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mongo: nil config")
	}

	if cfg.DB.URL == "" {
		return nil, fmt.Errorf("mongo: empty cfg.DB.URL")
	}

	cli, err := mongodriver.Connect(ctx, options.Client().ApplyURI(cfg.DB.URL))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := cli.Database(databaseFromURI(cfg.DB.URL))

	m := &Mongo{
		client:   cli,
		db:       db,
		profiles: db.Collection(profilesCollection),
		matches:  db.Collection(matchesCollection),
	}

	if err := m.ensureIndexes(ctx); err != nil {
		_ = m.Close(ctx)
		return nil, err
	}

	return m, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// Ping — readiness-проверка primary.
func (m *Mongo) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo ping: %w: %w", storage.ErrUnavailable, err)
	}

	return nil
}

// ensureIndexes создаёт индексы:
// - users: уникальный userId; подбор по gender+interestedIn; выборка истёкших подписок;
// - matches: уникальная неупорядоченная пара.
func (m *Mongo) ensureIndexes(ctx context.Context) error {
	profileModels := []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetName("uniq_user_id").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "gender", Value: 1}, {Key: "interestedIn", Value: 1}},
			Options: options.Index().SetName("gender_interested_in"),
		},
		{
			Keys:    bson.D{{Key: "isSubscribed", Value: 1}, {Key: "subscriptionExpiry", Value: 1}},
			Options: options.Index().SetName("subscribed_expiry"),
		},
	}

	if _, err := m.profiles.Indexes().CreateMany(ctx, profileModels); err != nil {
		return fmt.Errorf("mongo ensure indexes (users): %w", err)
	}

	matchModels := []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: "pair", Value: 1}},
			Options: options.Index().SetName("uniq_pair").SetUnique(true),
		},
	}

	if _, err := m.matches.Indexes().CreateMany(ctx, matchModels); err != nil {
		return fmt.Errorf("mongo ensure indexes (matches): %w", err)
	}

	return nil
}

// databaseFromURI извлекает имя базы данных из URI-пути mongodb.
// Если оно отсутствует или не поддается расшифровке, возвращает значение по умолчанию.
func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}
	return defaultDBName
}

// unavailable оборачивает ошибку драйвера в storage.ErrUnavailable, сохраняя исходную причину.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, storage.ErrUnavailable, err)
}
