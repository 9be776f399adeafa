// models содержит доменные сущности match-bot.
// Эти типы используются слоями бизнес-логики, хранилища и транспорта.
// BSON-имена полей профиля — контракт с хранилищем; менять их можно только с миграцией.
package models

import (
	"slices"
	"time"
)

// Gender — пол владельца анкеты.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Genders — допустимые значения Gender в порядке отображения.
var Genders = []Gender{GenderMale, GenderFemale, GenderOther}

// Valid сообщает, входит ли значение в перечисление.
func (g Gender) Valid() bool {
	return slices.Contains(Genders, g)
}

// Preference — кого пользователь хочет видеть (interestedIn).
type Preference string

const (
	PreferenceMen      Preference = "men"
	PreferenceWomen    Preference = "women"
	PreferenceEveryone Preference = "everyone"
)

// Preferences — допустимые значения Preference в порядке отображения.
var Preferences = []Preference{PreferenceMen, PreferenceWomen, PreferenceEveryone}

// Valid сообщает, входит ли значение в перечисление.
func (p Preference) Valid() bool {
	return slices.Contains(Preferences, p)
}

// Accepts — подходит ли анкета пола g под предпочтение p.
// everyone принимает любой пол, men — только male, women — только female.
func (p Preference) Accepts(g Gender) bool {
	switch p {
	case PreferenceEveryone:
		return g.Valid()
	case PreferenceMen:
		return g == GenderMale
	case PreferenceWomen:
		return g == GenderFemale
	default:
		return false
	}
}

// Genders возвращает множество полов, которые принимает предпочтение.
func (p Preference) Genders() []Gender {
	out := make([]Gender, 0, len(Genders))
	for _, g := range Genders {
		if p.Accepts(g) {
			out = append(out, g)
		}
	}

	return out
}

// PreferencesFor возвращает предпочтения, которым удовлетворяет пол g
// (кандидат должен интересоваться полом просящего или всеми).
func PreferencesFor(g Gender) []Preference {
	out := make([]Preference, 0, len(Preferences))
	for _, p := range Preferences {
		if p.Accepts(g) {
			out = append(out, p)
		}
	}

	return out
}

// Profile — анкета пользователя и его состояние свайпов.
type Profile struct {
	UserID             int64      `bson:"userId"             validate:"required,gt=0"`
	Username           string     `bson:"username"`
	Name               string     `bson:"name"               validate:"required"`
	Age                int        `bson:"age"                validate:"required,gt=0"`
	Gender             Gender     `bson:"gender"             validate:"oneof=male female other"`
	Location           string     `bson:"location"           validate:"required"`
	Interests          string     `bson:"interests"          validate:"required"`
	InterestedIn       Preference `bson:"interestedIn"       validate:"oneof=men women everyone"`
	ProfilePic         string     `bson:"profilePic"         validate:"required"`
	IsSubscribed       bool       `bson:"isSubscribed"`
	SubscriptionExpiry *time.Time `bson:"subscriptionExpiry,omitempty"`
	SwipeCount         int        `bson:"swipeCount"         validate:"gte=0"`
	LikedUsers         []int64    `bson:"likedUsers"`
	DislikedUsers      []int64    `bson:"dislikedUsers"`
	CreatedAt          time.Time  `bson:"createdAt"`
	UpdatedAt          time.Time  `bson:"updatedAt"`
}

// Likes — есть ли id в likedSet.
func (p *Profile) Likes(id int64) bool {
	return slices.Contains(p.LikedUsers, id)
}

// Dislikes — есть ли id в dislikedSet.
func (p *Profile) Dislikes(id int64) bool {
	return slices.Contains(p.DislikedUsers, id)
}

// Swiped — принимал ли пользователь решение по id.
func (p *Profile) Swiped(id int64) bool {
	return p.Likes(id) || p.Dislikes(id)
}

// Eligible проверяет взаимный предикат подбора: может ли candidate быть показан p.
func (p *Profile) Eligible(candidate *Profile) bool {
	if candidate.UserID == p.UserID {
		return false
	}

	if !p.InterestedIn.Accepts(candidate.Gender) {
		return false
	}

	if !candidate.InterestedIn.Accepts(p.Gender) {
		return false
	}

	return !p.Swiped(candidate.UserID)
}

// Polarity — направление свайпа.
type Polarity int8

const (
	Dislike Polarity = iota
	Like
)

func (p Polarity) String() string {
	if p == Like {
		return "like"
	}

	return "dislike"
}

// Swipe — одно решение actor по target. Отдельно не хранится:
// сворачивается в likedUsers/dislikedUsers.
type Swipe struct {
	Actor    int64
	Target   int64
	Polarity Polarity
}

// CandidateFilter — предварительный фильтр для хранилища.
// Сервис повторно проверяет каждую запись через Profile.Eligible.
type CandidateFilter struct {
	Exclude      []int64
	Genders      []Gender
	InterestedIn []Preference
}

// FilterFor строит фильтр кандидатов для requester.
func FilterFor(requester *Profile) CandidateFilter {
	exclude := make([]int64, 0, 1+len(requester.LikedUsers)+len(requester.DislikedUsers))
	exclude = append(exclude, requester.UserID)
	exclude = append(exclude, requester.LikedUsers...)
	exclude = append(exclude, requester.DislikedUsers...)

	return CandidateFilter{
		Exclude:      exclude,
		Genders:      requester.InterestedIn.Genders(),
		InterestedIn: PreferencesFor(requester.Gender),
	}
}

// ProfileUpdate — частичный апдейт профиля.
// Pointer-поля обновляются только если заданы; AddLiked/AddDisliked добавляются как в множество.
// QuotaDelta прибавляется к swipeCount; RequireQuota делает апдейт условным (swipeCount > 0).
type ProfileUpdate struct {
	Username     *string
	ProfilePic   *string
	AddLiked     *int64
	AddDisliked  *int64
	QuotaDelta   int
	RequireQuota bool
}

// Empty — нечего обновлять.
func (u ProfileUpdate) Empty() bool {
	return u.Username == nil && u.ProfilePic == nil && u.AddLiked == nil && u.AddDisliked == nil && u.QuotaDelta == 0
}
