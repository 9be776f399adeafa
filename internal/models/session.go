package models

// Step — шаг анкеты. Порядок шагов фиксирован.
type Step int8

const (
	StepNone Step = iota
	StepName
	StepAge
	StepGender
	StepLocation
	StepInterests
	StepInterestedIn
	StepPhoto
	StepComplete
)

func (s Step) String() string {
	switch s {
	case StepName:
		return "name"
	case StepAge:
		return "age"
	case StepGender:
		return "gender"
	case StepLocation:
		return "location"
	case StepInterests:
		return "interests"
	case StepInterestedIn:
		return "interested_in"
	case StepPhoto:
		return "photo"
	case StepComplete:
		return "complete"
	default:
		return "none"
	}
}

// Next возвращает следующий шаг (StepComplete остаётся StepComplete).
func (s Step) Next() Step {
	if s >= StepComplete {
		return StepComplete
	}

	return s + 1
}

// Session — незавершённая анкета. Удаляется после сохранения профиля.
type Session struct {
	UserID       int64      `json:"user_id"`
	Step         Step       `json:"step"`
	Name         string     `json:"name,omitempty"`
	Age          int        `json:"age,omitempty"`
	Gender       Gender     `json:"gender,omitempty"`
	Location     string     `json:"location,omitempty"`
	Interests    string     `json:"interests,omitempty"`
	InterestedIn Preference `json:"interested_in,omitempty"`
}

// ChainState — несохраняемые пользовательские счётчики.
type ChainState struct {
	// AutoServed — кандидаты, выданные автоматически с последнего явного запроса.
	AutoServed int `json:"auto_served"`
	// DislikeStreak — дизлайки подряд (сбрасывается лайком).
	DislikeStreak int `json:"dislike_streak"`
	// Generation растёт на каждое явное действие; отложенные продолжения с устаревшим поколением не выполняются.
	Generation uint64 `json:"generation"`
	// AwaitingPhoto — пользователь нажал upload_image и следующее медиа обновит фото.
	AwaitingPhoto bool `json:"awaiting_photo,omitempty"`
}
