package service

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/pribylovaa/match-bot/internal/models"
	"github.com/pribylovaa/match-bot/internal/notify"
)

// Токены кнопок. Каждый префикс обрабатывается ровно одним обработчиком (см. routes).
const (
	TokenStart       = "start"
	TokenFindMatch   = "find_match"
	TokenUploadImage = "upload_image"
	PrefixGender     = "gender_"
	PrefixInterest   = "interest_"
	PrefixLike       = "like_"
	PrefixDislike    = "dislike_"
)

const (
	textWelcome       = "👋 Welcome! Let's set up your profile. First, what's your name?"
	textAskAge        = "Nice to meet you, %s! How old are you?"
	textBadAge        = "❌ That doesn't look like a valid age. Please send a number between %d and %d."
	textAskGender     = "What's your gender?"
	textAskLocation   = "📍 Where are you located?"
	textAskInterests  = "What are your interests?"
	textAskInterested = "Who are you interested in?"
	textAskPhoto      = "📸 Now send your best profile photo."
	textBadText       = "❌ Please send a short text answer (up to %d characters)."
	textChooseButton  = "Please choose one of the options below."
	textRestartForm   = "⚠️ Something went wrong with your profile draft. Let's start over: what's your name?"

	textTryAgain     = "⚠️ Oops! Something went wrong. Try again later."
	textRestart      = "❌ We couldn't find your profile. Send /start to set it up."
	textQuota        = "🔒 You've reached your daily swipe limit! Upgrade to unlimited swipes."
	textNoMatches    = "😢 No new matches available right now. Check back later!"
	textManual       = "💡 Need more matches? Tap below to continue!"
	textStreakManual = "⚡ You've disliked %d profiles in a row. Tap below to find another match!"
	textUpsell       = "🚀 Tired of swiping? Unlock premium profiles and see who likes you instantly!"
	textDisliked     = "❌ You disliked this profile. Finding another match..."
	textAskNewPhoto  = "📸 Send your new profile photo."
	textPhotoUpdated = "✅ Your photo has been updated."

	textMatch         = "🎉 It's a match! You and %s are into each other!"
	textMatchHandle   = "\n\n🔗 Username: @%s"
	textMatchNoHandle = "\n\n🔗 Tap below to start chatting."
	textMatchLocked   = "\n\n💎 Upgrade to premium to unlock usernames and chat!"
)

func text(t string) notify.Message { return notify.Message{Text: t} }

func withControls(msg notify.Message, rows ...[]notify.Control) notify.Message {
	msg.Controls = rows
	return msg
}

func findAnother() []notify.Control {
	return notify.Row(notify.Button("🔍 Find Another Match", TokenFindMatch))
}

func genderControls() [][]notify.Control {
	return [][]notify.Control{
		notify.Row(
			notify.Button("🚹 Male", PrefixGender+string(models.GenderMale)),
			notify.Button("🚺 Female", PrefixGender+string(models.GenderFemale)),
		),
		notify.Row(notify.Button("⚧ Other", PrefixGender+string(models.GenderOther))),
	}
}

func preferenceControls() [][]notify.Control {
	return [][]notify.Control{
		notify.Row(
			notify.Button("Men", PrefixInterest+string(models.PreferenceMen)),
			notify.Button("Women", PrefixInterest+string(models.PreferenceWomen)),
		),
		notify.Row(notify.Button("Everyone", PrefixInterest+string(models.PreferenceEveryone))),
	}
}

// prompt — вопрос для шага анкеты.
func (s *Service) prompt(sess *models.Session) notify.Message {
	switch sess.Step {
	case models.StepAge:
		return text(fmt.Sprintf(textAskAge, sess.Name))
	case models.StepGender:
		return withControls(text(textAskGender), genderControls()...)
	case models.StepLocation:
		return text(textAskLocation)
	case models.StepInterests:
		return text(textAskInterests)
	case models.StepInterestedIn:
		return withControls(text(textAskInterested), preferenceControls()...)
	case models.StepPhoto:
		return text(textAskPhoto)
	default:
		return text(textWelcome)
	}
}

// reprompt — повтор вопроса текущего шага после некорректного ответа.
func (s *Service) reprompt(sess *models.Session) notify.Message {
	switch sess.Step {
	case models.StepAge:
		return text(fmt.Sprintf(textBadAge, s.cfg.Limits.MinAge, s.cfg.Limits.MaxAge))
	case models.StepGender:
		return withControls(text(textChooseButton), genderControls()...)
	case models.StepInterestedIn:
		return withControls(text(textChooseButton), preferenceControls()...)
	case models.StepPhoto:
		return text(textAskPhoto)
	default:
		return text(fmt.Sprintf(textBadText, s.cfg.Limits.MaxTextLen))
	}
}

// profileCard — собственная анкета пользователя с кнопками действий.
func profileCard(p *models.Profile) notify.Message {
	caption := fitCaption(func(f []string) string {
		return fmt.Sprintf(
			"🔥 Ready to play?\n\n📛 Name: %s\n🎂 Age: %d\n⚧ Gender: %s\n📍 Location: %s\n💡 Interests: %s\n💘 Looking for: %s",
			f[0], p.Age, p.Gender, f[1], f[2], p.InterestedIn,
		)
	}, p.Name, p.Location, p.Interests)

	return notify.Message{
		PhotoRef: p.ProfilePic,
		Text:     caption,
		Controls: [][]notify.Control{
			notify.Row(notify.Button("🔍 Find Your Next Match", TokenFindMatch)),
			notify.Row(notify.Button("📸 Update Your Photo", TokenUploadImage)),
		},
	}
}

// candidateCard — анкета кандидата с кнопками like/dislike.
func candidateCard(c *models.Profile) notify.Message {
	caption := fitCaption(func(f []string) string {
		return fmt.Sprintf(
			"💘 Match Found:\n📛 Name: %s\n🎂 Age: %d\n📍 Location: %s\n💡 Interests: %s",
			f[0], c.Age, f[1], f[2],
		)
	}, c.Name, c.Location, c.Interests)

	id := strconv.FormatInt(c.UserID, 10)

	return notify.Message{
		PhotoRef: c.ProfilePic,
		Text:     caption,
		Controls: [][]notify.Control{
			notify.Row(
				notify.Button("👍 Like", PrefixLike+id),
				notify.Button("👎 Dislike", PrefixDislike+id),
			),
		},
	}
}

// matchCard — уведомление о совпадении для viewer о counterpart.
// Ник раскрывается только подписчику-получателю; подписка counterpart роли не играет.
func (s *Service) matchCard(viewer, counterpart *models.Profile) notify.Message {
	caption := fitCaption(func(f []string) string {
		return fmt.Sprintf(textMatch, f[0])
	}, counterpart.Name)

	if !viewer.IsSubscribed {
		return notify.Message{
			PhotoRef: counterpart.ProfilePic,
			Text:     caption + textMatchLocked,
			Controls: [][]notify.Control{
				notify.Row(notify.Link("💎 Upgrade to Premium", s.cfg.Bot.UpgradeURL)),
			},
		}
	}

	if counterpart.Username != "" {
		caption += fmt.Sprintf(textMatchHandle, counterpart.Username)
	} else {
		caption += textMatchNoHandle
	}

	return notify.Message{
		PhotoRef: counterpart.ProfilePic,
		Text:     caption,
		Controls: [][]notify.Control{
			notify.Row(notify.Link("💬 Chat Now", "tg://user?id="+strconv.FormatInt(counterpart.UserID, 10))),
		},
	}
}

func (s *Service) upgradePrompt(t string) notify.Message {
	return withControls(text(t), notify.Row(notify.Link("🔥 Upgrade Now", s.cfg.Bot.UpgradeURL)))
}

// captionLimit — лимит подписи к фото в Telegram, в единицах UTF-16.
const captionLimit = 1024

// fitCaption собирает подпись из полей и, пока она длиннее captionLimit,
// укорачивает самое длинное поле (с многоточием на конце).
func fitCaption(render func(fields []string) string, fields ...string) string {
	caption := render(fields)

	for over := utf16Len(caption) - captionLimit; over > 0; over = utf16Len(caption) - captionLimit {
		i := 0
		for j := range fields {
			if utf16Len(fields[j]) > utf16Len(fields[i]) {
				i = j
			}
		}

		n := utf16Len(fields[i])
		if n <= 1 {
			break
		}

		fields[i] = truncateUTF16(fields[i], max(n-over, 1))
		caption = render(fields)
	}

	return caption
}

// truncateUTF16 обрезает s до limit единиц UTF-16, последняя из которых — «…».
func truncateUTF16(s string, limit int) string {
	if utf16Len(s) <= limit {
		return s
	}

	const ellipsis = "…"
	used := 0
	for i, r := range s {
		w := runeUTF16(r)
		if used+w > limit-1 {
			return s[:i] + ellipsis
		}
		used += w
	}

	return s
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += runeUTF16(r)
	}

	return n
}

func runeUTF16(r rune) int {
	if r >= 0x10000 && r <= utf8.MaxRune {
		return 2
	}

	return 1
}
