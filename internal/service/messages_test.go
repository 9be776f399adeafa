package service

import (
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/match-bot/internal/models"
)

func captionUnits(s string) int { return len(utf16.Encode([]rune(s))) }

// Анкета из ответов максимальной длины всё равно помещается в подпись к фото.
func TestCards_CaptionWithinTelegramLimit(t *testing.T) {
	const maxLen = 512

	tests := []struct {
		name string
		fill string
	}{
		{"ascii", "a"},
		{"cyrillic", "ж"},
		{"emoji", "😀"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			long := strings.Repeat(tt.fill, maxLen)
			p := &models.Profile{
				UserID:       7,
				Name:         long,
				Age:          30,
				Gender:       models.GenderFemale,
				Location:     long,
				Interests:    long,
				InterestedIn: models.PreferenceEveryone,
				ProfilePic:   "pic",
			}

			own := profileCard(p)
			require.LessOrEqual(t, captionUnits(own.Text), captionLimit)
			require.Contains(t, own.Text, "Looking for: everyone")
			require.True(t, strings.HasSuffix(own.Text, "everyone"))

			cand := candidateCard(p)
			require.LessOrEqual(t, captionUnits(cand.Text), captionLimit)
			require.Contains(t, cand.Text, "Age: 30")
			require.Contains(t, cand.Text, "…")

			h := newHarness(t)
			viewer := &models.Profile{UserID: 8, IsSubscribed: true}
			p.Username = "u7"
			match := h.svc.matchCard(viewer, p)
			require.LessOrEqual(t, captionUnits(match.Text), captionLimit)
			require.Contains(t, match.Text, "@u7")
		})
	}
}

// Короткая анкета выводится без сокращений.
func TestCards_ShortFieldsUntouched(t *testing.T) {
	p := &models.Profile{UserID: 1, Name: "Alice", Age: 25, Gender: models.GenderFemale, Location: "Berlin", Interests: "chess, hiking", InterestedIn: models.PreferenceMen}

	c := candidateCard(p)
	require.Contains(t, c.Text, "Name: Alice")
	require.Contains(t, c.Text, "Location: Berlin")
	require.Contains(t, c.Text, "Interests: chess, hiking")
	require.NotContains(t, c.Text, "…")
}

func TestTruncateUTF16(t *testing.T) {
	require.Equal(t, "abc", truncateUTF16("abc", 3))
	require.Equal(t, "ab…", truncateUTF16("abcd", 3))
	require.Equal(t, "…", truncateUTF16("abcd", 1))
	// суррогатная пара не разрезается.
	require.Equal(t, "a…", truncateUTF16("a😀b", 3))
	require.Equal(t, 4, utf16Len("a😀b"))
}
