package main

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/studyquest-api/internal/domain/entity"
)

func TestParseCatalog_ShippedFile(t *testing.T) {
	f, err := os.Open("../../config/achievements.yaml")
	require.NoError(t, err)
	defer f.Close()

	achievements, warnings, err := parseCatalog(f)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Len(t, achievements, 21)

	byName := make(map[string]entity.Achievement, len(achievements))
	for _, a := range achievements {
		byName[a.Name] = a
	}
	courseCrusher, ok := byName["Course Crusher"]
	require.True(t, ok)
	assert.Equal(t, entity.RarityEpic, courseCrusher.Rarity)
	assert.Equal(t, 500, courseCrusher.XPReward)
	assert.Equal(t, 1, courseCrusher.CriteriaSet()[entity.CriterionStudyPlansCompleted])

	for _, a := range achievements {
		assert.LessOrEqual(t, len(a.Icon), 50, a.Name)
	}
}

func TestParseCatalog_UnknownCriterionWarns(t *testing.T) {
	doc := `
achievements:
  - name: Night Owl
    description: Study after midnight
    icon: ri-moon-line
    type: speed
    rarity: rare
    xp_reward: 50
    criteria:
      night_sessions: 3
`
	achievements, warnings, err := parseCatalog(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, achievements, 1)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "night_sessions")
}

func TestParseCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "missing name",
			doc:  "achievements:\n  - type: quiz\n    rarity: common\n    criteria: {quizzes_completed: 1}\n",
			want: "name is required",
		},
		{
			name: "duplicate name",
			doc: "achievements:\n" +
				"  - {name: A, type: quiz, rarity: common, criteria: {quizzes_completed: 1}}\n" +
				"  - {name: A, type: quiz, rarity: common, criteria: {quizzes_completed: 2}}\n",
			want: "duplicate name",
		},
		{
			name: "unknown type",
			doc:  "achievements:\n  - {name: A, type: social, rarity: common, criteria: {level: 1}}\n",
			want: "unknown type",
		},
		{
			name: "unknown rarity",
			doc:  "achievements:\n  - {name: A, type: quiz, rarity: mythic, criteria: {level: 1}}\n",
			want: "unknown rarity",
		},
		{
			name: "negative reward",
			doc:  "achievements:\n  - {name: A, type: quiz, rarity: common, xp_reward: -5, criteria: {level: 1}}\n",
			want: "xp_reward",
		},
		{
			name: "no criteria",
			doc:  "achievements:\n  - {name: A, type: quiz, rarity: common}\n",
			want: "criteria are required",
		},
		{
			name: "broken yaml",
			doc:  "achievements: [",
			want: "decode catalog",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseCatalog(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
