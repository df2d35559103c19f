package course

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enfinlibre/formation/internal/store"
)

func TestModulesAreOrdered(t *testing.T) {
	mods := Modules()
	require.Len(t, mods, ModuleCount())
	require.Equal(t, 5, ModuleCount())

	for i, m := range mods {
		assert.Equal(t, i, m.ID, "module %d has ID %d", i, m.ID)
		assert.NotEmpty(t, m.Title)
		assert.NotEmpty(t, m.Kind)
	}
	assert.Equal(t, KindQuiz, mods[QuizModuleID].Kind)
}

func TestModulesReturnsCopy(t *testing.T) {
	mods := Modules()
	mods[0].Title = "changed"

	assert.NotEqual(t, "changed", Modules()[0].Title)
}

func TestExercisesMatchAnswerSlots(t *testing.T) {
	ex := Exercises()
	require.Len(t, ex, store.QuestionCount)

	for i, e := range ex {
		assert.Equal(t, i+1, e.ID)
		assert.NotEmpty(t, e.Question)
		assert.NotEmpty(t, e.Prompt)
	}

	ex[0].Question = "changed"
	assert.NotEqual(t, "changed", Exercises()[0].Question)
}
