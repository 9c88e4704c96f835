package recipe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	s   *Suggestion
	err error
}

func (g stubGenerator) Suggest(context.Context, Request) (*Suggestion, error) {
	return g.s, g.err
}

func TestGenerate_Template(t *testing.T) {
	r, nutrition, err := Generate(context.Background(), Template{}, Request{
		Ingredients:         []string{" tomato ", "basil", ""},
		DietaryRestrictions: []string{"vegan"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Fallback Recipe with tomato", r.Title)
	assert.Equal(t, []string{"tomato - as needed", "basil - as needed"}, r.Ingredients)
	assert.Equal(t, []string{"Combine all ingredients", "Cook until done", "Serve and enjoy"}, r.Instructions)
	assert.Equal(t, 10, *r.PrepTime)
	assert.Equal(t, 20, *r.CookTime)
	assert.Equal(t, 30, *r.TotalTime)
	assert.Equal(t, "medium", *r.Difficulty)
	assert.Equal(t, "fusion", *r.Cuisine)
	assert.Equal(t, 300, *r.Calories)
	assert.Equal(t, []string{"fallback", "simple"}, r.Tags)
	assert.Contains(t, r.Description, "vegan")
	assert.True(t, r.IsGenerated)
	assert.Empty(t, r.ID)
	assert.Equal(t, &Nutrition{Calories: 300, Protein: 15, Carbs: 30, Fat: 10}, nutrition)
}

func TestGenerate_TemplatePreferences(t *testing.T) {
	r, _, err := Generate(context.Background(), Template{}, Request{
		Ingredients:       []string{"rice"},
		CuisinePreference: "thai",
		DifficultyLevel:   "easy",
	})
	require.NoError(t, err)
	assert.Equal(t, "thai", *r.Cuisine)
	assert.Equal(t, "easy", *r.Difficulty)

	r, _, err = Generate(context.Background(), Template{}, Request{
		Ingredients:     []string{"rice"},
		DifficultyLevel: "impossible",
	})
	require.NoError(t, err)
	assert.Equal(t, "medium", *r.Difficulty)
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		gen     Generator
		req     Request
		wantErr error
	}{
		{"no ingredients", Template{}, Request{}, ErrNoIngredients},
		{"blank ingredients", Template{}, Request{Ingredients: []string{" ", ""}}, ErrNoIngredients},
		{"missing title", stubGenerator{s: &Suggestion{Ingredients: []string{"a"}, Instructions: []string{"b"}}}, Request{Ingredients: []string{"a"}}, ErrIncomplete},
		{"generator failure", stubGenerator{err: errors.New("quota exceeded")}, Request{Ingredients: []string{"a"}}, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Generate(context.Background(), tc.gen, tc.req)
			require.Error(t, err)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestGenerate_PartialTimes(t *testing.T) {
	r, nutrition, err := Generate(context.Background(), stubGenerator{s: &Suggestion{
		Title:        "Toast",
		Ingredients:  []string{"bread"},
		Instructions: []string{"toast it"},
		PrepTime:     5,
	}}, Request{Ingredients: []string{"bread"}})
	require.NoError(t, err)

	assert.Equal(t, 5, *r.PrepTime)
	assert.Nil(t, r.CookTime)
	assert.Nil(t, r.TotalTime)
	assert.Nil(t, r.Calories)
	assert.Nil(t, nutrition)
	assert.Equal(t, []string{}, r.Tags)
}
