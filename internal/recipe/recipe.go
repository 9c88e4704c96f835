// Package recipe turns a list of ingredients into a recipe suggestion.
package recipe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"smarthome-backend/internal/model"
)

var (
	ErrNoIngredients = errors.New("ingredients are required and must be a non-empty list")
	ErrIncomplete    = errors.New("generated recipe is missing required fields")
)

// Request is what the caller knows about the dish they want.
type Request struct {
	Ingredients         []string `json:"ingredients"`
	DietaryRestrictions []string `json:"dietaryRestrictions"`
	CuisinePreference   string   `json:"cuisinePreference"`
	DifficultyLevel     string   `json:"difficultyLevel"`
}

// Nutrition is returned alongside a suggestion but never stored.
type Nutrition struct {
	Calories int `json:"calories"`
	Protein  int `json:"protein"`
	Carbs    int `json:"carbs"`
	Fat      int `json:"fat"`
}

// Suggestion is the raw output of a Generator.
type Suggestion struct {
	Title        string
	Description  string
	Ingredients  []string
	Instructions []string
	PrepTime     int
	CookTime     int
	Difficulty   string
	Cuisine      string
	Tags         []string
	Nutrition    *Nutrition
}

// Generator produces a recipe suggestion for a request.
type Generator interface {
	Suggest(ctx context.Context, req Request) (*Suggestion, error)
}

// Generate validates req, asks g for a suggestion and shapes it into an unsaved recipe.
func Generate(ctx context.Context, g Generator, req Request) (*model.Recipe, *Nutrition, error) {
	req.Ingredients = cleanList(req.Ingredients)
	if len(req.Ingredients) == 0 {
		return nil, nil, ErrNoIngredients
	}

	s, err := g.Suggest(ctx, req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate recipe: %w", err)
	}
	if s.Title == "" || len(s.Ingredients) == 0 || len(s.Instructions) == 0 {
		return nil, nil, ErrIncomplete
	}

	r := &model.Recipe{
		Title:        s.Title,
		Description:  s.Description,
		Ingredients:  s.Ingredients,
		Instructions: s.Instructions,
		Tags:         s.Tags,
		IsGenerated:  true,
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if s.PrepTime > 0 {
		r.PrepTime = intPtr(s.PrepTime)
	}
	if s.CookTime > 0 {
		r.CookTime = intPtr(s.CookTime)
	}
	if s.PrepTime > 0 && s.CookTime > 0 {
		r.TotalTime = intPtr(s.PrepTime + s.CookTime)
	}
	if s.Difficulty != "" && model.ValidDifficulty(s.Difficulty) {
		r.Difficulty = strPtr(s.Difficulty)
	}
	if s.Cuisine != "" {
		r.Cuisine = strPtr(s.Cuisine)
	}
	if s.Nutrition != nil {
		r.Calories = intPtr(s.Nutrition.Calories)
	}
	return r, s.Nutrition, nil
}

// Template is a deterministic Generator that needs no external service.
type Template struct{}

func (Template) Suggest(_ context.Context, req Request) (*Suggestion, error) {
	if len(req.Ingredients) == 0 {
		return nil, ErrNoIngredients
	}

	ingredients := make([]string, len(req.Ingredients))
	for i, ing := range req.Ingredients {
		ingredients[i] = ing + " - as needed"
	}

	description := "A simple dish using your ingredients."
	if restrictions := cleanList(req.DietaryRestrictions); len(restrictions) > 0 {
		description += " Suitable for: " + strings.Join(restrictions, ", ") + "."
	}

	difficulty := "medium"
	if req.DifficultyLevel != "" && model.ValidDifficulty(req.DifficultyLevel) {
		difficulty = req.DifficultyLevel
	}

	cuisine := strings.TrimSpace(req.CuisinePreference)
	if cuisine == "" {
		cuisine = "fusion"
	}

	return &Suggestion{
		Title:        "Fallback Recipe with " + req.Ingredients[0],
		Description:  description,
		Ingredients:  ingredients,
		Instructions: []string{"Combine all ingredients", "Cook until done", "Serve and enjoy"},
		PrepTime:     10,
		CookTime:     20,
		Difficulty:   difficulty,
		Cuisine:      cuisine,
		Tags:         []string{"fallback", "simple"},
		Nutrition:    &Nutrition{Calories: 300, Protein: 15, Carbs: 30, Fat: 10},
	}, nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
