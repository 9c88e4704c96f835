package store

import (
	"context"
	"fmt"
	"slices"

	"smarthome-backend/internal/model"
)

// ListRecipes returns recipes newest first.
// Tags are stored serialized, so the tag filter is applied after loading.
func (s *gormStore) ListRecipes(ctx context.Context, filter RecipeFilter) ([]model.Recipe, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}

	var recipes []model.Recipe
	if err := q.Find(&recipes).Error; err != nil {
		return nil, err
	}

	out := make([]model.Recipe, 0, len(recipes))
	for _, r := range recipes {
		if filter.Tag != "" && !slices.Contains(r.Tags, filter.Tag) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *gormStore) GetRecipe(ctx context.Context, recipeID string) (*model.Recipe, error) {
	var r model.Recipe
	if err := s.db.WithContext(ctx).First(&r, "id = ?", recipeID).Error; err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (s *gormStore) CreateRecipe(ctx context.Context, recipe *model.Recipe) error {
	if err := s.db.WithContext(ctx).Create(recipe).Error; err != nil {
		return fmt.Errorf("failed to create recipe: %w", err)
	}
	return nil
}

// UpdateRecipe saves every field of an existing recipe.
func (s *gormStore) UpdateRecipe(ctx context.Context, recipe *model.Recipe) error {
	res := s.db.WithContext(ctx).Model(recipe).Select("*").Omit("id", "user_id", "created_at").Updates(recipe)
	if res.Error != nil {
		return fmt.Errorf("failed to update recipe %s: %w", recipe.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) DeleteRecipe(ctx context.Context, recipeID string) error {
	res := s.db.WithContext(ctx).Where("id = ?", recipeID).Delete(&model.Recipe{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete recipe %s: %w", recipeID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
