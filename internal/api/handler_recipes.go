package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"smarthome-backend/internal/model"
	"smarthome-backend/internal/mw"
	"smarthome-backend/internal/recipe"
	"smarthome-backend/internal/store"
)

// ListRecipes returns recipes, optionally filtered by owner and tag.
func (h *Handler) ListRecipes(c *gin.Context) {
	recipes, err := h.store.ListRecipes(c.Request.Context(), store.RecipeFilter{
		UserID: c.Query("userId"),
		Tag:    c.Query("tag"),
	})
	if err != nil {
		respondError(c, err, "Recipe")
		return
	}
	respond(c, http.StatusOK, "Recipes fetched successfully", gin.H{"recipes": recipes})
}

func (h *Handler) GetRecipe(c *gin.Context) {
	r, err := h.store.GetRecipe(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Recipe")
		return
	}
	respond(c, http.StatusOK, "Recipe fetched successfully", gin.H{"recipe": r})
}

// GenerateRecipe suggests a recipe for the given ingredients. Signed in
// callers get the recipe saved to their account.
func (h *Handler) GenerateRecipe(c *gin.Context) {
	var req recipe.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, recipe.ErrNoIngredients.Error())
		return
	}

	r, nutrition, err := recipe.Generate(c.Request.Context(), h.recipes, req)
	if err != nil {
		respondError(c, err, "Recipe")
		return
	}

	user, ok := mw.CurrentUser(c)
	if !ok {
		respond(c, http.StatusOK, "Recipe generated successfully", gin.H{"recipe": r, "nutritionalInfo": nutrition})
		return
	}
	r.UserID = user.ID
	if err := h.store.CreateRecipe(c.Request.Context(), r); err != nil {
		respondError(c, err, "Recipe")
		return
	}
	respond(c, http.StatusCreated, "Recipe generated and saved successfully", gin.H{"recipe": r, "nutritionalInfo": nutrition})
}

type recipeRequest struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	PrepTime     *int     `json:"prepTime"`
	CookTime     *int     `json:"cookTime"`
	Difficulty   *string  `json:"difficulty"`
	Cuisine      *string  `json:"cuisine"`
	Calories     *int     `json:"calories"`
	Tags         []string `json:"tags"`
}

var errRecipeFields = errors.New("title, ingredients and instructions are required")

// apply validates the request and copies it onto r.
func (req recipeRequest) apply(r *model.Recipe) error {
	title := strings.TrimSpace(req.Title)
	if title == "" || len(req.Ingredients) == 0 || len(req.Instructions) == 0 {
		return errRecipeFields
	}
	if req.Difficulty != nil && !model.ValidDifficulty(*req.Difficulty) {
		return errors.New("difficulty must be easy, medium or hard")
	}
	for _, v := range []*int{req.PrepTime, req.CookTime, req.Calories} {
		if v != nil && *v < 0 {
			return errors.New("times and calories must not be negative")
		}
	}

	r.Title = title
	r.Description = req.Description
	r.Ingredients = req.Ingredients
	r.Instructions = req.Instructions
	r.PrepTime = req.PrepTime
	r.CookTime = req.CookTime
	r.TotalTime = nil
	if req.PrepTime != nil && req.CookTime != nil {
		total := *req.PrepTime + *req.CookTime
		r.TotalTime = &total
	}
	r.Difficulty = req.Difficulty
	r.Cuisine = req.Cuisine
	r.Calories = req.Calories
	r.Tags = req.Tags
	if r.Tags == nil {
		r.Tags = []string{}
	}
	return nil
}

func (h *Handler) CreateRecipe(c *gin.Context) {
	var req recipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	user, _ := mw.CurrentUser(c)

	r := &model.Recipe{UserID: user.ID}
	if err := req.apply(r); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.CreateRecipe(c.Request.Context(), r); err != nil {
		respondError(c, err, "Recipe")
		return
	}
	respond(c, http.StatusCreated, "Recipe created successfully", gin.H{"recipe": r})
}

// UpdateRecipe replaces a recipe owned by the caller.
func (h *Handler) UpdateRecipe(c *gin.Context) {
	var req recipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	r, ok := h.ownedRecipe(c, "You can only update your own recipes")
	if !ok {
		return
	}
	if err := req.apply(r); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.UpdateRecipe(c.Request.Context(), r); err != nil {
		respondError(c, err, "Recipe")
		return
	}
	respond(c, http.StatusOK, "Recipe updated successfully", gin.H{"recipe": r})
}

// DeleteRecipe removes a recipe owned by the caller.
func (h *Handler) DeleteRecipe(c *gin.Context) {
	r, ok := h.ownedRecipe(c, "You can only delete your own recipes")
	if !ok {
		return
	}
	if err := h.store.DeleteRecipe(c.Request.Context(), r.ID); err != nil {
		respondError(c, err, "Recipe")
		return
	}
	respond(c, http.StatusOK, "Recipe deleted successfully", nil)
}

func (h *Handler) ownedRecipe(c *gin.Context, forbidden string) (*model.Recipe, bool) {
	user, _ := mw.CurrentUser(c)
	r, err := h.store.GetRecipe(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Recipe")
		return nil, false
	}
	if r.UserID != user.ID {
		fail(c, http.StatusForbidden, forbidden)
		return nil, false
	}
	return r, true
}
