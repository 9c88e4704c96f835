package model

import (
	"time"

	"gorm.io/gorm"
)

// Recipe is a saved cooking recipe, entered by hand or generated.
type Recipe struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	UserID       string    `gorm:"size:36;index;not null" json:"userId"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Description  string    `gorm:"type:text" json:"description"`
	Ingredients  []string  `gorm:"type:text;serializer:json" json:"ingredients"`
	Instructions []string  `gorm:"type:text;serializer:json" json:"instructions"`
	PrepTime     *int      `json:"prepTime"`
	CookTime     *int      `json:"cookTime"`
	TotalTime    *int      `json:"totalTime"`
	Difficulty   *string   `gorm:"size:16" json:"difficulty"`
	Cuisine      *string   `gorm:"size:64" json:"cuisine"`
	Calories     *int      `json:"calories"`
	Tags         []string  `gorm:"type:text;serializer:json" json:"tags"`
	IsGenerated  bool      `gorm:"not null;default:false" json:"isGenerated"`
	CreatedAt    time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"not null" json:"updatedAt"`
}

func (r *Recipe) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// ValidDifficulty reports whether d is empty or one of easy, medium, hard.
func ValidDifficulty(d string) bool {
	switch d {
	case "", "easy", "medium", "hard":
		return true
	}
	return false
}
