package models

// Game is one title from the fixed roster.
type Game struct {
	ID         int    `json:"id"`
	Name       string `json:"name" validate:"required"`
	ShortCode  string `json:"shortCode" validate:"required,min=1,max=4,alphanum"`
	Color      string `json:"color" validate:"required,hexcolor"`
	Generation int    `json:"generation" validate:"min=1,max=9"`
}
