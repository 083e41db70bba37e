package request

// TitleRequest references its category and genres by slug.
type TitleRequest struct {
	Name        string   `json:"name" validate:"required,min=1,max=256"`
	Year        int      `json:"year" validate:"required"`
	Description *string  `json:"description,omitempty"`
	Category    *string  `json:"category,omitempty" validate:"omitempty,slug"`
	Genre       []string `json:"genre,omitempty" validate:"omitempty,dive,slug"`
}

// TitleUpdateRequest replaces the genre set when Genre is non-nil, so an
// empty list clears it. An empty Category detaches the title.
type TitleUpdateRequest struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,min=1,max=256"`
	Year        *int     `json:"year,omitempty"`
	Description *string  `json:"description,omitempty"`
	Category    *string  `json:"category,omitempty" validate:"omitempty,slug_or_empty"`
	Genre       []string `json:"genre,omitempty" validate:"omitempty,dive,slug"`
}
