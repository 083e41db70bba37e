package request

type CategoryRequest struct {
	Name string `json:"name" validate:"required,min=1,max=256"`
	Slug string `json:"slug" validate:"required,min=1,max=50,slug"`
}

type CategoryUpdateRequest struct {
	Name *string `json:"name,omitempty" validate:"omitempty,min=1,max=256"`
	Slug *string `json:"slug,omitempty" validate:"omitempty,min=1,max=50,slug"`
}
