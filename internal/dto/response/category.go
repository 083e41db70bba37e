package response

import "review-catalog/internal/data/entity"

type CategoryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func CategoryToResponse(category *entity.Category) CategoryResponse {
	return CategoryResponse{
		ID:   category.ID.String(),
		Name: category.Name,
		Slug: category.Slug,
	}
}
