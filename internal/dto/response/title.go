package response

import (
	"review-catalog/internal/data/entity"

	"github.com/samber/lo"
)

type TitleResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Year        int               `json:"year"`
	Rating      *int              `json:"rating"`
	Description *string           `json:"description"`
	Genre       []GenreResponse   `json:"genre"`
	Category    *CategoryResponse `json:"category"`
}

func TitleToResponse(title *entity.Title, category *entity.Category, genres []*entity.Genre) TitleResponse {
	resp := TitleResponse{
		ID:          title.ID.String(),
		Name:        title.Name,
		Year:        title.Year,
		Rating:      title.Rating,
		Description: title.Description,
		Genre: lo.Map(genres, func(g *entity.Genre, _ int) GenreResponse {
			return GenreToResponse(g)
		}),
	}

	if category != nil {
		c := CategoryToResponse(category)
		resp.Category = &c
	}

	return resp
}
