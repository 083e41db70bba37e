package usecase

import (
	"review-catalog/internal/data/repository"
	"review-catalog/pkg/notifier"
	"review-catalog/pkg/token"
	"review-catalog/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Auth     AuthService
	User     UserService
	Category CategoryService
	Genre    GenreService
	Title    TitleService
	Review   ReviewService
	Comment  CommentService
}

func NewService(
	repo *repository.Repository,
	tokens *token.Manager,
	notify notifier.Notifier,
	config *utils.Config,
	log *zap.Logger,
) *Service {
	return &Service{
		Auth:     NewAuthService(repo, tokens, notify, config, log),
		User:     NewUserService(repo, log),
		Category: NewCategoryService(repo, log),
		Genre:    NewGenreService(repo, log),
		Title:    NewTitleService(repo, log),
		Review:   NewReviewService(repo, log),
		Comment:  NewCommentService(repo, log),
	}
}
