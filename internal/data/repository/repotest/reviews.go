package repotest

import (
	"context"

	"review-catalog/internal/data/entity"

	"github.com/google/uuid"
)

func (t *tables) deleteReview(id uuid.UUID) {
	delete(t.reviews, id)
	for cid, cm := range t.comments {
		if cm.ReviewID == id {
			delete(t.comments, cid)
		}
	}
}

type reviewRepo struct{ c conn }

func (r reviewRepo) Create(_ context.Context, review *entity.Review) error {
	t, done, err := r.c.begin("Review.Create")
	defer done()
	if err != nil {
		return err
	}
	for _, rv := range t.reviews {
		if rv.TitleID == review.TitleID && rv.AuthorID == review.AuthorID {
			return duplicate("create review unique_title_author")
		}
	}
	t.reviews[review.ID] = *review
	return nil
}

func (r reviewRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Review, error) {
	t, done, err := r.c.begin("Review.FindByID")
	defer done()
	if err != nil {
		return nil, err
	}
	rv, ok := t.reviews[id]
	if !ok {
		return nil, nil
	}
	return &rv, nil
}

func (r reviewRepo) FindByTitleID(_ context.Context, titleID uuid.UUID, limit, offset int) ([]*entity.Review, error) {
	t, done, err := r.c.begin("Review.FindByTitleID")
	defer done()
	if err != nil {
		return nil, err
	}
	var out []*entity.Review
	for _, rv := range t.reviews {
		if rv.TitleID == titleID {
			out = append(out, &rv)
		}
	}
	sortByCreated(out, func(r *entity.Review) (int64, string) {
		return r.CreatedAt.UnixNano(), r.ID.String()
	})
	return page(out, limit, offset), nil
}

func (r reviewRepo) FindByAuthorAndTitle(_ context.Context, authorID, titleID uuid.UUID) (*entity.Review, error) {
	t, done, err := r.c.begin("Review.FindByAuthorAndTitle")
	defer done()
	if err != nil {
		return nil, err
	}
	for _, rv := range t.reviews {
		if rv.AuthorID == authorID && rv.TitleID == titleID {
			return &rv, nil
		}
	}
	return nil, nil
}

func (r reviewRepo) CountByTitleID(_ context.Context, titleID uuid.UUID) (int64, error) {
	t, done, err := r.c.begin("Review.CountByTitleID")
	defer done()
	if err != nil {
		return 0, err
	}
	var n int64
	for _, rv := range t.reviews {
		if rv.TitleID == titleID {
			n++
		}
	}
	return n, nil
}

func (r reviewRepo) Update(_ context.Context, review *entity.Review) error {
	t, done, err := r.c.begin("Review.Update")
	defer done()
	if err != nil {
		return err
	}
	stored, ok := t.reviews[review.ID]
	if !ok {
		return notFound("update review", review.ID)
	}
	stored.Text = review.Text
	stored.Score = review.Score
	t.reviews[review.ID] = stored
	return nil
}

func (r reviewRepo) Delete(_ context.Context, id uuid.UUID) error {
	t, done, err := r.c.begin("Review.Delete")
	defer done()
	if err != nil {
		return err
	}
	if _, ok := t.reviews[id]; !ok {
		return notFound("delete review", id)
	}
	t.deleteReview(id)
	return nil
}

func (r reviewRepo) ScoresByTitleID(_ context.Context, titleID uuid.UUID) ([]int, error) {
	t, done, err := r.c.begin("Review.ScoresByTitleID")
	defer done()
	if err != nil {
		return nil, err
	}
	var scores []int
	for _, rv := range t.reviews {
		if rv.TitleID == titleID {
			scores = append(scores, rv.Score)
		}
	}
	return scores, nil
}

func (r reviewRepo) TitleIDsByAuthor(_ context.Context, authorID uuid.UUID) ([]uuid.UUID, error) {
	t, done, err := r.c.begin("Review.TitleIDsByAuthor")
	defer done()
	if err != nil {
		return nil, err
	}
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	for _, rv := range t.reviews {
		if rv.AuthorID == authorID && !seen[rv.TitleID] {
			seen[rv.TitleID] = true
			ids = append(ids, rv.TitleID)
		}
	}
	return ids, nil
}

type commentRepo struct{ c conn }

func (r commentRepo) Create(_ context.Context, comment *entity.Comment) error {
	t, done, err := r.c.begin("Comment.Create")
	defer done()
	if err != nil {
		return err
	}
	t.comments[comment.ID] = *comment
	return nil
}

func (r commentRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Comment, error) {
	t, done, err := r.c.begin("Comment.FindByID")
	defer done()
	if err != nil {
		return nil, err
	}
	cm, ok := t.comments[id]
	if !ok {
		return nil, nil
	}
	return &cm, nil
}

func (r commentRepo) FindByReviewID(_ context.Context, reviewID uuid.UUID, limit, offset int) ([]*entity.Comment, error) {
	t, done, err := r.c.begin("Comment.FindByReviewID")
	defer done()
	if err != nil {
		return nil, err
	}
	var out []*entity.Comment
	for _, cm := range t.comments {
		if cm.ReviewID == reviewID {
			out = append(out, &cm)
		}
	}
	sortByCreated(out, func(c *entity.Comment) (int64, string) {
		return c.CreatedAt.UnixNano(), c.ID.String()
	})
	return page(out, limit, offset), nil
}

func (r commentRepo) CountByReviewID(_ context.Context, reviewID uuid.UUID) (int64, error) {
	t, done, err := r.c.begin("Comment.CountByReviewID")
	defer done()
	if err != nil {
		return 0, err
	}
	var n int64
	for _, cm := range t.comments {
		if cm.ReviewID == reviewID {
			n++
		}
	}
	return n, nil
}

func (r commentRepo) Update(_ context.Context, comment *entity.Comment) error {
	t, done, err := r.c.begin("Comment.Update")
	defer done()
	if err != nil {
		return err
	}
	stored, ok := t.comments[comment.ID]
	if !ok {
		return notFound("update comment", comment.ID)
	}
	stored.Text = comment.Text
	t.comments[comment.ID] = stored
	return nil
}

func (r commentRepo) Delete(_ context.Context, id uuid.UUID) error {
	t, done, err := r.c.begin("Comment.Delete")
	defer done()
	if err != nil {
		return err
	}
	if _, ok := t.comments[id]; !ok {
		return notFound("delete comment", id)
	}
	delete(t.comments, id)
	return nil
}
