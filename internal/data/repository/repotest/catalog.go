package repotest

import (
	"context"
	"sort"

	"review-catalog/internal/data/entity"

	"github.com/google/uuid"
)

type categoryRepo struct{ c conn }

func (r categoryRepo) Create(_ context.Context, category *entity.Category) error {
	t, done, err := r.c.begin("Category.Create")
	defer done()
	if err != nil {
		return err
	}
	for _, c := range t.categories {
		if c.Slug == category.Slug {
			return duplicate("create category " + category.Slug)
		}
	}
	t.categories[category.ID] = *category
	return nil
}

func (r categoryRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Category, error) {
	t, done, err := r.c.begin("Category.FindByID")
	defer done()
	if err != nil {
		return nil, err
	}
	c, ok := t.categories[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r categoryRepo) FindBySlug(_ context.Context, slug string) (*entity.Category, error) {
	t, done, err := r.c.begin("Category.FindBySlug")
	defer done()
	if err != nil {
		return nil, err
	}
	for _, c := range t.categories {
		if c.Slug == slug {
			return &c, nil
		}
	}
	return nil, nil
}

func (r categoryRepo) FindAll(_ context.Context, limit, offset int) ([]*entity.Category, error) {
	t, done, err := r.c.begin("Category.FindAll")
	defer done()
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Category, 0, len(t.categories))
	for _, c := range t.categories {
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Slug < out[j].Slug
	})
	return page(out, limit, offset), nil
}

func (r categoryRepo) CountAll(_ context.Context) (int64, error) {
	t, done, err := r.c.begin("Category.CountAll")
	defer done()
	if err != nil {
		return 0, err
	}
	return int64(len(t.categories)), nil
}

func (r categoryRepo) Update(_ context.Context, category *entity.Category) error {
	t, done, err := r.c.begin("Category.Update")
	defer done()
	if err != nil {
		return err
	}
	if _, ok := t.categories[category.ID]; !ok {
		return notFound("update category", category.ID)
	}
	for id, c := range t.categories {
		if id != category.ID && c.Slug == category.Slug {
			return duplicate("update category " + category.Slug)
		}
	}
	t.categories[category.ID] = *category
	return nil
}

// Delete detaches titles from the category, matching ON DELETE SET NULL.
func (r categoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	t, done, err := r.c.begin("Category.Delete")
	defer done()
	if err != nil {
		return err
	}
	if _, ok := t.categories[id]; !ok {
		return notFound("delete category", id)
	}
	delete(t.categories, id)
	for tid, title := range t.titles {
		if title.CategoryID != nil && *title.CategoryID == id {
			title.CategoryID = nil
			t.titles[tid] = title
		}
	}
	return nil
}

type genreRepo struct{ c conn }

func (r genreRepo) Create(_ context.Context, genre *entity.Genre) error {
	t, done, err := r.c.begin("Genre.Create")
	defer done()
	if err != nil {
		return err
	}
	for _, g := range t.genres {
		if g.Slug == genre.Slug {
			return duplicate("create genre " + genre.Slug)
		}
	}
	t.genres[genre.ID] = *genre
	return nil
}

func (r genreRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Genre, error) {
	t, done, err := r.c.begin("Genre.FindByID")
	defer done()
	if err != nil {
		return nil, err
	}
	g, ok := t.genres[id]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (r genreRepo) FindBySlugs(_ context.Context, slugs []string) ([]*entity.Genre, error) {
	t, done, err := r.c.begin("Genre.FindBySlugs")
	defer done()
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(slugs))
	for _, s := range slugs {
		wanted[s] = true
	}
	var out []*entity.Genre
	for _, g := range t.genres {
		if wanted[g.Slug] {
			out = append(out, &g)
		}
	}
	sortGenres(out)
	return out, nil
}

func (r genreRepo) FindByTitleID(_ context.Context, titleID uuid.UUID) ([]*entity.Genre, error) {
	t, done, err := r.c.begin("Genre.FindByTitleID")
	defer done()
	if err != nil {
		return nil, err
	}
	var out []*entity.Genre
	for link := range t.links {
		if link.TitleID != titleID {
			continue
		}
		if g, ok := t.genres[link.GenreID]; ok {
			out = append(out, &g)
		}
	}
	sortGenres(out)
	return out, nil
}

func (r genreRepo) FindAll(_ context.Context, limit, offset int) ([]*entity.Genre, error) {
	t, done, err := r.c.begin("Genre.FindAll")
	defer done()
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Genre, 0, len(t.genres))
	for _, g := range t.genres {
		out = append(out, &g)
	}
	sortGenres(out)
	return page(out, limit, offset), nil
}

func (r genreRepo) CountAll(_ context.Context) (int64, error) {
	t, done, err := r.c.begin("Genre.CountAll")
	defer done()
	if err != nil {
		return 0, err
	}
	return int64(len(t.genres)), nil
}

func (r genreRepo) Update(_ context.Context, genre *entity.Genre) error {
	t, done, err := r.c.begin("Genre.Update")
	defer done()
	if err != nil {
		return err
	}
	if _, ok := t.genres[genre.ID]; !ok {
		return notFound("update genre", genre.ID)
	}
	for id, g := range t.genres {
		if id != genre.ID && g.Slug == genre.Slug {
			return duplicate("update genre " + genre.Slug)
		}
	}
	t.genres[genre.ID] = *genre
	return nil
}

func (r genreRepo) Delete(_ context.Context, id uuid.UUID) error {
	t, done, err := r.c.begin("Genre.Delete")
	defer done()
	if err != nil {
		return err
	}
	if _, ok := t.genres[id]; !ok {
		return notFound("delete genre", id)
	}
	delete(t.genres, id)
	for link := range t.links {
		if link.GenreID == id {
			delete(t.links, link)
		}
	}
	return nil
}

func sortGenres(genres []*entity.Genre) {
	sort.Slice(genres, func(i, j int) bool {
		if genres[i].Name != genres[j].Name {
			return genres[i].Name < genres[j].Name
		}
		return genres[i].Slug < genres[j].Slug
	})
}

type titleRepo struct{ c conn }

func (r titleRepo) Create(_ context.Context, title *entity.Title) error {
	t, done, err := r.c.begin("Title.Create")
	defer done()
	if err != nil {
		return err
	}
	t.titles[title.ID] = cloneTitle(*title)
	return nil
}

func (r titleRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Title, error) {
	return r.find("Title.FindByID", id)
}

// FindByIDForUpdate needs no extra locking: transactions already run one at a time.
func (r titleRepo) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*entity.Title, error) {
	return r.find("Title.FindByIDForUpdate", id)
}

func (r titleRepo) find(op string, id uuid.UUID) (*entity.Title, error) {
	t, done, err := r.c.begin(op)
	defer done()
	if err != nil {
		return nil, err
	}
	title, ok := t.titles[id]
	if !ok {
		return nil, nil
	}
	title = cloneTitle(title)
	return &title, nil
}

func (r titleRepo) FindAll(_ context.Context, limit, offset int) ([]*entity.Title, error) {
	t, done, err := r.c.begin("Title.FindAll")
	defer done()
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Title, 0, len(t.titles))
	for _, title := range t.titles {
		title = cloneTitle(title)
		out = append(out, &title)
	}
	sortByCreated(out, func(t *entity.Title) (int64, string) {
		return t.CreatedAt.UnixNano(), t.ID.String()
	})
	return page(out, limit, offset), nil
}

func (r titleRepo) CountAll(_ context.Context) (int64, error) {
	t, done, err := r.c.begin("Title.CountAll")
	defer done()
	if err != nil {
		return 0, err
	}
	return int64(len(t.titles)), nil
}

func (r titleRepo) Update(_ context.Context, title *entity.Title) error {
	t, done, err := r.c.begin("Title.Update")
	defer done()
	if err != nil {
		return err
	}
	stored, ok := t.titles[title.ID]
	if !ok {
		return notFound("update title", title.ID)
	}
	updated := cloneTitle(*title)
	updated.Rating = stored.Rating
	updated.CreatedAt = stored.CreatedAt
	t.titles[title.ID] = updated
	return nil
}

func (r titleRepo) Delete(_ context.Context, id uuid.UUID) error {
	t, done, err := r.c.begin("Title.Delete")
	defer done()
	if err != nil {
		return err
	}
	if _, ok := t.titles[id]; !ok {
		return notFound("delete title", id)
	}
	delete(t.titles, id)
	for link := range t.links {
		if link.TitleID == id {
			delete(t.links, link)
		}
	}
	for rid, rv := range t.reviews {
		if rv.TitleID == id {
			t.deleteReview(rid)
		}
	}
	return nil
}

func (r titleRepo) UpdateRating(_ context.Context, titleID uuid.UUID, rating *int) error {
	t, done, err := r.c.begin("Title.UpdateRating")
	defer done()
	if err != nil {
		return err
	}
	title, ok := t.titles[titleID]
	if !ok {
		return notFound("update rating of title", titleID)
	}
	if rating != nil {
		v := *rating
		rating = &v
	}
	title.Rating = rating
	t.titles[titleID] = title
	return nil
}

type titleGenreRepo struct{ c conn }

func (r titleGenreRepo) DeleteByTitleID(_ context.Context, titleID uuid.UUID) error {
	t, done, err := r.c.begin("TitleGenre.DeleteByTitleID")
	defer done()
	if err != nil {
		return err
	}
	for link := range t.links {
		if link.TitleID == titleID {
			delete(t.links, link)
		}
	}
	return nil
}

func (r titleGenreRepo) CreateBatch(_ context.Context, links []*entity.TitleGenre) error {
	t, done, err := r.c.begin("TitleGenre.CreateBatch")
	defer done()
	if err != nil {
		return err
	}
	for _, link := range links {
		t.links[*link] = struct{}{}
	}
	return nil
}
