package repotest

import (
	"context"
	"sort"

	"review-catalog/internal/data/entity"

	"github.com/google/uuid"
)

type userRepo struct{ c conn }

func (r userRepo) Create(_ context.Context, user *entity.User) error {
	t, done, err := r.c.begin("User.Create")
	defer done()
	if err != nil {
		return err
	}
	for _, u := range t.users {
		if u.Username == user.Username || u.Email == user.Email {
			return duplicate("create user " + user.Username)
		}
	}
	t.users[user.ID] = *user
	return nil
}

func (r userRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	t, done, err := r.c.begin("User.FindByID")
	defer done()
	if err != nil {
		return nil, err
	}
	u, ok := t.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r userRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	t, done, err := r.c.begin("User.FindByEmail")
	defer done()
	if err != nil {
		return nil, err
	}
	for _, u := range t.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (r userRepo) FindByUsername(_ context.Context, username string) (*entity.User, error) {
	t, done, err := r.c.begin("User.FindByUsername")
	defer done()
	if err != nil {
		return nil, err
	}
	for _, u := range t.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, nil
}

func (r userRepo) FindAll(_ context.Context, limit, offset int) ([]*entity.User, error) {
	t, done, err := r.c.begin("User.FindAll")
	defer done()
	if err != nil {
		return nil, err
	}
	users := make([]*entity.User, 0, len(t.users))
	for _, u := range t.users {
		users = append(users, &u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return page(users, limit, offset), nil
}

func (r userRepo) CountAll(_ context.Context) (int64, error) {
	t, done, err := r.c.begin("User.CountAll")
	defer done()
	if err != nil {
		return 0, err
	}
	return int64(len(t.users)), nil
}

func (r userRepo) Update(_ context.Context, user *entity.User) error {
	t, done, err := r.c.begin("User.Update")
	defer done()
	if err != nil {
		return err
	}
	if _, ok := t.users[user.ID]; !ok {
		return notFound("update user", user.ID)
	}
	for id, u := range t.users {
		if id != user.ID && (u.Username == user.Username || u.Email == user.Email) {
			return duplicate("update user " + user.Username)
		}
	}
	t.users[user.ID] = *user
	return nil
}

// Delete cascades like the schema: codes, reviews, comments on those reviews
// and comments written by the user go with it.
func (r userRepo) Delete(_ context.Context, id uuid.UUID) error {
	t, done, err := r.c.begin("User.Delete")
	defer done()
	if err != nil {
		return err
	}
	if _, ok := t.users[id]; !ok {
		return notFound("delete user", id)
	}
	delete(t.users, id)
	delete(t.codes, id)
	for rid, rv := range t.reviews {
		if rv.AuthorID == id {
			t.deleteReview(rid)
		}
	}
	for cid, cm := range t.comments {
		if cm.AuthorID == id {
			delete(t.comments, cid)
		}
	}
	return nil
}

type codeRepo struct{ c conn }

func (r codeRepo) Upsert(_ context.Context, code *entity.ConfirmationCode) error {
	t, done, err := r.c.begin("Code.Upsert")
	defer done()
	if err != nil {
		return err
	}
	t.codes[code.UserID] = *code
	return nil
}

func (r codeRepo) FindByUserIDForUpdate(_ context.Context, userID uuid.UUID) (*entity.ConfirmationCode, error) {
	t, done, err := r.c.begin("Code.FindByUserIDForUpdate")
	defer done()
	if err != nil {
		return nil, err
	}
	code, ok := t.codes[userID]
	if !ok {
		return nil, nil
	}
	return &code, nil
}

func (r codeRepo) DeleteByUserID(_ context.Context, userID uuid.UUID) error {
	t, done, err := r.c.begin("Code.DeleteByUserID")
	defer done()
	if err != nil {
		return err
	}
	if _, ok := t.codes[userID]; !ok {
		return notFound("delete confirmation code of user", userID)
	}
	delete(t.codes, userID)
	return nil
}
