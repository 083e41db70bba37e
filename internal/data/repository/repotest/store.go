// Package repotest provides an in-memory, transactional implementation of the
// repository interfaces for use in tests.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"review-catalog/internal/data/entity"
	"review-catalog/internal/data/repository"

	"github.com/google/uuid"
)

// Store keeps every table in memory. Transactions are serialized by a single
// lock and roll back by restoring a snapshot taken at begin.
type Store struct {
	mu   sync.Mutex
	data *tables

	failMu   sync.Mutex
	failures map[string]error
}

type tables struct {
	users      map[uuid.UUID]entity.User
	codes      map[uuid.UUID]entity.ConfirmationCode
	categories map[uuid.UUID]entity.Category
	genres     map[uuid.UUID]entity.Genre
	titles     map[uuid.UUID]entity.Title
	links      map[entity.TitleGenre]struct{}
	reviews    map[uuid.UUID]entity.Review
	comments   map[uuid.UUID]entity.Comment
}

func newTables() *tables {
	return &tables{
		users:      map[uuid.UUID]entity.User{},
		codes:      map[uuid.UUID]entity.ConfirmationCode{},
		categories: map[uuid.UUID]entity.Category{},
		genres:     map[uuid.UUID]entity.Genre{},
		titles:     map[uuid.UUID]entity.Title{},
		links:      map[entity.TitleGenre]struct{}{},
		reviews:    map[uuid.UUID]entity.Review{},
		comments:   map[uuid.UUID]entity.Comment{},
	}
}

func (t *tables) clone() *tables {
	c := newTables()
	for k, v := range t.users {
		c.users[k] = v
	}
	for k, v := range t.codes {
		c.codes[k] = v
	}
	for k, v := range t.categories {
		c.categories[k] = v
	}
	for k, v := range t.genres {
		c.genres[k] = v
	}
	for k, v := range t.titles {
		c.titles[k] = cloneTitle(v)
	}
	for k := range t.links {
		c.links[k] = struct{}{}
	}
	for k, v := range t.reviews {
		c.reviews[k] = v
	}
	for k, v := range t.comments {
		c.comments[k] = v
	}
	return c
}

func cloneTitle(t entity.Title) entity.Title {
	if t.Description != nil {
		d := *t.Description
		t.Description = &d
	}
	if t.CategoryID != nil {
		id := *t.CategoryID
		t.CategoryID = &id
	}
	if t.Rating != nil {
		r := *t.Rating
		t.Rating = &r
	}
	return t
}

func New() *Store {
	return &Store{data: newTables(), failures: map[string]error{}}
}

// Repository returns repositories backed by the store. Each call outside a
// transaction takes the store lock for its own duration.
func (s *Store) Repository() *repository.Repository {
	repo := s.bind(false)
	repo.Tx = s
	return repo
}

// FailOn makes every later call of op ("Title.UpdateRating", "Review.Create", ...)
// return err. A nil err clears the failure.
func (s *Store) FailOn(op string, err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) fail(op string) error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	return s.failures[op]
}

// WithTx implements repository.TxManager.
func (s *Store) WithTx(ctx context.Context, fn func(tx *repository.Repository) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	defer func() {
		if p := recover(); p != nil {
			s.data = snapshot
			panic(p)
		}
		if err != nil {
			s.data = snapshot
		}
	}()

	repo := s.bind(true)
	repo.Tx = joined{repo: repo}
	return fn(repo)
}

type joined struct {
	repo *repository.Repository
}

func (j joined) WithTx(_ context.Context, fn func(tx *repository.Repository) error) error {
	return fn(j.repo)
}

func (s *Store) bind(inTx bool) *repository.Repository {
	c := conn{s: s, inTx: inTx}
	return &repository.Repository{
		User:       userRepo{c},
		Code:       codeRepo{c},
		Category:   categoryRepo{c},
		Genre:      genreRepo{c},
		Title:      titleRepo{c},
		TitleGenre: titleGenreRepo{c},
		Review:     reviewRepo{c},
		Comment:    commentRepo{c},
	}
}

// conn is the per-repository handle. Inside a transaction the store lock is
// already held.
type conn struct {
	s    *Store
	inTx bool
}

func (c conn) begin(op string) (*tables, func(), error) {
	if err := c.s.fail(op); err != nil {
		return nil, func() {}, err
	}
	if c.inTx {
		return c.s.data, func() {}, nil
	}
	c.s.mu.Lock()
	return c.s.data, c.s.mu.Unlock, nil
}

func duplicate(what string) error {
	return fmt.Errorf("%s: %w", what, repository.ErrDuplicate)
}

func notFound(what string, id uuid.UUID) error {
	return fmt.Errorf("%s %s: %w", what, id, repository.ErrNotFound)
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit >= 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// Snapshot helpers for assertions.

func (s *Store) TitleRating(id uuid.UUID) (*int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.data.titles[id]
	if !ok {
		return nil, false
	}
	return cloneTitle(t).Rating, true
}

func (s *Store) ReviewCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.reviews)
}

func (s *Store) CommentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.comments)
}

func (s *Store) HasCode(userID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data.codes[userID]
	return ok
}

func sortByCreated[T any](items []T, key func(T) (int64, string)) {
	sort.Slice(items, func(i, j int) bool {
		ti, si := key(items[i])
		tj, sj := key(items[j])
		if ti != tj {
			return ti < tj
		}
		return si < sj
	})
}
