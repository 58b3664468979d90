package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"techanswers/internal/domain"
	"techanswers/internal/repository"
)

type CategoryInput struct {
	Name        string
	Description string
}

type CategoryService interface {
	List(ctx context.Context) ([]domain.Category, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Category, error)
	Create(ctx context.Context, in CategoryInput) (*domain.Category, error)
	Update(ctx context.Context, id int64, in CategoryInput) (*domain.Category, error)
	Delete(ctx context.Context, id int64) error
}

type categoryService struct {
	categories repository.CategoryRepository
}

func NewCategoryService(categories repository.CategoryRepository) CategoryService {
	return &categoryService{categories: categories}
}

func (s *categoryService) List(ctx context.Context) ([]domain.Category, error) {
	return s.categories.List(ctx)
}

func (s *categoryService) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	category, err := s.categories.GetBySlug(ctx, slug)
	if err != nil {
		return nil, translate(err, "Catégorie introuvable")
	}
	return category, nil
}

func (s *categoryService) Create(ctx context.Context, in CategoryInput) (*domain.Category, error) {
	category := &domain.Category{}
	if err := applyCategory(category, in); err != nil {
		return nil, err
	}
	if _, err := s.categories.Create(ctx, category); err != nil {
		return nil, translate(err, "Une catégorie porte déjà ce nom")
	}
	return category, nil
}

func (s *categoryService) Update(ctx context.Context, id int64, in CategoryInput) (*domain.Category, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "Catégorie introuvable")
	}
	if err := applyCategory(category, in); err != nil {
		return nil, err
	}
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, translate(err, "Une catégorie porte déjà ce nom")
	}
	return category, nil
}

func (s *categoryService) Delete(ctx context.Context, id int64) error {
	err := s.categories.Delete(ctx, id)
	if errors.Is(err, repository.ErrReferenced) {
		return newError(ErrConflict, "La catégorie contient encore des articles")
	}
	return translate(err, "Catégorie introuvable")
}

func applyCategory(category *domain.Category, in CategoryInput) error {
	name := strings.TrimSpace(in.Name)
	if n := utf8.RuneCountInString(name); n < 2 || n > 60 {
		return invalid("name", "Le nom de la catégorie doit contenir entre 2 et 60 caractères")
	}
	slug := Slugify(name)
	if slug == "" {
		return invalid("name", "Le nom de la catégorie doit contenir des lettres ou des chiffres")
	}
	category.Name = name
	category.Slug = slug
	category.Description = strings.TrimSpace(in.Description)
	return nil
}
