package doctor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	apperrors "github.com/jwalitptl/telehealth-api/pkg/errors"
)

const (
	cacheTTL     = 5 * time.Minute
	cacheCleanup = 10 * time.Minute
)

// Service serves the public doctor directory. Profiles change rarely and are
// read on every booking page, so reads go through a short-lived cache.
type Service struct {
	repo  repository.DoctorRepository
	cache *cache.Cache
}

func NewService(repo repository.DoctorRepository) *Service {
	return &Service{
		repo:  repo,
		cache: cache.New(cacheTTL, cacheCleanup),
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	key := "doctor:" + id.String()
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*model.Doctor), nil
	}

	doctor, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("doctor", err)
		}
		return nil, apperrors.Internal(err)
	}

	s.cache.Set(key, doctor, cache.DefaultExpiration)
	return doctor, nil
}

func (s *Service) List(ctx context.Context, filters *model.DoctorFilters) ([]*model.Doctor, error) {
	filters.Normalize()

	key := listKey(filters)
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]*model.Doctor), nil
	}

	doctors, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	s.cache.Set(key, doctors, cache.DefaultExpiration)
	return doctors, nil
}

func listKey(f *model.DoctorFilters) string {
	return fmt.Sprintf("doctors:%s:%s:%d:%d", f.Specialty, f.SearchTerm, f.Page, f.PageSize)
}
