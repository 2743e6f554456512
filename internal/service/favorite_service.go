package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/medrotation-api/internal/dto"
	"github.com/noah-isme/medrotation-api/internal/models"
	appErrors "github.com/noah-isme/medrotation-api/pkg/errors"
)

type favoriteRepository interface {
	Add(ctx context.Context, userID, programID string) error
	Remove(ctx context.Context, userID, programID string) error
	Exists(ctx context.Context, userID, programID string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]models.FavoriteDetail, error)
}

// FavoriteService manages a user's bookmarked programs.
type FavoriteService struct {
	repo     favoriteRepository
	programs programLookup
	logger   *zap.Logger
}

// NewFavoriteService constructs a FavoriteService.
func NewFavoriteService(repo favoriteRepository, programs programLookup, logger *zap.Logger) *FavoriteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FavoriteService{repo: repo, programs: programs, logger: logger}
}

// Add bookmarks a program. Adding twice is a no-op.
func (s *FavoriteService) Add(ctx context.Context, actor *models.User, programID string) (*dto.FavoriteStatus, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if _, err := s.programs.FindByID(ctx, programID); err != nil {
		return nil, notFoundOr(err, "program not found", "failed to load program")
	}
	if err := s.repo.Add(ctx, actor.ID, programID); err != nil {
		return nil, internalErr(err, "failed to add favorite")
	}
	return &dto.FavoriteStatus{ProgramID: programID, IsFavorite: true}, nil
}

// Remove deletes a bookmark. Removing an absent bookmark is a no-op.
func (s *FavoriteService) Remove(ctx context.Context, actor *models.User, programID string) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if err := s.repo.Remove(ctx, actor.ID, programID); err != nil {
		return internalErr(err, "failed to remove favorite")
	}
	return nil
}

// Status reports whether actor bookmarked programID.
func (s *FavoriteService) Status(ctx context.Context, actor *models.User, programID string) (*dto.FavoriteStatus, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	ok, err := s.repo.Exists(ctx, actor.ID, programID)
	if err != nil {
		return nil, internalErr(err, "failed to check favorite")
	}
	return &dto.FavoriteStatus{ProgramID: programID, IsFavorite: ok}, nil
}

// List returns actor's bookmarks, newest first.
func (s *FavoriteService) List(ctx context.Context, actor *models.User) ([]models.FavoriteDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	favorites, err := s.repo.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, internalErr(err, "failed to list favorites")
	}
	if favorites == nil {
		favorites = []models.FavoriteDetail{}
	}
	return favorites, nil
}
