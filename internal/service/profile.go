package service

import (
	"context"
	"log/slog"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/repository"
)

// ProfileService serves public profiles and the follow graph.
type ProfileService struct {
	users  repository.UserRepository
	rels   repository.RelationshipRepository
	logger *slog.Logger
}

func NewProfileService(users repository.UserRepository, rels repository.RelationshipRepository, logger *slog.Logger) *ProfileService {
	return &ProfileService{users: users, rels: rels, logger: logger}
}

// Get returns username's profile as seen by viewerID. An empty viewerID
// means an anonymous viewer, for whom Following is always false.
func (s *ProfileService) Get(ctx context.Context, viewerID, username string) (*model.Profile, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	following := false
	if viewerID != "" && viewerID != user.ID {
		following, err = s.rels.IsFollowing(ctx, viewerID, user.ID)
		if err != nil {
			return nil, err
		}
	}

	p := model.ProfileOf(*user, following)
	return &p, nil
}

// Follow makes viewerID follow username. Following an already-followed
// user is a no-op; following yourself is a validation error.
func (s *ProfileService) Follow(ctx context.Context, viewerID, username string) (*model.Profile, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user.ID == viewerID {
		return nil, apperror.ValidationFailed("username", "you cannot follow yourself")
	}

	if err := s.rels.Follow(ctx, viewerID, user.ID); err != nil {
		return nil, err
	}

	s.logger.Info("user followed",
		slog.String("follower_id", viewerID),
		slog.String("followee_id", user.ID),
	)
	p := model.ProfileOf(*user, true)
	return &p, nil
}

// Unfollow removes the edge. Unfollowing someone you do not follow is a
// no-op.
func (s *ProfileService) Unfollow(ctx context.Context, viewerID, username string) (*model.Profile, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if err := s.rels.Unfollow(ctx, viewerID, user.ID); err != nil {
		return nil, err
	}

	s.logger.Info("user unfollowed",
		slog.String("follower_id", viewerID),
		slog.String("followee_id", user.ID),
	)
	p := model.ProfileOf(*user, false)
	return &p, nil
}
