package user

import (
	"context"
	"fmt"
	"sync"

	"greenbite/domain"
	"greenbite/entities"
)

type (
	UserService interface {
		SyncProfile(ctx context.Context, identity domain.Identity) error
		GetProfile(ctx context.Context, userID string) (domain.UserResponse, error)
		GetEmails(ctx context.Context, userIDs []string) (map[string]string, error)
	}

	userService struct {
		userRepository UserRepository
		// last synced profile per user; skips the write when claims are unchanged
		synced sync.Map
	}
)

func NewUserService(userRepository UserRepository) UserService {
	return &userService{userRepository: userRepository}
}

func (s *userService) SyncProfile(ctx context.Context, identity domain.Identity) error {
	if identity.UserID == "" {
		return domain.ErrUserNotAllowed
	}

	profile := domain.UserResponse{ID: identity.UserID, Email: identity.Email, Name: identity.Name}
	if prev, ok := s.synced.Load(identity.UserID); ok && prev.(domain.UserResponse) == profile {
		return nil
	}

	if err := s.userRepository.UpsertUser(ctx, &entities.User{
		ID:    identity.UserID,
		Email: identity.Email,
		Name:  identity.Name,
	}); err != nil {
		return fmt.Errorf("sync profile %s: %w", identity.UserID, err)
	}

	s.synced.Store(identity.UserID, profile)
	return nil
}

func (s *userService) GetProfile(ctx context.Context, userID string) (domain.UserResponse, error) {
	user, err := s.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		return domain.UserResponse{}, err
	}
	return domain.UserResponse{ID: user.ID, Email: user.Email, Name: user.Name}, nil
}

// GetEmails maps user ids to their stored e-mail. Users without a profile or
// without an e-mail are absent from the result.
func (s *userService) GetEmails(ctx context.Context, userIDs []string) (map[string]string, error) {
	users, err := s.userRepository.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	emails := make(map[string]string, len(users))
	for _, u := range users {
		if u.Email != "" {
			emails[u.ID] = u.Email
		}
	}
	return emails, nil
}
