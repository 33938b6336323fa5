package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/space-booking/internal/model"
	"github.com/iliyamo/space-booking/internal/queue"
	"github.com/iliyamo/space-booking/internal/repository"
	"github.com/iliyamo/space-booking/internal/scope"
	"github.com/iliyamo/space-booking/internal/utils"
)

// ErrInvalidCredentials is returned by Authenticate for any unknown user,
// wrong password or inactive account.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AccountService provisions users and checks their passwords.
type AccountService struct {
	base
	bcryptCost int
}

func NewAccountService(d Deps, bcryptCost int) *AccountService {
	return &AccountService{base: newBase(d), bcryptCost: bcryptCost}
}

// NewUserInput describes an account to create. An empty Group defaults to
// the regular user group.
type NewUserInput struct {
	Username   string
	Email      string
	Password   string
	Group      string
	LocationID *uint64
	Floor      *int
}

// UpdateUserInput is the new account state. Group, location and floor are
// replaced as given, so nil LocationID and Floor clear the home scope. An
// empty Email or a nil IsActive keeps the current value.
type UpdateUserInput struct {
	Email      string
	Group      string
	LocationID *uint64
	Floor      *int
	IsActive   *bool
}

func requireUserManager(actor model.User) error {
	if !scope.CanManageUsers(actor) {
		return fmt.Errorf("%w: only administrators manage users", ErrForbidden)
	}
	return nil
}

// Authenticate verifies a username and password pair.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	u, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

// GetUser loads a user by id.
func (s *AccountService) GetUser(ctx context.Context, id uint64) (*model.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, storageError(err)
	}
	return &u, nil
}

// CreateUser provisions an account on behalf of an administrator.
func (s *AccountService) CreateUser(ctx context.Context, actor model.User, in NewUserInput) (*model.User, error) {
	if err := requireUserManager(actor); err != nil {
		return nil, err
	}
	u, err := s.Provision(ctx, in)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, queue.AuditEvent{Action: queue.ActionUserCreated, ActorID: actor.ID, Entity: queue.EntityUser, EntityID: u.ID})
	return u, nil
}

// Provision validates and stores a new active account. It is used by the
// seed command and by CreateUser.
func (s *AccountService) Provision(ctx context.Context, in NewUserInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := ValidateUsername(in.Username); err != nil {
		return nil, err
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(in.Email))
	if err != nil {
		return nil, invalid(CodeInvalidField, "invalid email %q", in.Email)
	}
	if len(in.Password) < 8 {
		return nil, invalid(CodeInvalidField, "password must be at least 8 characters")
	}
	group := model.GroupUser
	if in.Group != "" {
		r, ok := model.ParseRole(in.Group)
		if !ok {
			return nil, invalid(CodeInvalidField, "unknown group %q", in.Group)
		}
		group = r.String()
	}
	if in.Floor != nil {
		if err := validateFloor(*in.Floor); err != nil {
			return nil, err
		}
	}
	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := model.User{
		Username:     in.Username,
		Email:        strings.ToLower(addr.Address),
		PasswordHash: hash,
		Group:        group,
		LocationID:   in.LocationID,
		Floor:        in.Floor,
		IsActive:     true,
	}
	if err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		return tx.InsertUser(ctx, &u)
	}); err != nil {
		return nil, storageError(err)
	}
	s.logger.Info("user provisioned", zap.Uint64("user_id", u.ID), zap.String("username", u.Username), zap.String("group", u.Group))
	return &u, nil
}

// ListUsers returns every account, active or not.
func (s *AccountService) ListUsers(ctx context.Context, actor model.User) ([]model.User, error) {
	if err := requireUserManager(actor); err != nil {
		return nil, err
	}
	out, err := s.store.ListUsers(ctx, repository.UserFilter{})
	return out, storageError(err)
}

// UpdateUser changes the group, home location, floor, email or active flag
// of an account. Reservations already stored are left alone; the new scope
// applies from the next request.
func (s *AccountService) UpdateUser(ctx context.Context, actor model.User, id uint64, in UpdateUserInput) (*model.User, error) {
	if err := requireUserManager(actor); err != nil {
		return nil, err
	}
	r, ok := model.ParseRole(in.Group)
	if !ok {
		return nil, invalid(CodeInvalidField, "unknown group %q", in.Group)
	}
	var email string
	if strings.TrimSpace(in.Email) != "" {
		addr, err := mail.ParseAddress(strings.TrimSpace(in.Email))
		if err != nil {
			return nil, invalid(CodeInvalidField, "invalid email %q", in.Email)
		}
		email = strings.ToLower(addr.Address)
	}
	if in.Floor != nil {
		if err := validateFloor(*in.Floor); err != nil {
			return nil, err
		}
	}
	if id == actor.ID && (r != model.RoleAdministrator || (in.IsActive != nil && !*in.IsActive)) {
		return nil, invalid(CodeInvalidField, "administrators cannot demote or deactivate themselves")
	}

	var before, after model.User
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		cur, err := tx.GetUser(ctx, id)
		if err != nil {
			return err
		}
		if in.LocationID != nil {
			if _, err := tx.GetLocation(ctx, *in.LocationID); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return invalid(CodeInvalidField, "location %d does not exist", *in.LocationID)
				}
				return err
			}
		}
		before = cur
		if email != "" {
			cur.Email = email
		}
		cur.Group = r.String()
		cur.LocationID = in.LocationID
		cur.Floor = in.Floor
		if in.IsActive != nil {
			cur.IsActive = *in.IsActive
		}
		if err := tx.UpdateUser(ctx, &cur); err != nil {
			return err
		}
		after, err = tx.GetUser(ctx, id)
		return err
	})
	if err != nil {
		return nil, storageError(err)
	}
	s.logger.Info("user updated",
		zap.Uint64("user_id", id),
		zap.Uint64("actor_id", actor.ID),
		zap.String("group", after.Group),
		zap.Bool("active", after.IsActive))
	s.emit(ctx, queue.AuditEvent{
		Action:        queue.ActionUserUpdated,
		ActorID:       actor.ID,
		Entity:        queue.EntityUser,
		EntityID:      id,
		State:         after.Group,
		PreviousState: before.Group,
	})
	return &after, nil
}

// DeleteUser removes an account together with its reservations.
func (s *AccountService) DeleteUser(ctx context.Context, actor model.User, id uint64) error {
	if err := requireUserManager(actor); err != nil {
		return err
	}
	if id == actor.ID {
		return invalid(CodeInvalidField, "administrators cannot delete themselves")
	}
	if err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		return tx.DeleteUser(ctx, id)
	}); err != nil {
		return storageError(err)
	}
	s.logger.Info("user deleted", zap.Uint64("user_id", id), zap.Uint64("actor_id", actor.ID))
	s.emit(ctx, queue.AuditEvent{Action: queue.ActionUserDeleted, ActorID: actor.ID, Entity: queue.EntityUser, EntityID: id})
	return nil
}
