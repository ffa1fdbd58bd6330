package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/database/books"
	"github.com/mrlokans/library/internal/database/loans"
	"github.com/mrlokans/library/internal/database/users"
	"github.com/mrlokans/library/internal/entities"
)

const (
	msgUserNotFound       = "User not found"
	msgDuplicateEmail     = "A user with this email already exists"
	msgActiveUserDeletion = "Cannot delete user with active loans. Please return all books first."
)

type UserFilter struct {
	Query string
	Email string
	Role  entities.UserRole
	Tier  entities.UserTier
}

// UserInput carries user fields for create and update. Nil pointers are
// left untouched on update.
type UserInput struct {
	Name    *string
	Email   *string
	Role    *entities.UserRole
	Tier    *entities.UserTier
	Phone   *string
	Address *string
}

type UserService struct {
	store Store
	audit AuditLogger
	log   logrus.FieldLogger
}

func NewUserService(store Store, audit AuditLogger, log logrus.FieldLogger) *UserService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &UserService{store: store, audit: auditOrNop(audit), log: log}
}

func (s *UserService) List(ctx context.Context, filter UserFilter) ([]entities.User, error) {
	result, err := s.store.Repositories(ctx).Users.Find(users.Filter{
		Query: filter.Query,
		Email: filter.Email,
		Role:  filter.Role,
		Tier:  filter.Tier,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return result, nil
}

// Get returns a user with its active loans and their books.
func (s *UserService) Get(ctx context.Context, id string) (*entities.User, error) {
	user, err := s.store.Repositories(ctx).Users.GetWithActiveLoans(id)
	if err != nil {
		return nil, notFoundOr(err, msgUserNotFound)
	}
	return user, nil
}

// Create stores a new user, defaulting to role USER and tier TIER_4.
func (s *UserService) Create(ctx context.Context, in UserInput) (*entities.User, error) {
	if isBlank(in.Name) {
		return nil, Validation("Name is required")
	}
	if in.Email == nil || !validEmail(*in.Email) {
		return nil, Validation("Invalid email format")
	}

	user := &entities.User{
		Name:    strings.TrimSpace(*in.Name),
		Email:   strings.TrimSpace(*in.Email),
		Role:    entities.RoleUser,
		Tier:    entities.Tier4,
		Phone:   in.Phone,
		Address: in.Address,
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, Validation(fmt.Sprintf("invalid role %q", *in.Role))
		}
		user.Role = *in.Role
	}
	if in.Tier != nil {
		if !in.Tier.Valid() {
			return nil, Validation(fmt.Sprintf("invalid tier %q", *in.Tier))
		}
		user.Tier = *in.Tier
	}

	if err := s.store.Repositories(ctx).Users.Create(user); err != nil {
		if isUniqueViolation(err) {
			return nil, Conflict(msgDuplicateEmail)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *UserService) Update(ctx context.Context, id string, in UserInput) (*entities.User, error) {
	updates := make(map[string]any)
	if in.Name != nil {
		if isBlank(in.Name) {
			return nil, Validation("Name is required")
		}
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		if !validEmail(*in.Email) {
			return nil, Validation("Invalid email format")
		}
		updates["email"] = strings.TrimSpace(*in.Email)
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, Validation(fmt.Sprintf("invalid role %q", *in.Role))
		}
		updates["role"] = *in.Role
	}
	if in.Tier != nil {
		if !in.Tier.Valid() {
			return nil, Validation(fmt.Sprintf("invalid tier %q", *in.Tier))
		}
		updates["tier"] = *in.Tier
	}
	if in.Phone != nil {
		updates["phone"] = *in.Phone
	}
	if in.Address != nil {
		updates["address"] = *in.Address
	}

	repos := s.store.Repositories(ctx)
	if _, err := repos.Users.GetByID(id); err != nil {
		return nil, notFoundOr(err, msgUserNotFound)
	}
	if _, err := repos.Users.Update(id, updates); err != nil {
		if isUniqueViolation(err) {
			return nil, Conflict(msgDuplicateEmail)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return s.Get(ctx, id)
}

// Delete removes a user without active loans. Returned loans are removed and
// owned books lose their owner in the same transaction.
func (s *UserService) Delete(ctx context.Context, id, actorID string) error {
	var name string
	err := s.store.Transaction(ctx, func(repos *database.Repositories) error {
		user, err := repos.Users.GetByID(id)
		if err != nil {
			return notFoundOr(err, msgUserNotFound)
		}
		name = user.Name

		active, err := repos.Loans.CountActiveForBorrower(id)
		if err != nil {
			return fmt.Errorf("failed to count active loans: %w", err)
		}
		if active > 0 {
			return Conflict(msgActiveUserDeletion)
		}

		if _, err := repos.Loans.DeleteByBorrower(id); err != nil {
			return fmt.Errorf("failed to delete loan history: %w", err)
		}
		if _, err := repos.Books.ClearOwner(id); err != nil {
			return fmt.Errorf("failed to clear book owner: %w", err)
		}
		_, err = repos.Users.Delete(id)
		return err
	})
	if err != nil {
		return err
	}

	s.log.WithField("user_id", id).Info("user deleted")
	s.audit.LogDelete(entities.AuditEventUser, id, actorID, "Deleted user: "+name)
	return nil
}

// Loans lists every loan of the user, active or returned, with books.
func (s *UserService) Loans(ctx context.Context, id string) ([]entities.Loan, error) {
	repos := s.store.Repositories(ctx)
	if _, err := repos.Users.GetByID(id); err != nil {
		return nil, notFoundOr(err, msgUserNotFound)
	}
	return repos.Loans.Find(loans.Filter{BorrowerID: id})
}

// OwnedBooks lists the books the user owns.
func (s *UserService) OwnedBooks(ctx context.Context, id string) ([]entities.Book, error) {
	repos := s.store.Repositories(ctx)
	if _, err := repos.Users.GetByID(id); err != nil {
		return nil, notFoundOr(err, msgUserNotFound)
	}
	return repos.Books.Find(books.Filter{OwnerID: id})
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	return err == nil && addr.Address == strings.TrimSpace(email)
}
