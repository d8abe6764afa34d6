package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fraudwatch/fraud-monitor/internal/logger"
	"github.com/fraudwatch/fraud-monitor/internal/models"
)

// ErrInvalidRole is returned for roles outside customer/employee/admin.
var ErrInvalidRole = errors.New("invalid role")

// AdminUserReader defines the reads the admin surface needs.
type AdminUserReader interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*models.UserDB, error)
	GetByUsernameOrEmail(ctx context.Context, username, email *string) (*models.UserDB, error)
	List(ctx context.Context) ([]models.UserDB, error)
}

// AdminUserWriter defines the writes the admin surface needs.
type AdminUserWriter interface {
	Save(ctx context.Context, user models.UserDB) (uuid.UUID, error)
	Update(ctx context.Context, userID uuid.UUID, upd models.UserUpdate) error
}

// BanLockClearer removes the persistent session ban lock when a user is
// unbanned.
type BanLockClearer interface {
	ClearBanLock(ctx context.Context, email string) error
}

// UserAdminService is the admin-only user management surface. Role
// changes happen only here — never from identity-provider claims.
type UserAdminService struct {
	reader   AdminUserReader
	writer   AdminUserWriter
	banLocks BanLockClearer
	audit    AuditWriter
}

// NewUserAdminService creates a UserAdminService.
func NewUserAdminService(reader AdminUserReader, writer AdminUserWriter, banLocks BanLockClearer, audit AuditWriter) *UserAdminService {
	return &UserAdminService{reader: reader, writer: writer, banLocks: banLocks, audit: audit}
}

// List returns all users.
func (s *UserAdminService) List(ctx context.Context) ([]models.UserDB, error) {
	return s.reader.List(ctx)
}

// GetByEmail returns a user by email.
func (s *UserAdminService) GetByEmail(ctx context.Context, email string) (*models.UserDB, error) {
	user, err := s.reader.GetByUsernameOrEmail(ctx, nil, &email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserDoesNotExist
	}
	return user, nil
}

// Create provisions a user directly (admin action).
func (s *UserAdminService) Create(ctx context.Context, actor string, user models.UserDB) (*models.UserDB, error) {
	if !models.ValidRole(user.Role) {
		return nil, ErrInvalidRole
	}

	existing, err := s.reader.GetByUsernameOrEmail(ctx, &user.Username, &user.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserAlreadyExists
	}

	userID, err := s.writer.Save(ctx, user)
	if err != nil {
		logger.Log.Errorw("failed to create user", "username", user.Username, "err", err)
		return nil, err
	}
	user.UserID = userID

	if err := s.audit.Save(ctx, actor, models.AuditActionUserCreated,
		fmt.Sprintf("user %s created with role %s", user.Username, user.Role)); err != nil {
		logger.Log.Errorw("failed to audit user creation", "username", user.Username, "err", err)
	}

	return &user, nil
}

// Update applies a partial admin update. Unbanning also clears the
// persistent session ban lock so the user can sign in again.
func (s *UserAdminService) Update(ctx context.Context, actor string, userID uuid.UUID, upd models.UserUpdate) (*models.UserDB, error) {
	if upd.Role != nil && !models.ValidRole(*upd.Role) {
		return nil, ErrInvalidRole
	}

	before, err := s.reader.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if before == nil {
		return nil, ErrUserDoesNotExist
	}

	if err := s.writer.Update(ctx, userID, upd); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserDoesNotExist
		}
		logger.Log.Errorw("failed to update user", "userID", userID, "err", err)
		return nil, err
	}

	if upd.IsBanned != nil {
		switch {
		case *upd.IsBanned && !before.IsBanned:
			if err := s.audit.Save(ctx, actor, models.AuditActionUserBanned,
				fmt.Sprintf("user %s banned", before.Username)); err != nil {
				logger.Log.Errorw("failed to audit ban", "userID", userID, "err", err)
			}
		case !*upd.IsBanned && before.IsBanned:
			if err := s.banLocks.ClearBanLock(ctx, before.Email); err != nil {
				logger.Log.Errorw("failed to clear ban lock", "email", before.Email, "err", err)
			}
			if err := s.audit.Save(ctx, actor, models.AuditActionUserUnbanned,
				fmt.Sprintf("user %s unbanned", before.Username)); err != nil {
				logger.Log.Errorw("failed to audit unban", "userID", userID, "err", err)
			}
		}
	}

	if err := s.audit.Save(ctx, actor, models.AuditActionUserUpdated,
		fmt.Sprintf("user %s updated", before.Username)); err != nil {
		logger.Log.Errorw("failed to audit user update", "userID", userID, "err", err)
	}

	after, err := s.reader.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return after, nil
}
