package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/gitdev-app/backend/internal/apperr"
	"github.com/gitdev-app/backend/internal/models"
)

// AuthRepository defines the interface for credential and token data
// operations.
type AuthRepository interface {
	CreateAuthUser(user *models.AuthUser) error
	GetAuthUserByID(id uint) (*models.AuthUser, error)
	GetAuthUserByEmail(email string) (*models.AuthUser, error)
	GetAuthUserByUsername(username string) (*models.AuthUser, error)
	GetAuthUserByUserID(userID string) (*models.AuthUser, error)
	SearchAuthUsers(term string, limit int) ([]models.AuthUser, error)
	CreateAuthToken(token *models.AuthToken) error
	GetAuthToken(token string) (*models.AuthToken, error)
	DeleteAuthToken(token string) error
	DeleteAuthTokensForUser(authUserID uint) error
}

// PostgresAuthRepository implements AuthRepository for PostgreSQL.
type PostgresAuthRepository struct {
	db *gorm.DB
}

// NewPostgresAuthRepository creates a new PostgresAuthRepository and
// migrates its tables.
func NewPostgresAuthRepository(db *gorm.DB) (*PostgresAuthRepository, error) {
	if err := db.AutoMigrate(&models.AuthUser{}, &models.AuthToken{}); err != nil {
		return nil, err
	}
	return &PostgresAuthRepository{db: db}, nil
}

// CreateAuthUser creates a new credential row.
func (r *PostgresAuthRepository) CreateAuthUser(user *models.AuthUser) error {
	err := r.db.Create(user).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict("AccountExists", "username or email already in use")
	}
	return err
}

// GetAuthUserByID retrieves a credential row by primary key.
func (r *PostgresAuthRepository) GetAuthUserByID(id uint) (*models.AuthUser, error) {
	var user models.AuthUser
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("UserNotFound", "user not found")
		}
		return nil, err
	}
	return &user, nil
}

// GetAuthUserByEmail retrieves a credential row by email.
func (r *PostgresAuthRepository) GetAuthUserByEmail(email string) (*models.AuthUser, error) {
	var user models.AuthUser
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("UserNotFound", "user not found")
		}
		return nil, err
	}
	return &user, nil
}

// GetAuthUserByUsername retrieves a credential row by username.
func (r *PostgresAuthRepository) GetAuthUserByUsername(username string) (*models.AuthUser, error) {
	var user models.AuthUser
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("UserNotFound", "user not found")
		}
		return nil, err
	}
	return &user, nil
}

// GetAuthUserByUserID retrieves the credential row owning a Mongo profile.
func (r *PostgresAuthRepository) GetAuthUserByUserID(userID string) (*models.AuthUser, error) {
	var user models.AuthUser
	if err := r.db.Where("user_id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("UserNotFound", "user not found")
		}
		return nil, err
	}
	return &user, nil
}

// SearchAuthUsers matches usernames by case-insensitive prefix.
func (r *PostgresAuthRepository) SearchAuthUsers(term string, limit int) ([]models.AuthUser, error) {
	var users []models.AuthUser
	err := r.db.
		Where("LOWER(username) LIKE LOWER(?)", term+"%").
		Order("username").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// CreateAuthToken records a refresh token for later rotation checks.
func (r *PostgresAuthRepository) CreateAuthToken(token *models.AuthToken) error {
	return r.db.Create(token).Error
}

// GetAuthToken looks up an unexpired rotation record.
func (r *PostgresAuthRepository) GetAuthToken(token string) (*models.AuthToken, error) {
	var record models.AuthToken
	err := r.db.Where("token = ? AND expires_at > ?", token, time.Now()).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized("invalid or expired refresh token")
		}
		return nil, err
	}
	return &record, nil
}

// DeleteAuthToken invalidates one refresh token.
func (r *PostgresAuthRepository) DeleteAuthToken(token string) error {
	return r.db.Where("token = ?", token).Delete(&models.AuthToken{}).Error
}

// DeleteAuthTokensForUser invalidates every refresh token of a user.
func (r *PostgresAuthRepository) DeleteAuthTokensForUser(authUserID uint) error {
	return r.db.Where("auth_user_id = ?", authUserID).Delete(&models.AuthToken{}).Error
}
