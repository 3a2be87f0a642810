package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/synergysphere/api/internal/database"
	"github.com/synergysphere/api/internal/models"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername finds a user by username
func (r *GormUserRepository) FindByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List retrieves users with filtering and pagination
func (r *GormUserRepository) List(filter UserFilter) ([]models.User, int64, error) {
	var users []models.User

	query := r.db.Model(&models.User{})
	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("email LIKE ? OR username LIKE ? OR first_name LIKE ? OR last_name LIKE ?",
			like, like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("created_at DESC")
	query = query.Scopes(database.Paginate(filter.Page, filter.PageSize))

	if err := query.Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Update saves the full user record
func (r *GormUserRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// UpdateFields applies a partial update to a user
func (r *GormUserRepository) UpdateFields(id uint64, fields map[string]any) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Updates(fields).Error
}

// SetRole changes a user's platform role inside a transaction so the
// last-admin count stays consistent under concurrent demotions.
func (r *GormUserRepository) SetRole(id uint64, role models.UserRole) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, id).Error; err != nil {
			return err
		}

		if user.Role == models.UserRoleAdmin && role != models.UserRoleAdmin {
			count, err := countActivePlatformAdmins(tx)
			if err != nil {
				return err
			}
			if count <= 1 {
				return ErrLastPlatformAdmin
			}
		}

		return tx.Model(&user).Update("role", role).Error
	})
}

// SetActive activates or deactivates a user
func (r *GormUserRepository) SetActive(id uint64, active bool) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, id).Error; err != nil {
			return err
		}

		if !active && user.IsActive && user.Role == models.UserRoleAdmin {
			count, err := countActivePlatformAdmins(tx)
			if err != nil {
				return err
			}
			if count <= 1 {
				return ErrLastPlatformAdmin
			}
		}

		return tx.Model(&user).Update("is_active", active).Error
	})
}

// UpdateLastLogin stamps the user's last login time
func (r *GormUserRepository) UpdateLastLogin(id uint64, at time.Time) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Update("last_login_at", at).Error
}

// Count returns the total number of users
func (r *GormUserRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}

// CountActiveAdmins returns the number of active platform admins
func (r *GormUserRepository) CountActiveAdmins() (int64, error) {
	return countActivePlatformAdmins(r.db)
}

func countActivePlatformAdmins(tx *gorm.DB) (int64, error) {
	var count int64
	err := tx.Model(&models.User{}).
		Where("role = ? AND is_active = ?", models.UserRoleAdmin, true).
		Count(&count).Error
	return count, err
}
