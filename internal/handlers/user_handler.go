package handlers

import (
	"fmt"
	"net/http"

	"mercury-erp/config"
	"mercury-erp/internal/services"
	"mercury-erp/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserInput - входящие данные пользователя.
type UserInput struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	RoleIDs  []uint `json:"roleIds"`
}

// invalidateUserCache сбрасывает кэш прав пользователя после смены ролей.
func invalidateUserCache(userID uint) {
	if config.RDB == nil {
		return
	}
	config.RDB.Del(config.Ctx, fmt.Sprintf("user:%d:data", userID))
}

// CreateUserHandler создает пользователя с хэшированным паролем и ролями.
func CreateUserHandler(c *gin.Context) {
	var input UserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}
	if input.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Пароль обязателен при создании пользователя"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось хэшировать пароль"})
		return
	}

	var user models.User
	err = config.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("login = ?", input.Login).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return services.Conflictf("логин %q уже занят", input.Login)
		}

		user = models.User{
			Login:        input.Login,
			PasswordHash: string(hashedPassword),
			FullName:     input.FullName,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		if len(input.RoleIDs) > 0 {
			var roles []models.Role
			if err := tx.Find(&roles, input.RoleIDs).Error; err != nil {
				return err
			}
			if err := tx.Model(&user).Association("Roles").Replace(roles); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// UpdateUserHandler обновляет пользователя. Пустой пароль означает
// "оставить прежний".
func UpdateUserHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input UserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}

	var user models.User
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			return services.NotFoundf("пользователь %d не найден", id)
		}
		user.Login = input.Login
		user.FullName = input.FullName
		if input.Password != "" {
			hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			user.PasswordHash = string(hashedPassword)
		}
		if err := tx.Save(&user).Error; err != nil {
			return err
		}
		if input.RoleIDs != nil {
			var roles []models.Role
			if err := tx.Find(&roles, input.RoleIDs).Error; err != nil {
				return err
			}
			if err := tx.Model(&user).Association("Roles").Replace(roles); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	invalidateUserCache(user.ID)
	c.JSON(http.StatusOK, user)
}

// GetUserHandler возвращает пользователя с ролями.
func GetUserHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var user models.User
	if err := config.DB.Preload("Roles").First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Пользователь не найден"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// ListUsersHandler возвращает пользователей с пагинацией.
func ListUsersHandler(c *gin.Context) {
	var users []models.User
	var totalRows int64

	query := config.DB.Model(&models.User{}).Preload("Roles")
	if search := c.Query("search"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("login ILIKE ? OR full_name ILIKE ?", pattern, pattern)
	}

	query.Count(&totalRows)
	if err := query.Scopes(Paginate(c)).Order("login asc").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить пользователей"})
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, users, totalRows))
}

// DeleteUserHandler удаляет пользователя.
func DeleteUserHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, id).Error; err != nil {
			return services.NotFoundf("пользователь %d не найден", id)
		}
		if err := tx.Model(&user).Association("Roles").Clear(); err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	invalidateUserCache(id)
	c.JSON(http.StatusOK, gin.H{"message": "Пользователь удален"})
}
