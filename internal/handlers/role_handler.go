package handlers

import (
	"net/http"

	"mercury-erp/config"
	"mercury-erp/internal/services"
	"mercury-erp/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RoleInput - входящие данные роли.
type RoleInput struct {
	Name          string `json:"name" binding:"required"`
	Description   string `json:"description"`
	PermissionIDs []uint `json:"permissionIds"`
}

// CreateRoleHandler создает роль с набором прав.
func CreateRoleHandler(c *gin.Context) {
	var input RoleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}

	var role models.Role
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		role = models.Role{Name: input.Name, Description: input.Description}
		if err := tx.Create(&role).Error; err != nil {
			return services.Conflictf("роль %q уже существует", input.Name)
		}
		if len(input.PermissionIDs) > 0 {
			var perms []models.Permission
			if err := tx.Find(&perms, input.PermissionIDs).Error; err != nil {
				return err
			}
			return tx.Model(&role).Association("Permissions").Replace(perms)
		}
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, role)
}

// UpdateRoleHandler обновляет роль и ее права. Кэш прав пользователей
// с этой ролью протухнет сам по TTL, принудительно его не сбрасываем.
func UpdateRoleHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input RoleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}

	var role models.Role
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&role, id).Error; err != nil {
			return services.NotFoundf("роль %d не найдена", id)
		}
		role.Name = input.Name
		role.Description = input.Description
		if err := tx.Save(&role).Error; err != nil {
			return err
		}
		if input.PermissionIDs != nil {
			var perms []models.Permission
			if err := tx.Find(&perms, input.PermissionIDs).Error; err != nil {
				return err
			}
			return tx.Model(&role).Association("Permissions").Replace(perms)
		}
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, role)
}

// ListRolesHandler возвращает все роли с правами.
func ListRolesHandler(c *gin.Context) {
	var roles []models.Role
	if err := config.DB.Preload("Permissions").Order("name asc").Find(&roles).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить роли"})
		return
	}
	c.JSON(http.StatusOK, roles)
}

// ListPermissionsHandler возвращает справочник прав.
func ListPermissionsHandler(c *gin.Context) {
	var perms []models.Permission
	if err := config.DB.Order("category asc, name asc").Find(&perms).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить права"})
		return
	}
	c.JSON(http.StatusOK, perms)
}

// DeleteRoleHandler удаляет роль, если она никому не назначена.
func DeleteRoleHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var role models.Role
		if err := tx.First(&role, id).Error; err != nil {
			return services.NotFoundf("роль %d не найдена", id)
		}
		var count int64
		if err := tx.Table("user_roles").Where("role_id = ?", role.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return services.Conflictf("роль %q назначена %d пользователям", role.Name, count)
		}
		if err := tx.Model(&role).Association("Permissions").Clear(); err != nil {
			return err
		}
		return tx.Delete(&role).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Роль удалена"})
}
