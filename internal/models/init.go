package models

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ayase-lite/ayase-lite/internal/logger"
)

// InitDefaultAdmin 用户表为空时按配置创建初始管理员
func InitDefaultAdmin(gdb *gorm.DB, username, password string) error {
	var count int64
	if err := gdb.Model(&User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if username == "" {
		username = "admin"
	}
	if password == "" {
		password = "admin"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := User{
		Username:     username,
		PasswordHash: string(hash),
		Active:       true,
		IsAdmin:      true,
		Notes:        "Remember to change your default password.",
	}
	if err := gdb.Create(&admin).Error; err != nil {
		return err
	}
	logger.Warnw("default_admin_created", "username", username)
	return nil
}
