package models

import (
	"time"
)

// User 版务用户表
type User struct {
	ID           uint       `gorm:"primarykey" json:"user_id"`
	Username     string     `gorm:"size:64;uniqueIndex;not null" json:"username"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Active       bool       `gorm:"not null;default:true" json:"active"`
	IsAdmin      bool       `gorm:"not null;default:false" json:"is_admin"`
	Notes        string     `json:"notes"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
