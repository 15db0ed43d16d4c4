package models

import (
	"gorm.io/gorm"
)

// AutoMigrate 迁移版务库的 ORM 表；板块分表不归 ORM 管
func AutoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&User{},
		&ReportParent{},
		&ReportChild{},
	)
}
