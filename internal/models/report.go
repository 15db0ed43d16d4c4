package models

import (
	"time"
)

// ReportParent 举报父行：同一 (板块, 帖号) 的举报聚合为一行，
// 过滤缓存按 public_access + mod_status 判断是否对外隐藏
type ReportParent struct {
	ID        uint   `gorm:"primarykey" json:"report_parent_id"`
	Board     string `gorm:"size:10;not null;uniqueIndex:idx_report_board_num" json:"board"`
	Num       uint32 `gorm:"not null;uniqueIndex:idx_report_board_num" json:"num"`
	ThreadNum uint32 `gorm:"not null" json:"thread_num"`
	Op        bool   `gorm:"not null" json:"op"`

	PublicAccess string `gorm:"size:10;not null;index" json:"public_access"` // visible / hidden
	ModStatus    string `gorm:"size:10;not null;index" json:"mod_status"`    // open / closed
	ModNotes     string `json:"mod_notes"`
	ReportCount  int    `gorm:"not null;default:1" json:"report_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Children []ReportChild `gorm:"foreignKey:ParentID" json:"children,omitempty"`
}

// TableName 指定表名
func (ReportParent) TableName() string {
	return "report_parent"
}

// ReportChild 举报子行：每次提交一行，(父行, 提交 IP) 去重
type ReportChild struct {
	ID                uint      `gorm:"primarykey" json:"report_child_id"`
	ParentID          uint      `gorm:"not null;uniqueIndex:idx_report_child_ip" json:"report_parent_id"`
	SubmitterIP       string    `gorm:"size:45;not null;uniqueIndex:idx_report_child_ip" json:"-"`
	SubmitterCategory string    `gorm:"size:40;not null" json:"submitter_category"`
	SubmitterNotes    string    `json:"submitter_notes"`
	CreatedAt         time.Time `json:"created_at"`
}

// TableName 指定表名
func (ReportChild) TableName() string {
	return "report_child"
}
