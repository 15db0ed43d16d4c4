package moderation

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ayase-lite/ayase-lite/internal/constants"
	"github.com/ayase-lite/ayase-lite/internal/models"
)

// ErrDuplicateReport 同一 IP 重复举报同一帖
var ErrDuplicateReport = errors.New("already reported by this submitter")

// ReportStore 举报表的数据访问
type ReportStore struct {
	gdb *gorm.DB
}

// NewReportStore 创建举报仓库
func NewReportStore(gdb *gorm.DB) *ReportStore {
	return &ReportStore{gdb: gdb}
}

// CreateReportInput 一次举报提交
type CreateReportInput struct {
	Board             string
	ThreadNum         uint32
	Num               uint32
	Op                bool
	SubmitterIP       string
	SubmitterCategory string
	SubmitterNotes    string
	DefaultAccess     string // 新建父行的初始 public_access
}

// CreateReport 记录一次举报。父行按 (板块, 帖号) 聚合，
// 子行按 (父行, 提交 IP) 去重；重复提交返回 ErrDuplicateReport。
func (s *ReportStore) CreateReport(ctx context.Context, in CreateReportInput) (*models.ReportParent, error) {
	access := in.DefaultAccess
	if access == "" {
		access = constants.PublicAccessVisible
	}

	var parent models.ReportParent
	err := s.gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("board = ? and num = ?", in.Board, in.Num).First(&parent).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			parent = models.ReportParent{
				Board:        in.Board,
				Num:          in.Num,
				ThreadNum:    in.ThreadNum,
				Op:           in.Op,
				PublicAccess: access,
				ModStatus:    constants.ModStatusOpen,
				ReportCount:  0,
			}
			if err := tx.Create(&parent).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		}

		var dup int64
		if err := tx.Model(&models.ReportChild{}).
			Where("parent_id = ? and submitter_ip = ?", parent.ID, in.SubmitterIP).
			Count(&dup).Error; err != nil {
			return err
		}
		if dup > 0 {
			return ErrDuplicateReport
		}

		child := models.ReportChild{
			ParentID:          parent.ID,
			SubmitterIP:       in.SubmitterIP,
			SubmitterCategory: in.SubmitterCategory,
			SubmitterNotes:    in.SubmitterNotes,
		}
		if err := tx.Create(&child).Error; err != nil {
			return err
		}

		parent.ReportCount++
		return tx.Model(&parent).Update("report_count", parent.ReportCount).Error
	})
	if err != nil {
		return nil, err
	}
	return &parent, nil
}

// GetByID 按父行 id 取举报；不存在返回 nil
func (s *ReportStore) GetByID(ctx context.Context, id uint) (*models.ReportParent, error) {
	var parent models.ReportParent
	err := s.gdb.WithContext(ctx).First(&parent, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &parent, nil
}

// SetPublicAccess 更新父行可见性，返回更新后的父行
func (s *ReportStore) SetPublicAccess(ctx context.Context, id uint, access string) (*models.ReportParent, error) {
	return s.updateField(ctx, id, "public_access", access)
}

// SetModStatus 更新父行处理状态
func (s *ReportStore) SetModStatus(ctx context.Context, id uint, status string) (*models.ReportParent, error) {
	return s.updateField(ctx, id, "mod_status", status)
}

// SetModNotes 更新版务备注；空备注也有效
func (s *ReportStore) SetModNotes(ctx context.Context, id uint, notes string) (*models.ReportParent, error) {
	return s.updateField(ctx, id, "mod_notes", notes)
}

func (s *ReportStore) updateField(ctx context.Context, id uint, column string, value interface{}) (*models.ReportParent, error) {
	parent, err := s.GetByID(ctx, id)
	if err != nil || parent == nil {
		return parent, err
	}
	if err := s.gdb.WithContext(ctx).Model(parent).Update(column, value).Error; err != nil {
		return nil, err
	}
	return parent, nil
}

// Delete 删除父行与子行；父行不存在时返回 nil（幂等）
func (s *ReportStore) Delete(ctx context.Context, id uint) (*models.ReportParent, error) {
	parent, err := s.GetByID(ctx, id)
	if err != nil || parent == nil {
		return parent, err
	}
	err = s.gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parent_id = ?", id).Delete(&models.ReportChild{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.ReportParent{}, id).Error
	})
	if err != nil {
		return nil, err
	}
	return parent, nil
}

// List 按处理状态与板块分页列出举报，按更新时间倒序
func (s *ReportStore) List(ctx context.Context, modStatus string, boards []string, page, pageSize int) ([]models.ReportParent, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	query := s.gdb.WithContext(ctx).Model(&models.ReportParent{})
	if modStatus != "" {
		query = query.Where("mod_status = ?", modStatus)
	}
	if len(boards) > 0 {
		query = query.Where("board in ?", boards)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var parents []models.ReportParent
	err := query.Order("updated_at desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&parents).Error
	if err != nil {
		return nil, 0, err
	}
	return parents, total, nil
}

// CountAll 所有举报父行总数
func (s *ReportStore) CountAll(ctx context.Context) (int64, error) {
	var total int64
	err := s.gdb.WithContext(ctx).Model(&models.ReportParent{}).Count(&total).Error
	return total, err
}
