package moderation

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayase-lite/ayase-lite/internal/asagi"
	"github.com/ayase-lite/ayase-lite/internal/config"
	"github.com/ayase-lite/ayase-lite/internal/constants"
	"github.com/ayase-lite/ayase-lite/internal/filtercache"
	"github.com/ayase-lite/ayase-lite/internal/http/response"
	"github.com/ayase-lite/ayase-lite/internal/logger"
	"github.com/ayase-lite/ayase-lite/internal/models"
)

// Authorizer 回答某用户是否持有某权限
type Authorizer interface {
	HasPermission(ctx context.Context, username, permission string) (bool, error)
}

// actionPermissions 每个版务动作要求的权限
var actionPermissions = map[string]string{
	constants.ReportActionReportDelete:    constants.PermReportDelete,
	constants.ReportActionReportClose:     constants.PermReportClose,
	constants.ReportActionReportOpen:      constants.PermReportOpen,
	constants.ReportActionReportSaveNotes: constants.PermReportSaveNotes,
	constants.ReportActionPostShow:        constants.PermPostShow,
	constants.ReportActionPostHide:        constants.PermPostHide,
	constants.ReportActionPostDelete:      constants.PermPostDelete,
	constants.ReportActionMediaShow:       constants.PermMediaShow,
	constants.ReportActionMediaHide:       constants.PermMediaHide,
	constants.ReportActionMediaDelete:     constants.PermMediaDelete,
}

// Service 版务编排：举报、隐藏、删除以及媒体搬移
type Service struct {
	cfg     *config.ModerationConfig
	adapter *asagi.Adapter
	fcache  filtercache.Cache
	store   *ReportStore
	media   *Media
	authz   Authorizer
}

// NewService 创建版务服务
func NewService(cfg *config.ModerationConfig, adapter *asagi.Adapter, fcache filtercache.Cache, store *ReportStore, media *Media, authz Authorizer) *Service {
	return &Service{
		cfg:     cfg,
		adapter: adapter,
		fcache:  fcache,
		store:   store,
		media:   media,
		authz:   authz,
	}
}

// CreateReportForm 公开举报入口的参数
type CreateReportForm struct {
	Board             string
	Num               uint32
	SubmitterIP       string
	SubmitterCategory string
	SubmitterNotes    string
}

// CreateReport 受理一次公开举报。同一 IP 重复举报同一帖静默接受。
// 新建或累计的举报命中隐藏条件时立刻隐藏该帖。
func (s *Service) CreateReport(ctx context.Context, form CreateReportForm) error {
	if err := s.adapter.Boards().Validate(form.Board); err != nil {
		return response.NewUserInputError(err.Error())
	}

	post, err := s.adapter.GetPost(ctx, form.Board, form.Num)
	if err != nil {
		return response.NewTransientError("failed to look up post", err)
	}
	if post == nil {
		return response.NewNotFoundError("post not found")
	}

	access := constants.PublicAccessVisible
	if s.cfg.DefaultReportedAccess == constants.PublicAccessHidden {
		access = constants.PublicAccessHidden
	}

	parent, err := s.store.CreateReport(ctx, CreateReportInput{
		Board:             form.Board,
		ThreadNum:         post.ThreadNum,
		Num:               post.Num,
		Op:                post.Op,
		SubmitterIP:       form.SubmitterIP,
		SubmitterCategory: form.SubmitterCategory,
		SubmitterNotes:    form.SubmitterNotes,
		DefaultAccess:     access,
	})
	if errors.Is(err, ErrDuplicateReport) {
		return nil
	}
	if err != nil {
		return response.NewTransientError("failed to record report", err)
	}

	shouldHide := parent.PublicAccess == constants.PublicAccessHidden ||
		(s.cfg.NReportsThenHide > 0 && parent.ReportCount >= s.cfg.NReportsThenHide)
	if shouldHide {
		if err := s.hidePost(ctx, parent, post); err != nil {
			return err
		}
	}

	logger.Infow("report_created",
		"board", form.Board, "num", form.Num,
		"count", parent.ReportCount, "hidden", shouldHide)
	return nil
}

// ListReports 分页列出举报
func (s *Service) ListReports(ctx context.Context, modStatus string, boards []string, page, pageSize int) ([]models.ReportParent, int64, error) {
	if modStatus != "" && modStatus != constants.ModStatusOpen && modStatus != constants.ModStatusClosed {
		return nil, 0, response.NewUserInputError("mod_status must be open or closed")
	}
	if len(boards) > 0 {
		if err := s.adapter.Boards().ValidateAll(boards); err != nil {
			return nil, 0, response.NewUserInputError(err.Error())
		}
	}
	parents, total, err := s.store.List(ctx, modStatus, boards, page, pageSize)
	if err != nil {
		return nil, 0, response.NewTransientError("failed to list reports", err)
	}
	return parents, total, nil
}

// GetReport 取单条举报
func (s *Service) GetReport(ctx context.Context, id uint) (*models.ReportParent, error) {
	parent, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, response.NewTransientError("failed to load report", err)
	}
	if parent == nil {
		return nil, response.NewNotFoundError("report not found")
	}
	return parent, nil
}

// Apply 以 username 的身份对一条举报执行 action，返回结果描述。
// 动作幂等：重复隐藏、重复删除都给出描述而不报错。
func (s *Service) Apply(ctx context.Context, username string, reportID uint, action, modNotes string) (string, error) {
	perm, ok := actionPermissions[action]
	if !ok {
		return "", response.NewUserInputError(fmt.Sprintf("unknown action %q", action))
	}
	allowed, err := s.authz.HasPermission(ctx, username, perm)
	if err != nil {
		return "", response.NewTransientError("permission check failed", err)
	}
	if !allowed {
		return "", response.NewAuthError(fmt.Sprintf("missing permission %q", perm))
	}

	parent, err := s.store.GetByID(ctx, reportID)
	if err != nil {
		return "", response.NewTransientError("failed to load report", err)
	}
	if parent == nil {
		return "", response.NewNotFoundError("report not found")
	}

	msg, err := s.apply(ctx, parent, action, modNotes)
	if err != nil {
		return "", err
	}
	logger.Infow("report_action",
		"user", username, "action", action,
		"report_id", reportID, "board", parent.Board, "num", parent.Num)
	return msg, nil
}

// BulkOutcome 批量处理中单条举报的结果
type BulkOutcome struct {
	ReportID uint   `json:"report_id"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ApplyBulk 对多条举报执行同一动作，逐条收集结果。
// 返回值第二项表示是否既有成功又有失败。
func (s *Service) ApplyBulk(ctx context.Context, username string, reportIDs []uint, action, modNotes string) ([]BulkOutcome, bool) {
	outcomes := make([]BulkOutcome, 0, len(reportIDs))
	succeeded, failed := 0, 0
	for _, id := range reportIDs {
		msg, err := s.Apply(ctx, username, id, action, modNotes)
		if err != nil {
			failed++
			outcomes = append(outcomes, BulkOutcome{ReportID: id, Error: err.Error()})
			continue
		}
		succeeded++
		outcomes = append(outcomes, BulkOutcome{ReportID: id, Message: msg})
	}
	return outcomes, succeeded > 0 && failed > 0
}

func (s *Service) apply(ctx context.Context, parent *models.ReportParent, action, modNotes string) (string, error) {
	switch action {
	case constants.ReportActionReportDelete:
		return s.actionReportDelete(ctx, parent)
	case constants.ReportActionReportClose:
		return s.actionSetModStatus(ctx, parent, constants.ModStatusClosed, "Closed report.")
	case constants.ReportActionReportOpen:
		return s.actionSetModStatus(ctx, parent, constants.ModStatusOpen, "Opened report.")
	case constants.ReportActionReportSaveNotes:
		if _, err := s.store.SetModNotes(ctx, parent.ID, modNotes); err != nil {
			return "", response.NewTransientError("failed to save notes", err)
		}
		return "Saved report notes.", nil
	case constants.ReportActionPostHide:
		return s.actionPostHide(ctx, parent)
	case constants.ReportActionPostShow:
		return s.actionPostShow(ctx, parent)
	case constants.ReportActionPostDelete:
		return s.actionPostDelete(ctx, parent)
	case constants.ReportActionMediaHide, constants.ReportActionMediaShow, constants.ReportActionMediaDelete:
		return s.actionMedia(ctx, parent, action)
	}
	return "", response.NewUserInputError(fmt.Sprintf("unknown action %q", action))
}

// hidePost 把帖子在 report_parent、过滤缓存和媒体树三处同时隐藏
func (s *Service) hidePost(ctx context.Context, parent *models.ReportParent, post *models.Post) error {
	if _, err := s.store.SetPublicAccess(ctx, parent.ID, constants.PublicAccessHidden); err != nil {
		return response.NewTransientError("failed to hide post", err)
	}
	if err := s.fcache.InsertPost(ctx, parent.Board, parent.Num, parent.Op); err != nil {
		return response.NewTransientError("failed to update filter cache", err)
	}
	s.media.Hide(parent.Board, post)
	return nil
}

func (s *Service) actionReportDelete(ctx context.Context, parent *models.ReportParent) (string, error) {
	deleted, err := s.store.Delete(ctx, parent.ID)
	if err != nil {
		return "", response.NewTransientError("failed to delete report", err)
	}
	if deleted == nil {
		return "Report was already gone.", nil
	}
	// 举报没了就不再过滤这帖
	if err := s.fcache.DeletePost(ctx, parent.Board, parent.Num, parent.Op); err != nil {
		return "", response.NewTransientError("failed to update filter cache", err)
	}
	return "Deleted report.", nil
}

func (s *Service) actionSetModStatus(ctx context.Context, parent *models.ReportParent, status, msg string) (string, error) {
	if _, err := s.store.SetModStatus(ctx, parent.ID, status); err != nil {
		return "", response.NewTransientError("failed to update report", err)
	}
	return msg, nil
}

func (s *Service) actionPostHide(ctx context.Context, parent *models.ReportParent) (string, error) {
	if _, err := s.store.SetPublicAccess(ctx, parent.ID, constants.PublicAccessHidden); err != nil {
		return "", response.NewTransientError("failed to hide post", err)
	}
	if err := s.fcache.InsertPost(ctx, parent.Board, parent.Num, parent.Op); err != nil {
		return "", response.NewTransientError("failed to update filter cache", err)
	}
	msg := "Hid post."
	post, err := s.adapter.GetPost(ctx, parent.Board, parent.Num)
	if err != nil {
		return "", response.NewTransientError("failed to look up post", err)
	}
	if s.media.Enabled() {
		full, thumb := s.media.Hide(parent.Board, post)
		msg += mediaMessage(full, thumb, "hide")
	}
	return msg, nil
}

func (s *Service) actionPostShow(ctx context.Context, parent *models.ReportParent) (string, error) {
	if _, err := s.store.SetPublicAccess(ctx, parent.ID, constants.PublicAccessVisible); err != nil {
		return "", response.NewTransientError("failed to show post", err)
	}
	if err := s.fcache.DeletePost(ctx, parent.Board, parent.Num, parent.Op); err != nil {
		return "", response.NewTransientError("failed to update filter cache", err)
	}
	msg := "Made post visible."
	post, err := s.adapter.GetPost(ctx, parent.Board, parent.Num)
	if err != nil {
		return "", response.NewTransientError("failed to look up post", err)
	}
	if s.media.Enabled() {
		full, thumb := s.media.Show(parent.Board, post)
		msg += mediaMessage(full, thumb, "show")
	}
	return msg, nil
}

// actionPostDelete 把帖子行挪进删除表并清掉媒体。举报保留，
// 否则这帖会从全文索引的过滤名单里消失。
func (s *Service) actionPostDelete(ctx context.Context, parent *models.ReportParent) (string, error) {
	post, err := s.adapter.GetPost(ctx, parent.Board, parent.Num)
	if err != nil {
		return "", response.NewTransientError("failed to look up post", err)
	}
	if post == nil {
		return "Did not delete post, it is already gone.", nil
	}
	if err := s.adapter.MovePostToDeleteTable(ctx, parent.Board, parent.Num); err != nil {
		return "", response.NewTransientError("failed to delete post", err)
	}
	msg := "Deleted post."
	fullRemoved, thumbRemoved := s.media.Delete(parent.Board, post)
	if post.MediaOrig != "" {
		if fullRemoved {
			msg += " Deleted full media."
		} else {
			msg += " Did not delete full media."
		}
	}
	if post.PreviewOrig != "" {
		if thumbRemoved {
			msg += " Deleted thumbnail."
		} else {
			msg += " Did not delete thumbnail."
		}
	}
	return msg, nil
}

func (s *Service) actionMedia(ctx context.Context, parent *models.ReportParent, action string) (string, error) {
	post, err := s.adapter.GetPost(ctx, parent.Board, parent.Num)
	if err != nil {
		return "", response.NewTransientError("failed to look up post", err)
	}
	var full, thumb bool
	verb := "delete"
	switch action {
	case constants.ReportActionMediaHide:
		verb = "hide"
		full, thumb = s.media.Hide(parent.Board, post)
	case constants.ReportActionMediaShow:
		verb = "show"
		full, thumb = s.media.Show(parent.Board, post)
	default:
		full, thumb = s.media.Delete(parent.Board, post)
	}
	return "Processed media." + mediaMessage(full, thumb, verb), nil
}

var mediaVerbPast = map[string]string{
	"hide":   "Hid",
	"show":   "Showed",
	"delete": "Deleted",
}

// mediaMessage 按搬移结果拼出版务提示；缺源文件只是提示，不是错误
func mediaMessage(full, thumb bool, verb string) string {
	msg := ""
	if full {
		msg += " " + mediaVerbPast[verb] + " full media."
	} else {
		msg += " Did not " + verb + " full media."
	}
	if thumb {
		msg += " " + mediaVerbPast[verb] + " thumbnail."
	} else {
		msg += " Did not " + verb + " thumbnail."
	}
	return msg
}
