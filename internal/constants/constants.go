package constants

// 举报公开状态常量
const (
	PublicAccessVisible = "visible"
	PublicAccessHidden  = "hidden"
)

// 举报处理状态常量
const (
	ModStatusOpen   = "open"
	ModStatusClosed = "closed"
)

// 举报操作动作常量
const (
	ReportActionReportDelete    = "report_delete"
	ReportActionReportClose     = "report_close"
	ReportActionReportOpen      = "report_open"
	ReportActionReportSaveNotes = "report_save_notes"
	ReportActionPostShow        = "post_show"
	ReportActionPostHide        = "post_hide"
	ReportActionPostDelete      = "post_delete"
	ReportActionMediaShow       = "media_show"
	ReportActionMediaHide       = "media_hide"
	ReportActionMediaDelete     = "media_delete"
)

// 版务权限常量
const (
	PermReportDelete    = "report_delete"
	PermReportClose     = "report_close"
	PermReportOpen      = "report_open"
	PermReportSaveNotes = "report_save_notes"
	PermPostShow        = "post_show"
	PermPostHide        = "post_hide"
	PermPostDelete      = "post_delete"
	PermMediaShow       = "media_show"
	PermMediaHide       = "media_hide"
	PermMediaDelete     = "media_delete"
	PermUserAdmin       = "user_admin"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 帖子身份标识常量（capcode）
const (
	CapcodeUser      = "user"
	CapcodeFounder   = "founder"
	CapcodeDev       = "dev"
	CapcodeAdmin     = "admin"
	CapcodeModerator = "moderator"
	CapcodeManager   = "manager"
	CapcodeVerified  = "verified"
)

// 过滤缓存后端常量
const (
	FilterCacheSQLite = "sqlite"
	FilterCacheRedis  = "redis"
	FilterCacheNull   = "null"
)

// 索引搜索提供方常量
const (
	IndexProviderMeili     = "meili"
	IndexProviderTypesense = "typesense"
	IndexProviderManticore = "manticore"
	IndexProviderLnx       = "lnx"
	IndexProviderQuickwit  = "quickwit"
)

// 隐藏帖子在权限视角下的删除字段标记
const StaffOnlyDeletedMarker = "USER_DELETED,MOD_HIDDEN"

// 搜索结果高亮标记；需在 HTML 转义后仍保持原样
const (
	HighlightPre  = "||sr_hl_cls_start||"
	HighlightPost = "||sr_hl_cls_end||"
)

// 高亮 span 的 class 名
const HighlightClass = "hl_magenta"

// 队列常量
const (
	QueueDefault        = "default"
	TaskIncrementalLoad = "index:incremental_load"
	TaskReportCreated   = "report:created"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "aq"
)

// Redis 过滤缓存子键常量
const (
	RedisSubkeyDeleted  = "del"
	RedisSubkeyReported = "rep"
	RedisSubkeyOpCount  = "opc"
)

// 排序方向常量
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)
