package models

// Post 归档帖子的统一记录；行实际按板块分表存储，
// 本结构是各板块表列经选择器重命名后的共同形态。
// 可空文本列用空串表示缺省，可空数值列用 0 表示缺省。
type Post struct {
	Board     string `json:"board"`
	Num       uint32 `json:"num"`
	ThreadNum uint32 `json:"thread_num"`
	Op        bool   `json:"op"`
	TsUnix    uint32 `json:"ts_unix"`
	TsExpired uint32 `json:"ts_expired"`

	Name    string `json:"name"`
	Trip    string `json:"trip"`
	Title   string `json:"title"`
	Comment string `json:"comment"`

	Capcode       string `json:"capcode"`
	PosterCountry string `json:"poster_country"`
	PosterHash    string `json:"poster_hash"`

	Sticky  bool   `json:"sticky"`
	Locked  bool   `json:"locked"`
	Deleted string `json:"deleted"` // "0"/"1"，版务隐藏时替换为仅限员工可见的标记

	MediaFilename string `json:"media_filename"`
	MediaOrig     string `json:"media_orig"`
	PreviewOrig   string `json:"preview_orig"`
	MediaHash     string `json:"media_hash"`
	MediaSize     uint32 `json:"media_size"`
	MediaW        uint32 `json:"media_w"`
	MediaH        uint32 `json:"media_h"`
	PreviewW      uint32 `json:"preview_w"`
	PreviewH      uint32 `json:"preview_h"`
	Spoiler       bool   `json:"spoiler"`
	Exif          string `json:"exif"`

	// 渲染产物，不参与编解码
	CommentHTML string `json:"comment_html,omitempty"`

	// 仅线程查询会填充的线程汇总
	NReplies uint32 `json:"nreplies,omitempty"`
	NImages  uint32 `json:"nimages,omitempty"`
}

// IsDeleted 判断上游删除标记是否为真
func (p *Post) IsDeleted() bool {
	return p.Deleted != "" && p.Deleted != "0"
}

// Thread 线程视图：OP 与回帖的有序集合
type Thread struct {
	Posts []*Post `json:"posts"`
}

// BoardPage 板块页视图
type BoardPage struct {
	Threads    []*Thread           `json:"threads"`
	Quotelinks map[uint32][]uint32 `json:"quotelinks"`
}
