package queue

import (
	"encoding/json"

	"github.com/ayase-lite/ayase-lite/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskIncrementalLoad 增量索引加载任务
	TaskIncrementalLoad = constants.TaskIncrementalLoad
	// TaskReportCreated 新举报后处理任务
	TaskReportCreated = constants.TaskReportCreated
)

// IncrementalLoadPayload 增量加载任务载荷；板块列表为空表示全部板块
type IncrementalLoadPayload struct {
	Boards []string `json:"boards"`
}

// ReportCreatedPayload 举报后处理任务载荷
type ReportCreatedPayload struct {
	Board string `json:"board"`
	Num   uint32 `json:"num"`
}

// NewIncrementalLoadTask 创建增量加载任务
func NewIncrementalLoadTask(payload IncrementalLoadPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIncrementalLoad, body), nil
}

// NewReportCreatedTask 创建举报后处理任务
func NewReportCreatedTask(payload ReportCreatedPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportCreated, body), nil
}
