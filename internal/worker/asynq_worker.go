package worker

import (
	"context"
	"encoding/json"

	"github.com/ayase-lite/ayase-lite/internal/asagi"
	"github.com/ayase-lite/ayase-lite/internal/cache"
	"github.com/ayase-lite/ayase-lite/internal/loader"
	"github.com/ayase-lite/ayase-lite/internal/logger"
	"github.com/ayase-lite/ayase-lite/internal/provider"
	"github.com/ayase-lite/ayase-lite/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskIncrementalLoad, c.handleIncrementalLoad)
	mux.HandleFunc(queue.TaskReportCreated, c.handleReportCreated)
}

func (c *Consumer) handleIncrementalLoad(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_incremental_load_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.IncrementalLoadPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_incremental_load_unmarshal_failed", "error", err)
		return err
	}
	if c.IndexProvider == nil {
		logger.Debugw("worker_incremental_load_skip_index_disabled")
		return nil
	}
	boards := targetBoards(payload.Boards, c.Boards)
	if len(boards) == 0 {
		logger.Debugw("worker_incremental_load_skip_no_boards")
		return nil
	}
	l := loader.NewLoader(c.Adapter, c.IndexProvider)
	if err := l.LoadIncremental(ctx, boards); err != nil {
		logger.Warnw("worker_incremental_load_failed", "boards", boards, "error", err)
		return err
	}
	logger.Infow("worker_incremental_load_done", "boards", boards)
	return nil
}

func (c *Consumer) handleReportCreated(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_report_created_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ReportCreatedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_report_created_unmarshal_failed", "error", err)
		return err
	}
	if payload.Board == "" || payload.Num == 0 {
		logger.Debugw("worker_report_created_skip_invalid_payload", "board", payload.Board, "num", payload.Num)
		return nil
	}
	if !c.Boards.Contains(payload.Board) {
		logger.Debugw("worker_report_created_skip_unknown_board", "board", payload.Board)
		return nil
	}
	// 被举报的帖子可能已经进入隐藏列表，清掉板块页缓存避免继续渲染旧内容
	if err := cache.InvalidateBoard(ctx, payload.Board); err != nil {
		logger.Warnw("worker_report_created_invalidate_failed", "board", payload.Board, "error", err)
	}
	logger.Infow("worker_report_created_done", "board", payload.Board, "num", payload.Num)
	return nil
}

// targetBoards 把任务里的板块列表收敛到配置允许的范围，空列表表示全部板块
func targetBoards(requested []string, boards *asagi.Boards) []string {
	if boards == nil {
		return nil
	}
	if len(requested) == 0 {
		return boards.All()
	}
	out := make([]string, 0, len(requested))
	for _, board := range requested {
		if boards.Contains(board) {
			out = append(out, board)
		}
	}
	return out
}
