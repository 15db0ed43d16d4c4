package loader

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ayase-lite/ayase-lite/internal/asagi"
	"github.com/ayase-lite/ayase-lite/internal/codec"
	"github.com/ayase-lite/ayase-lite/internal/index"
	"github.com/ayase-lite/ayase-lite/internal/logger"
	"github.com/ayase-lite/ayase-lite/internal/models"
)

// 线程批的甜点区间在 20-100 之间：批越大磁盘吞吐越好、
// 同步开销越小，批越小索引命中越好、查询越短。
const (
	threadBatch     = 80
	threadBatchMult = 20
	postBatch       = 5000

	extractWorkers   = 8
	transformWorkers = 6
	insertWorkers    = 5

	// 队列封顶，不让进程内存随装载量无界增长
	rowsQueueDepth  = transformWorkers * 15
	postsQueueDepth = insertWorkers * 20

	progressInterval = 5 * time.Second
)

// Loader 把归档库整板灌进全文索引的装载管线。
// 四级流水：线程号扫描 -> 行抽取 -> 文档转换 -> 批量写入，
// 级间用有界通道衔接，逐级关闭排空。
type Loader struct {
	adapter  *asagi.Adapter
	provider index.Provider
}

// NewLoader 创建装载管线
func NewLoader(adapter *asagi.Adapter, provider index.Provider) *Loader {
	return &Loader{adapter: adapter, provider: provider}
}

// encodedBatch 预序列化的文档批；批本身已是字节堆，长度得单独带着
type encodedBatch struct {
	count int
	raw   []byte
}

// LoadFull 清空索引后重灌全部板块
func (l *Loader) LoadFull(ctx context.Context, boards []string) error {
	if err := l.provider.PostsWipe(ctx); err != nil {
		logger.Warnw("index_wipe_failed", "error", err)
	}
	if err := l.provider.InitIndexes(ctx); err != nil {
		return fmt.Errorf("index init failed: %w", err)
	}
	for _, board := range boards {
		if err := l.loadBoard(ctx, board, 0); err != nil {
			return fmt.Errorf("board %s load failed: %w", board, err)
		}
	}
	return nil
}

// LoadIncremental 以索引中各板块的最大帖号为断点续灌
func (l *Loader) LoadIncremental(ctx context.Context, boards []string) error {
	for _, board := range boards {
		lastNum, err := l.provider.BoardLastNum(ctx, board)
		if err != nil {
			return fmt.Errorf("board %s resume point lookup failed: %w", board, err)
		}
		if err := l.loadBoard(ctx, board, lastNum); err != nil {
			return fmt.Errorf("board %s load failed: %w", board, err)
		}
	}
	return nil
}

func (l *Loader) loadBoard(ctx context.Context, board string, afterThreadNum uint32) error {
	start := time.Now()
	var postsIndexed atomic.Int64
	var batchesQueued atomic.Int64

	threadC := make(chan []uint32, threadBatchMult)
	rowsC := make(chan []*models.Post, rowsQueueDepth)
	postC := make(chan encodedBatch, postsQueueDepth)

	g, ctx := errgroup.WithContext(ctx)

	progressCtx, stopProgress := context.WithCancel(ctx)
	defer stopProgress()
	go func() {
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-progressCtx.Done():
				return
			case <-ticker.C:
				logger.Infow("index_load_progress",
					"board", board,
					"posts", postsIndexed.Load(),
					"batches_queued", batchesQueued.Load(),
					"elapsed", time.Since(start).Round(time.Second).String())
			}
		}
	}()

	// 线程号扫描只要一个
	g.Go(func() error {
		defer close(threadC)
		return l.scanThreadNums(ctx, board, afterThreadNum, threadC)
	})

	var extractWG sync.WaitGroup
	for i := 0; i < extractWorkers; i++ {
		extractWG.Add(1)
		g.Go(func() error {
			defer extractWG.Done()
			return l.extract(ctx, board, threadC, rowsC)
		})
	}
	go func() {
		extractWG.Wait()
		close(rowsC)
	}()

	var transformWG sync.WaitGroup
	for i := 0; i < transformWorkers; i++ {
		transformWG.Add(1)
		g.Go(func() error {
			defer transformWG.Done()
			return l.transform(ctx, board, rowsC, postC, &batchesQueued)
		})
	}
	go func() {
		transformWG.Wait()
		close(postC)
	}()

	for i := 0; i < insertWorkers; i++ {
		g.Go(func() error {
			return l.insert(ctx, postC, &postsIndexed, &batchesQueued)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Infow("index_load_board_done",
		"board", board,
		"posts", postsIndexed.Load(),
		"after_thread_num", afterThreadNum,
		"took", time.Since(start).Round(time.Millisecond).String())
	return nil
}

// scanThreadNums 键集翻页扫线程号，按 threadBatch 切块下发
func (l *Loader) scanThreadNums(ctx context.Context, board string, after uint32, out chan<- []uint32) error {
	scanSize := threadBatch * threadBatchMult
	for {
		threadNums, err := l.adapter.GetThreadNumsAfter(ctx, board, after, scanSize)
		if err != nil {
			return err
		}
		if len(threadNums) == 0 {
			return nil
		}
		for start := 0; start < len(threadNums); start += threadBatch {
			end := start + threadBatch
			if end > len(threadNums) {
				end = len(threadNums)
			}
			select {
			case out <- threadNums[start:end]:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if len(threadNums) < scanSize {
			return nil
		}
		after = threadNums[len(threadNums)-1]
	}
}

// extract 数据库侧：整批线程的帖子一把捞出
func (l *Loader) extract(ctx context.Context, board string, in <-chan []uint32, out chan<- []*models.Post) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case threadNums, ok := <-in:
			if !ok {
				return nil
			}
			posts, err := l.adapter.GetThreadPosts(ctx, board, threadNums)
			if err != nil {
				return err
			}
			select {
			case out <- posts:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// transform CPU 侧：构建文档、打包载荷并预序列化成后端批量格式
func (l *Loader) transform(ctx context.Context, board string, in <-chan []*models.Post, out chan<- encodedBatch, queued *atomic.Int64) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case posts, ok := <-in:
			if !ok {
				return nil
			}
			docs, err := BuildDocuments(board, posts)
			if err != nil {
				return err
			}
			for start := 0; start < len(docs); start += postBatch {
				end := start + postBatch
				if end > len(docs) {
					end = len(docs)
				}
				raw, err := l.provider.EncodeBatch(docs[start:end])
				if err != nil {
					return err
				}
				select {
				case out <- encodedBatch{count: end - start, raw: raw}:
					queued.Add(1)
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

// insert 搜索引擎侧：推送预序列化批次
func (l *Loader) insert(ctx context.Context, in <-chan encodedBatch, indexed, queued *atomic.Int64) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-in:
			if !ok {
				return nil
			}
			if err := l.provider.AddPostsBytes(ctx, batch.raw, batch.count); err != nil {
				return err
			}
			indexed.Add(int64(batch.count))
			queued.Add(-1)
		}
	}
}

// BuildDocuments 把一批完整线程的帖子转为索引文档。
// 线程在批内完整，评论里的引用都能在同批找到。
func BuildDocuments(board string, posts []*models.Post) ([]*index.Document, error) {
	boardU32 := codec.BoardToU32(board)

	docs := make([]*index.Document, 0, len(posts))
	for _, post := range posts {
		data, err := codec.Pack(post)
		if err != nil {
			return nil, fmt.Errorf("post %s/%d pack failed: %w", board, post.Num, err)
		}
		docs = append(docs, &index.Document{
			PK:            strconv.FormatUint(codec.BoardU32NumToPK(boardU32, post.Num), 10),
			Title:         post.Title,
			Comment:       post.Comment,
			Board:         boardU32,
			ThreadNum:     post.ThreadNum,
			Num:           post.Num,
			Timestamp:     post.TsUnix,
			MediaFilename: post.MediaFilename,
			MediaHash:     post.MediaHash,
			MediaW:        post.MediaW,
			MediaH:        post.MediaH,
			Trip:          post.Trip,
			Capcode:       post.Capcode,
			Op:            post.Op,
			Deleted:       post.IsDeleted(),
			Sticky:        post.Sticky,
			Data:          data,
		})
	}
	return docs, nil
}
