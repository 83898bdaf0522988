package worker

import (
	"context"
	"sync"
	"time"

	"gamevault/pkg/logger"
	"gamevault/pkg/metrics"

	"go.uber.org/zap"
)

// PointsTask 给用户加积分
type PointsTask struct {
	UserID string
	Points int
	Reason string
	Retry  int // 重试次数
}

// PointsAwarder 实际执行加分的存储
type PointsAwarder interface {
	IncrementPoints(ctx context.Context, userID string, points int) error
}

type WorkerPool struct {
	TaskQueue  chan PointsTask
	RetryQueue chan PointsTask // 重试队列
	Awarder    PointsAwarder
	WorkerNum  int
	MaxRetry   int           // 最大重试次数
	RetryDelay time.Duration // 第 n 次重试前等待 n*RetryDelay

	wg sync.WaitGroup
}

func NewWorkerPool(awarder PointsAwarder, workerNum int, bufferSize int) *WorkerPool {
	retrySize := bufferSize / 2
	if retrySize < 1 {
		retrySize = 1
	}
	return &WorkerPool{
		TaskQueue:  make(chan PointsTask, bufferSize),
		RetryQueue: make(chan PointsTask, retrySize),
		Awarder:    awarder,
		WorkerNum:  workerNum,
		MaxRetry:   3, // 最多重试3次
		RetryDelay: time.Second,
	}
}

// Start 启动 worker，ctx 结束后全部退出，队列中未处理的任务丢弃
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.WorkerNum; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	// 启动重试处理协程
	p.wg.Add(1)
	go p.retryWorker(ctx)
	logger.Log.Info("Worker pool started", zap.Int("workers", p.WorkerNum))
}

// Wait 等待所有协程退出
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-p.TaskQueue:
			p.handle(ctx, id, task)
		}
	}
}

func (p *WorkerPool) handle(ctx context.Context, id int, task PointsTask) {
	err := p.Awarder.IncrementPoints(ctx, task.UserID, task.Points)
	if err == nil {
		metrics.Default().RecordTask("points", "done")
		logger.Log.Debug("Points awarded",
			zap.String("user_id", task.UserID),
			zap.Int("points", task.Points),
			zap.String("reason", task.Reason))
		return
	}

	logger.Log.Warn("Points task failed",
		zap.Int("worker", id),
		zap.String("user_id", task.UserID),
		zap.Int("attempt", task.Retry),
		zap.Error(err))

	// 如果未达到最大重试次数，加入重试队列
	if task.Retry < p.MaxRetry {
		task.Retry++
		select {
		case p.RetryQueue <- task:
			metrics.Default().RecordTask("points", "retry")
		default:
			p.logFailedTask(task, err)
		}
		return
	}
	p.logFailedTask(task, err)
}

func (p *WorkerPool) retryWorker(ctx context.Context) {
	defer p.wg.Done()
	for {
		var task PointsTask
		select {
		case <-ctx.Done():
			return
		case task = <-p.RetryQueue:
		}

		// 延迟重试，避免立即重试
		timer := time.NewTimer(time.Duration(task.Retry) * p.RetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		// 重新加入主队列
		select {
		case p.TaskQueue <- task:
		default:
			p.logFailedTask(task, nil)
		}
	}
}

func (p *WorkerPool) logFailedTask(task PointsTask, err error) {
	metrics.Default().RecordTask("points", "dropped")
	logger.Log.Error("Points task dropped",
		zap.String("user_id", task.UserID),
		zap.Int("points", task.Points),
		zap.String("reason", task.Reason),
		zap.Int("attempts", task.Retry),
		zap.Error(err))
}

// AddTask 入队，队列满时丢弃并返回 false
func (p *WorkerPool) AddTask(task PointsTask) bool {
	select {
	case p.TaskQueue <- task:
		return true
	default:
		p.logFailedTask(task, nil)
		return false
	}
}
