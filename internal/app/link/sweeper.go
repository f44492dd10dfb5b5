package link

import (
	"context"
	"log/slog"
	"time"

	"linkcut.local/internal/platform/metrics"
)

// Sweeper 周期性批量停用已过期但仍 active 的记录。
//
// 与 Resolve 的惰性过期可能在同一条记录上赛跑，但两者都是幂等地把
// active 翻成 false，先后顺序无关紧要，不需要额外协调。
// 作为独立后台任务运行，绝不占用请求处理路径。
type Sweeper struct {
	store    Store
	interval time.Duration
	now      func() time.Time
}

// NewSweeper 构造清理任务。interval<=0 时取默认 1 小时。
func NewSweeper(store Store, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{store: store, interval: interval, now: time.Now}
}

// Run 阻塞运行清理循环，ctx 取消后返回。
// 单次失败只记日志，下个周期自然重试，不会让进程退出。
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep 执行一轮批量停用，返回本轮翻转条数。
// 条数为 0 时不输出日志。
func (s *Sweeper) Sweep(ctx context.Context) int64 {
	count, err := s.store.BulkDeactivateExpired(ctx, s.now())
	if err != nil {
		slog.Error("cleanup sweep failed", "err", err)
		return 0
	}
	if count > 0 {
		slog.Info("deactivated expired links", "count", count)
		metrics.CleanupDeactivatedTotal.Add(float64(count))
	}
	return count
}
