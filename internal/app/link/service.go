package link

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	// ErrNotFound 统一表示"不可跳转"：未知短码、已停用、已过期对调用方
	// 刻意不可区分，避免泄露短码是否存在过。
	ErrNotFound = errors.New("link not found")
	// ErrCodeExists 表示保存时撞上存储层的 code 唯一约束。
	ErrCodeExists = errors.New("short code already exists")
)

// Store 定义链接存储接口（外部协作者）。
//
// 设计考量：
// - 用接口而非具体实现：方便单元测试（内存假实现），也支持换存储
// - 所有可变状态都走这里，跨请求不允许进程内缓存记录状态
type Store interface {
	// Save 持久化一条新记录；code 冲突时返回 ErrCodeExists。
	Save(ctx context.Context, l *Link) error

	// FindByCode 按短码查记录（不管 active 与否）；不存在返回 ErrNotFound。
	FindByCode(ctx context.Context, code string) (*Link, error)

	// ExistsByCode 查短码是否已被占用。
	ExistsByCode(ctx context.Context, code string) (bool, error)

	// IncrementIfLive 是跳转路径的原子单元："还存活就把点击数+1 并返回目标
	// URL"必须在存储层一条条件更新里完成，两个并发跳转不能都看到旧计数。
	// 没有存活记录（不存在/已停用/已过期）返回 ErrNotFound。
	IncrementIfLive(ctx context.Context, code string, now time.Time) (string, error)

	// DeactivateIfExpired 惰性过期翻转：active 且已过期才置 false。
	// 幂等，返回这次调用是否真的翻转了。
	DeactivateIfExpired(ctx context.Context, code string, now time.Time) (bool, error)

	// BulkDeactivateExpired 把所有 active 且已过期的记录一次性置为
	// inactive（单条原子批量更新），返回翻转条数。
	BulkDeactivateExpired(ctx context.Context, now time.Time) (int64, error)

	// Deactivate 无条件停用一条记录（管理操作）。幂等；记录不存在时
	// 返回 ErrNotFound。
	Deactivate(ctx context.Context, code string) (bool, error)

	CountAll(ctx context.Context) (int64, error)
	SumClicks(ctx context.Context) (int64, error)
	CountLiveAsOf(ctx context.Context, now time.Time) (int64, error)
}

// 保存撞唯一约束后的整体重试次数（重新生成短码再保存）。
const maxSaveRetries = 3

// Service 是链接生命周期的编排者：创建、跳转解析、统计、过期规则。
type Service struct {
	store     Store
	validator *Validator
	generator *Generator
	baseURL   string
	defaultExpiration time.Duration
	now               func() time.Time
}

// NewService 构造服务。defaultExpirationHours<=0 时取默认 24。
func NewService(store Store, v *Validator, g *Generator, baseURL string, defaultExpirationHours int) *Service {
	if defaultExpirationHours <= 0 {
		defaultExpirationHours = 24
	}
	return &Service{
		store:             store,
		validator:         v,
		generator:         g,
		baseURL:           baseURL,
		defaultExpiration: time.Duration(defaultExpirationHours) * time.Hour,
		now:               time.Now,
	}
}

// Create 校验并净化 rawURL，生成短码，落库，返回对外视图。
//
// expirationHours 为 nil 时取默认值；提供时必须为正整数（不设上限）。
// 校验失败立刻终止，不触碰存储；保存撞码则重新生成短码有界重试。
func (s *Service) Create(ctx context.Context, rawURL string, expirationHours *int) (View, error) {
	sanitized := s.validator.Sanitize(rawURL)
	if err := s.validator.Validate(sanitized); err != nil {
		return View{}, err
	}

	expiration := s.defaultExpiration
	if expirationHours != nil {
		if *expirationHours <= 0 {
			return View{}, ErrBadExpiration
		}
		expiration = time.Duration(*expirationHours) * time.Hour
	}

	var l *Link
	for attempt := 0; ; attempt++ {
		code, err := s.generator.Generate(ctx)
		if err != nil {
			return View{}, fmt.Errorf("generate code: %w", err)
		}

		now := s.now()
		l = &Link{
			Code:       code,
			TargetURL:  sanitized,
			CreatedAt:  now,
			ExpiresAt:  now.Add(expiration),
			ClickCount: 0,
			Active:     true,
		}
		err = s.store.Save(ctx, l)
		if err == nil {
			break
		}
		// 生成器的存在性检查只是预过滤；唯一约束冲突在这里恢复。
		if errors.Is(err, ErrCodeExists) && attempt < maxSaveRetries-1 {
			slog.Warn("short code collided at save, regenerating", "code", code)
			continue
		}
		return View{}, fmt.Errorf("save link: %w", err)
	}

	slog.Info("created short link", "code", l.Code, "target", l.TargetURL, "expires_at", l.ExpiresAt)
	return NewView(l, s.baseURL, s.now()), nil
}

// Resolve 按短码解析目标 URL 并计一次点击。
//
// 读取-判断-更新在存储层是一条原子条件更新；没拿到存活行时再做一次幂等的
// 惰性过期翻转（翻没翻转都返回 ErrNotFound）。跳转失败绝不改动除这次翻转
// 以外的任何状态。
func (s *Service) Resolve(ctx context.Context, code string) (string, error) {
	now := s.now()
	target, err := s.store.IncrementIfLive(ctx, code, now)
	if err == nil {
		return target, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	flipped, dErr := s.store.DeactivateIfExpired(ctx, code, now)
	if dErr != nil && !errors.Is(dErr, ErrNotFound) {
		slog.Error("lazy expiry failed", "code", code, "err", dErr)
	}
	if flipped {
		slog.Info("link expired", "code", code)
	}
	return "", ErrNotFound
}

// Stats 返回单条短链的视图，无论其 active 与否；纯读取，不做惰性过期。
func (s *Service) Stats(ctx context.Context, code string) (View, error) {
	l, err := s.store.FindByCode(ctx, code)
	if err != nil {
		return View{}, err
	}
	return NewView(l, s.baseURL, s.now()), nil
}

// SystemStats 返回全局聚合：总链接数、总点击数、当前存活链接数。
func (s *Service) SystemStats(ctx context.Context) (SystemStats, error) {
	total, err := s.store.CountAll(ctx)
	if err != nil {
		return SystemStats{}, err
	}
	clicks, err := s.store.SumClicks(ctx)
	if err != nil {
		return SystemStats{}, err
	}
	live, err := s.store.CountLiveAsOf(ctx, s.now())
	if err != nil {
		return SystemStats{}, err
	}
	return SystemStats{TotalLinks: total, TotalClicks: clicks, ActiveLinks: live}, nil
}

// Disable 手动停用一条短链（管理接口用）。幂等：已停用时不报错。
func (s *Service) Disable(ctx context.Context, code string) error {
	flipped, err := s.store.Deactivate(ctx, code)
	if err != nil {
		return err
	}
	if flipped {
		slog.Info("link disabled", "code", code)
	}
	return nil
}
