package repo

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"linkcut.local/internal/app/link"
	"linkcut.local/internal/app/link/cache"
)

// LinksRepo 是 link.Store 的 Postgres 实现。
//
// links.code 上的唯一约束是防碰撞的最后防线；布隆过滤器只是生成器存在性
// 检查的预过滤，Redis 负缓存只挡跳转路径上的无效短码扫描。
type LinksRepo struct {
	db     *pgxpool.Pool
	filter *cache.CodeFilter
	misses *cache.MissCache
}

func NewLinksRepo(db *pgxpool.Pool, filter *cache.CodeFilter, misses *cache.MissCache) *LinksRepo {
	return &LinksRepo{db: db, filter: filter, misses: misses}
}

// WarmCodeFilter 启动时把已有短码灌进布隆过滤器。
func (r *LinksRepo) WarmCodeFilter(ctx context.Context) error {
	if r.filter == nil {
		return nil
	}
	dbctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rows, err := r.db.Query(dbctx, `SELECT code FROM links`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var n int
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return err
		}
		r.filter.Add(code)
		n++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	slog.Info("code filter warmed", "codes", n)
	return nil
}

func (r *LinksRepo) Save(ctx context.Context, l *link.Link) error {
	dbctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.db.Exec(dbctx,
		`INSERT INTO links (code, target_url, created_at, expires_at, click_count, active)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		l.Code, l.TargetURL, l.CreatedAt, l.ExpiresAt, l.ClickCount, l.Active)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return link.ErrCodeExists
		}
		slog.Error("insert link failed", "err", err)
		return err
	}

	if r.filter != nil {
		r.filter.Add(l.Code)
	}
	// 覆盖负缓存：创建成功后立刻清掉，避免新码在 TTL 内被当成不存在。
	if r.misses != nil {
		cacheCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		_ = r.misses.Invalidate(cacheCtx, l.Code)
	}
	return nil
}

func (r *LinksRepo) FindByCode(ctx context.Context, code string) (*link.Link, error) {
	dbctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	var l link.Link
	err := r.db.QueryRow(dbctx,
		`SELECT code, target_url, created_at, expires_at, click_count, active
		 FROM links WHERE code=$1`, code).
		Scan(&l.Code, &l.TargetURL, &l.CreatedAt, &l.ExpiresAt, &l.ClickCount, &l.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, link.ErrNotFound
		}
		slog.Error("find link failed", "err", err)
		return nil, err
	}
	return &l, nil
}

func (r *LinksRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	// 布隆过滤器说"一定不存在"时省掉一次数据库往返。
	// 误判为存在只浪费生成器的一次尝试；别的实例写入造成的漏判由
	// Save 时的唯一约束兜底。
	if r.filter != nil && !r.filter.MightContain(code) {
		return false, nil
	}

	dbctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	var exists bool
	err := r.db.QueryRow(dbctx, `SELECT EXISTS(SELECT 1 FROM links WHERE code=$1)`, code).Scan(&exists)
	if err != nil {
		slog.Error("exists check failed", "err", err)
		return false, err
	}
	return exists, nil
}

// IncrementIfLive 把"还存活就计数+1 并取回目标 URL"压成一条条件更新。
// 两个并发跳转各自拿到一行更新结果，计数不会丢；过期后的请求匹配不到行。
func (r *LinksRepo) IncrementIfLive(ctx context.Context, code string, now time.Time) (string, error) {
	if r.misses != nil && r.misses.Contains(ctx, code) {
		return "", link.ErrNotFound
	}

	dbctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	var target string
	err := r.db.QueryRow(dbctx,
		`UPDATE links SET click_count = click_count + 1
		 WHERE code=$1 AND active=true AND expires_at >= $2
		 RETURNING target_url`, code, now).
		Scan(&target)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", link.ErrNotFound
		}
		slog.Error("increment click failed", "err", err)
		return "", err
	}
	return target, nil
}

// DeactivateIfExpired 惰性过期翻转；与清理任务赛跑也只会有一方真正翻转。
func (r *LinksRepo) DeactivateIfExpired(ctx context.Context, code string, now time.Time) (bool, error) {
	dbctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	tag, err := r.db.Exec(dbctx,
		`UPDATE links SET active=false WHERE code=$1 AND active=true AND expires_at < $2`,
		code, now)
	if err != nil {
		slog.Error("lazy deactivate failed", "err", err)
		return false, err
	}

	// 这个短码确定不可跳转了，进负缓存。
	if r.misses != nil {
		cacheCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		_ = r.misses.MarkNotFound(cacheCtx, code)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *LinksRepo) Deactivate(ctx context.Context, code string) (bool, error) {
	dbctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	tag, err := r.db.Exec(dbctx, `UPDATE links SET active=false WHERE code=$1 AND active=true`, code)
	if err != nil {
		slog.Error("deactivate failed", "err", err)
		return false, err
	}
	if tag.RowsAffected() > 0 {
		if r.misses != nil {
			cacheCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel()
			_ = r.misses.MarkNotFound(cacheCtx, code)
		}
		return true, nil
	}

	// 没更新到行：要么不存在，要么已停用（幂等返回）。
	var exists bool
	if err := r.db.QueryRow(dbctx, `SELECT EXISTS(SELECT 1 FROM links WHERE code=$1)`, code).Scan(&exists); err != nil {
		slog.Error("deactivate existence check failed", "err", err)
		return false, err
	}
	if !exists {
		return false, link.ErrNotFound
	}
	return false, nil
}

// BulkDeactivateExpired 单条批量更新，整批原子翻转。
func (r *LinksRepo) BulkDeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	dbctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tag, err := r.db.Exec(dbctx,
		`UPDATE links SET active=false WHERE active=true AND expires_at < $1`, now)
	if err != nil {
		slog.Error("bulk deactivate failed", "err", err)
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *LinksRepo) CountAll(ctx context.Context) (int64, error) {
	dbctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var n int64
	err := r.db.QueryRow(dbctx, `SELECT COUNT(*) FROM links`).Scan(&n)
	return n, err
}

func (r *LinksRepo) SumClicks(ctx context.Context) (int64, error) {
	dbctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var n int64
	err := r.db.QueryRow(dbctx, `SELECT COALESCE(SUM(click_count), 0) FROM links`).Scan(&n)
	return n, err
}

func (r *LinksRepo) CountLiveAsOf(ctx context.Context, now time.Time) (int64, error) {
	dbctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var n int64
	err := r.db.QueryRow(dbctx,
		`SELECT COUNT(*) FROM links WHERE active=true AND expires_at >= $1`, now).Scan(&n)
	return n, err
}
