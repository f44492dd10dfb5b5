package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// New 创建 Postgres 连接池。池级别的超时/容量由 DSN 参数控制。
func New(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	return pgxpool.NewWithConfig(ctx, cfg)
}
