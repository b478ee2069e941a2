package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"ratecast/internal/application/port"
	"ratecast/internal/infrastructure/config"
	"ratecast/internal/infrastructure/storage/composite"
	pgrepo "ratecast/internal/infrastructure/storage/postgres"
	redisrepo "ratecast/internal/infrastructure/storage/redis"
	sqliterepo "ratecast/internal/infrastructure/storage/sqlite"
	"ratecast/internal/infrastructure/svc"
)

// Container 包含所有基础设施依赖
type Container struct {
	cfg         *config.Config
	redisClient *redis.Client
	sqliteRepo  *sqliterepo.Repo
	redisRepo   *redisrepo.Repo
	pgRepo      *pgrepo.Repo
	closeOnce   sync.Once
	closerChain []func() error
}

// New 创建新的容器实例
func New(cfg *config.Config) (*Container, error) {
	c := &Container{
		cfg:         cfg,
		closerChain: make([]func() error, 0),
	}

	if cfg.NeedsRedis() {
		if err := c.initRedis(); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("%w: redis init failed: %v", svc.ErrStorageInitFailed, err)
		}
	}

	// 初始化存储层
	if cfg.Storage.Enabled {
		if err := c.initStorage(); err != nil {
			// 清理已初始化的资源
			_ = c.Close()
			return nil, fmt.Errorf("%w: %v", svc.ErrStorageInitFailed, err)
		}
	}

	return c, nil
}

// initStorage 初始化快照归档（Redis、SQLite、Postgres）
func (c *Container) initStorage() error {
	if c.cfg.Storage.Redis.Enabled {
		c.redisRepo = redisrepo.New(
			c.redisClient,
			c.cfg.Storage.Redis.Prefix,
			c.cfg.RedisTTL(),
			c.cfg.Storage.Redis.Stream,
			c.cfg.Storage.Redis.StreamMax,
		)
	}

	if c.cfg.Storage.SQLite.Enabled {
		if err := c.initSQLite(); err != nil {
			return fmt.Errorf("sqlite init failed: %w", err)
		}
	}

	if c.cfg.Storage.Postgres.Enabled {
		if err := c.initPostgres(); err != nil {
			return fmt.Errorf("postgres init failed: %w", err)
		}
	}

	return nil
}

// initRedis 初始化 Redis 连接
func (c *Container) initRedis() error {
	rdb := redis.NewClient(&redis.Options{
		Addr:     c.cfg.Storage.Redis.Addr,
		Password: c.cfg.Storage.Redis.Password,
		DB:       c.cfg.Storage.Redis.DB,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	c.redisClient = rdb

	// 注册关闭回调
	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing redis connection")
		return rdb.Close()
	})

	log.Info().
		Str("addr", c.cfg.Storage.Redis.Addr).
		Int("db", c.cfg.Storage.Redis.DB).
		Msg("redis initialized")

	return nil
}

// initSQLite 初始化 SQLite 数据库
func (c *Container) initSQLite() error {
	repo, err := sqliterepo.New(c.cfg.Storage.SQLite.Path)
	if err != nil {
		return err
	}

	c.sqliteRepo = repo

	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing sqlite connection")
		return repo.Close()
	})

	log.Info().
		Str("path", c.cfg.Storage.SQLite.Path).
		Msg("sqlite initialized")

	return nil
}

// initPostgres 初始化 Postgres 数据库
func (c *Container) initPostgres() error {
	repo, err := pgrepo.New(c.cfg.Storage.Postgres.DSN)
	if err != nil {
		return err
	}

	c.pgRepo = repo

	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing postgres connection")
		return repo.Close()
	})

	log.Info().Msg("postgres initialized")
	return nil
}

// Config 获取配置
func (c *Container) Config() *config.Config {
	return c.cfg
}

// RedisClient 获取 Redis 客户端，未启用时为 nil
func (c *Container) RedisClient() *redis.Client {
	return c.redisClient
}

// SQLiteRepo 获取 SQLite 仓储
func (c *Container) SQLiteRepo() *sqliterepo.Repo {
	return c.sqliteRepo
}

// Repository 返回所有已启用归档的组合；未启用任何归档时为 nil。
// 各仓储的关闭由容器负责。
func (c *Container) Repository() port.Repository {
	var repos []port.Repository
	if c.redisRepo != nil {
		repos = append(repos, c.redisRepo)
	}
	if c.sqliteRepo != nil {
		repos = append(repos, c.sqliteRepo)
	}
	if c.pgRepo != nil {
		repos = append(repos, c.pgRepo)
	}
	if len(repos) == 0 {
		return nil
	}
	return composite.New(repos...)
}

// Close 关闭所有资源（按后进先出顺序）
func (c *Container) Close() error {
	var err error
	c.closeOnce.Do(func() {
		for i := len(c.closerChain) - 1; i >= 0; i-- {
			if e := c.closerChain[i](); e != nil {
				log.Error().Err(e).Msg("error closing resource")
				if err == nil {
					err = e
				}
			}
		}
		log.Info().Msg("container closed")
	})
	return err
}
