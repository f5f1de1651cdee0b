package svc

import (
	"context"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/zeromicro/go-zero/core/conf"

	"idl-verifier-sol/internal/artifact"
	"idl-verifier-sol/internal/config"
	"idl-verifier-sol/internal/ledger"
	"idl-verifier-sol/internal/logic/core"
	"idl-verifier-sol/internal/logic/history"
	"idl-verifier-sol/internal/mq"
	"idl-verifier-sol/internal/registry"
	"idl-verifier-sol/internal/verifier"
	"idl-verifier-sol/pkg/logger"
)

// ServiceContext 持有验证服务的全部资源，进程启动时构造一次，显式传递。
type ServiceContext struct {
	Config   config.VerifierConfig
	Gateway  *ledger.Gateway
	Registry *registry.Registry
	History  *history.Manager
	Verifier *verifier.Verifier

	producer *kafka.Producer
	rdb      *redis.Client
	pool     *pgxpool.Pool
}

// NewServiceContext 构建服务上下文：注册表 → 网关 → 历史（内存 + 可选持久化）
// → 可选 Kafka 发布 → 验证引擎。
func NewServiceContext(c config.VerifierConfig) (*ServiceContext, error) {
	// 1. 协议清单与映射扩展
	var regFile config.RegistryFile
	if c.RegistryConf.File != "" {
		if err := conf.Load(c.RegistryConf.File, &regFile); err != nil {
			return nil, err
		}
	}
	reg := registry.New(c.RegistryConf.EnableFuzzy)
	for id, entries := range regFile.Mappings {
		reg.AddMapping(id, entries...)
	}

	// 2. 账本网关（endpoint 优先级在配置中显式给出）
	gateway := ledger.NewGateway(c.Networks)

	// 3. IDL 工件来源
	var fetcher artifact.Fetcher
	switch c.ArtifactConf.Mode {
	case "object":
		store, err := artifact.NewObjectStore(c.ArtifactConf.Object)
		if err != nil {
			return nil, err
		}
		fetcher = store
	default:
		dir := c.ArtifactConf.Dir
		if dir == "" {
			dir = "etc/idls"
		}
		fetcher = artifact.NewDirStore(dir)
	}

	ctx := &ServiceContext{
		Config:   c,
		Gateway:  gateway,
		Registry: reg,
	}

	// 4. 历史存储：内存必有，Redis / Postgres 按配置启用
	mem := history.NewStore(c.HistoryConf.MaxRuns, c.HistoryConf.SummaryWindow)
	var redisStore *history.RedisStore
	if c.HistoryConf.RedisAddr != "" {
		ctx.rdb = redis.NewClient(&redis.Options{Addr: c.HistoryConf.RedisAddr})
		redisStore = history.NewRedisStore(ctx.rdb)
	}
	var dbStore *history.DBStore
	if c.HistoryConf.PostgresDSN != "" {
		pool, err := pgxpool.New(context.Background(), c.HistoryConf.PostgresDSN)
		if err != nil {
			logger.Errorf("PostgreSQL 连接失败: %v", err)
			return nil, err
		}
		ctx.pool = pool
		dbStore = history.NewDBStore(pool)
	}
	ctx.History = history.NewManager(mem, redisStore, dbStore)
	ctx.History.Restore(context.Background())

	// 5. 运行结果发布（可选）
	var publish verifier.Publisher
	if c.KafkaConf.Brokers != "" {
		producer, err := mq.NewProducer(c.KafkaConf.ToProducerOption())
		if err != nil {
			logger.Errorf("Kafka producer 初始化失败: %v", err)
			return nil, err
		}
		ctx.producer = producer

		timeout := time.Duration(c.KafkaConf.SendTimeoutMs) * time.Millisecond
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		topic := c.KafkaConf.Topic
		if topic == "" {
			topic = "verification-runs"
		}
		publish = func(pctx context.Context, run *core.VerificationRun) error {
			return mq.PublishRun(pctx, producer, topic, run, timeout)
		}
	}

	// 6. 验证引擎
	ctx.Verifier = verifier.New(
		c.ToVerifierOptions(),
		regFile.Protocols,
		gateway,
		reg,
		fetcher,
		ctx.History,
		publish,
	)

	logger.Infof("验证服务上下文初始化完成, 协议数=%d", len(regFile.Protocols))
	return ctx, nil
}

// Close 关闭服务上下文中的资源。
func (ctx *ServiceContext) Close() {
	if ctx.producer != nil {
		ctx.producer.Close()
	}
	if ctx.rdb != nil {
		_ = ctx.rdb.Close()
	}
	if ctx.pool != nil {
		ctx.pool.Close()
	}
}
