//go:build wireinject
// +build wireinject

// Wire依赖注入配置
//
// 运行 `wire gen ./cmd/reservation-service` 生成wire_gen.go。
// 区域化的仓储是map类型(每区域一套),Wire不能自动展开map,
// 所以仓储装配走自定义Provider。

package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	appreservation "github.com/smarte-commerce/inventory-engine/internal/application/reservation"
	"github.com/smarte-commerce/inventory-engine/internal/domain/catalog"
	"github.com/smarte-commerce/inventory-engine/internal/domain/inventory"
	"github.com/smarte-commerce/inventory-engine/internal/domain/region"
	domainreservation "github.com/smarte-commerce/inventory-engine/internal/domain/reservation"
	"github.com/smarte-commerce/inventory-engine/internal/infrastructure/config"
	"github.com/smarte-commerce/inventory-engine/internal/infrastructure/persistence/mysql"
	redisinfra "github.com/smarte-commerce/inventory-engine/internal/infrastructure/persistence/redis"
	"github.com/smarte-commerce/inventory-engine/internal/interface/http/handler"
	"github.com/smarte-commerce/inventory-engine/internal/interface/http/middleware"
	"github.com/smarte-commerce/inventory-engine/internal/regional"
	"github.com/smarte-commerce/inventory-engine/pkg/circuitbreaker"
	"github.com/smarte-commerce/inventory-engine/pkg/jwt"
	"github.com/smarte-commerce/inventory-engine/pkg/mq"
)

// infrastructureSet 基础设施层:配置、区域数据库、Redis
var infrastructureSet = wire.NewSet(
	config.Load,
	mysql.NewRegionDBs,
	provideRedisClient,
	redisinfra.NewFallbackCache,
)

// repositorySet 仓储层:每区域一套库存/预留单仓储
var repositorySet = wire.NewSet(
	provideInventoryStores,
	provideReservationRepos,
	provideVariantLookup,
)

// regionalSet 区域路由与熔断降级
var regionalSet = wire.NewSet(
	provideController,
	provideRouter,
)

// applicationSet 应用层
var applicationSet = wire.NewSet(
	providePublisher,
	provideServiceConfig,
	appreservation.NewService,
)

// interfaceSet 接口层
var interfaceSet = wire.NewSet(
	provideJWTManager,
	middleware.NewRegionMiddleware,
	handler.NewReservationHandler,
)

func provideRedisClient(cfg *config.Config) (*goredis.Client, error) {
	return redisinfra.NewClient(cfg.Redis)
}

func provideInventoryStores(dbs map[region.ID]*gorm.DB) map[region.ID]inventory.Store {
	stores := make(map[region.ID]inventory.Store, len(dbs))
	for id, db := range dbs {
		stores[id] = mysql.NewInventoryStore(db)
	}
	return stores
}

func provideReservationRepos(dbs map[region.ID]*gorm.DB) map[region.ID]domainreservation.Repository {
	repos := make(map[region.ID]domainreservation.Repository, len(dbs))
	for id, db := range dbs {
		repos[id] = mysql.NewReservationRepository(db)
	}
	return repos
}

func provideVariantLookup(cfg *config.Config, dbs map[region.ID]*gorm.DB) catalog.Lookup {
	return mysql.NewVariantLookup(dbs[region.ID(cfg.Routing.DefaultRegion)])
}

func provideController(cfg *config.Config, cache regional.FallbackCache) *regional.Controller {
	return regional.NewController(regional.Config{
		Breaker: circuitbreaker.Config{
			FailureRateThreshold: cfg.Fallback.FailureRateThreshold,
			WindowSize:           cfg.Fallback.WindowSize,
			MinRequests:          cfg.Fallback.MinRequests,
			CoolDown:             cfg.Fallback.CoolDown,
			MaxTrialCalls:        cfg.Fallback.MaxTrialCalls,
		},
		CallTimeout:         cfg.Fallback.CallTimeout,
		CacheFreshTTL:       cfg.Fallback.CacheFreshTTL,
		CacheRetention:      cfg.Fallback.CacheRetention,
		AllowStale:          cfg.Fallback.AllowStale,
		ReplicationInterval: cfg.Fallback.ReplicationInterval,
		ReplicationDeadline: cfg.Fallback.ReplicationDeadline,
	}, cache)
}

func provideRouter(cfg *config.Config) *regional.Router {
	return regional.NewRouter(region.ID(cfg.Routing.DefaultRegion), cfg.IPPrefixRegions())
}

func providePublisher(cfg *config.Config) appreservation.EventPublisher {
	if cfg.MQ.URL == "" {
		return nil
	}
	pub, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, "topic")
	if err != nil {
		log.Printf("RabbitMQ连接失败,事件发布停用: %v", err)
		return nil
	}
	return pub
}

func provideServiceConfig(cfg *config.Config) appreservation.Config {
	return appreservation.Config{
		DefaultTTL:         cfg.Reservation.DefaultTTL,
		MutatorMaxAttempts: cfg.Reservation.MutatorMaxAttempts,
	}
}

func provideJWTManager(cfg *config.Config) *jwt.Manager {
	return jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Expire)
}

// InitializeApp 组装整个应用,返回配置好的Gin引擎
func InitializeApp() (*gin.Engine, error) {
	wire.Build(
		infrastructureSet,
		repositorySet,
		regionalSet,
		applicationSet,
		interfaceSet,
		newEngine,
	)
	return nil, nil
}
