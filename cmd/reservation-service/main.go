package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appreservation "github.com/smarte-commerce/inventory-engine/internal/application/reservation"
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
	"github.com/smarte-commerce/inventory-engine/pkg/metrics"
	"github.com/smarte-commerce/inventory-engine/pkg/mq"
	"github.com/smarte-commerce/inventory-engine/pkg/response"
	"github.com/smarte-commerce/inventory-engine/pkg/tracing"
)

// main 主程序入口
// 手动依赖注入;wire.go提供等价的Wire装配(wire gen ./cmd/reservation-service)
func main() {
	// 1. 配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 2. 指标与链路追踪
	metrics.InitMetrics()
	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitTracer("reservation-service", cfg.Tracing.Endpoint)
		if err != nil {
			log.Fatalf("初始化链路追踪失败: %v", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				log.Printf("关闭链路追踪失败: %v", err)
			}
		}()
	}

	// 3. 每区域一套MySQL,库存和预留单按区域分库
	dbs, err := mysql.NewRegionDBs(cfg)
	if err != nil {
		log.Fatalf("初始化区域数据库失败: %v", err)
	}
	stores := make(map[region.ID]inventory.Store, len(dbs))
	repos := make(map[region.ID]domainreservation.Repository, len(dbs))
	for id, db := range dbs {
		stores[id] = mysql.NewInventoryStore(db)
		repos[id] = mysql.NewReservationRepository(db)
	}
	// 商品目录读默认区域的库(目录数据各区域全量同步)
	lookup := mysql.NewVariantLookup(dbs[region.ID(cfg.Routing.DefaultRegion)])

	// 4. Redis承载跨区域降级缓存
	redisClient, err := redisinfra.NewClient(cfg.Redis)
	if err != nil {
		log.Fatalf("初始化Redis失败: %v", err)
	}
	cache := redisinfra.NewFallbackCache(redisClient)

	// 5. 事件发布(可选,连不上MQ只停用事件,不影响主流程)
	var publisher appreservation.EventPublisher
	if cfg.MQ.URL != "" {
		pub, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, "topic")
		if err != nil {
			log.Printf("RabbitMQ连接失败,事件发布停用: %v", err)
		} else {
			defer pub.Close()
			publisher = pub
		}
	}

	// 6. 区域路由与熔断降级
	controller := regional.NewController(regional.Config{
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
	router := regional.NewRouter(region.ID(cfg.Routing.DefaultRegion), cfg.IPPrefixRegions())

	// 7. 应用服务与接口层
	service := appreservation.NewService(
		appreservation.Config{
			DefaultTTL:         cfg.Reservation.DefaultTTL,
			MutatorMaxAttempts: cfg.Reservation.MutatorMaxAttempts,
		},
		router, controller, stores, repos, lookup, publisher,
	)
	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Expire)
	reservationHandler := handler.NewReservationHandler(service)
	regionMiddleware := middleware.NewRegionMiddleware(jwtManager)

	// 8. 后台过期清扫
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	sweeper := appreservation.NewSweeper(service, cfg.Reservation.SweepInterval, cfg.Reservation.SweepBatchSize)
	go sweeper.Run(sweepCtx)

	// 9. HTTP服务
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      newEngine(cfg, reservationHandler, regionMiddleware),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Printf("预留服务启动 :%d (模式:%s, 默认区域:%s)", cfg.Server.Port, cfg.Server.Mode, cfg.Routing.DefaultRegion)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("启动服务失败: %v", err)
		}
	}()

	// 10. 优雅退出:停清扫→关HTTP→等在途的跨区域回写落地
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Println("收到退出信号,开始优雅关闭")

	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("关闭HTTP服务失败: %v", err)
	}

	controller.Wait()
	log.Println("服务已退出")
}

// newEngine 创建并配置Gin引擎
func newEngine(cfg *config.Config, reservationHandler *handler.ReservationHandler, regionMiddleware *middleware.RegionMiddleware) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// 健康检查与指标
	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong", "status": "healthy"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	v1.Use(regionMiddleware.Collect())
	{
		reservations := v1.Group("/reservations")
		{
			reservations.POST("", reservationHandler.Create)
			reservations.POST("/:id/confirm", reservationHandler.Confirm)
			reservations.POST("/:id/cancel", reservationHandler.Cancel)
			reservations.GET("/:id/valid", reservationHandler.Validity)
		}

		v1.POST("/availability", reservationHandler.CheckAvailability)
		v1.GET("/regions/health", reservationHandler.RegionHealth)
	}

	return r
}
