package engine

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"premier-care-hub/internal/cache"
	"premier-care-hub/internal/config"
	"premier-care-hub/internal/consumer"
	"premier-care-hub/internal/database"
	"premier-care-hub/internal/detector"
	httpapi "premier-care-hub/internal/http"
	"premier-care-hub/internal/mqtt"
	"premier-care-hub/internal/notifier"
	"premier-care-hub/internal/redis"
	"premier-care-hub/internal/repository"
	"premier-care-hub/internal/service"

	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Engine EVV 合规引擎（整合各层）
type Engine struct {
	config      *config.Config
	db          *sql.DB
	redisClient *goredis.Client
	mqttClient  *mqtt.Client
	logger      *zap.Logger

	// 各层组件
	ledgerSvc     *service.LedgerService
	alertSvc      *service.AlertService
	outreachSvc   *service.OutreachService
	complianceSvc *service.ComplianceService
	viewsSvc      *service.ViewsService
	sweeper       *detector.Sweeper
	deliveryCons  *consumer.DeliveryConsumer
	clockBroker   *mqtt.ClockBroker
	httpServer    *http.Server

	cancel context.CancelFunc
	done   chan struct{}
}

// repos 仓储层（按配置选择 Postgres 或内存实现）
type repos struct {
	visits     repository.VisitsRepository
	violations repository.ViolationsRepository
	alerts     repository.AlertsRepository
	outreach   repository.OutreachRepository
	caregivers repository.CaregiversRepository
	patients   repository.PatientsRepository
}

// NewEngine 创建合规引擎
func NewEngine(cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	if cfg.TenantID == "" {
		return nil, fmt.Errorf("TENANT_ID is required")
	}

	e := &Engine{
		config: cfg,
		logger: logger,
		done:   make(chan struct{}),
	}

	// 1. 连接数据库（失败时退回内存仓储，便于本地联测）
	r, err := e.buildRepos(cfg)
	if err != nil {
		return nil, err
	}

	// 2. 连接 Redis（视图缓存 + 回执消费，失败时禁用两者）
	var cacheMgr *cache.Manager
	redisClient := redis.NewRedisClient(&cfg.Redis)
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancelPing()
	if err := redis.Ping(pingCtx, redisClient); err != nil {
		logger.Warn("Redis unavailable, view cache and delivery consumer disabled",
			zap.String("addr", cfg.Redis.Addr),
			zap.Error(err),
		)
		_ = redis.Close(redisClient)
		redisClient = nil
	} else {
		e.redisClient = redisClient
		cacheMgr = cache.NewManager(redisClient, cfg.Cache.KeyPrefix,
			time.Duration(cfg.Cache.ViewTTL)*time.Second, logger)
	}

	// 3. 创建 Service 层
	tolerances := service.Tolerances{
		In:  cfg.Detector.ToleranceIn,
		Out: cfg.Detector.ToleranceOut,
	}
	e.ledgerSvc = service.NewLedgerService(r.visits, logger)
	e.alertSvc = service.NewAlertService(r.alerts, r.violations, cacheMgr, logger)
	e.outreachSvc = service.NewOutreachService(r.outreach, r.violations, r.visits, r.patients, logger)
	e.complianceSvc = service.NewComplianceService(r.visits, r.outreach, cacheMgr, tolerances, logger)
	e.viewsSvc = service.NewViewsService(r.alerts, r.violations, r.visits,
		r.caregivers, r.patients, r.outreach, cacheMgr, logger)

	// 4. 违规检测：扫描器 + 可选的外呼分发
	var notif detector.Notifier
	if cfg.Outreach.DispatchEnabled {
		notif = notifier.NewDispatcher(cfg.Outreach.ProviderBaseURL, cfg.Outreach.APIKey, r.patients, logger)
	}
	det := detector.NewDetector(r.visits, r.violations, e.alertSvc, notif, tolerances, logger)
	e.sweeper = detector.NewSweeper(det, r.visits, detector.SweeperConfig{
		TenantID:     cfg.TenantID,
		Interval:     cfg.Detector.SweepInterval,
		LookbackDays: cfg.Detector.LookbackDays,
		BatchSize:    cfg.Detector.BatchSize,
	}, logger)

	// 5. 投递回执消费者（依赖 Redis Stream）
	if e.redisClient != nil {
		e.deliveryCons = consumer.NewDeliveryConsumer(e.redisClient, e.outreachSvc, consumer.DeliveryConsumerConfig{
			TenantID:      cfg.TenantID,
			Stream:        cfg.Outreach.DeliveryStream,
			ConsumerGroup: cfg.Outreach.ConsumerGroup,
		}, logger)
	}

	// 6. MQTT 打卡事件接入（默认禁用）
	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.NewClient(&cfg.MQTT)
		if err != nil {
			e.Stop()
			return nil, fmt.Errorf("failed to connect mqtt: %w", err)
		}
		e.mqttClient = mqttClient
		e.clockBroker = mqtt.NewClockBroker(mqttClient, e.ledgerSvc,
			cfg.TenantID, cfg.MQTT.Topic, cfg.MQTT.QoS, logger)
	}

	// 7. HTTP 层
	router := httpapi.NewRouter(logger)
	router.RegisterVisitRoutes(httpapi.NewVisitHandler(e.ledgerSvc, logger))
	router.RegisterAlertRoutes(httpapi.NewAlertHandler(e.alertSvc, e.viewsSvc, logger))
	router.RegisterOutreachRoutes(httpapi.NewOutreachHandler(e.outreachSvc,
		e.redisClient, cfg.Outreach.DeliveryStream, logger))
	router.RegisterComplianceRoutes(httpapi.NewComplianceHandler(e.complianceSvc, logger))
	router.RegisterPeopleRoutes(httpapi.NewPeopleHandler(r.caregivers, r.patients, logger))
	e.httpServer = &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: router,
	}

	return e, nil
}

// buildRepos 构建仓储层：优先 Postgres，连不上时退回内存实现
func (e *Engine) buildRepos(cfg *config.Config) (*repos, error) {
	if cfg.DBEnabled {
		db, err := database.NewPostgresDB(&cfg.Database)
		if err != nil {
			e.logger.Warn("Database unavailable, falling back to in-memory repositories",
				zap.String("host", cfg.Database.Host),
				zap.Error(err),
			)
		} else {
			e.db = db
			return &repos{
				visits:     repository.NewPostgresVisitsRepository(db),
				violations: repository.NewPostgresViolationsRepository(db),
				alerts:     repository.NewPostgresAlertsRepository(db),
				outreach:   repository.NewPostgresOutreachRepository(db),
				caregivers: repository.NewPostgresCaregiversRepository(db),
				patients:   repository.NewPostgresPatientsRepository(db),
			}, nil
		}
	}

	violations := repository.NewMemoryViolationsRepo()
	return &repos{
		visits:     repository.NewMemoryVisitsRepo(),
		violations: violations,
		alerts:     repository.NewMemoryAlertsRepo(violations),
		outreach:   repository.NewMemoryOutreachRepo(),
		caregivers: repository.NewMemoryCaregiversRepo(),
		patients:   repository.NewMemoryPatientsRepo(),
	}, nil
}

// Start 启动引擎（扫描器、回执消费、MQTT 订阅、HTTP 服务）
func (e *Engine) Start(ctx context.Context) error {
	e.logger.Info("Starting evv engine",
		zap.String("tenant_id", e.config.TenantID),
		zap.String("http_addr", e.config.HTTP.Addr),
		zap.Bool("db_backed", e.db != nil),
	)

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	go func() {
		e.sweeper.Run(runCtx)
	}()

	if e.deliveryCons != nil {
		go func() {
			if err := e.deliveryCons.Run(runCtx); err != nil && runCtx.Err() == nil {
				e.logger.Error("Delivery consumer stopped", zap.Error(err))
			}
		}()
	}

	if e.clockBroker != nil {
		if err := e.clockBroker.Start(); err != nil {
			cancel()
			return fmt.Errorf("failed to start clock broker: %w", err)
		}
	}

	go func() {
		defer close(e.done)
		if err := e.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.logger.Error("HTTP server stopped", zap.Error(err))
		}
	}()

	return nil
}

// Stop 停止引擎并释放连接
func (e *Engine) Stop() error {
	e.logger.Info("Stopping evv engine")

	if e.cancel != nil {
		e.cancel()
	}
	if e.clockBroker != nil {
		e.clockBroker.Stop()
	}

	// cancel 非空说明 Start 已执行，HTTP 服务协程已在运行
	if e.httpServer != nil && e.cancel != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := e.httpServer.Shutdown(shutdownCtx); err != nil {
			e.logger.Error("Failed to shut down HTTP server", zap.Error(err))
		}
		<-e.done
	}

	if e.mqttClient != nil {
		e.mqttClient.Disconnect()
	}
	if e.redisClient != nil {
		if err := redis.Close(e.redisClient); err != nil {
			e.logger.Error("Failed to close redis", zap.Error(err))
		}
	}
	if e.db != nil {
		if err := database.Close(e.db); err != nil {
			e.logger.Error("Failed to close database", zap.Error(err))
		}
	}

	return nil
}
