/*
 * @module service/init
 * @description 服务初始化模块，按配置组装数据来源、快照存储、重载触发器和事件发布
 * @architecture 分层架构 - 服务层
 * @documentReference DESIGN.md
 * @stateFlow 打开数据来源 -> 创建快照存储 -> 注册监听 -> 首次加载 -> 启动重载触发器
 * @rules 首次加载失败不阻止启动，服务以空数据集运行并由重载触发器恢复；可选组件失败只记录日志
 * @dependencies gorm.io/gorm, github.com/go-redis/redis/v8
 * @refs main.go, api/routes.go
 */

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"techintel-service/client/connectors"
	"techintel-service/service/company"
	"techintel-service/service/config"
	"techintel-service/service/dataset"
	"techintel-service/service/distributed_lock"
	"techintel-service/service/event"
	"techintel-service/service/loader"
	"techintel-service/service/metrics"
	"techintel-service/service/rate_limiter"
)

// App 运行期组件集合
type App struct {
	Config         *config.AppConfig
	Store          *dataset.Store
	CompanyService *company.CompanyService
	EventService   *event.EventService
	Notifier       *event.ReloadNotifier
	RateLimiter    *rate_limiter.RedisRateLimiter

	db          *gorm.DB
	redisClient *redis.Client
	watcher     *dataset.FileWatcher
	scheduler   *dataset.ReloadScheduler
	pgListener  *dataset.PGListener
	mqtt        *connectors.MQTTConnector
	kafka       *connectors.KafkaConnector
	cancel      context.CancelFunc
}

// Init 初始化所有服务
func Init(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	runCtx, cancel := context.WithCancel(ctx)
	app := &App{Config: cfg, cancel: cancel}

	l, err := app.initLoader()
	if err != nil {
		cancel()
		return nil, err
	}

	app.Store = dataset.NewStore(l)
	app.CompanyService = company.NewCompanyService(app.Store)
	app.EventService = event.NewEventService()

	app.initRedis(runCtx)
	app.Notifier = event.NewReloadNotifier(app.EventService, app.initPublishers()...)

	app.Store.OnReload(metrics.RecordReload)
	app.Store.OnReload(app.Notifier.HandleReload)

	if ds, err := app.Store.Reload(runCtx, dataset.TriggerStartup); err != nil {
		slog.Warn("首次加载数据集失败，以空数据集启动", "source", l.Source(), "error", err)
	} else {
		slog.Info("数据集加载完成", "source", ds.Source, "records", len(ds.Records), "rejected", len(ds.Rejected))
	}

	app.startTriggers(runCtx)
	slog.Info("服务初始化完成")
	return app, nil
}

// initLoader 按数据来源类型创建加载器
func (a *App) initLoader() (loader.Loader, error) {
	validator := loader.NewValidator()
	validator.PercentTolerance = a.Config.Dataset.PercentTolerance

	switch a.Config.Dataset.Source {
	case config.SourceDB:
		db, err := loader.OpenPostgres(a.Config.Database.DSN())
		if err != nil {
			return nil, err
		}
		a.db = db
		dbLoader := loader.NewDBLoader(db)
		dbLoader.SetValidator(validator)
		return dbLoader, nil
	case config.SourceCSV:
		csvLoader := loader.NewCSVLoader(a.Config.Dataset.Path, a.Config.Dataset.URL, a.Config.Dataset.Charset)
		csvLoader.Validator = validator
		return csvLoader, nil
	default:
		return nil, fmt.Errorf("%w: unknown dataset source %q", config.ErrInvalidConfig, a.Config.Dataset.Source)
	}
}

// initRedis 连接Redis，失败时关闭限流和Redis发布
func (a *App) initRedis(ctx context.Context) {
	if !a.Config.Redis.Enabled {
		return
	}
	client, err := rate_limiter.NewRedisClient(ctx, a.Config.Redis.Addr(), a.Config.Redis.Password, a.Config.Redis.DB)
	if err != nil {
		slog.Warn("Redis不可用，限流和Redis事件发布已禁用", "addr", a.Config.Redis.Addr(), "error", err)
		return
	}
	a.redisClient = client
	if a.Config.RateLimit.Enabled {
		a.RateLimiter = rate_limiter.NewRedisRateLimiter(client)
	}
}

// initPublishers 创建已启用的消息发布器
func (a *App) initPublishers() []event.Publisher {
	var publishers []event.Publisher

	if a.Config.MQTT.Enabled {
		mqttConnector := connectors.NewMQTTConnector(&a.Config.MQTT.MQTTConfig)
		if err := mqttConnector.Connect(); err != nil {
			slog.Warn("MQTT连接失败，跳过MQTT发布", "broker", a.Config.MQTT.Broker, "error", err)
		} else {
			a.mqtt = mqttConnector
			publishers = append(publishers, mqttConnector)
		}
	}

	if a.Config.Kafka.Enabled {
		a.kafka = connectors.NewKafkaConnector(&a.Config.Kafka.KafkaConfig)
		publishers = append(publishers, a.kafka)
	}

	if a.redisClient != nil {
		publishers = append(publishers, connectors.NewRedisConnector(a.redisClient, a.Config.Redis.Channel))
	}

	for _, p := range publishers {
		slog.Info("已启用事件发布", "publisher", p.Name())
	}
	return publishers
}

// startTriggers 启动文件监听、定时检查和数据库通知
func (a *App) startTriggers(ctx context.Context) {
	ds := a.Config.Dataset

	if ds.Source == config.SourceCSV && ds.Watch && ds.Path != "" {
		watcher, err := dataset.NewFileWatcher(a.Store, ds.Path, ds.WatchDebounce)
		if err == nil {
			err = watcher.Start(ctx)
		}
		if err != nil {
			slog.Warn("文件监听启动失败", "path", ds.Path, "error", err)
			if watcher != nil {
				watcher.Stop()
			}
		} else {
			a.watcher = watcher
		}
	}

	if ds.ReloadCron != "" {
		scheduler := dataset.NewReloadScheduler(a.Store, ds.ReloadCron)
		if err := scheduler.Start(); err != nil {
			slog.Warn("定时重载启动失败", "spec", ds.ReloadCron, "error", err)
		} else {
			a.scheduler = scheduler
		}
	}

	if ds.Source == config.SourceDB && a.Config.Database.Listen && a.db != nil {
		a.installNotifyTrigger(ctx)
		listener := dataset.NewPGListener(a.Store, a.Config.Database.DSN())
		if err := listener.Start(ctx); err != nil {
			slog.Warn("数据库变更监听启动失败", "channel", dataset.NotifyChannel, "error", err)
			listener.Stop()
		} else {
			a.pgListener = listener
		}
	}
}

// installNotifyTrigger 安装变更通知触发器，启用Redis时多实例只由一个实例安装
func (a *App) installNotifyTrigger(ctx context.Context) {
	install := func() error { return dataset.InstallNotifyTrigger(a.db) }

	var err error
	if a.redisClient != nil {
		executor := distributed_lock.NewLockExecutor(distributed_lock.NewRedisLock(a.redisClient))
		_, err = executor.ExecuteWithLock(ctx, "install_notify_trigger", time.Minute, install)
	} else {
		err = install()
	}
	if err != nil {
		slog.Warn("安装变更通知触发器失败", "error", err)
	}
}

// Shutdown 停止触发器并释放连接
func (a *App) Shutdown() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.pgListener != nil {
		a.pgListener.Stop()
	}
	a.cancel()

	a.Notifier.Wait()
	a.EventService.Stop()

	if a.mqtt != nil {
		a.mqtt.Disconnect()
	}
	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			slog.Warn("关闭Kafka写入器失败", "error", err)
		}
	}
	if a.redisClient != nil {
		a.redisClient.Close()
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	slog.Info("服务已停止")
}
