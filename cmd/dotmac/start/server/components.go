package server

import (
	"fmt"
	"time"

	"dotmac/internal/audit"
	"dotmac/internal/cache"
	"dotmac/internal/cli"
	"dotmac/internal/common"
	"dotmac/internal/config"
	"dotmac/internal/database"
	"dotmac/internal/email"
	"dotmac/internal/hooks"
	"dotmac/internal/persistence"
	"dotmac/internal/queue"
	"dotmac/internal/session"
	"dotmac/internal/store"
	"dotmac/pkg/api"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const livenessGrace = 30 * time.Second

type storage struct {
	kind     string
	store    store.Store
	checks   []func() error
	liveness []func() error
}

func newStorage(opts *cli.Command, authConfig config.Auth) (*storage, error) {
	if authConfig.Bypass {
		return &storage{kind: "memory", store: store.NewMemory()}, nil
	}
	if err := authConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid auth configuration: %w", err)
	}
	sqlInstance, err := persistence.NewSql(persistence.SqlConnectionOpts{
		AppName:     opts.GetFullname(),
		DatabaseUrl: authConfig.DatabaseUrl,
	}, opts.GetServiceLogs())
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}
	if err := sqlInstance.Init(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	opts.AddShutdownProcess("database", sqlInstance.Shutdown)
	if viper.GetBool(AutoMigrate) {
		logrus.Infof("applying pending migrations...")
		if err := database.Migrate(database.MigrateOpts{
			Connection:  sqlInstance.GetClient(),
			Dialect:     sqlInstance.GetDialect(),
			ServiceLogs: opts.GetServiceLogs(),
		}); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}
	sqlStore, err := store.NewSql(store.NewSqlOpts{
		Db:      sqlInstance.GetClient(),
		Dialect: sqlInstance.GetDialect(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	return &storage{
		kind:     string(sqlInstance.GetDialect()),
		store:    sqlStore,
		checks:   []func() error{persistence.ReadinessCheck(sqlInstance)},
		liveness: []func() error{persistence.LivenessCheck(sqlInstance, livenessGrace)},
	}, nil
}

func newSessionCache(opts *cli.Command) (cache.Cache, []func() error, error) {
	switch viper.GetString(config.SessionCache) {
	case config.SessionCacheMemory:
		return cache.NewMemory(cache.NewMemoryOpts{}), nil, nil
	case config.SessionCacheRedis:
		redisInstance := persistence.NewRedis(
			persistence.RedisConnectionOpts{
				AppName: opts.GetFullname(),
				Addr:    viper.GetString(config.RedisAddr),
				DB:      viper.GetInt(config.RedisDb),
			},
			persistence.RedisAuthOpts{
				Username: viper.GetString(config.RedisUsername),
				Password: viper.GetString(config.RedisPassword),
			},
			opts.GetServiceLogs(),
		)
		if err := redisInstance.Init(); err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		opts.AddShutdownProcess("redis", redisInstance.Shutdown)
		redisCache, err := cache.NewRedis(cache.NewRedisOpts{
			Client:      redisInstance.GetClient(),
			ServiceLogs: opts.GetServiceLogs(),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create redis cache: %w", err)
		}
		return redisCache, []func() error{persistence.ReadinessCheck(redisInstance)}, nil
	}
	return nil, nil, fmt.Errorf("session cache[%s]: %w", viper.GetString(config.SessionCache), config.ErrorUnknownSessionCache)
}

func newHookQueue(opts *cli.Command) (queue.Queue, []func() error, error) {
	switch viper.GetString(config.HooksQueue) {
	case config.HooksQueueMemory:
		return queue.NewMemory(queue.NewMemoryOpts{}), nil, nil
	case config.HooksQueueNats:
		natsInstance, err := persistence.NewNats(
			persistence.NatsConnectionOpts{
				AppName: opts.GetFullname(),
				Host:    viper.GetString(config.NatsAddr),
			},
			persistence.NatsAuthOpts{
				NKey:     viper.GetString(config.NatsNkeyValue),
				Username: viper.GetString(config.NatsUsername),
				Password: viper.GetString(config.NatsPassword),
			},
			opts.GetServiceLogs(),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create nats client: %w", err)
		}
		if err := natsInstance.Init(); err != nil {
			return nil, nil, fmt.Errorf("failed to connect to nats: %w", err)
		}
		opts.AddShutdownProcess("nats", natsInstance.Shutdown)
		natsQueue, err := queue.NewNats(queue.NewNatsOpts{
			Connection:  natsInstance,
			ServiceLogs: opts.GetServiceLogs(),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create nats queue: %w", err)
		}
		return natsQueue, []func() error{persistence.ReadinessCheck(natsInstance)}, nil
	}
	return nil, nil, fmt.Errorf("hooks queue[%s]: %w", viper.GetString(config.HooksQueue), config.ErrorUnknownHooksQueue)
}

func newMailer(authConfig config.Auth, serviceLogs chan<- common.ServiceLog) session.Mailer {
	smtpConfig := email.SmtpConfig{
		Hostname: viper.GetString(config.SmtpHostname),
		Port:     viper.GetInt(config.SmtpPort),
		Username: viper.GetString(config.SmtpUsername),
		Password: viper.GetString(config.SmtpPassword),
	}
	if !smtpConfig.IsConfigured() {
		logrus.Warnf("smtp is not configured, verification links will be written to the logs")
		return email.NewLogMailer(authConfig.BaseUrl, serviceLogs)
	}
	return email.NewSmtpMailer(email.NewSmtpMailerOpts{
		BaseUrl: authConfig.BaseUrl,
		Sender: email.User{
			Address: viper.GetString(config.SmtpSenderAddress),
			Name:    viper.GetString(config.SmtpSenderName),
		},
		Smtp:        smtpConfig,
		ServiceLogs: serviceLogs,
	})
}

// newHookHandlers always records to the audit log, billing and the
// webhook are added when their urls are configured
func newHookHandlers(opts *cli.Command) ([]hooks.Handler, error) {
	serviceLogs := opts.GetServiceLogs()
	var auditLogger audit.Logger
	if mongoHosts := viper.GetStringSlice(config.MongoHosts); len(mongoHosts) > 0 {
		mongoInstance := persistence.NewMongo(
			persistence.MongoConnectionOpts{
				AppName:  opts.GetFullname(),
				Hosts:    mongoHosts,
				IsDirect: len(mongoHosts) == 1,
			},
			persistence.MongoAuthOpts{
				Username: viper.GetString(config.MongoUsername),
				Password: viper.GetString(config.MongoPassword),
			},
			serviceLogs,
		)
		if err := mongoInstance.Init(); err != nil {
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		opts.AddShutdownProcess("mongo", mongoInstance.Shutdown)
		mongoLogger, err := audit.NewMongo(audit.NewMongoOpts{
			Database:    mongoInstance.GetClient().Database(viper.GetString(config.MongoDatabase)),
			ServiceLogs: serviceLogs,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create audit logger: %w", err)
		}
		auditLogger = mongoLogger
	} else {
		logrus.Warnf("no mongo hosts defined, audit entries are kept in memory")
		auditLogger = audit.NewMemory(nil)
	}
	auditHandler, err := hooks.NewAuditHandler(auditLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit handler: %w", err)
	}
	handlers := []hooks.Handler{auditHandler}

	if billingUrl := viper.GetString(config.BillingApiUrl); billingUrl != "" {
		client, err := newApiClient(opts, billingUrl, viper.GetString(config.BillingApiToken))
		if err != nil {
			return nil, fmt.Errorf("failed to create billing client: %w", err)
		}
		provisioner, err := hooks.NewBillingProvisioner(hooks.NewBillingProvisionerOpts{Client: client})
		if err != nil {
			return nil, fmt.Errorf("failed to create billing provisioner: %w", err)
		}
		handlers = append(handlers, provisioner)
	}

	if webhookUrl := viper.GetString(config.WebhookUrl); webhookUrl != "" {
		client, err := newApiClient(opts, webhookUrl, "")
		if err != nil {
			return nil, fmt.Errorf("failed to create webhook client: %w", err)
		}
		notifier, err := hooks.NewWebhookNotifier(hooks.NewWebhookNotifierOpts{
			Client:      client,
			Secret:      viper.GetString(config.WebhookSecret),
			ServiceLogs: serviceLogs,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create webhook notifier: %w", err)
		}
		handlers = append(handlers, notifier)
	}
	return handlers, nil
}

func newApiClient(opts *cli.Command, baseUrl, token string) (*api.Client, error) {
	clientOpts := api.NewClientOpts{
		BaseUrl:     baseUrl,
		Id:          opts.GetFullname(),
		ServiceLogs: opts.GetServiceLogs(),
	}
	if token != "" {
		clientOpts.BearerAuth = &api.NewClientBearerAuthOpts{Token: token}
	}
	return api.NewClient(clientOpts)
}
