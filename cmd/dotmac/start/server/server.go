package server

import (
	"context"
	"fmt"
	"time"

	"dotmac/internal/accesscontrol"
	"dotmac/internal/authn"
	"dotmac/internal/cli"
	"dotmac/internal/common"
	"dotmac/internal/config"
	"dotmac/internal/controller"
	"dotmac/internal/hooks"
	"dotmac/internal/session"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	AutoMigrate    = "auto-migrate"
	HooksConsumer  = "hooks-consumer"
	DefaultPort    = 3000
	janitorTimeout = time.Minute
)

var flags cli.Flags = config.GetListenAddrFlags(DefaultPort).
	Append(config.GetAuthFlags()).
	Append(config.GetHttpFlags()).
	Append(config.GetHooksFlags()).
	Append(config.GetRedisFlags()).
	Append(config.GetNatsFlags()).
	Append(config.GetMongoFlags()).
	Append(config.GetSmtpFlags()).
	Append(cli.Flags{
		{
			Name:         AutoMigrate,
			DefaultValue: false,
			Usage:        "when specified, pending database migrations are applied before the server starts",
			Type:         cli.FlagTypeBool,
		},
		{
			Name:         HooksConsumer,
			DefaultValue: "dotmac-hooks",
			Usage:        "specifies the durable consumer name the hooks worker subscribes with",
			Type:         cli.FlagTypeString,
		},
	})

var Command = cli.NewCommand(cli.CommandOpts{
	Name:    "start.server",
	Flags:   flags,
	Use:     "server",
	Aliases: []string{"s"},
	Short:   "Starts the auth API and the organization hooks worker",
	Long:    "Starts the auth API under /api/auth and, in the same process, the worker that delivers organization create/delete events to the audit log, billing and the webhook",
	Run: func(cmd *cobra.Command, opts *cli.Command, args []string) error {
		serviceLogs := opts.GetServiceLogs()
		authConfig := config.LoadAuth(config.ViperGetenv)
		if authConfig.Bypass {
			logrus.Warnf("authentication bypass is active (via %s), every request is served as the mock owner", authConfig.BypassReason)
		}

		readinessChecks := []func() error{}

		logrus.Infof("initialising storage...")
		storage, err := newStorage(opts, authConfig)
		if err != nil {
			return err
		}
		readinessChecks = append(readinessChecks, storage.checks...)
		logrus.Infof("initialised %s storage", storage.kind)

		logrus.Infof("initialising session cache...")
		sessionCache, cacheChecks, err := newSessionCache(opts)
		if err != nil {
			return err
		}
		readinessChecks = append(readinessChecks, cacheChecks...)
		logrus.Infof("initialised %s session cache", viper.GetString(config.SessionCache))

		logrus.Infof("initialising hooks queue...")
		hookQueue, queueChecks, err := newHookQueue(opts)
		if err != nil {
			return err
		}
		readinessChecks = append(readinessChecks, queueChecks...)
		queueOpts := hooks.DefaultQueue
		if stream := viper.GetString(config.NatsStream); stream != "" {
			queueOpts.Stream = stream
		}
		dispatcher, err := hooks.NewDispatcher(hooks.NewDispatcherOpts{
			Queue:       hookQueue,
			QueueOpts:   &queueOpts,
			ServiceLogs: serviceLogs,
		})
		if err != nil {
			return fmt.Errorf("failed to create hooks dispatcher: %w", err)
		}
		logrus.Infof("initialised %s hooks queue", viper.GetString(config.HooksQueue))

		logrus.Infof("initialising auth...")
		auth, err := authn.New(authConfig, authn.Deps{
			Store:       storage.store,
			Cache:       sessionCache,
			Mailer:      newMailer(authConfig, serviceLogs),
			Registry:    accesscontrol.Default(),
			Publisher:   dispatcher,
			CachePrefix: viper.GetString(config.RedisKeyPrefix),
			TotpIssuer:  viper.GetString(config.TotpIssuer),
			ServiceLogs: serviceLogs,
		})
		if err != nil {
			return fmt.Errorf("failed to initialise auth: %w", err)
		}
		logrus.Infof("initialised auth")

		workerCtx, stopWorker := context.WithCancel(context.Background())
		opts.AddShutdownProcess("hooks-queue", hookQueue.Close)
		logrus.Infof("initialising hooks worker...")
		handlers, err := newHookHandlers(opts)
		if err != nil {
			stopWorker()
			return err
		}
		worker, err := hooks.NewWorker(hooks.NewWorkerOpts{
			Queue:       hookQueue,
			QueueOpts:   &queueOpts,
			ConsumerId:  viper.GetString(HooksConsumer),
			Handlers:    handlers,
			MaxAttempts: viper.GetInt(config.HooksMaxAttempts),
			Backoff:     viper.GetDuration(config.HooksBackoff),
			ServiceLogs: serviceLogs,
		})
		if err != nil {
			stopWorker()
			return fmt.Errorf("failed to create hooks worker: %w", err)
		}
		workerDone := make(chan struct{})
		go func() {
			defer close(workerDone)
			if err := worker.Run(workerCtx); err != nil {
				logrus.Errorf("hooks worker stopped: %s", err)
			}
		}()
		opts.AddShutdownProcess("hooks-worker", func() error {
			stopWorker()
			<-workerDone
			return nil
		})
		logrus.Infof("initialised hooks worker with %v handlers", len(handlers))

		if service, ok := auth.(*authn.Service); ok {
			janitor, err := session.NewJanitor(session.NewJanitorOpts{
				Purger:      service.Sessions(),
				Schedule:    viper.GetString(config.SessionJanitorCron),
				Timeout:     janitorTimeout,
				ServiceLogs: serviceLogs,
			})
			if err != nil {
				return fmt.Errorf("failed to create session janitor: %w", err)
			}
			janitor.Start()
			opts.AddShutdownProcess("session-janitor", func() error {
				janitor.Stop()
				return nil
			})
		}

		logrus.Infof("initialising web application...")
		handler, err := controller.GetHttpApplication(controller.HttpApplicationOpts{
			Auth:            auth,
			LivenessChecks:  storage.liveness,
			ReadinessChecks: readinessChecks,
			LoginPath:       viper.GetString(config.LoginRedirectUrl),
			ServiceLogs:     serviceLogs,
		})
		if err != nil {
			return fmt.Errorf("failed to initialise web application: %w", err)
		}
		serverOpts := common.NewHttpServerOpts{
			Addr:        viper.GetString(config.ListenAddr),
			Done:        make(chan common.Done, 1),
			Handler:     handler,
			ServiceLogs: serviceLogs,
		}
		if rps := viper.GetFloat64(config.RateLimitRps); rps > 0 {
			serverOpts.RateLimit = &common.RateLimitOpts{
				RequestsPerSecond: rps,
				Burst:             viper.GetInt(config.RateLimitBurst),
			}
		}
		if allowedIps := viper.GetStringSlice(config.AllowedIps); len(allowedIps) > 0 {
			serverOpts.IpAllowlist = &common.NewHttpServerIpAllowlistOpts{AllowedIps: allowedIps}
		}
		httpServer, err := common.NewHttpServer(serverOpts)
		if err != nil {
			return fmt.Errorf("failed to create http server: %w", err)
		}
		opts.AddShutdownProcess("http", func() error {
			serverOpts.Done <- common.Done{}
			return nil
		})
		logrus.Infof("initialised web application")

		serverErrs := make(chan error, 1)
		go func() {
			serverErrs <- httpServer.Start()
		}()
		go func() {
			opts.WaitForSignal()
			opts.Shutdown()
		}()
		return <-serverErrs
	},
})
