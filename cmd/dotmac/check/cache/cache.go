package cache

import (
	"context"
	"fmt"
	"time"

	"dotmac/internal/cache"
	"dotmac/internal/cli"
	"dotmac/internal/config"
	"dotmac/internal/persistence"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Command = cli.NewCommand(cli.CommandOpts{
	Name:    "check.cache",
	Flags:   config.GetRedisFlags(),
	Use:     "cache",
	Aliases: []string{"c"},
	Short:   "Checks that the session cache accepts writes and reads",
	Run: func(cmd *cobra.Command, opts *cli.Command, args []string) error {
		redisAddr := viper.GetString(config.RedisAddr)
		logrus.Infof("verifying cache connectivity at address[%s]...", redisAddr)
		redisInstance := persistence.NewRedis(
			persistence.RedisConnectionOpts{
				AppName: opts.GetFullname(),
				Addr:    redisAddr,
				DB:      viper.GetInt(config.RedisDb),
			},
			persistence.RedisAuthOpts{
				Username: viper.GetString(config.RedisUsername),
				Password: viper.GetString(config.RedisPassword),
			},
			opts.GetServiceLogs(),
		)
		if err := redisInstance.Init(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		opts.AddShutdownProcess("redis", redisInstance.Shutdown)

		redisCache, err := cache.NewRedis(cache.NewRedisOpts{
			Client:      redisInstance.GetClient(),
			ServiceLogs: opts.GetServiceLogs(),
		})
		if err != nil {
			return fmt.Errorf("failed to create cache: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		key := fmt.Sprintf("%s:check:%s", viper.GetString(config.RedisKeyPrefix), uuid.NewString())
		if err := redisCache.Set(ctx, key, "ok", time.Minute); err != nil {
			return fmt.Errorf("failed to write to cache: %w", err)
		}
		value, err := redisCache.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to read from cache: %w", err)
		}
		if value != "ok" {
			return fmt.Errorf("cache returned value[%s] for a fresh key", value)
		}
		if err := redisCache.Del(ctx, key); err != nil {
			return fmt.Errorf("failed to delete from cache: %w", err)
		}
		fmt.Printf("cache at address[%s] is reachable\n", redisAddr)
		return nil
	},
})
