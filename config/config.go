// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var validLogLevels = []string{"debug", "info", "warn", "error", "fatal"}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "app_log_level")

	v.BindEnv("host.port", "host_port")

	v.BindEnv("redis.addr", "redis_addr")
	v.BindEnv("redis.password", "redis_password")
	v.BindEnv("redis.db", "redis_db")

	v.BindEnv("db.path", "db_path")

	v.BindEnv("storage.folder_path", "storage_folder_path")

	v.BindEnv("upload.max_size", "upload_max_size")

	v.BindEnv("queue.concurrency", "queue_concurrency")
	v.BindEnv("queue.thumbnail_max_retry", "queue_thumbnail_max_retry")
	v.BindEnv("queue.welcome_max_retry", "queue_welcome_max_retry")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("db.path", "database.db")

	v.SetDefault("storage.folder_path", "/tmp/files_manager")

	v.SetDefault("upload.max_size", 50)

	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.thumbnail_max_retry", 5)
	v.SetDefault("queue.welcome_max_retry", 3)

	if err := v.ReadInConfig(); err != nil {
		// Defaults and envs cover everything, so a missing
		// config.toml is fine
		if _, ok := err.(v.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file, %w", err)
		}
	}

	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if v.GetString("redis.addr") == "" {
		return errors.New("redis address can't be empty")
	}

	if v.GetString("db.path") == "" {
		return errors.New("database path can't be empty")
	}

	if v.GetString("storage.folder_path") == "" {
		return errors.New("storage folder path can't be empty")
	}

	if v.GetInt("upload.max_size") <= 0 {
		return errors.New("upload.max_size must be bigger than 0")
	}

	if v.GetInt("queue.concurrency") <= 0 {
		return errors.New("queue.concurrency must be bigger than 0")
	}

	if v.GetInt("queue.thumbnail_max_retry") < 0 || v.GetInt("queue.welcome_max_retry") < 0 {
		return errors.New("queue retry counts can't be negative")
	}

	v.Set("upload.max_size", v.GetInt64("upload.max_size")<<20)
	return nil
}
