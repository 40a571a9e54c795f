package main

import (
	"fmt"
	"time"

	"bitwise74/files-api/api"
	"bitwise74/files-api/config"
	"bitwise74/files-api/db"
	"bitwise74/files-api/service"
	"bitwise74/files-api/session"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

func main() {
	gin.SetMode(gin.ReleaseMode)

	err := config.Setup()
	if err != nil {
		panic(err)
	}

	makeLogger()

	dbConn, err := db.New()
	if err != nil {
		panic(err)
	}

	// One Redis client for the whole process, sessions and the job
	// queue share it. Everything downstream borrows it, main owns it
	rdb := redis.NewClient(&redis.Options{
		Addr:     viper.GetString("redis.addr"),
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	})
	defer rdb.Close()

	sessions := session.NewStore(rdb)

	queue := service.NewQueue(rdb)
	defer queue.Close()

	worker := service.NewWorker(rdb, dbConn)
	if err := worker.Start(); err != nil {
		panic(err)
	}
	defer worker.Shutdown()

	a, err := api.NewRouter(&api.Deps{
		DB:       dbConn,
		Sessions: sessions,
		Queue:    queue,
	})
	if err != nil {
		panic(err)
	}

	zap.L().Info("Server starting", zap.Int("port", viper.GetInt("host.port")))

	err = a.Router.Run(fmt.Sprintf(":%d", viper.GetInt("host.port")))
	if err != nil {
		panic(err)
	}
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	if level, err := zapcore.ParseLevel(viper.GetString("app.log_level")); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}
