package main

import (
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"gousdcbridge/EVMRPC"
	"gousdcbridge/bridge"
	"gousdcbridge/circle"
	"gousdcbridge/config"
	"gousdcbridge/iris"
	"gousdcbridge/redis"
	"gousdcbridge/workers"
	"gousdcbridge/workers/handlers"
)

func main() {
	// .env is optional, config.yml + environment are authoritative
	_ = godotenv.Load()

	config.Init()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("starting USDC CCTP bridge")

	// without run persistence do not continue
	store := redis.New(logger, config.Config.Server.RedisHost, config.Config.Server.RedisPort)
	if err := store.Ping(); err != nil {
		logger.Fatal("cannot reach redis", zap.Error(err))
	}

	gateway := circle.New(logger, config.Config.Circle.APIBase, config.Config.Circle.APIKey, config.Config.Circle.EntitySecret)
	attestor := iris.New(logger, config.Config.Circle.IrisBase, config.Config.Circle.APIKey)
	reader := EVMRPC.NewReader(logger)

	orch := bridge.New(logger, store, gateway, reader, attestor)
	orch.PollInterval = time.Duration(config.Config.Bridge.PollIntervalSec) * time.Second
	gateway.PollInterval = orch.PollInterval
	orch.AttestationTimeout = time.Duration(config.Config.Bridge.AttestationTimeoutMin) * time.Minute

	// there are 2 worker threads:
	// * advance/resume transfer runs from their persisted phases
	// * API serving HTTP server (serves as main worker thread)
	go workers.Worker_processTransfers(logger, orch, store)

	workers.Worker_HTTP(logger, handlers.New(logger, orch, store, gateway))
}
