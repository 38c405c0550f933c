// Package app wires configuration into a ready reconciliation service. It is
// shared by the HTTP server and the CLI.
package app

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ledger-reconciliation-backend/internal/config"
	"ledger-reconciliation-backend/internal/events"
	"ledger-reconciliation-backend/internal/lock"
	"ledger-reconciliation-backend/internal/repository"
	"ledger-reconciliation-backend/internal/services/applier"
	"ledger-reconciliation-backend/internal/services/matching"
	service "ledger-reconciliation-backend/internal/services/reconciliation"
)

type App struct {
	Config  *config.Configuration
	Logger  *logrus.Logger
	DB      *gorm.DB
	Service *service.ReconciliationService

	closers []func() error
}

// New connects to the database and, when configured, to redis and kafka.
func New(cnf *config.Configuration) (*App, error) {
	logger := config.NewLogger(cnf.Log)

	db, err := config.InitDB(cnf)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cnf, Logger: logger, DB: db}

	locker, err := a.newLocker()
	if err != nil {
		a.Close()
		return nil, err
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if len(cnf.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cnf.Kafka.Brokers, cnf.Kafka.Topic)
		logger.WithField("topic", cnf.Kafka.Topic).Info("publishing reconciliation events to kafka")
	}
	a.closers = append(a.closers, publisher.Close)

	tolerance, err := cnf.TaxTolerance()
	if err != nil {
		a.Close()
		return nil, err
	}

	store := repository.NewStore(db, cnf.Database.MaxConcurrency)
	a.Service = service.NewReconciliationService(store, service.Options{
		Matching:     matching.Config{DateWindowDays: cnf.Matching.DateWindowDays},
		Apply:        applier.Config{MaxRetries: uint64(cnf.Apply.MaxRetries), InitialInterval: 100 * time.Millisecond},
		TaxTolerance: tolerance,
		Locker:       locker,
		Publisher:    publisher,
		Logger:       logger,
	})
	return a, nil
}

func (a *App) newLocker() (lock.ScopeLocker, error) {
	if a.Config.Redis.Dns == "" {
		a.Logger.Warn("no redis configured, scope locks only guard this process")
		return lock.NewLocalLocker(), nil
	}

	opts, err := redis.ParseURL(a.Config.Redis.Dns)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	return lock.NewRedisLocker(client, lock.DefaultTTL), nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.WithError(err).Warn("shutdown")
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
