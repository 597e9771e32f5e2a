package commands

import (
	"github.com/dxbintel/propsignal/internal/contracts"
	"github.com/dxbintel/propsignal/internal/data/repos"
	"github.com/dxbintel/propsignal/internal/external/exposure"
	"github.com/dxbintel/propsignal/internal/pipeline"
	"github.com/dxbintel/propsignal/pkg/config"
	"github.com/dxbintel/propsignal/pkg/database"
	"github.com/dxbintel/propsignal/pkg/logger"
	"github.com/dxbintel/propsignal/pkg/redis"
)

// deps bundles everything the commands construct from config.
type deps struct {
	cfg           *config.Config
	log           *logger.Logger
	db            *database.DB
	redis         *redis.Client
	stores        pipeline.Stores
	orchestrator  *pipeline.Orchestrator
	orgs          contracts.OrgReader
	signals       contracts.SignalStore
	targets       contracts.TargetStore
	notifications *repos.NotificationRepo
}

// buildDeps loads config and wires the full dependency graph.
func buildDeps() (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, err
	}
	log.Info("Connected to database")

	redisClient, err := redis.New(cfg)
	if err != nil {
		return nil, err
	}
	var cache *redis.Cache
	if redisClient.Enabled() {
		cache = redis.NewCache(redisClient, "propsignal")
		log.Info("Redis cache enabled")
	}

	signalRepo := repos.NewSignalRepo(db.Pool)
	targetRepo := repos.NewTargetRepo(db.Pool)
	investorRepo := repos.NewInvestorRepo(db.Pool)
	snapshotRepo := repos.NewSnapshotRepo(db.Pool)
	notificationRepo := repos.NewNotificationRepo(db.Pool)

	stores := pipeline.Stores{
		Listings:      repos.NewListingRepo(db.Pool),
		Transactions:  repos.NewTransactionRepo(db.Pool),
		Rentals:       repos.NewRentalRepo(db.Pool),
		Snapshots:     snapshotRepo,
		TruthReader:   snapshotRepo,
		PortalReader:  snapshotRepo,
		Signals:       signalRepo,
		Investors:     investorRepo,
		Targets:       targetRepo,
		Notifications: notificationRepo,
		Market:        repos.NewMarketRepo(db.Pool, cache, log.Zerolog()),
		Recipients:    investorRepo,
	}

	var exposureLookup contracts.ExposureLookup
	if cfg.Exposure.Enabled {
		exposureLookup = exposure.NewClient(cfg.Exposure, log.Zerolog())
		log.Info("Exposure lookup enabled")
	}

	detection := contracts.DefaultDetectionConfig()
	detection.Batch.WriteSize = cfg.Pipeline.BatchSize

	return &deps{
		cfg:           cfg,
		log:           log,
		db:            db,
		redis:         redisClient,
		stores:        stores,
		orchestrator:  pipeline.New(stores, exposureLookup, detection, log.Zerolog()),
		orgs:          repos.NewOrgRepo(db.Pool),
		signals:       signalRepo,
		targets:       targetRepo,
		notifications: notificationRepo,
	}, nil
}

// close releases all connections.
func (d *deps) close() {
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.db != nil {
		d.db.Close()
	}
}
