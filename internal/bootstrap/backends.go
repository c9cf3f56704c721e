// Package bootstrap opens the backing services named in the configuration
// and hands the binaries ready-made collaborators.  Disabled sections stay
// nil; every accessor then returns nil and the feature that needs it is off.
package bootstrap

import (
	"context"

	appMol "github.com/ClairePA/ChemistryToolkit/internal/application/molecule"
	"github.com/ClairePA/ChemistryToolkit/internal/config"
	domainMol "github.com/ClairePA/ChemistryToolkit/internal/domain/molecule"
	neo4jdriver "github.com/ClairePA/ChemistryToolkit/internal/infrastructure/database/neo4j"
	neo4jrepo "github.com/ClairePA/ChemistryToolkit/internal/infrastructure/database/neo4j/repositories"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/database/postgres"
	pgrepo "github.com/ClairePA/ChemistryToolkit/internal/infrastructure/database/postgres/repositories"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/database/redis"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/messaging/kafka"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/logging"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/prometheus"
	storage "github.com/ClairePA/ChemistryToolkit/internal/infrastructure/storage/minio"
)

// Checker is a named health check.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

type checkFunc struct {
	name string
	fn   func(ctx context.Context) error
}

func (c checkFunc) Name() string                    { return c.name }
func (c checkFunc) Check(ctx context.Context) error { return c.fn(ctx) }

// Backends holds the connections of one process.
type Backends struct {
	DB       *postgres.Connection
	Redis    *redis.Client
	Graph    *neo4jdriver.Driver
	Producer *kafka.Producer
	Objects  storage.ObjectAPI

	cfg      *config.Config
	logger   logging.Logger
	checkers []Checker
}

// Open dials every enabled backend.  On failure the ones already open are
// closed again.
func Open(ctx context.Context, cfg *config.Config, logger logging.Logger) (b *Backends, err error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	b = &Backends{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			b.Close(context.Background())
			b = nil
		}
	}()

	if cfg.Database.Enabled {
		if b.DB, err = postgres.NewConnection(ctx, cfg.Database, logger.Named("postgres")); err != nil {
			return b, err
		}
		if cfg.Database.AutoMigrate {
			if err = b.DB.MigrateUp(); err != nil {
				return b, err
			}
		}
		b.checkers = append(b.checkers, checkFunc{"postgres", b.DB.HealthCheck})
	}

	if cfg.Redis.Enabled {
		if b.Redis, err = redis.NewClient(ctx, cfg.Redis, logger.Named("redis")); err != nil {
			return b, err
		}
		b.checkers = append(b.checkers, checkFunc{"redis", b.Redis.Ping})
	}

	if cfg.Neo4j.Enabled {
		if b.Graph, err = neo4jdriver.NewDriver(ctx, cfg.Neo4j, logger.Named("neo4j")); err != nil {
			return b, err
		}
		if err = neo4jrepo.EnsureSchema(ctx, b.Graph); err != nil {
			return b, err
		}
		b.checkers = append(b.checkers, checkFunc{"neo4j", b.Graph.HealthCheck})
	}

	if cfg.Kafka.Enabled {
		if b.Producer, err = kafka.NewProducer(cfg.Kafka, logger.Named("kafka")); err != nil {
			return b, err
		}
	}

	if cfg.MinIO.Enabled {
		client, cerr := storage.NewClient(ctx, cfg.MinIO, logger.Named("minio"))
		if cerr != nil {
			return b, cerr
		}
		b.Objects = client
		bucket := cfg.MinIO.Bucket
		b.checkers = append(b.checkers, checkFunc{"minio", func(ctx context.Context) error {
			_, err := client.BucketExists(ctx, bucket)
			return err
		}})
	}
	return b, nil
}

// Checkers returns the health checks of the open backends.
func (b *Backends) Checkers() []Checker { return b.checkers }

func (b *Backends) Fragments() domainMol.FragmentRepository {
	if b.DB == nil {
		return nil
	}
	return pgrepo.NewPostgresFragmentRepo(b.DB, b.logger.Named("fragments"))
}

func (b *Backends) MergeRecords() domainMol.MergeRecordRepository {
	if b.DB == nil {
		return nil
	}
	return pgrepo.NewPostgresMergeRecordRepo(b.DB, b.logger.Named("merge_records"))
}

func (b *Backends) Lineage() domainMol.LineageStore {
	if b.Graph == nil {
		return nil
	}
	return neo4jrepo.NewNeo4jLineageStore(b.Graph, b.logger.Named("lineage"))
}

func (b *Backends) Cache() *redis.CanonicalCache {
	if b.Redis == nil {
		return nil
	}
	var opts []redis.CacheOption
	if b.cfg.Redis.DefaultTTL > 0 {
		opts = append(opts, redis.WithTTL(b.cfg.Redis.DefaultTTL))
	}
	if b.cfg.Redis.KeyPrefix != "" {
		opts = append(opts, redis.WithPrefix(b.cfg.Redis.KeyPrefix))
	}
	return redis.NewCanonicalCache(b.Redis, b.logger.Named("cache"), opts...)
}

// Publisher stamps events with source.
func (b *Backends) Publisher(source string) *kafka.EventPublisher {
	if b.Producer == nil {
		return nil
	}
	return kafka.NewEventPublisher(b.Producer, source)
}

func (b *Backends) Artifacts() *storage.ArtifactStore {
	if b.Objects == nil {
		return nil
	}
	return storage.NewArtifactStore(b.Objects, b.cfg.MinIO.Bucket, b.logger.Named("artifacts"))
}

// ServiceDeps wires the open backends into the toolkit service.  Interface
// fields stay nil for closed backends.
func (b *Backends) ServiceDeps(engine domainMol.Manipulator, source string, metrics *prometheus.ToolkitMetrics, logger logging.Logger) appMol.Deps {
	d := appMol.Deps{
		Engine:    engine,
		Fragments: b.Fragments(),
		Lineage:   b.Lineage(),
		Metrics:   metrics,
		Logger:    logger,
	}
	if c := b.Cache(); c != nil {
		d.Cache = c
	}
	if p := b.Publisher(source); p != nil {
		d.Events = p
	}
	if a := b.Artifacts(); a != nil {
		d.Artifacts = a
	}
	return d
}

// Close releases every open backend, logging failures.
func (b *Backends) Close(ctx context.Context) {
	if b.Producer != nil {
		if err := b.Producer.Close(); err != nil {
			b.logger.Warn("kafka producer close failed", logging.Err(err))
		}
	}
	if b.Graph != nil {
		if err := b.Graph.Close(ctx); err != nil {
			b.logger.Warn("neo4j close failed", logging.Err(err))
		}
	}
	if b.Redis != nil {
		if err := b.Redis.Close(); err != nil {
			b.logger.Warn("redis close failed", logging.Err(err))
		}
	}
	if b.DB != nil {
		if err := b.DB.Close(); err != nil {
			b.logger.Warn("postgres close failed", logging.Err(err))
		}
	}
}
