// Package storage opens the repositories selected by store.driver.
package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jmoiron/sqlx"

	"github.com/zencounsel/counsel-api/internal/config"
	"github.com/zencounsel/counsel-api/internal/repository"
	"github.com/zencounsel/counsel-api/internal/repository/dynamo"
	"github.com/zencounsel/counsel-api/internal/repository/memory"
	"github.com/zencounsel/counsel-api/internal/repository/postgres"
)

// Stores bundles every repository the services need. With the dynamodb
// driver only the appointment ledger lives in DynamoDB; profiles,
// consultations, assessments and the outbox stay in Postgres.
type Stores struct {
	Appointments  repository.AppointmentRepository
	Counsellors   repository.CounsellorRepository
	Consultations repository.ConsultationRepository
	Assessments   repository.AssessmentRepository
	Seekers       repository.SeekerRepository
	Outbox        repository.OutboxRepository

	// Checks are readiness probes keyed by dependency name.
	Checks map[string]func(ctx context.Context) error

	db *sqlx.DB
}

func Open(ctx context.Context, cfg *config.Config) (*Stores, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		return openMemory(), nil
	case config.DriverPostgres:
		return openPostgres(ctx, cfg.Database)
	case config.DriverDynamo:
		s, err := openPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		client, err := dynamo.NewClient(ctx, cfg.Dynamo)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		tables := dynamo.TablesFromConfig(cfg.Dynamo)
		s.Appointments = dynamo.NewAppointmentRepository(client, tables)
		s.Checks["dynamodb"] = func(ctx context.Context) error {
			_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
				TableName: aws.String(tables.Appointments),
			})
			return err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
}

func openMemory() *Stores {
	m := memory.NewStore()
	return &Stores{
		Appointments:  m.Appointments(),
		Counsellors:   m.Counsellors(),
		Consultations: m.Consultations(),
		Assessments:   m.Assessments(),
		Seekers:       m.Seekers(),
		Outbox:        m.Outbox(),
		Checks:        map[string]func(ctx context.Context) error{},
	}
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Stores, error) {
	db, err := postgres.NewDB(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	base := postgres.NewBaseRepository(db)
	return &Stores{
		Appointments:  postgres.NewAppointmentRepository(base),
		Counsellors:   postgres.NewCounsellorRepository(base),
		Consultations: postgres.NewConsultationRepository(base),
		Assessments:   postgres.NewAssessmentRepository(base),
		Seekers:       postgres.NewSeekerRepository(base),
		Outbox:        postgres.NewOutboxRepository(base),
		Checks: map[string]func(ctx context.Context) error{
			"database": db.PingContext,
		},
		db: db,
	}, nil
}

// Shared reports whether another process sees the same data. The memory
// driver is private to its process.
func (s *Stores) Shared() bool {
	return s.db != nil
}

func (s *Stores) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
