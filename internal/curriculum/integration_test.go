//go:build integration

package curriculum_test

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/mind-engage/mindengage-curriculum/internal/curriculum"
	"github.com/mind-engage/mindengage-curriculum/internal/db"
	"github.com/mind-engage/mindengage-curriculum/internal/events"
)

func postgresFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("curriculum"),
		postgres.WithUsername("curriculum"),
		postgres.WithPassword("curriculum"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("dsn: %v", err)
	}
	h, err := db.Open(ctx, db.DriverPostgres, dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return fixture{store: curriculum.NewSQLStore(h, "postgres"), log: events.NewRepo(h)}
}

func TestPostgresStore(t *testing.T) { runStoreSuite(t, postgresFixture) }
