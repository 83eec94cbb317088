package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"deskcore/internal/kv"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestOpenReportsDriverErrors(t *testing.T) {
	boom := errors.New("boom")
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return nil, boom })
	defer restore()

	_, err := Open(context.Background(), "")
	require.ErrorIs(t, err, boom)
}

func startPostgres(t *testing.T) string {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "desk",
				"POSTGRES_PASSWORD": "desk",
				"POSTGRES_DB":       "desk",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	return fmt.Sprintf("postgres://desk:desk@%s:%s/desk?sslmode=disable", host, port.Port())
}

func TestStoreAgainstPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	ctx := context.Background()
	store, err := Open(ctx, startPostgres(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.Get(ctx, "funds")
	require.ErrorIs(t, err, kv.ErrNotFound)

	require.NoError(t, store.PutBatch(ctx, []kv.Entry{
		{Key: "funds", Value: []byte(`[{"id":"f1"}]`)},
		{Key: "companies", Value: []byte(`[]`)},
	}))
	got, err := store.Get(ctx, "funds")
	require.NoError(t, err)
	require.JSONEq(t, `[{"id":"f1"}]`, string(got))

	require.NoError(t, store.Delete(ctx, "companies"))
	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"funds"}, keys)
}
