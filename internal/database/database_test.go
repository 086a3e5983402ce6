package database

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camrobjones/papernet/internal/config"
)

func TestDBTX_Interface(t *testing.T) {
	t.Run("pgxmock pool satisfies DBTX", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		var _ DBTX = mock
	})
}

func TestHealthStatus_JSON(t *testing.T) {
	t.Run("error included when set", func(t *testing.T) {
		hs := HealthStatus{Status: "unhealthy", Error: "connection refused", MaxConns: 20}
		data, err := json.Marshal(hs)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"error":"connection refused"`)
		assert.Contains(t, string(data), `"max_conns":20`)
	})

	t.Run("empty error omitted", func(t *testing.T) {
		data, err := json.Marshal(HealthStatus{Status: "healthy"})
		require.NoError(t, err)
		assert.NotContains(t, string(data), "error")
	})
}

func TestRunInTx(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()

	t.Run("commits on success", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM journals").
			WithArgs("1234-5678").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mock.ExpectCommit()

		err = RunInTx(ctx, mock, logger, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, "DELETE FROM journals WHERE issn = $1", "1234-5678")
			return err
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		want := errors.New("merge conflict")
		err = RunInTx(ctx, mock, logger, func(tx pgx.Tx) error {
			return want
		})
		assert.ErrorIs(t, err, want)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back and re-panics", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		assert.Panics(t, func() {
			_ = RunInTx(ctx, mock, logger, func(tx pgx.Tx) error {
				panic("boom")
			})
		})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin().WillReturnError(errors.New("pool closed"))

		err = RunInTx(ctx, mock, logger, func(tx pgx.Tx) error { return nil })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to begin transaction")
	})

	t.Run("commit failure", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

		err = RunInTx(ctx, mock, logger, func(tx pgx.Tx) error { return nil })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to commit transaction")
	})
}

func TestNew_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test in short mode")
	}

	// 192.0.2.1 is TEST-NET-1 (RFC 5737) and never routes.
	cfg := &config.DatabaseConfig{
		Host:           "192.0.2.1",
		Port:           5432,
		Name:           "papernet",
		User:           "papernet",
		SSLMode:        config.SSLModeDisable,
		MaxConns:       2,
		MinConns:       0,
		ConnectTimeout: time.Second,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	db, err := New(ctx, cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Nil(t, db)
}

func TestDB_CloseNilPool(t *testing.T) {
	assert.NotPanics(t, func() {
		(&DB{}).Close()
	})
}
