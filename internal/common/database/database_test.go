package database

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"tulipai-funnel/internal/common/config"
	"tulipai-funnel/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastPolicy = RetryPolicy{Attempts: 3, InitialDelay: time.Millisecond, PingTimeout: time.Second}

// ==========================
// WaitReady Tests
// ==========================

func TestWaitReady(t *testing.T) {
	errDown := errors.New("connection refused")

	tests := []struct {
		name      string
		failures  int
		wantCalls int
		wantErr   bool
	}{
		{name: "first attempt", failures: 0, wantCalls: 1},
		{name: "recovers", failures: 2, wantCalls: 3},
		{name: "gives up", failures: 5, wantCalls: 3, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			p := PingerFunc(func(ctx context.Context) error {
				calls++
				_, hasDeadline := ctx.Deadline()
				assert.True(t, hasDeadline)
				if calls <= tt.failures {
					return errDown
				}
				return nil
			})

			err := WaitReady(context.Background(), "postgres", p, fastPolicy, logger.NewTestLogger(t))

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				assert.ErrorIs(t, err, errDown)
				assert.Contains(t, err.Error(), "postgres unavailable after 3 attempts")
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestWaitReady_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := PingerFunc(func(context.Context) error {
		calls++
		cancel()
		return errors.New("down")
	})

	err := WaitReady(ctx, "redis", p, RetryPolicy{Attempts: 5, InitialDelay: time.Hour}, logger.NewTestLogger(t))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

// ==========================
// Store Tests
// ==========================

func TestPostgres_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	pg := &Postgres{DB: db}
	mock.ExpectPing().WillReturnError(errors.New("starting up"))
	mock.ExpectPing()
	mock.ExpectClose()

	require.NoError(t, WaitReady(context.Background(), "postgres", pg, fastPolicy, logger.NewTestLogger(t)))
	require.NoError(t, pg.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	r, err := ConnectRedis(context.Background(), config.RedisConfig{Address: mr.Addr()}, fastPolicy, logger.NewTestLogger(t))
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Client.Set(context.Background(), "tulipai_funnel_draft:s1", "{}", 0).Err())
	assert.True(t, mr.Exists("tulipai_funnel_draft:s1"))

	mr.Close()
	assert.Error(t, r.Ping(context.Background()))
}

func TestOpenRedis_RequiresAddress(t *testing.T) {
	_, err := OpenRedis(config.RedisConfig{})
	assert.ErrorIs(t, err, ErrRedisAddressMissing)
}

func TestConnectElasticsearch(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	cfg := config.ElasticsearchConfig{URL: srv.URL, Index: "submissions"}

	es, err := ConnectElasticsearch(context.Background(), cfg, fastPolicy, logger.NewTestLogger(t))
	require.NoError(t, err)

	status.Store(http.StatusServiceUnavailable)
	err = es.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
