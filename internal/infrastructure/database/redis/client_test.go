package redis

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClairePA/ChemistryToolkit/internal/config"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/logging"
	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
)

func TestNewClient_ConnectionFailed(t *testing.T) {
	client, err := NewClient(context.Background(), config.RedisConfig{Addr: "127.0.0.1:1"}, logging.NewNopLogger())
	require.Error(t, err)
	assert.Nil(t, client)
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
}

func TestClient_Ping(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewClientFrom(db, nil)

	mock.ExpectPing().SetVal("PONG")
	assert.NoError(t, c.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_UseAfterClose(t *testing.T) {
	db, _ := redismock.NewClientMock()
	c := NewClientFrom(db, nil)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "second close is a no-op")

	ctx := context.Background()
	assert.ErrorIs(t, c.Ping(ctx), ErrClientClosed)
	assert.ErrorIs(t, c.Get(ctx, "k").Err(), ErrClientClosed)
	assert.ErrorIs(t, c.Set(ctx, "k", "v", 0).Err(), ErrClientClosed)
	assert.ErrorIs(t, c.Del(ctx, "k").Err(), ErrClientClosed)
	assert.ErrorIs(t, c.Scan(ctx, 0, "*", 10).Err(), ErrClientClosed)
}
