package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackingService_GenerateTrackingCode(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	redisClient, redisMock := redismock.NewClientMock()
	service := NewTrackingService(db, redisClient)

	t.Run("mints a code for an owned application", func(t *testing.T) {
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("APP-9F2C1B3A", "42").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		redisMock.Regexp().ExpectSet(`tracking:.+`, "APP-9F2C1B3A", trackingTTL).SetVal("OK")

		code, qrImage, err := service.GenerateTrackingCode(context.Background(), "42", "APP-9F2C1B3A")
		require.NoError(t, err)
		assert.NotEmpty(t, code)
		assert.NotEmpty(t, qrImage)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("another user's application is invisible", func(t *testing.T) {
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("APP-9F2C1B3A", "99").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		_, _, err := service.GenerateTrackingCode(context.Background(), "99", "APP-9F2C1B3A")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestTrackingService_WithoutRedis(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewTrackingService(db, nil)

	t.Run("generate reports unavailable", func(t *testing.T) {
		_, _, err := service.GenerateTrackingCode(context.Background(), "42", "APP-9F2C1B3A")
		assert.ErrorIs(t, err, ErrTrackingUnavailable)
	})

	t.Run("resolve reports unavailable", func(t *testing.T) {
		_, err := service.ResolveTrackingCode(context.Background(), "known-code")
		assert.ErrorIs(t, err, ErrTrackingUnavailable)
	})
}

func TestTrackingService_ResolveTrackingCode(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	redisClient, redisMock := redismock.NewClientMock()
	service := NewTrackingService(db, redisClient)

	t.Run("resolves to a fresh status snapshot", func(t *testing.T) {
		redisMock.ExpectGet("tracking:known-code").SetVal("APP-9F2C1B3A")

		decidedAt := time.Now()
		mock.ExpectQuery("FROM applications WHERE application_id").
			WithArgs("APP-9F2C1B3A").
			WillReturnRows(sqlmock.NewRows(
				[]string{"application_id", "loan_purpose", "status", "submitted_at", "decided_at"}).
				AddRow("APP-9F2C1B3A", "rent", "approved", time.Now().Add(-48*time.Hour), decidedAt))

		snapshot, err := service.ResolveTrackingCode(context.Background(), "known-code")
		require.NoError(t, err)
		assert.Equal(t, "APP-9F2C1B3A", snapshot.ApplicationID)
		assert.Equal(t, "rent", snapshot.LoanPurpose)
		assert.Equal(t, "approved", string(snapshot.Status))
		require.NotNil(t, snapshot.DecidedAt)
	})

	t.Run("undecided application has no decidedAt", func(t *testing.T) {
		redisMock.ExpectGet("tracking:pending-code").SetVal("APP-22222222")

		mock.ExpectQuery("FROM applications WHERE application_id").
			WithArgs("APP-22222222").
			WillReturnRows(sqlmock.NewRows(
				[]string{"application_id", "loan_purpose", "status", "submitted_at", "decided_at"}).
				AddRow("APP-22222222", "land", "submitted", time.Now(), nil))

		snapshot, err := service.ResolveTrackingCode(context.Background(), "pending-code")
		require.NoError(t, err)
		assert.Nil(t, snapshot.DecidedAt)
	})

	t.Run("expired code is rejected", func(t *testing.T) {
		redisMock.ExpectGet("tracking:stale-code").RedisNil()

		_, err := service.ResolveTrackingCode(context.Background(), "stale-code")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid or expired")
	})
}
