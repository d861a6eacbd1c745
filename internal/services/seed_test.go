package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weatherlogger/apiserver/internal/auth"
	"github.com/weatherlogger/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

func TestSeederIsIdempotent(t *testing.T) {
	users := newFakeUsers()
	ledger := newFakeLedger()
	seeder := NewSeeder(NewUserService(users, auth.NewHasher(bcrypt.MinCost)), ledger.seriesRepo(), ledger.measurementRepo(), &fakeTx{})
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	seeder.now = func() time.Time { return now }
	ctx := context.Background()

	result, err := seeder.Seed(ctx, "Adm1n!pass", 10)
	require.NoError(t, err)
	assert.True(t, result.AdminCreated)
	require.Len(t, result.Series, 3)
	assert.Equal(t, 30, result.Measurements)

	admin, err := users.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, types.RoleAdmin, admin.Role)

	for _, m := range ledger.measurements {
		series := ledger.series[m.SeriesID]
		assert.True(t, series.Contains(m.Value), "%v outside %s", m.Value, series.Name)
		assert.False(t, m.Timestamp.After(now))
		assert.False(t, m.Timestamp.Before(now.AddDate(0, 0, -9)))
	}

	again, err := seeder.Seed(ctx, "Adm1n!pass", 10)
	require.NoError(t, err)
	assert.False(t, again.AdminCreated)
	assert.Empty(t, again.Series)
	assert.Len(t, ledger.series, 3)
}

func TestSeederWithoutAdminPassword(t *testing.T) {
	users := newFakeUsers()
	ledger := newFakeLedger()
	seeder := NewSeeder(NewUserService(users, auth.NewHasher(bcrypt.MinCost)), ledger.seriesRepo(), ledger.measurementRepo(), &fakeTx{})

	result, err := seeder.Seed(context.Background(), "", 1)
	require.NoError(t, err)
	assert.False(t, result.AdminCreated)
	assert.Equal(t, 3, result.Measurements)
	assert.Empty(t, users.byID)
}
