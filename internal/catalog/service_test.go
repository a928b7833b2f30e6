package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kurumart/kurumart-backend/internal/bidding"
	pkgerrors "github.com/kurumart/kurumart-backend/pkg/errors"
	"github.com/kurumart/kurumart-backend/pkg/logger"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	groups := `
CREATE TABLE IF NOT EXISTS auction_groups (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  required_wins INTEGER NOT NULL,
  total_vehicles INTEGER NOT NULL,
  end_time DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	vehicles := `
CREATE TABLE IF NOT EXISTS vehicles (
  id TEXT PRIMARY KEY,
  group_id TEXT NOT NULL,
  make TEXT NOT NULL,
  model TEXT NOT NULL,
  year INTEGER NOT NULL,
  grade TEXT,
  mileage_km INTEGER,
  starting_bid_yen INTEGER NOT NULL,
  min_increment_yen INTEGER NOT NULL DEFAULT 0,
  auction_end_time DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(groups).Error)
	require.NoError(t, db.Exec(vehicles).Error)
	require.NoError(t, db.Exec("DELETE FROM vehicles").Error)
	require.NoError(t, db.Exec("DELETE FROM auction_groups").Error)
	return db
}

func newCatalogTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(setupCatalogTestDB(t)),
		Logger: testLogger(),
	})
	require.NoError(t, err)
	return svc
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "catalog-test"})
}

func yen(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func sampleGroupDTO(endTime time.Time) UpsertGroupDTO {
	return UpsertGroupDTO{
		ID:           "grp-tokyo-12",
		Title:        "Tokyo Session 12",
		RequiredWins: 2,
		EndTime:      endTime,
		Vehicles: []UpsertVehicleDTO{
			{
				ID:              "veh-1",
				Make:            "Toyota",
				Model:           "Land Cruiser",
				Year:            2021,
				StartingBidYen:  2_000_000,
				MinIncrementYen: 50_000,
				AuctionEndTime:  endTime,
			},
			{
				ID:             "veh-2",
				Make:           "Nissan",
				Model:          "Skyline",
				Year:           2019,
				StartingBidYen: 8_000_000,
				AuctionEndTime: endTime,
			},
			{
				ID:             "veh-3",
				Make:           "Honda",
				Model:          "Civic Type R",
				Year:           2020,
				StartingBidYen: 1_000_000,
				AuctionEndTime: endTime,
			},
		},
	}
}

func TestImportGroupRoundTrip(t *testing.T) {
	svc := newCatalogTestService(t)
	endTime := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second)

	imported, err := svc.ImportGroup(context.Background(), sampleGroupDTO(endTime))
	require.NoError(t, err)
	assert.Equal(t, 3, imported.TotalVehicles)

	fetched, err := svc.GetGroup(context.Background(), "grp-tokyo-12")
	require.NoError(t, err)
	assert.Equal(t, "Tokyo Session 12", fetched.Title)
	assert.Equal(t, 2, fetched.RequiredWins)
	assert.Len(t, fetched.Vehicles, 3)
}

func TestImportGroupReplacesVehicles(t *testing.T) {
	svc := newCatalogTestService(t)
	endTime := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second)

	_, err := svc.ImportGroup(context.Background(), sampleGroupDTO(endTime))
	require.NoError(t, err)

	updated := sampleGroupDTO(endTime)
	updated.RequiredWins = 1
	updated.Vehicles = updated.Vehicles[:1]
	updated.Vehicles[0].StartingBidYen = 2_500_000

	_, err = svc.ImportGroup(context.Background(), updated)
	require.NoError(t, err)

	fetched, err := svc.GetGroup(context.Background(), "grp-tokyo-12")
	require.NoError(t, err)
	require.Len(t, fetched.Vehicles, 1)
	assert.Equal(t, int64(2_500_000), fetched.Vehicles[0].StartingBidYen)
	assert.Equal(t, 1, fetched.RequiredWins)
	assert.Equal(t, 1, fetched.TotalVehicles)
}

func TestImportGroupRejectsUnreachableQuota(t *testing.T) {
	svc := newCatalogTestService(t)
	dto := sampleGroupDTO(time.Now().Add(time.Hour))
	dto.RequiredWins = 5

	_, err := svc.ImportGroup(context.Background(), dto)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestGetGroupNotFound(t *testing.T) {
	svc := newCatalogTestService(t)

	_, err := svc.GetGroup(context.Background(), "grp-missing")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

type captureRegistrar struct {
	seeds []bidding.GroupSeed
}

func (c *captureRegistrar) RegisterGroup(ctx context.Context, seed bidding.GroupSeed) error {
	c.seeds = append(c.seeds, seed)
	return nil
}

func TestSeedCoordinatorSkipsEndedGroups(t *testing.T) {
	svc := newCatalogTestService(t)

	live := sampleGroupDTO(time.Now().Add(2 * time.Hour).UTC())
	_, err := svc.ImportGroup(context.Background(), live)
	require.NoError(t, err)

	ended := sampleGroupDTO(time.Now().Add(-time.Hour).UTC())
	ended.ID = "grp-ended"
	_, err = svc.ImportGroup(context.Background(), ended)
	require.NoError(t, err)

	registrar := &captureRegistrar{}
	require.NoError(t, svc.SeedCoordinator(context.Background(), registrar))

	require.Len(t, registrar.seeds, 1)
	seed := registrar.seeds[0]
	assert.Equal(t, "grp-tokyo-12", seed.Info.GroupID)
	assert.Equal(t, 2, seed.Info.RequiredWins)
	require.Len(t, seed.Vehicles, 3)
	assert.True(t, seed.Vehicles[0].StartingBid.Equal(yen(2_000_000)))
	assert.True(t, seed.Vehicles[1].MinIncrement.IsZero())
}
