//go:build integration

package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/terrafield-ag/paddock-engine/pkg/models"
	"github.com/terrafield-ag/paddock-engine/pkg/testhelpers"
)

func seedPaddock(t *testing.T, db *testhelpers.TestDB, id string, farmID uuid.UUID, wkt string, updatedAt time.Time) {
	t.Helper()
	_, err := db.DB.Exec(context.Background(), `
		INSERT INTO paddocks (id, farm_id, geometry, updated_at)
		VALUES ($1, $2, ST_GeomFromText($3, 4326), $4)
		ON CONFLICT (id) DO NOTHING
	`, id, farmID, wkt, updatedAt)
	require.NoError(t, err)
}

func seedRecord(t *testing.T, db *testhelpers.TestDB, farmID uuid.UUID, paddockID string, year int, namespace, data string) {
	t.Helper()
	_, err := db.DB.Exec(context.Background(), `
		INSERT INTO paddock_records (farm_id, paddock_id, year, namespace, data)
		VALUES ($1, $2, $3, $4, $5)
	`, farmID, paddockID, year, namespace, data)
	require.NoError(t, err)
}

func TestFarmRepository_GetFarmRecords(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	repo := NewFarmRepository(db.DB, zap.NewNop())

	farmID := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)
	seedPaddock(t, db, "itest-a", farmID, "POLYGON((0 0,10 0,10 10,0 10,0 0))", now)
	seedPaddock(t, db, "itest-c", farmID, "POLYGON((0 0,5 0,5 10,0 10,0 0))", now.Add(-time.Hour))
	seedRecord(t, db, farmID, "itest-a", 2023, "production", `{"total_yield":50,"crop_type":"wheat"}`)
	seedRecord(t, db, farmID, "itest-c", 2022, "production", `{"total_yield":100}`)

	records, err := repo.GetFarmRecords(context.Background(), farmID)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Ordered by year descending.
	assert.Equal(t, 2023, records[0].Year)
	assert.Equal(t, "itest-a", records[0].PaddockID)
	assert.Equal(t, 2022, records[1].Year)

	// Geometry decodes and has area.
	assert.InDelta(t, 100, records[0].Geometry.Area(), 1e-6)

	// Attribute data keeps its key order.
	assert.Equal(t, []string{"total_yield", "crop_type"}, records[0].Data.Keys())
	v, ok := records[0].Data.Get("total_yield")
	require.True(t, ok)
	n, _ := v.AsNumber()
	assert.InDelta(t, 50, n, 1e-9)
}

func TestFarmRepository_GetFarmRecords_EmptyFarm(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	repo := NewFarmRepository(db.DB, zap.NewNop())

	records, err := repo.GetFarmRecords(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFarmRepository_ListFarmIDs(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	repo := NewFarmRepository(db.DB, zap.NewNop())

	farmID := uuid.New()
	now := time.Now()
	seedPaddock(t, db, "itest-list", farmID, "POLYGON((0 0,1 0,1 1,0 1,0 0))", now)
	seedRecord(t, db, farmID, "itest-list", 2023, "production", `{}`)

	ids, err := repo.ListFarmIDs(context.Background())
	require.NoError(t, err)
	assert.Contains(t, ids, farmID)
}

func TestNormalizedRepository_ReplaceFarm(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	repo := NewNormalizedRepository(db.DB, zap.NewNop())

	farmID := uuid.New()
	data := models.NewAttributeMap()
	data.Set("total_yield", models.NumberValue(150))
	rows := []models.NormalizedRecord{
		{
			PaddockID: "itest-norm-a",
			Year:      2023,
			Cells: map[string]*models.Cell{
				"production": {Data: data, OriginalPaddockCount: 2},
			},
		},
	}

	require.NoError(t, repo.ReplaceFarm(context.Background(), farmID, rows))

	// Replacing again is idempotent.
	require.NoError(t, repo.ReplaceFarm(context.Background(), farmID, rows))

	var count int
	err := db.DB.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM normalized_paddock_records WHERE farm_id = $1`, farmID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var dataJSON []byte
	err = db.DB.QueryRow(context.Background(),
		`SELECT data FROM normalized_paddock_records WHERE farm_id = $1`, farmID).Scan(&dataJSON)
	require.NoError(t, err)
	assert.JSONEq(t, `{"production":{"total_yield":150}}`, string(dataJSON))
}
