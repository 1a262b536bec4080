package candidate

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore_PersistAll_ReplacesTableInOneTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	candidates := []Candidate{
		{
			ID: "c1", Status: StatusConfirmed, Type: "service-quality", Target: "target-a",
			Comment: "did great work", Source: "dvm", EventRef: "result-evt-1", EventID: "",
			Metadata: map[string]string{"amount_sats": "21000"}, CreatedAt: now, UpdatedAt: now,
		},
		{
			ID: "c2", Status: StatusRejected, Type: "service-quality", Target: "target-b",
			Comment: "flaky", Source: "manual", Reason: "low confidence", CreatedAt: now, UpdatedAt: now,
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM wot_candidates`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO wot_candidates`).
		WithArgs("c1", "confirmed", "service-quality", "target-a", "did great work", "dvm", "result-evt-1", "", "", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO wot_candidates`).
		WithArgs("c2", "rejected", "service-quality", "target-b", "flaky", "manual", "", "", "low confidence", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	store := NewPostgresStore(db)
	require.NoError(t, store.PersistAll(context.Background(), candidates))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PersistAll_RollsBackOnInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM wot_candidates`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO wot_candidates`).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	store := NewPostgresStore(db)
	err = store.PersistAll(context.Background(), []Candidate{{ID: "c1", CreatedAt: time.Now(), UpdatedAt: time.Now()}})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadAll_ScansEventRefEventIDAndMetadataSeparately(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "status", "type", "target_key", "comment", "source",
		"event_ref", "event_id", "reason", "metadata", "created_at", "updated_at",
	}).AddRow(
		"c1", "published", "service-quality", "target-a", "did great work", "dvm",
		"result-evt-1", "evt-published-1", "", []byte(`{"amount_sats":"21000"}`), now, now,
	)
	mock.ExpectQuery(`SELECT .* FROM wot_candidates`).WillReturnRows(rows)

	store := NewPostgresStore(db)
	out, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)

	c := out[0]
	assert.Equal(t, "result-evt-1", c.EventRef)
	assert.Equal(t, "evt-published-1", c.EventID)
	assert.Equal(t, "21000", c.Metadata["amount_sats"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
