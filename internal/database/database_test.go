package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDB_CreatesTables(t *testing.T) {
	db, teardown, err := InitDB(":memory:", "", "")
	require.NoError(t, err, "InitDB should not return an error")
	defer teardown()

	tables := []string{"participants", "meetings", "meeting_participants", "topics", "participant_topics", "feedback", "metrics"}
	for _, table := range tables {
		t.Run(table, func(t *testing.T) {
			var name string
			err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
			require.NoError(t, err, "Querying for %s table should not produce an error", table)
			assert.Equal(t, table, name)
		})
	}
}

func TestInitDB_SeedsTopics(t *testing.T) {
	db, teardown, err := InitDB(":memory:", "", "")
	require.NoError(t, err)
	defer teardown()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM topics").Scan(&count))
	assert.Equal(t, 5, count)
}

func TestInitDB_IsIdempotentOnFile(t *testing.T) {
	path := t.TempDir() + "/pairup.db"

	_, teardown, err := InitDB(path, "", "")
	require.NoError(t, err)
	teardown()

	db, teardown, err := InitDB(path, "", "")
	require.NoError(t, err, "running migrations twice should be a no-op")
	defer teardown()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM topics").Scan(&count))
	assert.Equal(t, 5, count)
}

func TestLocalDSN(t *testing.T) {
	assert.Equal(t, ":memory:", localDSN(":memory:"))
	dsn := localDSN("/tmp/pairup.db")
	assert.Contains(t, dsn, "_busy_timeout=5000")
	assert.Contains(t, dsn, "_txlock=immediate")
}
