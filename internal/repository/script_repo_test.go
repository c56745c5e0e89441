package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusrbx/nexusrbx-server/internal/model"
	"github.com/nexusrbx/nexusrbx-server/internal/testutil"
)

func TestScriptRepository_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewScriptRepository(db)

	user := testutil.TestUser(t, db)
	script := testutil.TestScript(t, db, user.ID)

	found, err := repo.GetByID(script.ID)
	require.NoError(t, err)
	assert.Equal(t, script.Title, found.Title)
	assert.Equal(t, model.ScriptStatusQueued, found.Status)
}

func TestScriptRepository_UpdateFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewScriptRepository(db)

	user := testutil.TestUser(t, db)
	script := testutil.TestScript(t, db, user.ID)

	err := repo.UpdateFields(script.ID, map[string]interface{}{
		"code":        "print('hello')",
		"status":      model.ScriptStatusCompleted,
		"tokens_used": 1234,
	})
	require.NoError(t, err)

	found, err := repo.GetByID(script.ID)
	require.NoError(t, err)
	assert.Equal(t, "print('hello')", found.Code)
	assert.Equal(t, model.ScriptStatusCompleted, found.Status)
	assert.Equal(t, int64(1234), found.TokensUsed)
}

func TestScriptRepository_ListByUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewScriptRepository(db)

	user := testutil.TestUser(t, db)
	other := testutil.TestUser(t, db)
	for i := 0; i < 3; i++ {
		testutil.TestScript(t, db, user.ID)
	}
	testutil.TestScript(t, db, other.ID)

	scripts, total, err := repo.ListByUser(user.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, scripts, 2)
}

func TestScriptRepository_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewScriptRepository(db)

	user := testutil.TestUser(t, db)
	script := testutil.TestScript(t, db, user.ID)

	require.NoError(t, repo.Delete(script.ID))

	_, err := repo.GetByID(script.ID)
	assert.Error(t, err)
}
