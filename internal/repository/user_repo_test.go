package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusrbx/nexusrbx-server/internal/model"
	"github.com/nexusrbx/nexusrbx-server/internal/testutil"
)

func TestUserRepository_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	_ = NewUserRepository(db)

	email := "test@example.com"
	user := testutil.TestUser(t, db, testutil.WithEmail(email))

	assert.NotZero(t, user.ID)
	assert.Equal(t, email, *user.Email)
	assert.Equal(t, model.PlanFree, user.Plan)
	assert.Equal(t, int64(50000), user.SubLimit)
}

func TestUserRepository_GetByUID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)

	created := testutil.TestUser(t, db, testutil.WithUID("u_abc123"))

	found, err := repo.GetByUID("u_abc123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
}

func TestUserRepository_GetByUID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)

	_, err := repo.GetByUID("u_nobody")
	assert.Error(t, err)
}

func TestUserRepository_GetByStripeCustomerID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)

	testutil.TestUser(t, db, testutil.WithUID("u_stripe"), testutil.WithStripeCustomer("cus_123"))

	found, err := repo.GetByStripeCustomerID("cus_123")
	require.NoError(t, err)
	assert.Equal(t, "u_stripe", found.UID)
}

func TestUserRepository_UpsertEntitlement_UpdatesExisting(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)

	user := testutil.TestUser(t, db, testutil.WithUID("u_ent1"))
	require.Equal(t, model.PlanFree, user.Plan)

	err := repo.UpsertEntitlement("u_ent1", model.PlanPro, model.CycleMonthly)
	require.NoError(t, err)

	found, err := repo.GetByUID("u_ent1")
	require.NoError(t, err)
	assert.Equal(t, model.PlanPro, found.Plan)
	assert.Equal(t, int64(500000), found.SubLimit)
	assert.Equal(t, model.CycleMonthly, found.BillingCycle)
}

func TestUserRepository_UpsertEntitlement_CreatesMissing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)

	err := repo.UpsertEntitlement("u_newcomer", model.PlanPro, model.CycleYearly)
	require.NoError(t, err)

	found, err := repo.GetByUID("u_newcomer")
	require.NoError(t, err)
	assert.Equal(t, model.PlanPro, found.Plan)
	assert.Equal(t, int64(500000), found.SubLimit)
}

func TestUserRepository_UpsertEntitlement_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)

	testutil.TestUser(t, db, testutil.WithUID("u_idem"))

	require.NoError(t, repo.UpsertEntitlement("u_idem", model.PlanPro, model.CycleMonthly))
	require.NoError(t, repo.UpsertEntitlement("u_idem", model.PlanPro, model.CycleMonthly))

	found, err := repo.GetByUID("u_idem")
	require.NoError(t, err)
	assert.Equal(t, model.PlanPro, found.Plan)
	assert.Equal(t, int64(500000), found.SubLimit)

	var count int64
	require.NoError(t, db.Model(&model.User{}).Where("uid = ?", "u_idem").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUserRepository_UpsertEntitlement_Downgrade(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)

	testutil.TestUser(t, db, testutil.WithUID("u_down"), testutil.WithPlan(model.PlanPro))

	err := repo.UpsertEntitlement("u_down", model.PlanFree, "")
	require.NoError(t, err)

	found, err := repo.GetByUID("u_down")
	require.NoError(t, err)
	assert.Equal(t, model.PlanFree, found.Plan)
	assert.Equal(t, int64(50000), found.SubLimit)
}

func TestUserRepository_AddTokensUsed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)

	user := testutil.TestUser(t, db, testutil.WithTokensUsed(100))

	require.NoError(t, repo.AddTokensUsed(user.ID, 250))

	found, err := repo.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(350), found.TokensUsed)
}

func TestUserRepository_CreditTokens(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)

	user := testutil.TestUser(t, db)

	require.NoError(t, repo.CreditTokens(user.ID, 100000))
	require.NoError(t, repo.CreditTokens(user.ID, 50000))

	found, err := repo.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(150000), found.TokenBalance)
}

func TestUserRepository_DebitTokenBalance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)

	user := testutil.TestUser(t, db, testutil.WithTokenBalance(1000))

	ok, err := repo.DebitTokenBalance(user.ID, 600)
	require.NoError(t, err)
	assert.True(t, ok)

	// 余额不足时不扣
	ok, err = repo.DebitTokenBalance(user.ID, 600)
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := repo.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(400), found.TokenBalance)
}

func TestUserRepository_ResetAllUsage(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)

	u1 := testutil.TestUser(t, db, testutil.WithTokensUsed(4000))
	u2 := testutil.TestUser(t, db, testutil.WithTokensUsed(9000))

	next := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.ResetAllUsage(next))

	for _, id := range []int64{u1.ID, u2.ID} {
		found, err := repo.GetByID(id)
		require.NoError(t, err)
		assert.Zero(t, found.TokensUsed)
		require.NotNil(t, found.UsageResetAt)
		assert.True(t, found.UsageResetAt.Equal(next))
	}
}

func TestUserRepository_ExistsByUsername(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)

	testutil.TestUser(t, db, testutil.WithUsername("builderman"))

	exists, err := repo.ExistsByUsername("builderman")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByUsername("nobody")
	require.NoError(t, err)
	assert.False(t, exists)
}
