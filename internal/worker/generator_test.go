package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusrbx/nexusrbx-server/config"
	"github.com/nexusrbx/nexusrbx-server/internal/model"
	"github.com/nexusrbx/nexusrbx-server/internal/pkg/ai"
	"github.com/nexusrbx/nexusrbx-server/internal/pkg/queue"
	"github.com/nexusrbx/nexusrbx-server/internal/repository"
	"github.com/nexusrbx/nexusrbx-server/internal/service"
	"github.com/nexusrbx/nexusrbx-server/internal/testutil"
	"gorm.io/gorm"
)

// fakeGenerator 返回固定脚本，替代真实 LLM 调用
type fakeGenerator struct {
	code   string
	tokens int64
	err    error
}

func (f *fakeGenerator) GenerateScript(ctx context.Context, prompt, modelName string) (*ai.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ai.Result{Code: f.code, TokensUsed: f.tokens}, nil
}

const scriptWithManifest = `--[[NEXUSRBX_UI_MANIFEST
{"version":1,"elements":[{"type":"Frame","name":"Main","props":{},"children":[]}]}
]]
local frame = Instance.new("Frame")
frame.Name = "Main"
`

func setupProcessor(t *testing.T, gen ScriptGenerator) (*Processor, *gorm.DB, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	jobRepo := repository.NewJobRepository(db)
	scriptRepo := repository.NewScriptRepository(db)
	userRepo := repository.NewUserRepository(db)
	quotaService := service.NewQuotaService(userRepo, &config.Config{})

	processor := NewProcessor(jobRepo, scriptRepo, gen, nil, nil, quotaService)

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}

	return processor, db, cleanup
}

func createJobFixture(t *testing.T, db *gorm.DB, userID int64) (*model.Script, *model.GenerationJob) {
	t.Helper()

	script := testutil.TestScript(t, db, userID)
	job := testutil.TestJob(t, db, script.ID, userID)
	return script, job
}

func TestProcessor_Process_Success(t *testing.T) {
	gen := &fakeGenerator{code: scriptWithManifest, tokens: 1200}
	processor, db, cleanup := setupProcessor(t, gen)
	defer cleanup()

	user := testutil.TestUser(t, db)
	script, job := createJobFixture(t, db, user.ID)

	msg := &queue.JobMessage{
		JobID:     job.ID,
		ScriptID:  script.ID,
		UserID:    user.ID,
		Prompt:    "make a frame",
		ModelName: "gemini-1.5-flash",
	}

	err := processor.Process(context.Background(), msg)
	require.NoError(t, err)

	var gotJob model.GenerationJob
	require.NoError(t, db.First(&gotJob, job.ID).Error)
	assert.Equal(t, model.JobStatusCompleted, gotJob.Status)
	assert.NotNil(t, gotJob.StartedAt)
	assert.NotNil(t, gotJob.CompletedAt)

	var gotScript model.Script
	require.NoError(t, db.First(&gotScript, script.ID).Error)
	assert.Equal(t, model.ScriptStatusCompleted, gotScript.Status)
	assert.Contains(t, gotScript.Code, "Instance.new")
	assert.Contains(t, gotScript.ManifestJSON, `"type":"Frame"`)
	assert.Equal(t, int64(1200), gotScript.TokensUsed)

	var gotUser model.User
	require.NoError(t, db.First(&gotUser, user.ID).Error)
	assert.Equal(t, int64(1200), gotUser.TokensUsed)
}

func TestProcessor_Process_StripsCodeFence(t *testing.T) {
	gen := &fakeGenerator{code: "```lua\nprint(\"hi\")\n```", tokens: 10}
	processor, db, cleanup := setupProcessor(t, gen)
	defer cleanup()

	user := testutil.TestUser(t, db)
	script, job := createJobFixture(t, db, user.ID)

	msg := &queue.JobMessage{
		JobID:    job.ID,
		ScriptID: script.ID,
		UserID:   user.ID,
		Prompt:   "say hi",
	}

	require.NoError(t, processor.Process(context.Background(), msg))

	var gotScript model.Script
	require.NoError(t, db.First(&gotScript, script.ID).Error)
	assert.Equal(t, "print(\"hi\")", gotScript.Code)
}

func TestProcessor_Process_NoManifest(t *testing.T) {
	gen := &fakeGenerator{code: "print(\"no ui here\")", tokens: 5}
	processor, db, cleanup := setupProcessor(t, gen)
	defer cleanup()

	user := testutil.TestUser(t, db)
	script, job := createJobFixture(t, db, user.ID)

	msg := &queue.JobMessage{
		JobID:    job.ID,
		ScriptID: script.ID,
		UserID:   user.ID,
	}

	require.NoError(t, processor.Process(context.Background(), msg))

	var gotScript model.Script
	require.NoError(t, db.First(&gotScript, script.ID).Error)
	assert.Equal(t, model.ScriptStatusCompleted, gotScript.Status)
	assert.Empty(t, gotScript.ManifestJSON)
}

func TestProcessor_Process_GenerationFails(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model overloaded")}
	processor, db, cleanup := setupProcessor(t, gen)
	defer cleanup()

	user := testutil.TestUser(t, db)
	script, job := createJobFixture(t, db, user.ID)

	msg := &queue.JobMessage{
		JobID:    job.ID,
		ScriptID: script.ID,
		UserID:   user.ID,
	}

	err := processor.Process(context.Background(), msg)
	require.Error(t, err)

	var gotJob model.GenerationJob
	require.NoError(t, db.First(&gotJob, job.ID).Error)
	assert.Equal(t, model.JobStatusFailed, gotJob.Status)
	assert.Contains(t, gotJob.ErrorMessage, "model overloaded")

	var gotScript model.Script
	require.NoError(t, db.First(&gotScript, script.ID).Error)
	assert.Equal(t, model.ScriptStatusFailed, gotScript.Status)

	// 失败任务不扣费
	var gotUser model.User
	require.NoError(t, db.First(&gotUser, user.ID).Error)
	assert.Zero(t, gotUser.TokensUsed)
}

func TestProcessor_Process_SkipsCompletedJob(t *testing.T) {
	gen := &fakeGenerator{code: "print(1)", tokens: 100}
	processor, db, cleanup := setupProcessor(t, gen)
	defer cleanup()

	user := testutil.TestUser(t, db)
	script, job := createJobFixture(t, db, user.ID)
	require.NoError(t, db.Model(job).Update("status", model.JobStatusCompleted).Error)

	msg := &queue.JobMessage{
		JobID:    job.ID,
		ScriptID: script.ID,
		UserID:   user.ID,
	}

	require.NoError(t, processor.Process(context.Background(), msg))

	// 重复投递不重复扣费
	var gotUser model.User
	require.NoError(t, db.First(&gotUser, user.ID).Error)
	assert.Zero(t, gotUser.TokensUsed)
}
