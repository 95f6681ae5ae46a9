//go:build integration
// +build integration

package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/themizzi/uiverify/internal/models"
	"github.com/themizzi/uiverify/internal/repository/testutil"
)

func TestRunRepository_CreateRun_Integration(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	defer testDB.Teardown(t)

	repo := NewRunRepositoryWithDB(testDB.DB)

	// GIVEN
	run := models.NewRun("settings", "file:///srv/app.html", "playwright")

	// WHEN
	err := repo.CreateRun(run)

	// THEN
	require.NoError(t, err)

	retrieved, err := repo.GetRunByID(run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, retrieved.ID)
	assert.Equal(t, "settings", retrieved.ScenarioName)
	assert.Equal(t, "file:///srv/app.html", retrieved.Target)
	assert.Equal(t, "playwright", retrieved.Engine)
	assert.Equal(t, models.RunStatusPending, retrieved.Status)
	assert.Empty(t, retrieved.Artifacts)
	assert.Empty(t, retrieved.Error)
	assert.True(t, retrieved.FinishedAt.IsZero())
	assert.WithinDuration(t, run.StartedAt, retrieved.StartedAt, time.Second)
}

func TestRunRepository_CreateRun_DuplicateID_Integration(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	defer testDB.Teardown(t)

	repo := NewRunRepositoryWithDB(testDB.DB)

	run := models.NewRun("settings", "file:///srv/app.html", "playwright")
	require.NoError(t, repo.CreateRun(run))

	err := repo.CreateRun(run)
	assert.Error(t, err, "expected error when creating a run with a duplicate id")
}

func TestRunRepository_FinishRun_Integration(t *testing.T) {
	tests := []struct {
		name   string
		finish func(*testing.T, *models.Run)
		check  func(*testing.T, *models.Run)
	}{
		{
			name: "passed with artifacts",
			finish: func(t *testing.T, run *models.Run) {
				run.AddArtifact("out/dashboard.png")
				run.AddArtifact("out/settings.png")
				require.NoError(t, run.Pass())
			},
			check: func(t *testing.T, got *models.Run) {
				assert.Equal(t, models.RunStatusPassed, got.Status)
				assert.Equal(t, []string{"out/dashboard.png", "out/settings.png"}, got.Artifacts)
				assert.Empty(t, got.Error)
				assert.Zero(t, got.FailedStep)
			},
		},
		{
			name: "failed at a step",
			finish: func(t *testing.T, run *models.Run) {
				require.NoError(t, run.Fail(2, errors.New(`step 2 (click "#settingsButton"): element not found`)))
			},
			check: func(t *testing.T, got *models.Run) {
				assert.Equal(t, models.RunStatusFailed, got.Status)
				assert.Equal(t, 2, got.FailedStep)
				assert.Contains(t, got.Error, "#settingsButton")
				assert.Empty(t, got.Artifacts)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testDB := testutil.SetupTestDatabase(t)
			defer testDB.Teardown(t)

			repo := NewRunRepositoryWithDB(testDB.DB)

			// GIVEN
			run := models.NewRun("settings", "http://localhost:8000/index.html", "chromedp")
			require.NoError(t, repo.CreateRun(run))
			tt.finish(t, run)

			// WHEN
			err := repo.FinishRun(run)

			// THEN
			require.NoError(t, err)
			got, err := repo.GetRunByID(run.ID)
			require.NoError(t, err)
			tt.check(t, got)
			assert.False(t, got.FinishedAt.IsZero())
		})
	}
}

func TestRunRepository_FinishRun_NotFound_Integration(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	defer testDB.Teardown(t)

	repo := NewRunRepositoryWithDB(testDB.DB)

	run := models.NewRun("never created", "file:///srv/app.html", "playwright")
	require.NoError(t, run.Pass())

	err := repo.FinishRun(run)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRunRepository_GetRunByID_NotFound_Integration(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	defer testDB.Teardown(t)

	repo := NewRunRepositoryWithDB(testDB.DB)

	run, err := repo.GetRunByID(uuid.New().String())
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.Nil(t, run)
}

func TestRunRepository_ListRecentRuns_Integration(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	defer testDB.Teardown(t)

	repo := NewRunRepositoryWithDB(testDB.DB)

	// GIVEN three runs started a minute apart
	base := time.Now().Add(-time.Hour)
	var ids []string
	for i := 0; i < 3; i++ {
		run := models.NewRun("scenario", "file:///srv/app.html", "playwright")
		run.StartedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.CreateRun(run))
		ids = append(ids, run.ID)
	}

	// WHEN
	runs, err := repo.ListRecentRuns(2)

	// THEN
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID, "newest first")
	assert.Equal(t, ids[1], runs[1].ID)
}

func TestRunRepository_ListRecentRuns_Empty_Integration(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	defer testDB.Teardown(t)

	repo := NewRunRepositoryWithDB(testDB.DB)

	runs, err := repo.ListRecentRuns(10)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestRunRepository_ConcurrentCreates_Integration(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	defer testDB.Teardown(t)

	repo := NewRunRepositoryWithDB(testDB.DB)

	const numRuns = 10
	errChan := make(chan error, numRuns)

	for i := 0; i < numRuns; i++ {
		go func() {
			errChan <- repo.CreateRun(models.NewRun("concurrent", "file:///srv/app.html", "playwright"))
		}()
	}

	for i := 0; i < numRuns; i++ {
		if err := <-errChan; err != nil {
			t.Errorf("Concurrent create failed: %v", err)
		}
	}

	runs, err := repo.ListRecentRuns(numRuns * 2)
	require.NoError(t, err)
	assert.Len(t, runs, numRuns)
}

func TestRunRepository_SchemaIsolation_Integration(t *testing.T) {
	testDB1 := testutil.SetupTestDatabase(t)
	defer testDB1.Teardown(t)

	testDB2 := testutil.SetupTestDatabase(t)
	defer testDB2.Teardown(t)

	repo1 := NewRunRepositoryWithDB(testDB1.DB)
	repo2 := NewRunRepositoryWithDB(testDB2.DB)

	run := models.NewRun("isolated", "file:///srv/app.html", "playwright")
	require.NoError(t, repo1.CreateRun(run))

	_, err := repo1.GetRunByID(run.ID)
	assert.NoError(t, err, "run should exist in first schema")

	_, err = repo2.GetRunByID(run.ID)
	assert.ErrorIs(t, err, ErrRunNotFound, "run should not exist in second schema")
}
