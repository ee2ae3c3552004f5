package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

func TestIngestCmd_Flags(t *testing.T) {
	assert.Equal(t, "ingest [profile]", ingestCmd.Use)
	wait := ingestCmd.Flags().Lookup("wait")
	require.NotNil(t, wait)
	assert.Equal(t, "true", wait.DefValue)
	require.NotNil(t, ingestCmd.Flags().Lookup("truncate"))
	require.NotNil(t, ingestCmd.Flags().Lookup("json"))
}

func TestIngestCmd_WaitsForCompletion(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "ingest", "cv", "--truncate")
	require.NoError(t, err)

	assert.Equal(t, []string{"cv"}, ts.ingestion.enqueued)
	assert.True(t, ts.ingestion.truncated)
	assert.Contains(t, out, "Ingesting")
	assert.Contains(t, out, "job-cv")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "Files:   2/2")
	assert.Contains(t, out, "Chunks:  7")
}

func TestIngestCmd_NoWait(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "ingest", "cv", "--wait=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Job job-cv queued for profile cv (collection docs_cv)")

	out, err = execute(t, "ingest", "cv", "--wait=false", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"job_id": "job-cv"`)
	assert.Contains(t, out, `"status": "queued"`)
}

func TestIngestCmd_JSONAfterWait(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "ingest", "cv", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "completed"`)
	assert.NotContains(t, out, "Ingesting")
}

func TestIngestCmd_FailedJob(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.ingestion.finalStatus = domain.JobFailed
	ts.ingestion.finalError = "dimension mismatch"

	out, err := execute(t, "ingest", "cv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job job-cv failed: dimension mismatch")
	assert.Contains(t, out, "dimension mismatch")
}

func TestIngestCmd_CanceledJob(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.ingestion.finalStatus = domain.JobCanceled

	_, err := execute(t, "ingest", "cv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "canceled")
}

func TestIngestCmd_EnqueueError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.ingestion.err = domain.ErrProfileNotFound

	_, err := execute(t, "ingest", "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestProgressLine(t *testing.T) {
	line := progressLine(&domain.Job{
		Phase: domain.PhaseExtract, FilesDone: 1, FilesTotal: 3, PagesDone: 4, PagesTotal: 10,
		ChunksDone: 9, CurrentFile: "cv.pdf",
	})
	assert.Equal(t, "[extract] files 1/3 pages 4/10 chunks 9 cv.pdf", line)
}
