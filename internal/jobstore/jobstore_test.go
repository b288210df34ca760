package jobstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"AssetVault/internal/transfer"
)

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "job:abc", cacheKey("abc"))
}

func TestReportWithoutDatabase(t *testing.T) {
	// With no database configured the reporter degrades to logging and must
	// never panic; the pipeline treats it as best-effort.
	assert.NotPanics(t, func() {
		Report("job-1", transfer.StateDownloading, 20, "Downloading", nil, nil)
		Report("job-1", transfer.StateFailed, 0, "Failed", errors.New("boom"), nil)
	})
}
