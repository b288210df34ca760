package jobstore

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/net/context"
	"gorm.io/gorm"

	"AssetVault/internal/repo"
	"AssetVault/internal/storage"
	"AssetVault/internal/transfer"
	"AssetVault/model"
)

const jobCacheTTL = 10 * time.Minute

func cacheKey(jobID string) string {
	return "job:" + jobID
}

// CreateJob persists a new queued job record.
func CreateJob(job *model.TransferJob) error {
	if job.State == "" {
		job.State = string(transfer.StateQueued)
	}
	if err := repo.Db.Create(job).Error; err != nil {
		return err
	}
	cacheJob(context.Background(), job)
	return nil
}

// GetJob returns a job record, serving from the Redis cache when possible.
func GetJob(ctx context.Context, jobID string) (*model.TransferJob, error) {
	if repo.Redis != nil {
		val, err := repo.Redis.Get(ctx, cacheKey(jobID)).Result()
		if err == nil {
			var job model.TransferJob
			if err := json.Unmarshal([]byte(val), &job); err == nil {
				return &job, nil
			}
		} else if err != redis.Nil {
			log.Printf("job cache read failed: %v", err)
		}
	}

	var job model.TransferJob
	if err := repo.Db.Where("id = ?", jobID).First(&job).Error; err != nil {
		return nil, err
	}
	cacheJob(ctx, &job)
	return &job, nil
}

// ListJobs returns the most recent job records.
func ListJobs(limit int) ([]model.TransferJob, error) {
	if limit <= 0 {
		limit = 20
	}
	var jobs []model.TransferJob
	err := repo.Db.Order("created_at DESC").Limit(limit).Find(&jobs).Error
	return jobs, err
}

// MarkRetrying records a scheduled retry attempt.
func MarkRetrying(jobID string, attempt int, nextRetryAt time.Time, procErr error) error {
	updates := map[string]interface{}{
		"state":         string(transfer.StateQueued),
		"details":       "Retry scheduled",
		"retry_count":   attempt,
		"next_retry_at": &nextRetryAt,
	}
	if procErr != nil {
		updates["error_msg"] = procErr.Error()
	}
	if err := repo.Db.Model(&model.TransferJob{}).Where("id = ?", jobID).Updates(updates).Error; err != nil {
		return err
	}
	invalidate(jobID)
	return nil
}

// Report is the transfer.Reporter backed by MySQL and Redis. It is
// best-effort by contract: persistence failures are logged, never surfaced
// back into the pipeline.
func Report(jobID string, state transfer.State, progress int, details string, jobErr error, extra map[string]any) {
	if repo.Db == nil {
		log.Printf("job %s: %s (%d%%) %s", jobID, state, progress, details)
		return
	}

	now := time.Now()
	updates := map[string]interface{}{
		"state":    string(state),
		"progress": progress,
	}
	if details != "" {
		updates["details"] = details
	}
	if jobErr != nil {
		updates["error_msg"] = jobErr.Error()
	}
	if state == transfer.StateExtracting {
		updates["started_at"] = &now
	}
	if state.Terminal() {
		updates["ended_at"] = &now
	}

	if extra != nil {
		if meta, ok := extra["file_info"].(storage.FileMeta); ok {
			updates["file_id"] = meta.FileID
			updates["file_name"] = meta.FileName
			updates["mime_type"] = meta.MimeType
			updates["size_bytes"] = meta.SizeBytes
			updates["view_link"] = meta.ViewLink
		}
		if link, ok := extra["share_link"].(string); ok {
			updates["share_link"] = link
		}
		if secs, ok := extra["duration_seconds"].(float64); ok {
			updates["duration_seconds"] = secs
		}
	}

	if err := repo.Db.Model(&model.TransferJob{}).Where("id = ?", jobID).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("job %s not found for status update", jobID)
		} else {
			log.Printf("job %s status update failed: %v", jobID, err)
		}
		return
	}
	refresh(jobID)
}

// cacheJob writes a job record into the Redis cache.
func cacheJob(ctx context.Context, job *model.TransferJob) {
	if repo.Redis == nil || job == nil {
		return
	}
	data, err := json.Marshal(job)
	if err != nil {
		return
	}
	if err := repo.Redis.Set(ctx, cacheKey(job.ID), data, jobCacheTTL).Err(); err != nil {
		log.Printf("job cache write failed: %v", err)
	}
}

// refresh re-reads the row and updates the cache with the latest state.
func refresh(jobID string) {
	if repo.Redis == nil {
		return
	}
	var job model.TransferJob
	if err := repo.Db.Where("id = ?", jobID).First(&job).Error; err != nil {
		invalidate(jobID)
		return
	}
	cacheJob(context.Background(), &job)
}

func invalidate(jobID string) {
	if repo.Redis == nil {
		return
	}
	if err := repo.Redis.Del(context.Background(), cacheKey(jobID)).Err(); err != nil {
		log.Printf("job cache invalidate failed: %v", err)
	}
}
