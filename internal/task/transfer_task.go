package task

import (
	"AssetVault/internal/jobstore"
	"AssetVault/internal/mq"
	"AssetVault/internal/transfer"
	"AssetVault/model"
	"AssetVault/utils"
	"context"
	"encoding/json"
)

// TransferMessage is the payload sent to the worker.
type TransferMessage struct {
	JobID   string `json:"job_id"`
	Attempt int    `json:"attempt"`
}

// CreateTransferJob persists a queued job and enqueues it for the worker.
func CreateTransferJob(sourceURL, folderName string) (*model.TransferJob, error) {
	job := &model.TransferJob{
		ID:         utils.GetToken(),
		SourceURL:  sourceURL,
		FolderName: folderName,
		State:      string(transfer.StateQueued),
		Progress:   0,
		Details:    "Job queued",
	}
	if err := jobstore.CreateJob(job); err != nil {
		return nil, err
	}

	msg := TransferMessage{
		JobID:   job.ID,
		Attempt: 0,
	}
	body, err := json.Marshal(msg)
	if err != nil {
		markEnqueueFailed(job.ID, err)
		return nil, err
	}
	publisher, err := mq.GetPublisher()
	if err != nil {
		markEnqueueFailed(job.ID, err)
		return nil, err
	}
	if err := publisher.PublishTask(context.Background(), body); err != nil {
		markEnqueueFailed(job.ID, err)
		return nil, err
	}
	return job, nil
}

func markEnqueueFailed(jobID string, err error) {
	jobstore.Report(jobID, transfer.StateFailed, 0, "Failed to enqueue job", err, nil)
}
