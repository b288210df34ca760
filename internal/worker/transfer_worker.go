package worker

import (
	"AssetVault/config"
	"AssetVault/internal/fetch"
	"AssetVault/internal/fileinfo"
	"AssetVault/internal/jobstore"
	"AssetVault/internal/mq"
	"AssetVault/internal/progress"
	"AssetVault/internal/repo"
	"AssetVault/internal/storage"
	"AssetVault/internal/task"
	"AssetVault/internal/transfer"
	"AssetVault/utils"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

type dlqMessage struct {
	JobID    string    `json:"job_id"`
	Attempt  int       `json:"attempt"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// RunTransferWorker consumes transfer jobs from RabbitMQ.
func RunTransferWorker(ctx context.Context) error {
	client, err := mq.Dial()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.DeclareTopology(); err != nil {
		return err
	}

	prefetch := config.AppConfig.RabbitMQPrefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := client.Channel.Qos(prefetch, 0, false); err != nil {
		return err
	}

	deliveries, err := client.Channel.Consume(
		mq.QueueTasks,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	orch := newOrchestrator()
	go sweepTempDirs(ctx)

	concurrency := config.AppConfig.TransferWorkerConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)

	burst := config.AppConfig.TransferBurst
	if burst <= 0 {
		burst = 1
	}
	rateLimit := config.AppConfig.TransferRate
	var limiter *rate.Limiter
	if rateLimit <= 0 {
		limiter = rate.NewLimiter(rate.Inf, burst)
	} else {
		limiter = rate.NewLimiter(rate.Limit(rateLimit), burst)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("transfer worker: delivery channel closed")
			}
			sem <- struct{}{}
			go func(d amqp.Delivery) {
				defer func() { <-sem }()
				handleTransferMessage(ctx, client, orch, limiter, d)
			}(delivery)
		}
	}
}

func newOrchestrator() *transfer.Orchestrator {
	cfg := config.AppConfig
	return transfer.New(fetch.NewHTTPFetcher(), storage.Default, progress.NewManager(), transfer.Options{
		DownloadDir:     cfg.DownloadDir,
		ProcessingDir:   cfg.ProcessingDir,
		FetchAttempts:   cfg.FetchAttempts,
		FetchRetryDelay: cfg.FetchRetryDelay,
		DownloadTimeout: cfg.DownloadTimeout,
		PollInterval:    cfg.DownloadPollInterval,
		StallThreshold:  cfg.DownloadStallThreshold,
	})
}

func handleTransferMessage(ctx context.Context, client *mq.Client, orch *transfer.Orchestrator, limiter *rate.Limiter, delivery amqp.Delivery) {
	var msg task.TransferMessage
	if err := json.Unmarshal(delivery.Body, &msg); err != nil {
		log.Printf("transfer worker: invalid message: %v", err)
		_ = delivery.Ack(false)
		return
	}

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			_ = delivery.Nack(false, true)
			return
		}
	}

	if deferred, err := processTransferJob(ctx, orch, msg.JobID); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			_ = delivery.Nack(false, true)
			return
		}
		if shouldRetry(err) {
			if err := scheduleRetry(ctx, client, msg, deferred, err); err != nil {
				log.Printf("transfer worker: retry schedule failed: %v", err)
				_ = delivery.Nack(false, true)
				return
			}
		} else {
			if err := markFailed(ctx, client, msg, deferred, err); err != nil {
				log.Printf("transfer worker: mark failed failed: %v", err)
				_ = delivery.Nack(false, true)
				return
			}
		}
	}

	_ = delivery.Ack(false)
}

// failureCapture holds a terminal failure report that was withheld from the
// job store while the worker decides whether to requeue the job.
type failureCapture struct {
	seen    bool
	details string
	err     error
}

// captureFailure wraps a reporter so Failed reports are captured instead of
// published. A job row must never show failed and then move back to queued
// when a retry is scheduled; once failed is written it stays final.
func captureFailure(rep transfer.Reporter, captured *failureCapture) transfer.Reporter {
	return func(jobID string, state transfer.State, progress int, details string, jobErr error, extra map[string]any) {
		if state == transfer.StateFailed {
			captured.seen = true
			captured.details = details
			captured.err = jobErr
			return
		}
		if rep != nil {
			rep(jobID, state, progress, details, jobErr, extra)
		}
	}
}

func processTransferJob(ctx context.Context, orch *transfer.Orchestrator, jobID string) (*failureCapture, error) {
	lock := repo.NewRedisLock(repo.Redis, "transfer:job:"+jobID, 2*config.AppConfig.DownloadTimeout)
	if err := lock.Lock(ctx); err != nil {
		return nil, fmt.Errorf("job %s already in progress: %w", jobID, err)
	}
	defer func() {
		if err := lock.Unlock(context.Background()); err != nil {
			log.Printf("transfer worker: unlock job %s: %v", jobID, err)
		}
	}()

	job, err := jobstore.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if transfer.State(job.State).Terminal() {
		log.Printf("transfer worker: job %s already %s, skipping", jobID, job.State)
		return nil, nil
	}

	deferred := &failureCapture{}
	result := orch.Run(ctx, jobID, job.SourceURL, job.FolderName, captureFailure(jobstore.Report, deferred))
	if result.Success {
		notifyTerminal(jobID, transfer.StateCompleted, result.ShareLink, "")
		return nil, nil
	}
	return deferred, result.Err
}

func shouldRetry(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	var httpErr *fetch.HTTPStatusError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == http.StatusRequestTimeout || httpErr.StatusCode == http.StatusTooManyRequests {
			return true
		}
		return httpErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}

func scheduleRetry(ctx context.Context, client *mq.Client, msg task.TransferMessage, deferred *failureCapture, procErr error) error {
	maxRetry := config.AppConfig.TransferRetryMax
	if maxRetry < 0 {
		maxRetry = 0
	}
	nextAttempt := msg.Attempt + 1
	if maxRetry == 0 || nextAttempt > maxRetry {
		return markFailed(ctx, client, msg, deferred, procErr)
	}

	delay := pickRetryDelay(nextAttempt, config.AppConfig.TransferRetryDelays)
	nextRetryAt := time.Now().Add(delay)
	if err := jobstore.MarkRetrying(msg.JobID, nextAttempt, nextRetryAt, procErr); err != nil {
		return err
	}

	msg.Attempt = nextAttempt
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return client.PublishRetry(ctx, body, delay)
}

func markFailed(ctx context.Context, client *mq.Client, msg task.TransferMessage, deferred *failureCapture, procErr error) error {
	failedAt := time.Now()
	details := "Transfer failed"
	if deferred != nil && deferred.seen && deferred.details != "" {
		details = deferred.details
	}
	jobstore.Report(msg.JobID, transfer.StateFailed, 0, details, procErr, nil)
	notifyTerminal(msg.JobID, transfer.StateFailed, "", procErr.Error())

	dlq := dlqMessage{
		JobID:    msg.JobID,
		Attempt:  msg.Attempt,
		Error:    procErr.Error(),
		FailedAt: failedAt,
	}
	body, err := json.Marshal(dlq)
	if err != nil {
		return err
	}
	if err := client.PublishDLQ(ctx, body); err != nil {
		log.Printf("transfer worker: dlq publish failed: %v", err)
	}
	return nil
}

func notifyTerminal(jobID string, state transfer.State, shareLink, errMsg string) {
	to := config.AppConfig.NotifyEmail
	if to == "" {
		return
	}
	if err := utils.SendTransferMail(to, jobID, string(state), shareLink, errMsg); err != nil {
		log.Printf("transfer worker: notify mail for job %s: %v", jobID, err)
	}
}

func pickRetryDelay(attempt int, delays []time.Duration) time.Duration {
	if len(delays) == 0 {
		return 0
	}
	index := attempt - 1
	if index < 0 {
		index = 0
	}
	if index >= len(delays) {
		return delays[len(delays)-1]
	}
	return delays[index]
}

func sweepTempDirs(ctx context.Context) {
	interval := config.AppConfig.TempFileMaxAge
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := fileinfo.SweepDirs(config.AppConfig.TempFileMaxAge,
				config.AppConfig.DownloadDir, config.AppConfig.ProcessingDir)
			if len(removed) > 0 {
				log.Printf("transfer worker: swept %d stale temp files", len(removed))
			}
		}
	}
}
