package handler

import (
	"AssetVault/internal/dto"
	"AssetVault/internal/fetch"
	"AssetVault/internal/jobstore"
	"AssetVault/internal/task"
	"AssetVault/utils"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// SubmitTransfer creates a transfer job and enqueues it.
func SubmitTransfer(c *gin.Context) {
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if err := fetch.ValidateSourceURL(req.URL); err != nil {
		msg := err.Error()
		if msg == "host not allowed" || msg == "ip not allowed" {
			msg = msg + "; for local/private testing set SOURCE_ALLOW_PRIVATE=true"
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	job, err := task.CreateTransferJob(req.URL, req.FolderName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	utils.Success(c, dto.TransferResponse{JobID: job.ID, State: job.State})
}

// GetTransferStatus returns the current state of a transfer job.
func GetTransferStatus(c *gin.Context) {
	jobID := c.Param("jobID")
	job, err := jobstore.GetJob(c.Request.Context(), jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	utils.Success(c, job)
}

// ListTransfers returns recent transfer jobs.
func ListTransfers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	jobs, err := jobstore.ListJobs(limit)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Success(c, jobs)
}
