package dto

import "AssetVault/internal/fileinfo"

// TransferResponse is the response for a submitted transfer.
type TransferResponse struct {
	JobID string `json:"job_id"`
	State string `json:"state"`
}

// TokenResponse carries an issued API token.
type TokenResponse struct {
	Token string `json:"token"`
}

// StatsResponse reports staging directory usage.
type StatsResponse struct {
	Downloads  fileinfo.DirStats `json:"downloads"`
	Processing fileinfo.DirStats `json:"processing"`
}
