package dto

type TransferRequest struct {
	URL        string `json:"url" binding:"required"`
	FolderName string `json:"folder_name" binding:"required"`
}

type TokenRequest struct {
	ClientID string `json:"client_id" binding:"required"`
}
