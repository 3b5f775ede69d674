package dto

import "github.com/shoutzor/backend/internal/domain"

type CreateRequestRequest struct {
	MediaID uint `json:"media_id" validate:"required,gt=0"`
}

func (r *CreateRequestRequest) Validate() []string {
	return validateStruct(r)
}

type UploadResponse struct {
	Message string         `json:"message"`
	TaskID  string         `json:"task_id"`
	Upload  *domain.Upload `json:"upload"`
}

type RequestListResponse struct {
	Requests []domain.Request `json:"requests"`
	Count    int              `json:"count"`
}
