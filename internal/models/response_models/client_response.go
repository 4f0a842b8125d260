package response_models

import "hairsim/internal/models/domain_models"

type ClientResponse struct {
	ID                string                   `json:"id"`
	Status            string                   `json:"status"`
	Intake            domain_models.Intake     `json:"intake"`
	FrontImageURL     string                   `json:"front_image_url,omitempty"`
	Selection         *domain_models.Selection `json:"selection,omitempty"`
	Adjustment        string                   `json:"adjustment,omitempty"`
	Report            domain_models.Report     `json:"report,omitempty"`
	GeneratedImageURL string                   `json:"generated_image_url,omitempty"`
	CreatedAt         int64                    `json:"created_at"`
	UpdatedAt         int64                    `json:"updated_at"`
	ReportGeneratedAt int64                    `json:"report_generated_at,omitempty"`
}

// NewClientResponse maps a record for the API. Prompts stay internal and
// object refs are turned into URLs with imageURL.
func NewClientResponse(rec *domain_models.ClientRecord, imageURL func(ref string) string) ClientResponse {
	resp := ClientResponse{
		ID:                rec.ID,
		Status:            string(rec.Status),
		Intake:            rec.Intake,
		Selection:         rec.Selection,
		Adjustment:        string(rec.Adjustment),
		Report:            rec.Report,
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
		ReportGeneratedAt: rec.ReportGeneratedAt,
	}
	if rec.FrontImageRef != "" {
		resp.FrontImageURL = imageURL(rec.FrontImageRef)
	}
	if rec.GeneratedImageRef != "" {
		resp.GeneratedImageURL = imageURL(rec.GeneratedImageRef)
	}
	return resp
}

type ClientListResponse struct {
	Clients []ClientResponse `json:"clients"`
	Total   int              `json:"total"`
}
