package request_models

import "hairsim/internal/models/domain_models"

type CreateClientRequest struct {
	Name         string `json:"name" binding:"required,max=200"`
	Age          *int   `json:"age" binding:"omitempty,min=0,max=130"`
	Gender       string `json:"gender" binding:"max=50"`
	PhoneNumber  string `json:"phone_number" binding:"max=50"`
	EmailAddress string `json:"email_address" binding:"omitempty,email"`
	Notes        string `json:"notes" binding:"max=4000"`
	ImageConsent bool   `json:"image_consent"`
}

func (r CreateClientRequest) Intake() domain_models.Intake {
	return domain_models.Intake{
		Name:         r.Name,
		Age:          r.Age,
		Gender:       r.Gender,
		PhoneNumber:  r.PhoneNumber,
		EmailAddress: r.EmailAddress,
		Notes:        r.Notes,
		ImageConsent: r.ImageConsent,
	}
}

type SaveSelectionRequest struct {
	HairlineID  string `json:"hairline_id" binding:"required"`
	HairstyleID string `json:"hairstyle_id" binding:"required"`
}
