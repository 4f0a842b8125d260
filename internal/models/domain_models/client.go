package domain_models

type ClientStatus string

const (
	ClientStatusDraft     ClientStatus = "draft"
	ClientStatusCompleted ClientStatus = "completed"
)

type HairlineAdjustment string

const (
	AdjustmentNone           HairlineAdjustment = ""
	AdjustmentStandard4to6cm HairlineAdjustment = "standard_4_6cm"
	AdjustmentPredefinedLine HairlineAdjustment = "predefined_line"
)

func (a HairlineAdjustment) Valid() bool {
	switch a {
	case AdjustmentNone, AdjustmentStandard4to6cm, AdjustmentPredefinedLine:
		return true
	}
	return false
}

type Intake struct {
	Name         string `json:"name"`
	Age          *int   `json:"age,omitempty"`
	Gender       string `json:"gender,omitempty"`
	PhoneNumber  string `json:"phoneNumber,omitempty"`
	EmailAddress string `json:"emailAddress,omitempty"`
	Notes        string `json:"notes,omitempty"`
	ImageConsent bool   `json:"imageConsent"`
}

type Selection struct {
	Hairline     CatalogEntry `json:"hairline"`
	Hairstyle    CatalogEntry `json:"hairstyle"`
	AutoSelected bool         `json:"autoSelected"`
}

type ClientRecord struct {
	ID                string
	AccountID         string
	Status            ClientStatus
	Intake            Intake
	FrontImageRef     string
	Selection         *Selection
	Adjustment        HairlineAdjustment
	Report            Report
	GeneratedImageRef string
	ImagePrompt       string
	ReportPrompt      string
	CreatedAt         int64
	UpdatedAt         int64
	ReportGeneratedAt int64
}

func (r *ClientRecord) HasFrontImage() bool {
	return r.FrontImageRef != ""
}
