package request_models

type GenerateRequest struct {
	AutoSelect bool   `json:"auto_select"`
	Adjustment string `json:"adjustment" binding:"omitempty,oneof=standard_4_6cm predefined_line"`
}
