package dto

type SettingsResponse struct {
	SmileThreshold float64 `json:"smile_threshold"`
	CooldownMS     int64   `json:"cooldown_ms"`
	AutoCapture    bool    `json:"auto_capture"`
	Theme          string  `json:"theme"`
}

type UpdateSettingsRequest struct {
	SmileThreshold *float64 `json:"smile_threshold,omitempty"`
	CooldownMS     *int64   `json:"cooldown_ms,omitempty"`
	AutoCapture    *bool    `json:"auto_capture,omitempty"`
	Theme          *string  `json:"theme,omitempty"`
}
