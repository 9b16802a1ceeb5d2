package http

// APIResponse is the envelope for JSON responses that are not a bare document.
type APIResponse struct {
	Status  int         `json:"status" example:"200"`
	Message string      `json:"message" example:"OK"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationError describes one rejected request field.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_LEN"`
	Field   string                 `json:"field,omitempty" example:"fiat"`
	Message string                 `json:"message,omitempty" example:"fiat must be 3 characters"`
	Params  map[string]interface{} `json:"params,omitempty"`
}
