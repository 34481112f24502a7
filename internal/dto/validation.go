package dto

// ValidateSuccessResponse and ValidateFailureResponse keep the snake_case keys
// field devices and the collection page already parse.
type ValidateSuccessResponse struct {
	Status       string    `json:"status"`
	DeviceID     string    `json:"device_id"`
	Location     []float64 `json:"location"`
	ValidationID uint64    `json:"validation_id"`
	TokenAddress string    `json:"token_address,omitempty"`
}

type ValidateFailureResponse struct {
	Status       string `json:"status"`
	DeviceID     string `json:"device_id"`
	Reason       string `json:"reason"`
	Message      string `json:"message"`
	ValidationID uint64 `json:"validation_id,omitempty"`
}
