package docapi

// Response provides a minimal response interface for transport adapters.
type Response interface {
	SetHeader(name, value string)
	WriteHeader(status int)
	Write(data []byte) (int, error)
	WriteJSON(status int, payload any) error
}

// ErrorResponse is the JSON body of failed requests.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is the JSON body of the health endpoint.
type HealthResponse struct {
	Status          string  `json:"status"`
	Uptime          float64 `json:"uptime"`
	EngineConnected bool    `json:"engineConnected"`
	EngineState     string  `json:"engineState"`
}
