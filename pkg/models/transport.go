package models

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error           string   `json:"error"`
	Message         string   `json:"message,omitempty"`
	AvailableModels []string `json:"available_models,omitempty"`
}

// FileTooLargeResponse is returned with 413.
type FileTooLargeResponse struct {
	Error   string `json:"error"`
	MaxSize string `json:"max_size"`
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status             string `json:"status"`
	ModelsLoaded       int    `json:"models_loaded"`
	TotalModels        int    `json:"total_models"`
	UploadFolderExists bool   `json:"upload_folder_exists"`
	ModelFolderExists  bool   `json:"model_folder_exists"`
	Version            string `json:"version"`
	Time               string `json:"time"`
}

// ServiceInfo describes the service at its root path.
type ServiceInfo struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Models       []string `json:"models"`
	ModelsLoaded int      `json:"models_loaded"`
	TotalModels  int      `json:"total_models"`
}

// HistoryResponse lists audit records, newest first.
type HistoryResponse struct {
	Records []AnalysisRecord `json:"records"`
	Count   int              `json:"count"`
}
