package api

// ErrorBody is the payload of every failed request.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail classifies a failure.
type ErrorDetail struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// VideoIDRequest asks for the id embedded in a video reference.
type VideoIDRequest struct {
	VideoURL string `json:"video_url" binding:"required"`
}

// VideoIDResponse carries an extracted id and its canonical URL.
type VideoIDResponse struct {
	VideoID string `json:"video_id"`
	URL     string `json:"url"`
}
