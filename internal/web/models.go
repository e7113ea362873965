package web

import "github.com/goodtune/streak/internal/view"

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

// pageData feeds templates/index.html.
type pageData struct {
	Snapshot    view.Snapshot
	Header      string
	StartLabel  string
	ResetLabel  string
	MarkerStart string
	MarkerEnd   string
	Footer      string
}

func newPageData(s view.Snapshot) pageData {
	return pageData{
		Snapshot:    s,
		Header:      view.Header,
		StartLabel:  view.StartLabel,
		ResetLabel:  view.ResetLabel,
		MarkerStart: view.MarkerStart,
		MarkerEnd:   view.MarkerEnd,
		Footer:      view.Footer,
	}
}
