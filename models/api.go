package models

type AskRequest struct {
	Question string `json:"question"`
}

type MarkdownResponse struct {
	Markdown string `json:"markdown"`
}

type ReloadResult struct {
	ReservationsLoaded int `json:"reservations_loaded"`
	AccountsLoaded     int `json:"accounts_loaded"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Traceback string `json:"traceback,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version uint64 `json:"version"`
}
