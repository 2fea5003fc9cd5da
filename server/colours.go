package server

import "net/http"

// ANSI colours for DEV request logs
const (
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Cyan   = "\033[36m"
	Gray   = "\033[90m"

	ResetColor = "\033[0m"
)

var methodColors = map[string]string{
	http.MethodGet:     Green,
	http.MethodPost:    Blue,
	http.MethodOptions: Gray,
}

func statusColor(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return Red
	case status >= http.StatusBadRequest:
		return Yellow
	case status >= http.StatusMultipleChoices:
		return Cyan
	default:
		return Green
	}
}
