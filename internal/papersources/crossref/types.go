package crossref

import "github.com/camrobjones/papernet/internal/domain"

// Envelope is the wrapper around every Crossref REST response.
type Envelope[T any] struct {
	Status         string `json:"status"`
	MessageType    string `json:"message-type"`
	MessageVersion string `json:"message-version"`
	Message        T      `json:"message"`
}

// WorkList is the message of a works query.
type WorkList struct {
	TotalResults int            `json:"total-results"`
	ItemsPerPage int            `json:"items-per-page"`
	Items        []*domain.Work `json:"items"`
}

const statusOK = "ok"
