package dto

// OpenTillRequest starts a till session with the counted float.
type OpenTillRequest struct {
	OpeningBalance string `json:"openingBalance" binding:"required"`
}

// TillMovementRequest records a manual cash movement.
type TillMovementRequest struct {
	Kind   string `json:"kind" binding:"required"`
	Amount string `json:"amount" binding:"required"`
	Note   string `json:"note,omitempty"`
}

// CloseTillRequest reconciles and terminates a session.
type CloseTillRequest struct {
	CountedBalance string `json:"countedBalance" binding:"required"`
}
