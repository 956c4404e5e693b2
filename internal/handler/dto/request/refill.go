package request

type FinishRefillRequest struct {
	Added   int     `json:"added" binding:"min=0"`
	Comment *string `json:"comment,omitempty"`
}
