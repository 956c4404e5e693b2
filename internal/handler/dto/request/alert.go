package request

type ResolveAlertRequest struct {
	Note string `json:"note,omitempty"`
}
