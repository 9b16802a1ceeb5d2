package models

// TickerRequest is the query of GET /ticker and GET /sidebar.
type TickerRequest struct {
	Fiat string `query:"fiat" validate:"omitempty,len=3,alpha"`
}

// PublishStatus is the body of GET /publish/status.
type PublishStatus struct {
	Groups  []string        `json:"groups"`
	Batches []*PublishBatch `json:"batches"`
}
