package models

// Requests for the operational HTTP endpoints. Defined in domain for
// consistency and reuse.

type CandlesRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required"`
	Interval string `query:"interval" json:"interval" default:"1" validate:"oneof=1 3 5 15 30 60 120 240 360 720 D W M"`
	Count    int    `query:"count" json:"count" default:"100" validate:"gte=1,lte=5000"`
}

type LedgerRequest struct {
	UserID string `query:"user_id" json:"user_id"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type BackfillRequest struct {
	Symbol   string `json:"symbol" validate:"required"`
	Interval string `json:"interval" default:"1" validate:"oneof=1 3 5 15 30 60 120 240 360 720 D W M"`
	Depth    int    `json:"depth" default:"5000" validate:"gte=1,lte=5000"`
}
