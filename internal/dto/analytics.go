package dto

type OrderStatsDTO struct {
	Total            int            `json:"total"`
	ByStatus         map[string]int `json:"byStatus"`
	Active           int            `json:"active"`
	Cancelled        int            `json:"cancelled"`
	CompletedRevenue float64        `json:"completedRevenue"`
}

type OrderStatsResponse struct {
	TraceID string        `json:"traceId"`
	Stats   OrderStatsDTO `json:"stats"`
}
