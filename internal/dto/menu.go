package dto

type CategoryDTO struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sortOrder"`
}

type CategoriesResponse struct {
	TraceID    string        `json:"traceId"`
	Categories []CategoryDTO `json:"categories"`
}

type MenuItemDTO struct {
	ID         int     `json:"id"`
	CategoryID int     `json:"categoryId"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	IsActive   bool    `json:"isActive"`
}

type MenuItemsResponse struct {
	TraceID string        `json:"traceId"`
	Items   []MenuItemDTO `json:"items"`
}
