package dto

type UploadResponse struct {
	Status string `json:"status"`
	UUID   string `json:"uuid"`
	S3Key  string `json:"s3_key"`
}

type LineItemResponse struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}

type ReceiptResponse struct {
	ID        string             `json:"id"`
	StoreName *string            `json:"store_name,omitempty"`
	TotalPaid *float64           `json:"total_paid,omitempty"`
	Timestamp *string            `json:"timestamp,omitempty"`
	LineItems []LineItemResponse `json:"line_items,omitempty"`
	S3Key     string             `json:"s3_key"`
	CreatedAt string             `json:"created_at"`
}

type CategorySpend struct {
	Name       string  `json:"name"`
	Spent      float64 `json:"spent"`
	Percentage int     `json:"percentage"`
}

type StoreBreakdown struct {
	StoreName       string          `json:"store_name"`
	Period          string          `json:"period"`
	TotalStoreSpend float64         `json:"total_store_spend"`
	Categories      []CategorySpend `json:"categories"`
}
