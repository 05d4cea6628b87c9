package models

// ExtractedLineItem is a single purchased item as returned by the vision
// model. The category is kept as a raw string here and normalized onto the
// closed Category set when the record is persisted.
type ExtractedLineItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}

// ReceiptExtraction is the structured result of a vision extraction call,
// validated at the extraction boundary before anything is persisted.
type ReceiptExtraction struct {
	StoreName string              `json:"store_name"`
	TotalPaid float64             `json:"total_paid"`
	Timestamp string              `json:"timestamp"`
	LineItems []ExtractedLineItem `json:"line_items"`
}
