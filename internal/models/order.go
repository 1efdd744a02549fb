package models

// Unknown fills a field whose extraction failed so the row keeps its shape.
const Unknown = "Unknown"

type OrderRow struct {
	OrderID     string `json:"order_id"`
	Date        string `json:"date"`
	CaptureLink string `json:"capture_link"`
	Amount      string `json:"amount"`
}

// Header lists the ledger column names in the order Cells emits values.
func Header() []string {
	return []string{"order_id", "date", "capture_link", "amount"}
}

func (r OrderRow) Cells() []string {
	return []string{r.OrderID, r.Date, r.CaptureLink, r.Amount}
}
