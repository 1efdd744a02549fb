package parser

// Parser pulls the recorded order fields out of a rendered detail view.
// Fields are independent: one missing field never blocks the others.
type Parser interface {
	ExtractAmount(html string) (string, error)
	ExtractOrderID(html string) (string, error)
	ExtractDeliveredLine(html string) (string, error)
}
