package tools

const (
	NameRetrieveContext = "retrieve_context"
	NameQueryOrders     = "query_orders"
)

// Date range presets understood by query_orders
const (
	DateRangeLastWeek  = "last week"
	DateRangeLastMonth = "last month"
)

var descriptors = []Descriptor{
	{
		Name:        NameRetrieveContext,
		Description: "RAG: fetch policy/FAQ/manual snippets relevant to a question",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language question",
				},
			},
			"required": []string{"query"},
		},
	},
	{
		Name:        NameQueryOrders,
		Description: "Query orders database by criteria like customer, date range, product, status",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"customerName": map[string]interface{}{"type": "string"},
				"product":      map[string]interface{}{"type": "string"},
				"status":       map[string]interface{}{"type": "string"},
				"dateRange": map[string]interface{}{
					"type": "string",
					"enum": []string{DateRangeLastWeek, DateRangeLastMonth},
				},
				"from": map[string]interface{}{
					"type":        "string",
					"description": "ISO start date",
				},
				"to": map[string]interface{}{
					"type":        "string",
					"description": "ISO end date",
				},
			},
		},
	},
}

// Descriptors returns the fixed tool menu. Callers get a copy of the slice;
// the parameter schemas are shared and must not be modified.
func Descriptors() []Descriptor {
	out := make([]Descriptor, len(descriptors))
	copy(out, descriptors)
	return out
}
