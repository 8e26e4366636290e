package domain

// CategoryKey identifies a ticket category.
type CategoryKey string

const (
	CategoryBilling   CategoryKey = "billing"
	CategoryTechnical CategoryKey = "technical"
	CategoryGeneral   CategoryKey = "general"
)

// CategoryDefinition describes one entry of the fixed category catalog.
type CategoryDefinition struct {
	Key          CategoryKey
	DisplayLabel string
	Description  string
}

var categoryCatalog = []CategoryDefinition{
	{Key: CategoryBilling, DisplayLabel: "Billing Support", Description: "Issues related to payments or billing."},
	{Key: CategoryTechnical, DisplayLabel: "Technical Support", Description: "Technical issues or bugs."},
	{Key: CategoryGeneral, DisplayLabel: "General Inquiry", Description: "General questions or inquiries."},
}

// Categories returns the catalog in its fixed display order.
func Categories() []CategoryDefinition {
	out := make([]CategoryDefinition, len(categoryCatalog))
	copy(out, categoryCatalog)
	return out
}

// CategoryByKey resolves a category key to its definition.
func CategoryByKey(key string) (CategoryDefinition, bool) {
	for _, def := range categoryCatalog {
		if string(def.Key) == key {
			return def, true
		}
	}
	return CategoryDefinition{}, false
}
