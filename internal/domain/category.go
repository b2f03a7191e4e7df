package domain

// CategoryType separates spending categories from income categories.
type CategoryType string

const (
	CategoryExpense CategoryType = "expense"
	CategoryIncome  CategoryType = "income"
)

// Category is a pre-existing spending bucket. Names are unique when compared
// case-insensitively.
type Category struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Type  CategoryType `json:"type"`
	Icon  string       `json:"icon,omitempty"`
	Color string       `json:"color,omitempty"`
}

// IsExpense reports whether transactions in c count as spend.
func (c Category) IsExpense() bool {
	return c.Type == CategoryExpense
}
