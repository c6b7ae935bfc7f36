package models

import "strings"

// Category is one of the fixed expense categories.
type Category string

const (
	CategoryFood      Category = "food"
	CategoryTransport Category = "transport"
	CategoryHousing   Category = "housing"
	CategoryJoy       Category = "joy"
	CategoryEducation Category = "education"
	CategoryOthers    Category = "others"
)

// CategoryDef defines the display properties of a category.
type CategoryDef struct {
	ID   Category
	Name string
}

// Categories lists every valid category in display order.
var Categories = []CategoryDef{
	{CategoryFood, "Food"},
	{CategoryTransport, "Transport"},
	{CategoryHousing, "Housing"},
	{CategoryJoy, "Joy"},
	{CategoryEducation, "Education"},
	{CategoryOthers, "Others"},
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	for _, def := range Categories {
		if def.ID == c {
			return true
		}
	}
	return false
}

// Name returns the display name of the category, or the raw value if unknown.
func (c Category) Name() string {
	for _, def := range Categories {
		if def.ID == c {
			return def.Name
		}
	}
	return string(c)
}

// CategoryIDs returns the category values joined with sep.
func CategoryIDs(sep string) string {
	ids := make([]string, 0, len(Categories))
	for _, def := range Categories {
		ids = append(ids, string(def.ID))
	}
	return strings.Join(ids, sep)
}

// Expense represents a financial expense record as the client keeps it.
type Expense struct {
	ID          int64    `json:"id"`
	Description string   `json:"description"`
	Amount      float64  `json:"amount"`
	Category    Category `json:"category"`
	Date        string   `json:"date"`
	UserID      int64    `json:"userId,omitempty"`
}

// Transaction is the wire shape of an expense on the transactions API.
type Transaction struct {
	ID          int64    `json:"_id"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Date        string   `json:"date"`
	Sum         float64  `json:"sum"`
	UserID      int64    `json:"userId"`
}

// NewTransaction is the request body of a transaction insert.
type NewTransaction struct {
	Description string   `json:"description"`
	Sum         float64  `json:"sum"`
	Category    Category `json:"category"`
	Date        string   `json:"date"`
}

// TransactionList is the response body of transaction mutations.
type TransactionList struct {
	Transactions []Transaction `json:"transactions"`
}

// APIError is the error body returned by the transactions API.
type APIError struct {
	Error string `json:"error"`
}
