package domain

// Category is an email preference category a user can opt in or out of.
type Category string

const (
	CategoryOrderUpdates Category = "order_updates"
	CategoryNewProducts  Category = "new_products"
	CategorySales        Category = "sales"
	CategoryBlog         Category = "blog"
)

// Categories is the known category set in canonical order.
var Categories = []Category{CategoryOrderUpdates, CategoryNewProducts, CategorySales, CategoryBlog}

// MarketingCategories are the categories that carry promotional mail.
var MarketingCategories = []Category{CategoryNewProducts, CategorySales, CategoryBlog}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// EmailPreferences holds a user's per-category opt-in flags. It is stored
// embedded on the customer record.
type EmailPreferences struct {
	OrderUpdates bool `json:"order_updates"`
	NewProducts  bool `json:"new_products"`
	Sales        bool `json:"sales"`
	Blog         bool `json:"blog"`
}

// DefaultPreferences returns the preferences of a user who never changed
// them: order updates on, marketing off.
func DefaultPreferences() EmailPreferences {
	return EmailPreferences{OrderUpdates: true}
}

// Get returns the flag for a category. Unknown categories read as false.
func (p EmailPreferences) Get(c Category) bool {
	switch c {
	case CategoryOrderUpdates:
		return p.OrderUpdates
	case CategoryNewProducts:
		return p.NewProducts
	case CategorySales:
		return p.Sales
	case CategoryBlog:
		return p.Blog
	}
	return false
}

// Set updates the flag for a category. Unknown categories are ignored.
func (p *EmailPreferences) Set(c Category, v bool) {
	switch c {
	case CategoryOrderUpdates:
		p.OrderUpdates = v
	case CategoryNewProducts:
		p.NewProducts = v
	case CategorySales:
		p.Sales = v
	case CategoryBlog:
		p.Blog = v
	}
}

// Recipient is a resolved audience member.
type Recipient struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Profile is the slice of the customer record this subsystem reads.
type Profile struct {
	UserID      string           `json:"user_id"`
	Email       string           `json:"email"`
	Preferences EmailPreferences `json:"preferences"`
}
