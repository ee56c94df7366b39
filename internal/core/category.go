package core

import "strings"

// Category is the closed set of expense categories. Free-form category
// strings never enter the domain: boundaries parse into a Category first.
type Category string

const (
	CategoryFood          Category = "Food"
	CategoryTransport     Category = "Transport"
	CategoryEntertainment Category = "Entertainment"
	CategoryShopping      Category = "Shopping"
	CategoryBills         Category = "Bills"
	CategoryHealthcare    Category = "Healthcare"
	CategoryEducation     Category = "Education"
	CategoryOther         Category = "Other"
)

// Categories returns the closed category set in its canonical order.
func Categories() []Category {
	return []Category{
		CategoryFood,
		CategoryTransport,
		CategoryEntertainment,
		CategoryShopping,
		CategoryBills,
		CategoryHealthcare,
		CategoryEducation,
		CategoryOther,
	}
}

// CategoryNames returns the closed category set as plain strings.
func CategoryNames() []string {
	cats := Categories()
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return names
}

// ParseCategory maps a raw string onto the closed set. Leading and trailing
// whitespace is ignored; anything else is a mismatch, not a fallback to Other.
func ParseCategory(s string) (Category, bool) {
	switch Category(strings.TrimSpace(s)) {
	case CategoryFood:
		return CategoryFood, true
	case CategoryTransport:
		return CategoryTransport, true
	case CategoryEntertainment:
		return CategoryEntertainment, true
	case CategoryShopping:
		return CategoryShopping, true
	case CategoryBills:
		return CategoryBills, true
	case CategoryHealthcare:
		return CategoryHealthcare, true
	case CategoryEducation:
		return CategoryEducation, true
	case CategoryOther:
		return CategoryOther, true
	default:
		return "", false
	}
}

func (c Category) String() string { return string(c) }

// Valid reports whether c is a member of the closed set.
func (c Category) Valid() bool {
	_, ok := ParseCategory(string(c))
	return ok
}
