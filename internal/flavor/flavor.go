// internal/flavor/flavor.go
package flavor

// AllergenValue is the answer recorded for one allergen column of one item.
// Anything that is not an explicit yes or no is treated as Unknown.
type AllergenValue string

const (
	Yes     AllergenValue = "Yes"
	No      AllergenValue = "No"
	Unknown AllergenValue = "Unknown"
)

// Category is the closed set of buckets an item can land in. The persisted
// spellings below are load-bearing: anything else normalizes to Mix-In.
type Category string

const (
	CategoryIceCream Category = "Ice Cream"
	CategoryMixIn    Category = "Mix-In"
	CategoryCake     Category = "Cake"
	CategoryConeBowl Category = "Cone/Bowl"
	CategoryOther    Category = "Other"
)

// Categories returns every category in display order. Grouped exports walk
// this slice so the section order stays fixed.
func Categories() []Category {
	return []Category{
		CategoryIceCream,
		CategoryMixIn,
		CategoryCake,
		CategoryConeBowl,
		CategoryOther,
	}
}

// Origin marks where an item came from. Reference items are read-only for
// the session; manual items are staff-entered and replaceable by name.
type Origin string

const (
	OriginReference Origin = "reference"
	OriginManual    Origin = "manual"
)

// DefaultAttributeNames is the allergen column set in its fixed display
// order. Deployments can override it via ATTRIBUTE_COLUMNS.
var DefaultAttributeNames = []string{
	"Egg", "Milk", "Peanuts", "Sesame", "Soy", "Tree Nuts", "Wheat",
}

// Item is one row of the chart: a flavor (or mix-in, cone, ...) with its
// allergen answers.
type Item struct {
	Name       string                   `json:"name"`
	Category   Category                 `json:"category"`
	Attributes map[string]AllergenValue `json:"attributes"`
	Origin     Origin                   `json:"origin"`
}

// FillAttributes returns a copy of attrs that has an entry for every name in
// attrNames, defaulting missing columns to Unknown. Extra keys are dropped.
func FillAttributes(attrs map[string]AllergenValue, attrNames []string) map[string]AllergenValue {
	out := make(map[string]AllergenValue, len(attrNames))
	for _, name := range attrNames {
		if v, ok := attrs[name]; ok && (v == Yes || v == No) {
			out[name] = v
		} else {
			out[name] = Unknown
		}
	}
	return out
}

// UIState holds the filter and display settings that ride along with the
// selection in share links and in the persisted ui_state key. ShopName and
// Note are rendering labels only; the engine never branches on them.
type UIState struct {
	SplitByCategory  bool       `json:"split_by_category"`
	ActiveCategories []Category `json:"active_categories"`
	ShopName         string     `json:"shop_name"`
	Note             string     `json:"note"`
}
