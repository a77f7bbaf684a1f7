// internal/flavor/classify.go
package flavor

import "strings"

// classifyRules is an ordered keyword table: the first rule whose keyword
// appears in the lower-cased name wins. Order matters where sets overlap —
// "Birthday Cake Remix" must land in Cake even though it also names mix-in
// ingredients, so the cake rule sits above the mix-in rule.
var classifyRules = []struct {
	category Category
	keywords []string
}{
	{CategoryIceCream, []string{"ice cream", "sorbet", "frozen dessert"}},
	{CategoryCake, []string{"cake", "brownie", "cupcake", "muffin", "pie"}},
	{CategoryConeBowl, []string{"cone", "waffle", "bowl"}},
	{CategoryMixIn, []string{
		"cookie", "dough", "oreo", "graham", "wafer",
		"peanut", "pecan", "almond", "walnut", "cashew", "pistachio", "nut",
		"m&m", "reese", "heath", "butterfinger", "snickers", "twix",
		"candy", "gummy", "sprinkle", "toffee", "brittle", "pretzel",
		"fudge", "caramel", "marshmallow", "whipped", "topping",
	}},
}

// Classify maps a free-text item name to a Category. It is total and
// deterministic: an empty or unrecognized name falls through to Mix-In,
// a deliberate policy — an item we can't place is assumed to be an add-in,
// not miscellaneous.
func Classify(name string) Category {
	lower := strings.ToLower(name)
	for _, rule := range classifyRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.category
			}
		}
	}
	return CategoryMixIn
}
