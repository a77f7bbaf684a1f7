// internal/flavor/normalize.go
//
// Normalizers coerce untrusted decoded-JSON values (persisted state, share
// payloads) into the strict internal shapes. They never fail: anything
// missing, mistyped, or unrecognized resolves to a documented default.
package flavor

import "strings"

// NormalizeAllergenValue maps any raw value to Yes, No, or Unknown. Only a
// string case-insensitively equal to "yes" or "no" after trimming counts;
// there is no fuzzy matching.
func NormalizeAllergenValue(raw any) AllergenValue {
	s, ok := raw.(string)
	if !ok {
		return Unknown
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes":
		return Yes
	case "no":
		return No
	}
	return Unknown
}

// NormalizeCategory passes through the five exact category spellings and
// sends everything else to Mix-In.
func NormalizeCategory(raw any) Category {
	if s, ok := raw.(string); ok {
		for _, c := range Categories() {
			if s == string(c) {
				return c
			}
		}
	}
	return CategoryMixIn
}

// NormalizeAttributes builds a total attribute map for attrNames from a raw
// value of unknown shape. Non-object input yields all-Unknown.
func NormalizeAttributes(raw any, attrNames []string) map[string]AllergenValue {
	m, _ := raw.(map[string]any)
	out := make(map[string]AllergenValue, len(attrNames))
	for _, name := range attrNames {
		if m == nil {
			out[name] = Unknown
			continue
		}
		out[name] = NormalizeAllergenValue(m[name])
	}
	return out
}

// NormalizeManualItem rebuilds a staff-entered item from a raw persisted
// value. It reports false (drop the record) when the name is absent or empty
// after trimming. A stored category is normalized; a missing one is
// synthesized from the name via Classify.
func NormalizeManualItem(raw any, attrNames []string) (Item, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return Item{}, false
	}

	name, _ := m["name"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		return Item{}, false
	}

	var category Category
	if s, ok := m["category"].(string); ok && strings.TrimSpace(s) != "" {
		category = NormalizeCategory(s)
	} else {
		category = Classify(name)
	}

	return Item{
		Name:       name,
		Category:   category,
		Attributes: NormalizeAttributes(m["attributes"], attrNames),
		Origin:     OriginManual,
	}, true
}

// NormalizeUIState overlays a raw partial UI value onto prev, field by
// field. A field that is missing or mistyped keeps the previous value, so a
// partial share payload adjusts the current UI instead of resetting it.
func NormalizeUIState(raw any, prev UIState) UIState {
	m, ok := raw.(map[string]any)
	if !ok {
		return prev
	}

	out := prev

	if b, ok := m["split_by_category"].(bool); ok {
		out.SplitByCategory = b
	}

	if list, ok := m["active_categories"].([]any); ok {
		cats := make([]Category, 0, len(list))
		seen := make(map[Category]bool, len(list))
		for _, entry := range list {
			s, ok := entry.(string)
			if !ok {
				continue
			}
			// Unknown filter entries are dropped rather than defaulted:
			// defaulting would conjure a Mix-In filter the user never set.
			for _, c := range Categories() {
				if s == string(c) && !seen[c] {
					cats = append(cats, c)
					seen[c] = true
				}
			}
		}
		out.ActiveCategories = cats
	}

	if s, ok := m["shop_name"].(string); ok {
		out.ShopName = s
	}
	if s, ok := m["note"].(string); ok {
		out.Note = s
	}

	return out
}
