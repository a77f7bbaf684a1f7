// internal/board/derive.go
//
// The derivations are plain functions over constructed inputs so tests can
// call them directly, without an Engine.
package board

import (
	"sort"
	"strings"

	"flavorchart/internal/flavor"
)

// deriveVisible filters the catalog by the active categories (empty set
// means all) and a case-insensitive substring match on the name (empty
// search matches all). Catalog order is preserved.
func deriveVisible(catalog []flavor.Item, search string, active []flavor.Category) []flavor.Item {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]flavor.Item, 0, len(catalog))
	for _, item := range catalog {
		if !categoryActive(item.Category, active) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(item.Name), needle) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// deriveOutput filters the catalog by selection membership and the active
// categories. Search text is intentionally absent from the inputs: the
// export must be independent of the transient search box.
func deriveOutput(catalog []flavor.Item, selected map[string]bool, active []flavor.Category) []flavor.Item {
	out := make([]flavor.Item, 0, len(selected))
	for _, item := range catalog {
		if !selected[item.Name] {
			continue
		}
		if !categoryActive(item.Category, active) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// deriveGrouped partitions rows into the fixed category order, each group
// independently sorted by name, empty groups omitted.
func deriveGrouped(rows []flavor.Item) []Group {
	byCategory := make(map[flavor.Category][]flavor.Item, len(rows))
	for _, item := range rows {
		byCategory[item.Category] = append(byCategory[item.Category], item)
	}

	groups := make([]Group, 0, len(byCategory))
	for _, category := range flavor.Categories() {
		items := byCategory[category]
		if len(items) == 0 {
			continue
		}
		sort.SliceStable(items, func(i, j int) bool {
			return nameLess(items[i].Name, items[j].Name)
		})
		groups = append(groups, Group{Category: category, Items: items})
	}
	return groups
}

func categoryActive(c flavor.Category, active []flavor.Category) bool {
	if len(active) == 0 {
		return true
	}
	for _, a := range active {
		if a == c {
			return true
		}
	}
	return false
}
