// internal/board/board.go
package board

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"flavorchart/internal/flavor"
)

// CatalogStatus distinguishes "reference list still loading" from "loaded
// zero rows" and "loader failed" — callers must not treat those the same.
type CatalogStatus string

const (
	StatusLoading CatalogStatus = "loading"
	StatusReady   CatalogStatus = "ready"
	StatusFailed  CatalogStatus = "failed"
)

// Confirmer is the injected capability used by the export gate. Headless
// tests stub it; the HTTP layer answers from an explicit confirm parameter.
type Confirmer interface {
	Confirm(message string) bool
}

// ConfirmerFunc adapts a plain function to the Confirmer interface.
type ConfirmerFunc func(message string) bool

func (f ConfirmerFunc) Confirm(message string) bool { return f(message) }

// Group is one section of a grouped output: a category plus its rows sorted
// by name. The flat (unsplit) output is represented as a single Group with
// an empty Category.
type Group struct {
	Category flavor.Category `json:"category"`
	Items    []flavor.Item   `json:"items"`
}

// Engine owns the merged catalog, the selection set, the filter/UI state,
// and the search text for one board. All methods are safe for concurrent
// use; derivations run under a read lock and return copies.
type Engine struct {
	mu        sync.RWMutex
	attrNames []string

	manual    []flavor.Item // staff-entered, upserted by name
	reference []flavor.Item // loaded once per session, read-only
	catalog   []flavor.Item // manual then reference, stably sorted by name

	selected map[string]bool
	ui       flavor.UIState
	search   string
	status   CatalogStatus
}

// New creates an empty engine. The catalog starts in the loading state until
// SetCatalog or MarkCatalogFailed is called.
func New(attrNames []string) *Engine {
	names := make([]string, len(attrNames))
	copy(names, attrNames)
	return &Engine{
		attrNames: names,
		selected:  make(map[string]bool),
		status:    StatusLoading,
	}
}

// AttributeNames returns the configured allergen column order.
func (e *Engine) AttributeNames() []string {
	out := make([]string, len(e.attrNames))
	copy(out, e.attrNames)
	return out
}

// SetCatalog installs the reference items and re-merges the catalog. Manual
// items survive unchanged. Passing an empty slice is the "loaded zero rows"
// state, not a failure.
func (e *Engine) SetCatalog(items []flavor.Item) {
	e.mu.Lock()
	defer e.mu.Unlock()

	refs := make([]flavor.Item, 0, len(items))
	for _, item := range items {
		item.Origin = flavor.OriginReference
		item.Attributes = flavor.FillAttributes(item.Attributes, e.attrNames)
		refs = append(refs, item)
	}
	e.reference = refs
	e.status = StatusReady
	e.rebuildLocked()
}

// MarkCatalogLoading resets the status ahead of an async reload.
func (e *Engine) MarkCatalogLoading() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = StatusLoading
}

// MarkCatalogFailed records a loader failure. The board keeps whatever
// manual items exist; reference counts read as zero.
func (e *Engine) MarkCatalogFailed() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reference = nil
	e.status = StatusFailed
	e.rebuildLocked()
}

// CatalogStatus reports the reference loader state.
func (e *Engine) CatalogStatus() CatalogStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// AddManualItem trims and upserts a staff-entered item. Adding a name that
// already exists in the manual list replaces that entry (last write wins);
// a same-named reference item is left alone and both will render. The item
// is auto-selected: staff add items because they carry them.
func (e *Engine) AddManualItem(item flavor.Item) bool {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return false
	}
	item.Origin = flavor.OriginManual
	if item.Category == "" {
		item.Category = flavor.Classify(item.Name)
	}
	item.Attributes = flavor.FillAttributes(item.Attributes, e.attrNames)

	e.mu.Lock()
	defer e.mu.Unlock()

	replaced := false
	for i := range e.manual {
		if e.manual[i].Name == item.Name {
			e.manual[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		e.manual = append(e.manual, item)
	}
	e.selected[item.Name] = true
	e.rebuildLocked()
	return true
}

// RestoreManualItems replaces the manual list wholesale, without touching
// the selection. Used when loading persisted state at startup.
func (e *Engine) RestoreManualItems(items []flavor.Item) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.manual = e.manual[:0]
	for _, item := range items {
		item.Name = strings.TrimSpace(item.Name)
		if item.Name == "" {
			continue
		}
		item.Origin = flavor.OriginManual
		item.Attributes = flavor.FillAttributes(item.Attributes, e.attrNames)
		e.manual = append(e.manual, item)
	}
	e.rebuildLocked()
}

// ToggleSelected flips one name in or out of the selection. Selection is a
// set of names, not item references, so a name may be toggled before the
// catalog row it refers to exists.
func (e *Engine) ToggleSelected(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.selected[name] {
		delete(e.selected, name)
	} else {
		e.selected[name] = true
	}
}

// ClearSelected empties the selection.
func (e *Engine) ClearSelected() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selected = make(map[string]bool)
}

// SelectAllReference selects every reference item regardless of filters.
func (e *Engine) SelectAllReference() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, item := range e.reference {
		e.selected[item.Name] = true
	}
}

// SelectAllVisible selects every row currently visible under the active
// category filter and search text.
func (e *Engine) SelectAllVisible() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, item := range deriveVisible(e.catalog, e.search, e.ui.ActiveCategories) {
		e.selected[item.Name] = true
	}
}

// ClearVisible deselects every currently visible row, leaving hidden
// selections intact.
func (e *Engine) ClearVisible() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, item := range deriveVisible(e.catalog, e.search, e.ui.ActiveCategories) {
		delete(e.selected, item.Name)
	}
}

// SetSelected replaces the selection wholesale (persisted state or a decoded
// share payload).
func (e *Engine) SetSelected(names []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selected = make(map[string]bool, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			e.selected[name] = true
		}
	}
}

// SetSearchText updates the transient search filter.
func (e *Engine) SetSearchText(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.search = text
}

// SetActiveCategories replaces the category filter. An empty set means all.
func (e *Engine) SetActiveCategories(cats []flavor.Category) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ui.ActiveCategories = append([]flavor.Category(nil), cats...)
}

// SetSplitByCategory toggles grouped output.
func (e *Engine) SetSplitByCategory(split bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ui.SplitByCategory = split
}

// SetUIState replaces the whole UI state (already normalized by the caller).
func (e *Engine) SetUIState(ui flavor.UIState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ui = ui
}

// UIState returns a copy of the current UI state.
func (e *Engine) UIState() flavor.UIState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.uiLocked()
}

func (e *Engine) uiLocked() flavor.UIState {
	ui := e.ui
	ui.ActiveCategories = append([]flavor.Category(nil), e.ui.ActiveCategories...)
	return ui
}

// SearchText returns the current search text.
func (e *Engine) SearchText() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.search
}

// SelectedNames returns the selection sorted by name, the order it is
// persisted and embedded in share payloads.
func (e *Engine) SelectedNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.selectedNamesLocked()
}

func (e *Engine) selectedNamesLocked() []string {
	names := make([]string, 0, len(e.selected))
	for name := range e.selected {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return nameLess(names[i], names[j]) })
	return names
}

// ManualItems returns a copy of the manual list in its merged order.
func (e *Engine) ManualItems() []flavor.Item {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]flavor.Item(nil), e.manual...)
}

// VisibleRows derives the rows to render: catalog filtered by the active
// categories and the search text, preserving name order.
func (e *Engine) VisibleRows() []flavor.Item {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return deriveVisible(e.catalog, e.search, e.ui.ActiveCategories)
}

// OutputRows derives the rows destined for export: the selection intersected
// with the active category filter. The search text deliberately plays no
// part — searching must never change what prints.
func (e *Engine) OutputRows() []flavor.Item {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return deriveOutput(e.catalog, e.selected, e.ui.ActiveCategories)
}

// GroupedOutput partitions OutputRows per the split setting: one section per
// category (fixed order, empties omitted) when splitting, otherwise a single
// flat section.
func (e *Engine) GroupedOutput() []Group {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rows := deriveOutput(e.catalog, e.selected, e.ui.ActiveCategories)
	if !e.ui.SplitByCategory {
		return []Group{{Items: rows}}
	}
	return deriveGrouped(rows)
}

// NeedsExportConfirm reports whether the export safety nudge applies: some
// reference items exist and fewer items than that are selected. A board with
// no reference list never asks.
func (e *Engine) NeedsExportConfirm() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.reference) > 0 && len(e.selected) < len(e.reference)
}

// GateExport decides whether an export may proceed. When confirmation is
// needed it asks the injected Confirmer; a nil Confirmer can never answer,
// so the export is cancelled rather than silently allowed.
func (e *Engine) GateExport(c Confirmer) bool {
	e.mu.RLock()
	needed := len(e.reference) > 0 && len(e.selected) < len(e.reference)
	selected, total := len(e.selected), len(e.reference)
	e.mu.RUnlock()

	if !needed {
		return true
	}
	if c == nil {
		return false
	}
	msg := fmt.Sprintf("Only %d of %d reference flavors are selected. Did you see every flavor you carry?", selected, total)
	return c.Confirm(msg)
}

// Counts summarizes the board for status displays.
type Counts struct {
	Reference int `json:"reference"`
	Manual    int `json:"manual"`
	Selected  int `json:"selected"`
	Visible   int `json:"visible"`
}

// Snapshot is a consistent read of everything the frontend needs to render.
type Snapshot struct {
	Visible       []flavor.Item  `json:"visible"`
	Selected      []string       `json:"selected"`
	UI            flavor.UIState `json:"ui"`
	Search        string         `json:"search"`
	Counts        Counts         `json:"counts"`
	CatalogStatus CatalogStatus  `json:"catalog_status"`
}

// Snapshot captures the board under a single read lock.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	visible := deriveVisible(e.catalog, e.search, e.ui.ActiveCategories)
	return Snapshot{
		Visible:  visible,
		Selected: e.selectedNamesLocked(),
		UI:       e.uiLocked(),
		Search:   e.search,
		Counts: Counts{
			Reference: len(e.reference),
			Manual:    len(e.manual),
			Selected:  len(e.selected),
			Visible:   len(visible),
		},
		CatalogStatus: e.status,
	}
}

// rebuildLocked re-merges the catalog: manual items first, then reference,
// then a stable sort by name. Stability keeps a manual item ahead of a
// same-named reference item, and both stay in the list — deduplicating here
// would change what renders and prints.
func (e *Engine) rebuildLocked() {
	merged := make([]flavor.Item, 0, len(e.manual)+len(e.reference))
	merged = append(merged, e.manual...)
	merged = append(merged, e.reference...)
	sort.SliceStable(merged, func(i, j int) bool {
		return nameLess(merged[i].Name, merged[j].Name)
	})
	e.catalog = merged
}

func nameLess(a, b string) bool {
	al, bl := strings.ToLower(a), strings.ToLower(b)
	if al != bl {
		return al < bl
	}
	return a < b
}
