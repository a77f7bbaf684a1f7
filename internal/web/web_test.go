package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"flavorchart/internal/board"
	"flavorchart/internal/flavor"
)

var testAttrs = []string{"Egg", "Milk"}

func refItem(name string, category flavor.Category, egg, milk flavor.AllergenValue) flavor.Item {
	return flavor.Item{
		Name:     name,
		Category: category,
		Attributes: map[string]flavor.AllergenValue{
			"Egg":  egg,
			"Milk": milk,
		},
		Origin: flavor.OriginReference,
	}
}

// newTestServer builds a server around a fresh engine seeded with reference
// items. No store, no metrics registry.
func newTestServer(t *testing.T, reference ...flavor.Item) (*Server, http.Handler) {
	t.Helper()
	engine := board.New(testAttrs)
	engine.SetCatalog(reference)
	srv := NewServer(engine, nil, nil, Config{ShareBaseURL: "https://chart.example"})
	return srv, http.StripPrefix("/api", srv.Routes())
}

// doJSON posts a JSON body and decodes the wrapped response data into out.
func doJSON(t *testing.T, h http.Handler, method, path string, body, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if out != nil && rec.Code == http.StatusOK {
		var envelope struct {
			Success bool            `json:"success"`
			Data    json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decode envelope: %v\n%s", err, rec.Body.String())
		}
		if !envelope.Success {
			t.Fatalf("response not marked success: %s", rec.Body.String())
		}
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			t.Fatalf("decode data: %v\n%s", err, envelope.Data)
		}
	}
	return rec
}

type stateData struct {
	Selected           []string       `json:"selected"`
	Visible            []flavor.Item  `json:"visible"`
	UI                 flavor.UIState `json:"ui"`
	NeedsExportConfirm bool           `json:"needs_export_confirm"`
	ShareError         string         `json:"share_error"`
}

func TestShareRoundTrip(t *testing.T) {
	_, h := newTestServer(t,
		refItem("Chocolate", flavor.CategoryIceCream, flavor.No, flavor.Yes),
		refItem("Sorbet", flavor.CategoryIceCream, flavor.No, flavor.No),
	)

	doJSON(t, h, http.MethodPost, "/api/select/toggle", map[string]string{"name": "Chocolate"}, nil)

	var share struct {
		Token string `json:"token"`
		Link  string `json:"link"`
	}
	rec := doJSON(t, h, http.MethodGet, "/api/share", nil, &share)
	if rec.Code != http.StatusOK {
		t.Fatalf("share status = %d", rec.Code)
	}
	if share.Token == "" {
		t.Fatal("empty share token")
	}
	if want := "https://chart.example/?share=" + share.Token; share.Link != want {
		t.Errorf("link = %q, want %q", share.Link, want)
	}

	// A second station with the same reference list opens the link.
	_, h2 := newTestServer(t,
		refItem("Chocolate", flavor.CategoryIceCream, flavor.No, flavor.Yes),
		refItem("Sorbet", flavor.CategoryIceCream, flavor.No, flavor.No),
	)

	var state stateData
	rec = doJSON(t, h2, http.MethodGet, "/api/state?share="+share.Token, nil, &state)
	if rec.Code != http.StatusOK {
		t.Fatalf("state status = %d", rec.Code)
	}
	if state.ShareError != "" {
		t.Fatalf("unexpected share error: %q", state.ShareError)
	}
	if diff := cmp.Diff([]string{"Chocolate"}, state.Selected); diff != "" {
		t.Errorf("selection (-want +got):\n%s", diff)
	}
}

func TestStateBadShareToken(t *testing.T) {
	_, h := newTestServer(t,
		refItem("Chocolate", flavor.CategoryIceCream, flavor.No, flavor.Yes),
	)
	doJSON(t, h, http.MethodPost, "/api/select/toggle", map[string]string{"name": "Chocolate"}, nil)

	var state stateData
	rec := doJSON(t, h, http.MethodGet, "/api/state?share=bad$token", nil, &state)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: a bad token degrades to a banner, not an error", rec.Code)
	}
	if state.ShareError == "" {
		t.Error("expected a share_error banner")
	}
	if diff := cmp.Diff([]string{"Chocolate"}, state.Selected); diff != "" {
		t.Errorf("selection should be untouched (-want +got):\n%s", diff)
	}
}

func TestManualItemHandler(t *testing.T) {
	_, h := newTestServer(t)

	var snap stateData
	rec := doJSON(t, h, http.MethodPost, "/api/manual-item",
		map[string]any{"name": "  Seasonal Peach  "}, &snap)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if len(snap.Visible) != 1 || snap.Visible[0].Name != "Seasonal Peach" {
		t.Fatalf("visible = %+v", snap.Visible)
	}
	if snap.Visible[0].Origin != flavor.OriginManual {
		t.Errorf("origin = %q", snap.Visible[0].Origin)
	}
	if diff := cmp.Diff([]string{"Seasonal Peach"}, snap.Selected); diff != "" {
		t.Errorf("a new manual item auto-selects (-want +got):\n%s", diff)
	}
}

func TestManualItemRejectsBlankName(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/manual-item", map[string]any{"name": "   "}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "missing_name") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestExportConfirmGate(t *testing.T) {
	_, h := newTestServer(t,
		refItem("Chocolate", flavor.CategoryIceCream, flavor.No, flavor.Yes),
		refItem("Sorbet", flavor.CategoryIceCream, flavor.No, flavor.No),
	)
	doJSON(t, h, http.MethodPost, "/api/select/toggle", map[string]string{"name": "Chocolate"}, nil)

	// 1 of 2 selected: the export pauses for confirmation.
	rec := doJSON(t, h, http.MethodGet, "/api/export?format=csv", nil, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "confirm_required") {
		t.Errorf("body = %s", rec.Body.String())
	}

	// Resent with confirm=yes it goes through.
	rec = doJSON(t, h, http.MethodGet, "/api/export?format=csv&confirm=yes", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirmed export status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "Chocolate") {
		t.Error("CSV missing the selected item")
	}
	if strings.Contains(rec.Body.String(), "Sorbet") {
		t.Error("CSV contains an unselected item")
	}
}

func TestExportAllSelectedNeedsNoConfirm(t *testing.T) {
	_, h := newTestServer(t,
		refItem("Chocolate", flavor.CategoryIceCream, flavor.No, flavor.Yes),
	)
	doJSON(t, h, http.MethodPost, "/api/select/all-reference", map[string]any{}, nil)

	rec := doJSON(t, h, http.MethodGet, "/api/export", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("default format should be html, content type = %q", ct)
	}
}

func TestExportBadFormat(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/api/export?format=pdf", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestShareQRImage(t *testing.T) {
	srv, h := newTestServer(t,
		refItem("Chocolate", flavor.CategoryIceCream, flavor.No, flavor.Yes),
	)

	rec := doJSON(t, h, http.MethodGet, "/api/share/qr.png", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
	if rec.Body.Len() == 0 {
		t.Error("empty PNG body")
	}

	// Second hit for the same state serves the cached image.
	token, err := srv.currentToken()
	if err != nil {
		t.Fatal(err)
	}
	first, err := srv.qrFor(token)
	if err != nil {
		t.Fatal(err)
	}
	second, err := srv.qrFor(token)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("cached QR image differs between calls")
	}
}

func TestFiltersOverlay(t *testing.T) {
	_, h := newTestServer(t,
		refItem("Chocolate", flavor.CategoryIceCream, flavor.No, flavor.Yes),
		refItem("Carrot Cake", flavor.CategoryCake, flavor.Yes, flavor.Yes),
	)
	doJSON(t, h, http.MethodPost, "/api/select/all-reference", map[string]any{}, nil)

	var snap stateData
	doJSON(t, h, http.MethodPost, "/api/filters",
		map[string]any{"active_categories": []string{"Cake"}, "shop_name": "Scoops"}, &snap)

	if len(snap.Visible) != 1 || snap.Visible[0].Name != "Carrot Cake" {
		t.Fatalf("visible = %+v", snap.Visible)
	}
	if snap.UI.ShopName != "Scoops" {
		t.Errorf("shop name = %q", snap.UI.ShopName)
	}

	// A later overlay that omits the categories leaves them in place.
	doJSON(t, h, http.MethodPost, "/api/filters", map[string]any{"note": "front counter"}, &snap)
	if diff := cmp.Diff([]flavor.Category{flavor.CategoryCake}, snap.UI.ActiveCategories); diff != "" {
		t.Errorf("active categories (-want +got):\n%s", diff)
	}
	if snap.UI.Note != "front counter" {
		t.Errorf("note = %q", snap.UI.Note)
	}
}

func TestSearchIsTransient(t *testing.T) {
	_, h := newTestServer(t,
		refItem("Chocolate", flavor.CategoryIceCream, flavor.No, flavor.Yes),
		refItem("Sorbet", flavor.CategoryIceCream, flavor.No, flavor.No),
	)

	var snap stateData
	doJSON(t, h, http.MethodPost, "/api/search", map[string]string{"search": "choc"}, &snap)
	if len(snap.Visible) != 1 || snap.Visible[0].Name != "Chocolate" {
		t.Fatalf("visible = %+v", snap.Visible)
	}
}

func TestMutationsRequirePost(t *testing.T) {
	_, h := newTestServer(t)

	for _, path := range []string{
		"/api/select/toggle",
		"/api/select/clear",
		"/api/manual-item",
		"/api/filters",
		"/api/catalog/reload",
	} {
		rec := doJSON(t, h, http.MethodGet, path, nil, nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("GET %s = %d, want 405", path, rec.Code)
		}
	}
}

func TestToggleRequiresName(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/select/toggle", map[string]string{}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/api/state", nil, nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}
