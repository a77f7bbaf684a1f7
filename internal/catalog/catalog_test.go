package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"flavorchart/internal/flavor"
)

const sampleTSV = "Name\tEgg\tMilk\n" +
	"Vanilla Ice Cream\tYes\tYes\n" +
	"\tNo\tNo\n" + // blank name skipped
	"Waffle Cone\tYes\n" + // short row: Milk cell missing
	"Mango Sorbet\tNo\tNo\n"

func TestParseTSV(t *testing.T) {
	rows, err := ParseTSV(strings.NewReader(sampleTSV))
	if err != nil {
		t.Fatal(err)
	}

	want := []Row{
		{Name: "Vanilla Ice Cream", Attributes: map[string]string{"Egg": "Yes", "Milk": "Yes"}},
		{Name: "Waffle Cone", Attributes: map[string]string{"Egg": "Yes"}},
		{Name: "Mango Sorbet", Attributes: map[string]string{"Egg": "No", "Milk": "No"}},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("ParseTSV mismatch (-want +got):\n%s", diff)
	}
}

func TestParseTSVEmpty(t *testing.T) {
	rows, err := ParseTSV(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Errorf("empty input should yield zero rows, got %d", len(rows))
	}
}

func TestParseJSONShape(t *testing.T) {
	data := []byte(`{"rows":[{"name":"Chocolate","attributes":{"Milk":"Yes","Egg":"No"}}]}`)
	rows, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	want := []Row{{Name: "Chocolate", Attributes: map[string]string{"Milk": "Yes", "Egg": "No"}}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("Parse JSON mismatch (-want +got):\n%s", diff)
	}
}

func TestParseBadJSON(t *testing.T) {
	if _, err := Parse([]byte(`{"rows": broken`)); err == nil {
		t.Error("malformed JSON should error")
	}
}

func TestItems(t *testing.T) {
	rows := []Row{
		{Name: " Vanilla Ice Cream ", Attributes: map[string]string{"Egg": "NO ", "Milk": "yes"}},
		{Name: "  ", Attributes: map[string]string{"Egg": "Yes"}},
		{Name: "Mystery Scoop", Attributes: nil},
	}

	items := Items(rows, []string{"Egg", "Milk"})
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2 (blank names dropped)", len(items))
	}

	first := items[0]
	if first.Name != "Vanilla Ice Cream" {
		t.Errorf("name = %q, want trimmed", first.Name)
	}
	if first.Category != flavor.CategoryIceCream {
		t.Errorf("category = %q, want classified Ice Cream", first.Category)
	}
	if first.Origin != flavor.OriginReference {
		t.Errorf("origin = %q, want reference", first.Origin)
	}
	wantAttrs := map[string]flavor.AllergenValue{"Egg": flavor.No, "Milk": flavor.Yes}
	if diff := cmp.Diff(wantAttrs, first.Attributes); diff != "" {
		t.Errorf("attributes mismatch (-want +got):\n%s", diff)
	}

	second := items[1]
	if second.Attributes["Egg"] != flavor.Unknown || second.Attributes["Milk"] != flavor.Unknown {
		t.Errorf("missing cells should normalize to Unknown: %+v", second.Attributes)
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleTSV))
	}))
	defer srv.Close()

	rows, err := Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Errorf("got %d rows, want 3", len(rows))
	}
}

func TestFetchNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := Fetch(context.Background(), srv.URL); err == nil {
		t.Error("non-200 response should error")
	}
}
