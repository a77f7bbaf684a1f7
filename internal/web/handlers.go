// internal/web/handlers.go
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"flavorchart/internal/board"
	"flavorchart/internal/export"
	"flavorchart/internal/flavor"
	"flavorchart/internal/middleware"
	"flavorchart/internal/sharelink"
)

// Routes builds the API mux. The caller mounts it under /api and wraps the
// outer middleware chain.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	api := middleware.APIMiddleware

	mux.HandleFunc("/state", api(s.StateHandler))
	mux.HandleFunc("/select/toggle", api(s.ToggleSelectedHandler))
	mux.HandleFunc("/select/clear", api(s.ClearSelectedHandler))
	mux.HandleFunc("/select/all-reference", api(s.SelectAllReferenceHandler))
	mux.HandleFunc("/select/all-visible", api(s.SelectAllVisibleHandler))
	mux.HandleFunc("/select/clear-visible", api(s.ClearVisibleHandler))
	mux.HandleFunc("/manual-item", api(s.ManualItemHandler))
	mux.HandleFunc("/search", api(s.SearchHandler))
	mux.HandleFunc("/filters", api(s.FiltersHandler))
	mux.HandleFunc("/share", api(s.ShareHandler))
	mux.HandleFunc("/share/qr.png", api(s.ShareQRHandler))
	mux.HandleFunc("/export", api(s.ExportHandler))
	mux.HandleFunc("/catalog/reload", api(s.ReloadCatalogHandler))

	return mux
}

// stateResponse is the board snapshot plus the share-apply outcome.
type stateResponse struct {
	board.Snapshot
	NeedsExportConfirm bool   `json:"needs_export_confirm"`
	ShareError         string `json:"share_error,omitempty"`
}

// StateHandler returns the full board snapshot. When a share token rides
// along (?share=...), it is decoded, normalized, and applied first; any
// decode failure becomes a one-line banner string in the response and the
// state stays as it was.
func (s *Server) StateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		middleware.WriteAPIError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "Use GET", "")
		return
	}

	var shareError string
	if token := r.URL.Query().Get("share"); token != "" {
		shareError = s.applyShareToken(token)
	}

	resp := stateResponse{
		Snapshot:           s.Engine.Snapshot(),
		NeedsExportConfirm: s.Engine.NeedsExportConfirm(),
		ShareError:         shareError,
	}
	middleware.WriteAPISuccess(w, r, resp)
}

// applyShareToken decodes and applies a share payload, returning a
// user-presentable error string on failure ("" on success).
func (s *Server) applyShareToken(token string) string {
	payload, err := sharelink.DecodePayload(token)
	if err != nil {
		switch {
		case errors.Is(err, sharelink.ErrBadCharacters):
			s.countShareDecode("bad_characters")
		case errors.Is(err, sharelink.ErrParseFailed):
			s.countShareDecode("parse_failed")
		default:
			s.countShareDecode("decode_failed")
		}
		return sharelink.UserMessage(err)
	}

	s.Engine.SetSelected(payload.Selection)
	s.Engine.SetUIState(flavor.NormalizeUIState(payload.UI, s.Engine.UIState()))
	s.persist()
	s.countShareDecode("ok")
	return ""
}

func (s *Server) ToggleSelectedHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !s.parseMutation(w, r, &req) {
		return
	}
	if req.Name == "" {
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "missing_name", "A name is required", "")
		return
	}
	s.Engine.ToggleSelected(req.Name)
	s.finishMutation(w, r)
}

func (s *Server) ClearSelectedHandler(w http.ResponseWriter, r *http.Request) {
	if !s.requirePost(w, r) {
		return
	}
	s.Engine.ClearSelected()
	s.finishMutation(w, r)
}

func (s *Server) SelectAllReferenceHandler(w http.ResponseWriter, r *http.Request) {
	if !s.requirePost(w, r) {
		return
	}
	s.Engine.SelectAllReference()
	s.finishMutation(w, r)
}

func (s *Server) SelectAllVisibleHandler(w http.ResponseWriter, r *http.Request) {
	if !s.requirePost(w, r) {
		return
	}
	s.Engine.SelectAllVisible()
	s.finishMutation(w, r)
}

func (s *Server) ClearVisibleHandler(w http.ResponseWriter, r *http.Request) {
	if !s.requirePost(w, r) {
		return
	}
	s.Engine.ClearVisible()
	s.finishMutation(w, r)
}

// ManualItemHandler adds or replaces a staff-entered item. The body is
// treated as untrusted and run through the normalizer; a record without a
// usable name is rejected rather than silently dropped, since the user is
// right there to fix it.
func (s *Server) ManualItemHandler(w http.ResponseWriter, r *http.Request) {
	var raw any
	if !s.parseMutation(w, r, &raw) {
		return
	}

	item, ok := flavor.NormalizeManualItem(raw, s.Engine.AttributeNames())
	if !ok {
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "missing_name", "The item needs a name", "")
		return
	}
	s.Engine.AddManualItem(item)
	s.finishMutation(w, r)
}

func (s *Server) SearchHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Search string `json:"search"`
	}
	if !s.parseMutation(w, r, &req) {
		return
	}
	s.Engine.SetSearchText(req.Search)
	// Search is transient display state: deliberately not persisted.
	middleware.WriteAPISuccess(w, r, s.Engine.Snapshot())
}

// FiltersHandler overlays a partial UI update (split flag, active
// categories, display labels) onto the current UI state.
func (s *Server) FiltersHandler(w http.ResponseWriter, r *http.Request) {
	var raw any
	if !s.parseMutation(w, r, &raw) {
		return
	}
	s.Engine.SetUIState(flavor.NormalizeUIState(raw, s.Engine.UIState()))
	s.finishMutation(w, r)
}

// ShareHandler returns the share token and link for the current selection
// and UI state.
func (s *Server) ShareHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		middleware.WriteAPIError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "Use GET", "")
		return
	}

	token, err := s.currentToken()
	if err != nil {
		middleware.WriteAPIError(w, r, http.StatusInternalServerError, "encode_failed", "Could not build the share link", "")
		return
	}
	middleware.WriteAPISuccess(w, r, map[string]string{
		"token": token,
		"link":  s.shareLink(token),
	})
}

func (s *Server) currentToken() (string, error) {
	payload := sharelink.Payload{
		Version:   sharelink.CurrentVersion,
		Selection: s.Engine.SelectedNames(),
		UI:        s.Engine.UIState(),
	}
	return sharelink.Encode(payload)
}

// ShareQRHandler serves a QR image of the current share link.
func (s *Server) ShareQRHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		middleware.WriteAPIError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "Use GET", "")
		return
	}

	token, err := s.currentToken()
	if err != nil {
		middleware.WriteAPIError(w, r, http.StatusInternalServerError, "encode_failed", "Could not build the share link", "")
		return
	}
	png, err := s.qrFor(token)
	if err != nil {
		middleware.WriteAPIError(w, r, http.StatusInternalServerError, "qr_failed", "Could not render the QR image", "")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// ExportHandler renders the output rows as a document. If fewer items are
// selected than the reference list holds, the caller must resend with
// confirm=yes — the nudge is bypassable, never silent. Declining is a normal
// cancellation, not an error.
func (s *Server) ExportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		middleware.WriteAPIError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "Use GET", "")
		return
	}

	confirmed := r.URL.Query().Get("confirm") == "yes"
	var prompt string
	gate := board.ConfirmerFunc(func(message string) bool {
		prompt = message
		return confirmed
	})
	if !s.Engine.GateExport(gate) {
		middleware.WriteAPIError(w, r, http.StatusConflict, "confirm_required", prompt,
			"Resend with confirm=yes to export anyway.")
		return
	}

	doc := export.Build(
		s.Engine.GroupedOutput(),
		s.Engine.AttributeNames(),
		s.Engine.UIState().ShopName,
		time.Now(),
	)

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "html"
	}
	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="flavor-allergen-chart.csv"`)
		if err := export.WriteCSV(w, doc); err != nil {
			middleware.WriteAPIError(w, r, http.StatusInternalServerError, "export_failed", "Could not render the CSV export", "")
			return
		}
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := export.WriteHTML(w, doc); err != nil {
			middleware.WriteAPIError(w, r, http.StatusInternalServerError, "export_failed", "Could not render the chart page", "")
			return
		}
	default:
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "bad_format", "format must be csv or html", "")
		return
	}
	s.countExport(format)
}

// ReloadCatalogHandler kicks off a fresh reference catalog load.
func (s *Server) ReloadCatalogHandler(w http.ResponseWriter, r *http.Request) {
	if !s.requirePost(w, r) {
		return
	}
	// Not the request context: the load must outlive this request.
	s.StartCatalogLoad(context.Background())
	middleware.WriteAPISuccess(w, r, map[string]string{"status": "reloading"})
}

func (s *Server) requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		middleware.WriteAPIError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "Use POST", "")
		return false
	}
	return true
}

func (s *Server) parseMutation(w http.ResponseWriter, r *http.Request, v any) bool {
	if !s.requirePost(w, r) {
		return false
	}
	if err := middleware.ParseJSONRequest(r, v); err != nil {
		middleware.WriteAPIError(w, r, http.StatusBadRequest, "bad_request", "Could not parse request body", err.Error())
		return false
	}
	return true
}

func (s *Server) finishMutation(w http.ResponseWriter, r *http.Request) {
	s.persist()
	middleware.WriteAPISuccess(w, r, s.Engine.Snapshot())
}
