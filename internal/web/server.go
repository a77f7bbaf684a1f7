// internal/web/server.go
package web

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"flavorchart/internal/board"
	"flavorchart/internal/catalog"
	"flavorchart/internal/logger"
	"flavorchart/internal/metrics"
	"flavorchart/internal/store"
)

// Config carries everything the server needs beyond its collaborators.
type Config struct {
	ShareBaseURL string // public URL share links point at
	CatalogURL   string // remote reference list; empty = none
	CatalogFile  string // local reference list fallback
}

// Server wires the engine to HTTP. Store and Metrics may be nil (tests run
// without persistence or a registry).
type Server struct {
	Engine  *board.Engine
	Store   *store.Store
	Metrics *metrics.Metrics
	Config  Config

	// reloadGen guards the async catalog load: only the newest invocation
	// may install its result (last-invocation-wins, no queuing).
	reloadGen atomic.Int64

	qrMu    sync.Mutex
	qrGen   int64
	qrToken string
	qrPNG   []byte
}

// NewServer assembles a server around an engine.
func NewServer(engine *board.Engine, st *store.Store, m *metrics.Metrics, cfg Config) *Server {
	return &Server{Engine: engine, Store: st, Metrics: m, Config: cfg}
}

// StartCatalogLoad kicks off an asynchronous reference catalog load. A call
// supersedes any load still in flight: the stale result is discarded when it
// eventually arrives. Failure degrades to "zero reference rows plus a status
// flag" — it never reaches the engine as an error.
func (s *Server) StartCatalogLoad(parent context.Context) {
	gen := s.reloadGen.Add(1)
	s.Engine.MarkCatalogLoading()

	go func() {
		ctx, cancel := context.WithTimeout(parent, 30*time.Second)
		defer cancel()

		rows, err := s.fetchRows(ctx)

		if s.reloadGen.Load() != gen {
			s.countReload("stale")
			return
		}
		if err != nil {
			logger.LogWarn("Reference catalog load failed, continuing with manual items only: %v", err)
			s.Engine.MarkCatalogFailed()
			s.countReload("failed")
			return
		}

		items := catalog.Items(rows, s.Engine.AttributeNames())
		s.Engine.SetCatalog(items)
		s.countReload("ok")
		logger.LogInfo("Reference catalog loaded: %d items", len(items))
	}()
}

func (s *Server) fetchRows(ctx context.Context) ([]catalog.Row, error) {
	switch {
	case s.Config.CatalogURL != "":
		return catalog.Fetch(ctx, s.Config.CatalogURL)
	case s.Config.CatalogFile != "":
		return catalog.Load(s.Config.CatalogFile)
	default:
		// No source configured: an empty reference list, not a failure.
		return nil, nil
	}
}

func (s *Server) countReload(result string) {
	if s.Metrics != nil {
		s.Metrics.CatalogReloads.WithLabelValues(result).Inc()
	}
}

func (s *Server) countShareDecode(result string) {
	if s.Metrics != nil {
		s.Metrics.ShareDecodes.WithLabelValues(result).Inc()
	}
}

func (s *Server) countExport(format string) {
	if s.Metrics != nil {
		s.Metrics.Exports.WithLabelValues(format).Inc()
	}
}

// persist writes the three state keys. Persistence is a best-effort side
// effect of a state change: failures are logged, never surfaced to the
// request that triggered them.
func (s *Server) persist() {
	if s.Store == nil {
		return
	}
	if err := s.Store.SaveSelectedNames(s.Engine.SelectedNames()); err != nil {
		logger.LogWarn("Failed to persist selection: %v", err)
	}
	if err := s.Store.SaveManualItems(s.Engine.ManualItems()); err != nil {
		logger.LogWarn("Failed to persist manual items: %v", err)
	}
	if err := s.Store.SaveUIState(s.Engine.UIState()); err != nil {
		logger.LogWarn("Failed to persist UI state: %v", err)
	}
}

// shareLink builds the full shareable URL for a token.
func (s *Server) shareLink(token string) string {
	return s.Config.ShareBaseURL + "/?share=" + token
}

// qrFor returns a PNG QR image of the share link, cached per token. A
// regeneration for a newer token wins the cache; a superseded result is
// still served to its own caller but not retained.
func (s *Server) qrFor(token string) ([]byte, error) {
	s.qrMu.Lock()
	if s.qrToken == token && s.qrPNG != nil {
		png := s.qrPNG
		s.qrMu.Unlock()
		return png, nil
	}
	s.qrGen++
	gen := s.qrGen
	s.qrMu.Unlock()

	png, err := qrcode.Encode(s.shareLink(token), qrcode.Medium, 512)
	if err != nil {
		return nil, err
	}

	s.qrMu.Lock()
	if s.qrGen == gen {
		s.qrToken = token
		s.qrPNG = png
	}
	s.qrMu.Unlock()
	return png, nil
}
