// Package ippsrv is the HTTP front end that decodes IPP requests, hands
// them to the dispatcher, and encodes the response, generalizing this
// codebase's original ippsrv/http.go net/http.Server plus
// rusq/httpex.LogMiddleware wiring to also own the job spool, capability
// composer, plugin registry, and DNS-SD advertisement for a single
// virtual printer.
package ippsrv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/OpenPrinting/goipp"
	"github.com/rusq/httpex"
	"github.com/spf13/afero"

	"github.com/rrohitkmr/vprinter/advertise"
	"github.com/rrohitkmr/vprinter/capability"
	"github.com/rrohitkmr/vprinter/config"
	"github.com/rrohitkmr/vprinter/dispatch"
	"github.com/rrohitkmr/vprinter/events"
	"github.com/rrohitkmr/vprinter/plugin"
	"github.com/rrohitkmr/vprinter/spool"
)

// MaxDocumentSize caps the accepted document body, matching this
// codebase's original spool size limit.
var MaxDocumentSize int64 = 104857600

const (
	hdrContentType = "Content-Type"
	ippMIMEType    = "application/ipp"
)

// Server is the printer's HTTP/IPP front end.
type Server struct {
	cfg config.ServiceConfig
	fs  afero.Fs

	spool      *spool.Spool
	bus        *events.Bus
	composer   *capability.Composer
	registry   *plugin.Registry
	dispatcher *dispatch.Dispatcher
	advertiser *advertise.Advertiser

	srv    *http.Server
	stopCh chan struct{}
}

// pluginConfigPath is where plugin_config.json lives within cfg.PluginDir.
func pluginConfigPath(cfg config.ServiceConfig) string {
	return filepath.Join(cfg.PluginDir, "plugin_config.json")
}

// New assembles the printer's components from cfg and registers the
// built-in plugins, per SPEC_FULL.md §6. fs backs both the plugin
// configuration store and whatever filesystem-facing admin operations
// the server later performs; it is typically the same afero.Fs passed
// to spool.New.
func New(cfg config.ServiceConfig, fs afero.Fs, sp *spool.Spool, bus *events.Bus, svcAdvertiser advertise.ServiceAdvertiser) (*Server, error) {
	if cfg.Debug && cfg.DumpDir == "" {
		d, err := os.MkdirTemp("", "protodump-*")
		if err != nil {
			return nil, fmt.Errorf("error creating temporary dump directory: %w", err)
		}
		cfg.DumpDir = d
	}
	if cfg.Debug {
		if err := os.MkdirAll(cfg.DumpDir, 0o700); err != nil {
			return nil, fmt.Errorf("error creating requested dump directory: %w", err)
		}
		slog.Info("protocol dump", "directory", cfg.DumpDir)
	}

	registry := plugin.NewRegistry()
	registry.Register(plugin.NewDelaySimulator(0))
	registry.Register(plugin.NewErrorInjector(plugin.ErrNetwork, 0))
	registry.Register(plugin.NewDocumentWatermark(""))
	registry.Register(plugin.NewAttributeOverride(nil))
	registry.Register(plugin.NewLoggingEnhancer())

	if err := loadPluginConfig(fs, pluginConfigPath(cfg), registry.Configure); err != nil {
		slog.Warn("failed to load persisted plugin configuration", "error", err)
	}

	printerURI := "ipp://localhost" + normalizeAddr(cfg.ListenAddr) + "/printers/default"
	composer := capability.New(capability.Identity{
		Name:         cfg.PrinterName,
		Location:     cfg.Location,
		MakeAndModel: cfg.MakeAndModel,
	}, printerURI, sp.Count, registry)

	dispatcher := dispatch.New("http://localhost"+normalizeAddr(cfg.ListenAddr), printerURI, sp, composer, registry)

	s := &Server{
		cfg:        cfg,
		fs:         fs,
		spool:      sp,
		bus:        bus,
		composer:   composer,
		registry:   registry,
		dispatcher: dispatcher,
		stopCh:     make(chan struct{}),
	}

	if cfg.MDNSEnabled && svcAdvertiser != nil {
		s.advertiser = advertise.New(svcAdvertiser, cfg.MDNSPort)
		if err := s.advertiser.Publish(advertise.Identity{
			MakeAndModel: cfg.MakeAndModel,
			AdminURL:     cfg.AdminURL,
			Priority:     cfg.MDNSPriority,
		}); err != nil {
			slog.Warn("failed to publish DNS-SD advertisement", "error", err)
		}
	}

	m := http.NewServeMux()
	m.HandleFunc("/admin/load-plugin", s.handleLoadPlugin)
	m.HandleFunc("/admin/unload-plugin", s.handleUnloadPlugin)
	m.HandleFunc("/admin/configure-plugin", s.handleConfigurePlugin)
	m.HandleFunc("/admin/set-printer-name", s.handleSetPrinterName)
	m.HandleFunc("/admin/clear-jobs", s.handleClearJobs)
	m.HandleFunc("/admin/import-attributes", s.handleImportAttributes)
	m.HandleFunc("/admin/stop", s.handleStop)
	m.HandleFunc("/admin/jobs", s.handleListJobs)
	m.HandleFunc("/", s.handlePrint)

	s.srv = &http.Server{
		Handler: httpex.LogMiddleware(m, log.Default()),
	}
	return s, nil
}

func normalizeAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return addr
	}
	return ":" + addr
}

// Registry exposes the plugin registry for the administrative CLI.
func (s *Server) Registry() *plugin.Registry { return s.registry }

// Composer exposes the capability composer for the administrative CLI.
func (s *Server) Composer() *capability.Composer { return s.composer }

// Spool exposes the job spool for the administrative CLI.
func (s *Server) Spool() *spool.Spool { return s.spool }

// Stopped is closed once a remote stop request (§6's stop operation) has
// been received via the admin endpoint.
func (s *Server) Stopped() <-chan struct{} { return s.stopCh }

func (s *Server) handlePrint(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		w.Header().Set(hdrContentType, "text/plain; charset=utf-8")
		fmt.Fprintln(w, "vprinter is running")
		return
	}
	if r.Body == nil {
		httpError(w, http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var msg goipp.Message
	if err := msg.Decode(r.Body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	payload, err := io.ReadAll(io.LimitReader(r.Body, MaxDocumentSize))
	if err != nil {
		slog.Warn("failed to read payload", "error", err)
	}

	if s.cfg.Debug {
		t := time.Now()
		dumpIPPFile(filepath.Join(s.cfg.DumpDir, fmt.Sprintf("request_%d_%04x.ipp", t.Unix(), msg.Code)), &msg)
		dumpfile(filepath.Join(s.cfg.DumpDir, fmt.Sprintf("request_%d_%04x.json", t.Unix(), msg.Code)), &msg)
	}

	w.Header().Set(hdrContentType, ippMIMEType)
	resp := s.dispatcher.Dispatch(r.Context(), &msg, payload)
	if err := resp.Encode(w); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func httpError(w http.ResponseWriter, code int) {
	http.Error(w, fmt.Sprintf("%d %s", code, http.StatusText(code)), code)
}

func (s *Server) ListenAndServe(addr string) error {
	s.srv.Addr = addr
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var errs error
	if s.advertiser != nil {
		s.advertiser.Close()
	}
	if err := s.spool.Close(); err != nil {
		errs = errors.Join(errs, err)
	}
	if s.srv != nil {
		if err := s.srv.Shutdown(sctx); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}

// Info is the SIGINFO response for the server, generalizing this
// codebase's original Server.Info method.
func (s *Server) Info(w io.Writer) {
	fmt.Fprintf(w, "*** Virtual Printer Info ***\n")
	fmt.Fprintf(w, "Printer name: %s\n", s.composer.Identity().Name)
	fmt.Fprintf(w, "Listen address: %s\n", s.srv.Addr)
	fmt.Fprintf(w, "Debug mode: %t\n", s.cfg.Debug)
	fmt.Fprintf(w, "Max document size: %d bytes\n", MaxDocumentSize)
	fmt.Fprintf(w, "Jobs queued: %d\n", s.spool.Count())
	for _, j := range s.spool.List() {
		fmt.Fprintf(w, "  - job %d: %s (%s)\n", j.ID, j.Name, j.State.String())
	}
}
