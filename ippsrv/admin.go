package ippsrv

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/rrohitkmr/vprinter/advertise"
	"github.com/rrohitkmr/vprinter/capability"
)

// The administrative endpoints back the CLI's load-plugin, unload-plugin,
// configure-plugin, set-printer-name, clear-jobs, and import-attributes
// operations (§6), generalizing this codebase's original handleAdmin
// stub into a small set of JSON-body POST handlers.

type pluginIDRequest struct {
	ID string `json:"id"`
}

func (s *Server) handleLoadPlugin(w http.ResponseWriter, r *http.Request) {
	var req pluginIDRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.registry.Load(r.Context(), req.ID); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	slog.InfoContext(r.Context(), "plugin loaded", "plugin_id", req.ID)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleUnloadPlugin(w http.ResponseWriter, r *http.Request) {
	var req pluginIDRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.registry.Unload(req.ID); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	slog.InfoContext(r.Context(), "plugin unloaded", "plugin_id", req.ID)
	w.WriteHeader(http.StatusOK)
}

type configurePluginRequest struct {
	ID     string         `json:"id"`
	Config map[string]any `json:"config"`
}

func (s *Server) handleConfigurePlugin(w http.ResponseWriter, r *http.Request) {
	var req configurePluginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.registry.Configure(req.ID, req.Config); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := savePluginConfig(s.fs, pluginConfigPath(s.cfg), s.registry.Configs()); err != nil {
		slog.Warn("failed to persist plugin configuration", "error", err)
	}
	w.WriteHeader(http.StatusOK)
}

type setPrinterNameRequest struct {
	Name         string `json:"name"`
	Location     string `json:"location"`
	Info         string `json:"info"`
	MakeAndModel string `json:"make_and_model"`
}

func (s *Server) handleSetPrinterName(w http.ResponseWriter, r *http.Request) {
	var req setPrinterNameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := s.composer.Identity()
	if req.Name != "" {
		id.Name = req.Name
	}
	if req.Location != "" {
		id.Location = req.Location
	}
	if req.Info != "" {
		id.Info = req.Info
	}
	if req.MakeAndModel != "" {
		id.MakeAndModel = req.MakeAndModel
	}
	s.composer.SetIdentity(id)

	if s.advertiser != nil {
		if err := s.advertiser.Publish(advertise.Identity{
			MakeAndModel: id.MakeAndModel,
			AdminURL:     s.cfg.AdminURL,
			Priority:     s.cfg.MDNSPriority,
		}); err != nil {
			slog.Warn("failed to republish DNS-SD advertisement after rename", "error", err)
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleClearJobs(w http.ResponseWriter, r *http.Request) {
	if err := s.spool.Clear(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleImportAttributes accepts a raw ipp_attributes/*.json document
// body, in either of the two shapes described in §6, and installs it as
// the printer's import-attributes layer.
func (s *Server) handleImportAttributes(w http.ResponseWriter, r *http.Request) {
	if r.Body == nil {
		http.Error(w, "missing request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	attrs, err := capability.ParseImportDocument(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.composer.SetImportedAttributes(attrs)
	slog.InfoContext(r.Context(), "imported attribute overrides", "count", len(attrs))
	w.WriteHeader(http.StatusOK)
}

// handleStop requests the server's main loop to shut down, backing the
// CLI's stop operation.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.spool.List()
	w.Header().Set(hdrContentType, "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(jobs)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		http.Error(w, "missing request body", http.StatusBadRequest)
		return false
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
