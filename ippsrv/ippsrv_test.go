package ippsrv

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/OpenPrinting/goipp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rrohitkmr/vprinter/config"
	"github.com/rrohitkmr/vprinter/events"
	"github.com/rrohitkmr/vprinter/ipp"
	"github.com/rrohitkmr/vprinter/spool"
)

func newTestServer(t *testing.T) *Server {
	fs := afero.NewMemMapFs()
	bus := events.NewBus()
	sp, err := spool.New(fs, "spool", bus)
	require.NoError(t, err)
	t.Cleanup(func() { sp.Close() })

	cfg := config.Default()
	cfg.MDNSEnabled = false

	s, err := New(cfg, fs, sp, bus, nil)
	require.NoError(t, err)
	return s
}

func TestHandlePrintGetPrinterAttributes(t *testing.T) {
	s := newTestServer(t)

	req := goipp.NewRequest(goipp.DefaultVersion, goipp.OpGetPrinterAttributes, 1)
	req.Operation = ipp.Adder(req.Operation)("printer-uri", goipp.TagURI, goipp.String("ipp://localhost/printers/default"))

	var buf bytes.Buffer
	require.NoError(t, req.Encode(&buf))

	httpReq := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(buf.Bytes()))
	rec := httptest.NewRecorder()
	s.handlePrint(rec, httpReq)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp goipp.Message
	require.NoError(t, resp.DecodeBytes(rec.Body.Bytes()))
	assert.Equal(t, goipp.Code(ipp.StatusSuccessfulOK), resp.Code)
}

func TestHandleSetPrinterName(t *testing.T) {
	s := newTestServer(t)
	body := []byte(`{"name":"Renamed Printer"}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/set-printer-name", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	s.handleSetPrinterName(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Renamed Printer", s.composer.Identity().Name)
}

func TestHandleLoadAndUnloadPlugin(t *testing.T) {
	s := newTestServer(t)

	loadBody := []byte(`{"id":"delay-simulator"}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/load-plugin", bytes.NewReader(loadBody))
	rec := httptest.NewRecorder()
	s.handleLoadPlugin(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req2 := httptest.NewRequest(http.MethodPost, "/admin/unload-plugin", bytes.NewReader(loadBody))
	rec2 := httptest.NewRecorder()
	s.handleUnloadPlugin(rec2, req2)
	assert.Equal(t, http.StatusOK, rec2.Code)
}

func TestHandleClearJobs(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/admin/clear-jobs", nil)
	rec := httptest.NewRecorder()
	s.handleClearJobs(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
