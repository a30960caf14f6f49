// Package dispatch routes decoded IPP requests to per-operation handlers,
// generalizing the map[goipp.Op]IPPHandlerFunc pattern from this
// codebase's original ippsrv/ipp.go into a dispatcher that also drives the
// document ingestion pipeline and plugin hook chain around each operation.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/OpenPrinting/goipp"
	"github.com/google/uuid"

	"github.com/rrohitkmr/vprinter/capability"
	"github.com/rrohitkmr/vprinter/docpipe"
	"github.com/rrohitkmr/vprinter/ipp"
	"github.com/rrohitkmr/vprinter/jobsvc"
	"github.com/rrohitkmr/vprinter/plugin"
	"github.com/rrohitkmr/vprinter/spool"
)

// Handler processes one decoded IPP request and its trailing document body.
type Handler func(ctx context.Context, req *goipp.Message, body []byte) (*goipp.Message, error)

// ErrSimKind names one of the canned outcomes the orthogonal error
// simulation mode can force on every dispatched request, per §4.2.
type ErrSimKind int

const (
	ErrSimNone ErrSimKind = iota
	ErrSimInternalError
	ErrSimNotPossible
	ErrSimDocFormatNotSupported
	ErrSimAbortedJob
)

// Dispatcher wires the spool, capability composer, document pipeline, and
// plugin registry together behind a per-operation handler table, per §4.2.
type Dispatcher struct {
	BaseURL    string
	PrinterURI string

	spool    *spool.Spool
	composer *capability.Composer
	registry *plugin.Registry

	mu            sync.RWMutex
	errSimEnabled bool
	errSimKind    ErrSimKind

	handlers map[goipp.Op]Handler
}

func New(baseURL, printerURI string, sp *spool.Spool, composer *capability.Composer, registry *plugin.Registry) *Dispatcher {
	d := &Dispatcher{
		BaseURL:    baseURL,
		PrinterURI: printerURI,
		spool:      sp,
		composer:   composer,
		registry:   registry,
	}
	d.handlers = map[goipp.Op]Handler{
		goipp.OpPrintJob:             d.handlePrintJob,
		goipp.OpValidateJob:         d.handleValidateJob,
		goipp.OpCreateJob:           d.handleCreateJob,
		goipp.OpSendDocument:        d.handleSendDocument,
		goipp.OpCancelJob:           d.handleCancelJob,
		goipp.OpGetJobAttributes:    d.handleGetJobAttributes,
		goipp.OpGetPrinterAttributes: d.handleGetPrinterAttributes,
	}
	return d
}

// SetErrorSimulation installs or clears the orthogonal error-simulation
// mode: while enabled, Dispatch returns kind's canned response for every
// request regardless of the normal operation path, per §4.2. Written only
// by administrative paths, read once per request, per §5's single
// mutex-guarded pair.
func (d *Dispatcher) SetErrorSimulation(enabled bool, kind ErrSimKind) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errSimEnabled = enabled
	d.errSimKind = kind
}

func (d *Dispatcher) errorSimulation() (bool, ErrSimKind) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.errSimEnabled, d.errSimKind
}

// cannedErrorResponse builds the forced response for an active error
// simulation, per §4.2's four canned outcomes.
func cannedErrorResponse(kind ErrSimKind, req *goipp.Message) *goipp.Message {
	switch kind {
	case ErrSimInternalError:
		return ipp.NewResponse(ipp.StatusServerErrorInternalError, req.RequestID)
	case ErrSimDocFormatNotSupported:
		return ipp.NewResponse(ipp.StatusClientErrorDocFormatNotSupported, req.RequestID)
	case ErrSimAbortedJob:
		resp := ipp.NewResponse(ipp.StatusSuccessfulOK, req.RequestID)
		resp.Job = cannedAbortedJobAttributes(req)
		return resp
	default:
		return ipp.NewResponse(ipp.StatusClientErrorNotPossible, req.RequestID)
	}
}

// cannedAbortedJobAttributes renders the "aborted" job-attributes shape
// §4.2 and §7 both describe: job-state=canceled(7),
// job-state-reasons="job-canceled-by-system".
func cannedAbortedJobAttributes(req *goipp.Message) goipp.Attributes {
	var attrs goipp.Attributes
	add := func(name string, tag goipp.Tag, values ...goipp.Value) {
		attrs = ipp.Adder(attrs)(name, tag, values...)
	}
	id, _ := ipp.ExtractValue[goipp.Integer](req.Operation, "job-id")
	add("job-id", goipp.TagInteger, goipp.Integer(id))
	add("job-state", goipp.TagEnum, goipp.Integer(jobsvc.JobCanceled))
	add("job-state-reasons", goipp.TagKeyword, goipp.String(string(jobsvc.ReasonJobCanceledBySystem)))
	return attrs
}

// Dispatch routes req to its registered handler, or to the plugin chain's
// custom-operation hook, or to a bare successful-ok response, per §4.2's
// dispatch table and §4.7's custom-operation hook.
func (d *Dispatcher) Dispatch(ctx context.Context, req *goipp.Message, body []byte) *goipp.Message {
	lg := slog.With("code", req.Code, "request_id", req.RequestID)
	op := goipp.Op(req.Code)

	if enabled, kind := d.errorSimulation(); enabled {
		lg.Warn("error simulation active", "kind", kind)
		return cannedErrorResponse(kind, req)
	}

	h, ok := d.handlers[op]
	if !ok {
		if d.registry != nil {
			opName := fmt.Sprintf("0x%04x", req.Code)
			if d.registry.RunCustomOperation(ctx, opName, req.Operation) {
				lg.Info("unsupported operation handled by plugin", "op_name", opName)
				return ipp.NewResponse(ipp.StatusSuccessfulOK, req.RequestID)
			}
		}
		lg.Warn("operation not supported")
		return ipp.NewResponse(ipp.StatusSuccessfulOK, req.RequestID)
	}

	resp, err := h(ctx, req, body)
	if err != nil {
		lg.Error("operation handler failed", "error", err)
		if d.registry != nil {
			d.registry.RunHandleError(ctx, err, fmt.Sprintf("op:0x%04x", int(op)))
		}
		return ipp.NewResponse(ipp.StatusServerErrorInternalError, req.RequestID)
	}
	return resp
}

func (d *Dispatcher) handleValidateJob(ctx context.Context, req *goipp.Message, _ []byte) (*goipp.Message, error) {
	return ipp.NewResponse(ipp.StatusSuccessfulOK, req.RequestID), nil
}

func (d *Dispatcher) handleGetPrinterAttributes(ctx context.Context, req *goipp.Message, _ []byte) (*goipp.Message, error) {
	resp := ipp.NewResponse(ipp.StatusSuccessfulOK, req.RequestID)
	resp.Printer = d.composer.Attributes(ctx)
	return resp, nil
}

func (d *Dispatcher) handleGetJobAttributes(ctx context.Context, req *goipp.Message, _ []byte) (*goipp.Message, error) {
	id, err := ipp.ExtractValue[goipp.Integer](req.Operation, "job-id")
	if err != nil {
		return nil, fmt.Errorf("job-id required: %w", err)
	}
	job, err := d.spool.Get(jobsvc.JobID(id))
	if err != nil {
		resp := ipp.NewResponse(ipp.StatusClientErrorNotFound, req.RequestID)
		return resp, nil
	}
	resp := ipp.NewResponse(ipp.StatusSuccessfulOK, req.RequestID)
	resp.Job = job.Attributes()
	return resp, nil
}

func (d *Dispatcher) handleCancelJob(ctx context.Context, req *goipp.Message, _ []byte) (*goipp.Message, error) {
	id, err := ipp.ExtractValue[goipp.Integer](req.Operation, "job-id")
	if err != nil {
		return nil, fmt.Errorf("job-id required: %w", err)
	}
	job, err := d.spool.Get(jobsvc.JobID(id))
	if err != nil {
		return ipp.NewResponse(ipp.StatusClientErrorNotFound, req.RequestID), nil
	}
	if err := job.Cancel(ctx, jobsvc.ReasonJobCanceledByUser); err != nil {
		return ipp.NewResponse(ipp.StatusClientErrorNotPossible, req.RequestID), nil
	}
	return ipp.NewResponse(ipp.StatusSuccessfulOK, req.RequestID), nil
}

func (d *Dispatcher) handleCreateJob(ctx context.Context, req *goipp.Message, _ []byte) (*goipp.Message, error) {
	job, err := d.newJobFromRequest(req)
	if err != nil {
		return nil, err
	}
	d.spool.Register(job)
	resp := ipp.NewResponse(ipp.StatusSuccessfulOK, req.RequestID)
	resp.Job = job.Attributes()
	return resp, nil
}

// ingestKind distinguishes the three ways ingest's caller wants the final
// job-attributes group shaped, per §4.2's Print-Job/Send-Document rows.
type ingestKind int

const (
	ingestPrintJob ingestKind = iota
	ingestSendDocumentFinal
	ingestSendDocumentPartial
)

func (d *Dispatcher) handleSendDocument(ctx context.Context, req *goipp.Message, body []byte) (*goipp.Message, error) {
	id, err := ipp.ExtractValue[goipp.Integer](req.Operation, "job-id")
	if err != nil {
		return nil, fmt.Errorf("job-id required: %w", err)
	}
	job, err := d.spool.Get(jobsvc.JobID(id))
	if err != nil {
		return ipp.NewResponse(ipp.StatusClientErrorNotFound, req.RequestID), nil
	}

	lastDocument, lderr := ipp.ExtractValue[goipp.Boolean](req.Operation, "last-document")
	kind := ingestSendDocumentPartial
	if lderr != nil || bool(lastDocument) {
		kind = ingestSendDocumentFinal
	}
	return d.ingest(ctx, job, req, body, kind)
}

func (d *Dispatcher) handlePrintJob(ctx context.Context, req *goipp.Message, body []byte) (*goipp.Message, error) {
	job, err := d.newJobFromRequest(req)
	if err != nil {
		return nil, err
	}
	d.spool.Register(job)
	return d.ingest(ctx, job, req, body, ingestPrintJob)
}

// ingest runs a received job through the before-hook, the accept-flag and
// document-format policy gates, the extraction and decompression
// pipeline, the process-hook, and persistence, per §4.2's dispatch table
// and §4.7's hook placement around it.
func (d *Dispatcher) ingest(ctx context.Context, job *jobsvc.Job, req *goipp.Message, body []byte, kind ingestKind) (*goipp.Message, error) {
	if d.registry != nil {
		before := d.registry.RunBefore(ctx, job)
		if before.Reject {
			return d.rejectedResponse(ctx, job, req, before), nil
		}
	}

	if !d.composer.IsAcceptingJobs(ctx) {
		return ipp.NewResponse(ipp.StatusServerErrorServiceUnavailable, req.RequestID), nil
	}

	declaredFormat, _ := ipp.ExtractValue[goipp.String](req.Operation, "document-format")
	if !d.composer.IsFormatSupported(ctx, declaredFormat.String()) {
		return ipp.NewResponse(ipp.StatusClientErrorDocFormatNotSupported, req.RequestID), nil
	}

	job.MarkProcessing(ctx)

	extracted := docpipe.ExtractDocument(nil, body)
	result := docpipe.Decompress(extracted)
	data := result.Bytes

	if d.registry != nil {
		if procRes, ok := d.registry.RunProcess(ctx, job, data); ok {
			if procRes.ProcessedBytes != nil {
				data = procRes.ProcessedBytes
			}
		}
	}

	docType := docpipe.Detect(data)
	if docType == docpipe.TypeUnknown && docpipe.IsPDFLikeFormat(declaredFormat.String()) {
		data = docpipe.WrapAsPDF(data)
		docType = docpipe.TypePDF
	}

	if err := d.spool.Persist(job, data, docType, declaredFormat.String()); err != nil {
		job.Abort(ctx, jobsvc.ReasonAbortedBySystem)
		if d.registry != nil {
			d.registry.RunAfter(ctx, job, false)
		}
		return nil, fmt.Errorf("failed to persist job %d: %w", job.ID, err)
	}

	resp := ipp.NewResponse(ipp.StatusSuccessfulOK, req.RequestID)
	switch kind {
	case ingestSendDocumentFinal:
		job.Complete(ctx)
		resp.Job = job.Attributes()
	case ingestSendDocumentPartial:
		resp.Job = job.TransientAttributes(jobsvc.JobIncoming, jobsvc.ReasonJobIncoming)
	default:
		resp.Job = job.Attributes()
	}

	if d.registry != nil {
		d.registry.RunAfter(ctx, job, true)
	}
	return resp, nil
}

// rejectedResponse builds the response for a before-hook rejection. A
// rejection carrying an error category (the error-injector plugin) is
// converted into the "aborted" shape per §7; any other plugin's bare
// rejection keeps the generic not-possible response.
func (d *Dispatcher) rejectedResponse(ctx context.Context, job *jobsvc.Job, req *goipp.Message, before plugin.BeforeResult) *goipp.Message {
	lg := slog.With("job_id", job.ID, "category", before.Category)
	lg.Warn("job rejected by plugin", "message", before.Message)

	if before.Category != "" {
		job.Cancel(ctx, jobsvc.ReasonJobCanceledBySystem)
		resp := ipp.NewResponse(ipp.StatusSuccessfulOK, req.RequestID)
		resp.Job = job.Attributes()
		return resp
	}

	job.Abort(ctx, jobsvc.ReasonDocumentFormatError)
	return ipp.NewResponse(ipp.StatusClientErrorNotPossible, req.RequestID)
}

func (d *Dispatcher) newJobFromRequest(req *goipp.Message) (*jobsvc.Job, error) {
	printerURI, err := ipp.ExtractValue[goipp.String](req.Operation, "printer-uri")
	if err != nil {
		return nil, fmt.Errorf("printer-uri required: %w", err)
	}
	if err := d.validatePrinterURI(printerURI.String()); err != nil {
		return nil, err
	}
	user, _ := ipp.ExtractValue[goipp.String](req.Operation, "requesting-user-name")
	name, _ := ipp.ExtractValue[goipp.String](req.Operation, "job-name")
	if name == "" {
		name = goipp.String(fmt.Sprintf("job-%s", uuid.NewString()[:8]))
	}
	docFormat, _ := ipp.ExtractValue[goipp.String](req.Operation, "document-format")

	id := jobsvc.NextJobID()
	jobURIBase := strings.TrimRight(d.BaseURL, "/") + "/jobs"
	job := jobsvc.New(id, name.String(), docFormat.String(), d.PrinterURI, jobURIBase, user.String())
	return job, nil
}

func (d *Dispatcher) validatePrinterURI(raw string) error {
	if raw == "" {
		return fmt.Errorf("printer-uri is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid printer-uri %q: %w", raw, err)
	}
	if u.Scheme != "ipp" && u.Scheme != "ipps" {
		return fmt.Errorf("printer-uri %q has unsupported scheme %q", raw, u.Scheme)
	}
	return nil
}
