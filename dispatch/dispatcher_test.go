package dispatch

import (
	"context"
	"testing"

	"github.com/OpenPrinting/goipp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rrohitkmr/vprinter/capability"
	"github.com/rrohitkmr/vprinter/events"
	"github.com/rrohitkmr/vprinter/ipp"
	"github.com/rrohitkmr/vprinter/jobsvc"
	"github.com/rrohitkmr/vprinter/plugin"
	"github.com/rrohitkmr/vprinter/spool"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	d, _, _ := newTestRig(t, plugin.NewRegistry())
	return d
}

func newTestDispatcherWithRegistry(t *testing.T, registry *plugin.Registry) *Dispatcher {
	d, _, _ := newTestRig(t, registry)
	return d
}

// newTestRig builds a dispatcher over an in-memory filesystem, also
// returning the spool directory and fs so tests can assert on the
// artifacts a Print-Job/Send-Document actually writes.
func newTestRig(t *testing.T, registry *plugin.Registry) (*Dispatcher, afero.Fs, string) {
	const spoolDir = "spool"
	fs := afero.NewMemMapFs()
	sp, err := spool.New(fs, spoolDir, events.NewBus())
	require.NoError(t, err)
	t.Cleanup(func() { sp.Close() })

	printerURI := "ipp://localhost/printers/default"
	composer := capability.New(capability.Identity{Name: "Test Printer"}, printerURI, sp.Count, registry)
	d := New("http://localhost/printers/default", printerURI, sp, composer, registry)
	return d, fs, spoolDir
}

func spoolFileCount(t *testing.T, fs afero.Fs, dir string) int {
	entries, err := afero.ReadDir(fs, dir)
	require.NoError(t, err)
	return len(entries)
}

func newRequest(op goipp.Op, requestID int32) *goipp.Message {
	m := goipp.NewRequest(goipp.DefaultVersion, op, requestID)
	m.Operation = ipp.Adder(m.Operation)("attributes-charset", goipp.TagCharset, ipp.CharsetUTF8)
	m.Operation = ipp.Adder(m.Operation)("attributes-natural-language", goipp.TagLanguage, ipp.LanguageEnUS)
	m.Operation = ipp.Adder(m.Operation)("printer-uri", goipp.TagURI, goipp.String("ipp://localhost/printers/default"))
	return m
}

func TestDispatchGetPrinterAttributes(t *testing.T) {
	d := newTestDispatcher(t)
	req := newRequest(goipp.OpGetPrinterAttributes, 1)

	resp := d.Dispatch(context.Background(), req, nil)

	assert.Equal(t, goipp.Code(ipp.StatusSuccessfulOK), resp.Code)
	found := false
	for _, a := range resp.Printer {
		if a.Name == "printer-name" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDispatchPrintJobThenGetJobAttributes(t *testing.T) {
	d := newTestDispatcher(t)
	req := newRequest(goipp.OpPrintJob, 2)
	req.Operation = ipp.Adder(req.Operation)("document-format", goipp.TagMimeType, ipp.MimePDF)

	resp := d.Dispatch(context.Background(), req, []byte("%PDF-1.4\nhello world"))
	require.Equal(t, goipp.Code(ipp.StatusSuccessfulOK), resp.Code)

	idVal, err := ipp.ExtractValue[goipp.Integer](resp.Job, "job-id")
	require.NoError(t, err)

	getReq := newRequest(goipp.OpGetJobAttributes, 3)
	getReq.Operation = ipp.Adder(getReq.Operation)("job-id", goipp.TagInteger, goipp.Integer(idVal))

	getResp := d.Dispatch(context.Background(), getReq, nil)
	assert.Equal(t, goipp.Code(ipp.StatusSuccessfulOK), getResp.Code)
}

func TestDispatchUnsupportedOperation(t *testing.T) {
	d := newTestDispatcher(t)
	req := newRequest(goipp.Op(0x9999), 4)

	resp := d.Dispatch(context.Background(), req, nil)
	assert.Equal(t, goipp.Code(ipp.StatusSuccessfulOK), resp.Code)
}

func TestDispatchPrintJobMissingPrinterURI(t *testing.T) {
	d := newTestDispatcher(t)
	req := goipp.NewRequest(goipp.DefaultVersion, goipp.OpPrintJob, 5)

	resp := d.Dispatch(context.Background(), req, []byte("data"))
	assert.Equal(t, goipp.Code(ipp.StatusServerErrorInternalError), resp.Code)
}

func TestDispatchPrintJobLeavesJobProcessing(t *testing.T) {
	d, fs, dir := newTestRig(t, plugin.NewRegistry())
	req := newRequest(goipp.OpPrintJob, 10)
	req.Operation = ipp.Adder(req.Operation)("document-format", goipp.TagMimeType, ipp.MimePDF)

	resp := d.Dispatch(context.Background(), req, []byte("%PDF-1.4\nhello world"))
	require.Equal(t, goipp.Code(ipp.StatusSuccessfulOK), resp.Code)

	state, err := ipp.ExtractValue[goipp.Integer](resp.Job, "job-state")
	require.NoError(t, err)
	assert.EqualValues(t, jobsvc.JobProcessing, state)

	reason, err := ipp.ExtractValue[goipp.String](resp.Job, "job-state-reasons")
	require.NoError(t, err)
	assert.Equal(t, string(jobsvc.ReasonProcessingToStopPoint), reason.String())

	assert.Equal(t, 1, spoolFileCount(t, fs, dir))
}

func TestDispatchSendDocumentLastDocumentCompletesJob(t *testing.T) {
	d := newTestDispatcher(t)
	printReq := newRequest(goipp.OpPrintJob, 11)
	printReq.Operation = ipp.Adder(printReq.Operation)("document-format", goipp.TagMimeType, ipp.MimePDF)
	printResp := d.Dispatch(context.Background(), printReq, []byte("%PDF-1.4\nfirst chunk"))
	require.Equal(t, goipp.Code(ipp.StatusSuccessfulOK), printResp.Code)

	id, err := ipp.ExtractValue[goipp.Integer](printResp.Job, "job-id")
	require.NoError(t, err)

	sendReq := newRequest(goipp.OpSendDocument, 12)
	sendReq.Operation = ipp.Adder(sendReq.Operation)("job-id", goipp.TagInteger, id)
	sendReq.Operation = ipp.Adder(sendReq.Operation)("last-document", goipp.TagBoolean, goipp.Boolean(true))

	resp := d.Dispatch(context.Background(), sendReq, []byte("%PDF-1.4\nfinal chunk"))
	require.Equal(t, goipp.Code(ipp.StatusSuccessfulOK), resp.Code)

	state, err := ipp.ExtractValue[goipp.Integer](resp.Job, "job-state")
	require.NoError(t, err)
	assert.EqualValues(t, jobsvc.JobCompleted, state)

	reason, err := ipp.ExtractValue[goipp.String](resp.Job, "job-state-reasons")
	require.NoError(t, err)
	assert.Equal(t, string(jobsvc.ReasonJobCompletedSuccessfully), reason.String())
}

func TestDispatchSendDocumentNotLastLeavesJobIncoming(t *testing.T) {
	d := newTestDispatcher(t)
	printReq := newRequest(goipp.OpPrintJob, 13)
	printReq.Operation = ipp.Adder(printReq.Operation)("document-format", goipp.TagMimeType, ipp.MimePDF)
	printResp := d.Dispatch(context.Background(), printReq, []byte("%PDF-1.4\nfirst chunk"))
	require.Equal(t, goipp.Code(ipp.StatusSuccessfulOK), printResp.Code)

	id, err := ipp.ExtractValue[goipp.Integer](printResp.Job, "job-id")
	require.NoError(t, err)

	sendReq := newRequest(goipp.OpSendDocument, 14)
	sendReq.Operation = ipp.Adder(sendReq.Operation)("job-id", goipp.TagInteger, id)
	sendReq.Operation = ipp.Adder(sendReq.Operation)("last-document", goipp.TagBoolean, goipp.Boolean(false))

	resp := d.Dispatch(context.Background(), sendReq, []byte("%PDF-1.4\nmiddle chunk"))
	require.Equal(t, goipp.Code(ipp.StatusSuccessfulOK), resp.Code)

	state, err := ipp.ExtractValue[goipp.Integer](resp.Job, "job-state")
	require.NoError(t, err)
	assert.EqualValues(t, jobsvc.JobIncoming, state)

	reason, err := ipp.ExtractValue[goipp.String](resp.Job, "job-state-reasons")
	require.NoError(t, err)
	assert.Equal(t, string(jobsvc.ReasonJobIncoming), reason.String())

	getReq := newRequest(goipp.OpGetJobAttributes, 15)
	getReq.Operation = ipp.Adder(getReq.Operation)("job-id", goipp.TagInteger, id)
	getResp := d.Dispatch(context.Background(), getReq, nil)
	realState, err := ipp.ExtractValue[goipp.Integer](getResp.Job, "job-state")
	require.NoError(t, err)
	assert.EqualValues(t, jobsvc.JobProcessing, realState, "job must still be processing internally, not completed")
}

func TestDispatchPrintJobRejectsUnsupportedFormat(t *testing.T) {
	registry := plugin.NewRegistry()
	override := plugin.NewAttributeOverride(map[string]string{
		"document-format-supported": "application/pdf",
	})
	registry.Register(override)
	require.NoError(t, registry.Load(context.Background(), override.Metadata().ID))
	d, fs, dir := newTestRig(t, registry)

	req := newRequest(goipp.OpPrintJob, 16)
	req.Operation = ipp.Adder(req.Operation)("document-format", goipp.TagMimeType, goipp.String("text/plain"))

	resp := d.Dispatch(context.Background(), req, []byte("plain text"))
	assert.Equal(t, goipp.Code(ipp.StatusClientErrorDocFormatNotSupported), resp.Code)
	assert.Equal(t, 0, spoolFileCount(t, fs, dir))
}

func TestDispatchGetPrinterAttributesAppliesOverrides(t *testing.T) {
	registry := plugin.NewRegistry()
	override := plugin.NewAttributeOverride(map[string]string{
		"printer-name":     "Lab-A",
		"duplex-supported": "true",
	})
	registry.Register(override)
	require.NoError(t, registry.Load(context.Background(), override.Metadata().ID))
	d := newTestDispatcherWithRegistry(t, registry)

	resp := d.Dispatch(context.Background(), newRequest(goipp.OpGetPrinterAttributes, 17), nil)
	require.Equal(t, goipp.Code(ipp.StatusSuccessfulOK), resp.Code)

	name, err := ipp.ExtractValue[goipp.String](resp.Printer, "printer-name")
	require.NoError(t, err)
	assert.Equal(t, "Lab-A", name.String())

	sidesDefault, err := ipp.ExtractValue[goipp.String](resp.Printer, "sides-default")
	require.NoError(t, err)
	assert.Equal(t, "one-sided", sidesDefault.String())

	var sides []string
	values, ok := ipp.FindAttr(resp.Printer, "sides-supported")
	require.True(t, ok)
	for _, v := range values {
		sides = append(sides, v.V.String())
	}
	assert.ElementsMatch(t, []string{"one-sided", "two-sided-long-edge", "two-sided-short-edge"}, sides)
}

func TestDispatchCancelJobUnknownID(t *testing.T) {
	d := newTestDispatcher(t)
	req := newRequest(goipp.OpCancelJob, 18)
	req.Operation = ipp.Adder(req.Operation)("job-id", goipp.TagInteger, goipp.Integer(999999))

	resp := d.Dispatch(context.Background(), req, nil)
	assert.Equal(t, goipp.Code(ipp.StatusClientErrorNotFound), resp.Code)
}

func TestDispatchPrintJobRejectedWhenNotAccepting(t *testing.T) {
	registry := plugin.NewRegistry()
	override := plugin.NewAttributeOverride(map[string]string{
		"printer-is-accepting-jobs": "false",
	})
	registry.Register(override)
	require.NoError(t, registry.Load(context.Background(), override.Metadata().ID))
	d, fs, dir := newTestRig(t, registry)

	req := newRequest(goipp.OpPrintJob, 19)
	req.Operation = ipp.Adder(req.Operation)("document-format", goipp.TagMimeType, ipp.MimePDF)

	resp := d.Dispatch(context.Background(), req, []byte("%PDF-1.4\nhello"))
	assert.Equal(t, goipp.Code(ipp.StatusServerErrorServiceUnavailable), resp.Code)
	assert.Equal(t, 0, spoolFileCount(t, fs, dir))
}

func TestDispatchErrorInjectorRejectionIsAbortedShape(t *testing.T) {
	registry := plugin.NewRegistry()
	injector := plugin.NewErrorInjector(plugin.ErrNetwork, 1.0)
	registry.Register(injector)
	require.NoError(t, registry.Load(context.Background(), injector.Metadata().ID))
	d := newTestDispatcherWithRegistry(t, registry)

	req := newRequest(goipp.OpPrintJob, 20)
	req.Operation = ipp.Adder(req.Operation)("document-format", goipp.TagMimeType, ipp.MimePDF)

	resp := d.Dispatch(context.Background(), req, []byte("%PDF-1.4\nhello"))
	require.Equal(t, goipp.Code(ipp.StatusSuccessfulOK), resp.Code)

	state, err := ipp.ExtractValue[goipp.Integer](resp.Job, "job-state")
	require.NoError(t, err)
	assert.EqualValues(t, jobsvc.JobCanceled, state)

	reason, err := ipp.ExtractValue[goipp.String](resp.Job, "job-state-reasons")
	require.NoError(t, err)
	assert.Equal(t, string(jobsvc.ReasonJobCanceledBySystem), reason.String())
}

func TestDispatchErrorSimulationForcesCannedResponse(t *testing.T) {
	d := newTestDispatcher(t)
	d.SetErrorSimulation(true, ErrSimDocFormatNotSupported)

	resp := d.Dispatch(context.Background(), newRequest(goipp.OpGetPrinterAttributes, 21), nil)
	assert.Equal(t, goipp.Code(ipp.StatusClientErrorDocFormatNotSupported), resp.Code)
}
