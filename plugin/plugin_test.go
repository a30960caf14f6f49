package plugin

import (
	"context"
	"testing"
	"time"

	"github.com/OpenPrinting/goipp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rrohitkmr/vprinter/jobsvc"
)

func newTestJob() *jobsvc.Job {
	return jobsvc.New(jobsvc.NextJobID(), "test-job", "application/pdf", "ipp://localhost/printers/default", "http://localhost/jobs", "alice")
}

func TestRegistryOrdersByLoadOrder(t *testing.T) {
	r := NewRegistry()
	order := NewDelaySimulator(0)
	r.Register(order)
	require.NoError(t, r.Load(context.Background(), order.Metadata().ID))

	le := NewLoggingEnhancer()
	r.Register(le)
	require.NoError(t, r.Load(context.Background(), le.Metadata().ID))

	plugins := r.ordered()
	require.Len(t, plugins, 2)
	assert.Equal(t, "delay-simulator", plugins[0].Metadata().ID)
	assert.Equal(t, "logging-enhancer", plugins[1].Metadata().ID)
}

func TestErrorInjectorRejects(t *testing.T) {
	r := NewRegistry()
	injector := NewErrorInjector(ErrNetwork, 1.0)
	r.Register(injector)
	require.NoError(t, r.Load(context.Background(), injector.Metadata().ID))

	res := r.RunBefore(context.Background(), newTestJob())
	assert.True(t, res.Reject)
	assert.Equal(t, ErrNetwork, res.Category)
}

func TestDelaySimulatorZeroDelayDoesNotReject(t *testing.T) {
	r := NewRegistry()
	d := NewDelaySimulator(0)
	r.Register(d)
	require.NoError(t, r.Load(context.Background(), d.Metadata().ID))

	res := r.RunBefore(context.Background(), newTestJob())
	assert.True(t, res.Continue)
	assert.False(t, res.Reject)
}

func TestDocumentWatermarkAppendsText(t *testing.T) {
	r := NewRegistry()
	w := NewDocumentWatermark("CONFIDENTIAL")
	r.Register(w)
	require.NoError(t, r.Load(context.Background(), w.Metadata().ID))

	res, ok := r.RunProcess(context.Background(), newTestJob(), []byte("hello"))
	require.True(t, ok)
	assert.Contains(t, string(res.ProcessedBytes), "CONFIDENTIAL")
}

func TestAttributeOverrideCustomizesAttributes(t *testing.T) {
	r := NewRegistry()
	o := NewAttributeOverride(map[string]string{"printer-info": "overridden"})
	r.Register(o)
	require.NoError(t, r.Load(context.Background(), o.Metadata().ID))

	var attrs goipp.Attributes
	out := r.RunCustomizeAttributes(context.Background(), attrs)
	require.Len(t, out, 1)
	assert.Equal(t, "printer-info", out[0].Name)
}

func TestAttributeOverrideDerivesDuplexSides(t *testing.T) {
	o := NewAttributeOverride(map[string]string{"duplex-supported": "true"})
	out, changed := o.CustomizeIppAttributes(context.Background(), nil)
	require.True(t, changed)

	sidesDefault, ok := findAttr(out, "sides-default")
	require.True(t, ok)
	assert.Equal(t, "one-sided", sidesDefault[0].V.String())

	sidesSupported, ok := findAttr(out, "sides-supported")
	require.True(t, ok)
	var sides []string
	for _, v := range sidesSupported {
		sides = append(sides, v.V.String())
	}
	assert.ElementsMatch(t, []string{"one-sided", "two-sided-long-edge", "two-sided-short-edge"}, sides)
}

func TestAttributeOverrideDerivesPrintQuality(t *testing.T) {
	o := NewAttributeOverride(map[string]string{"quality-supported": "draft,high"})
	out, _ := o.CustomizeIppAttributes(context.Background(), nil)

	values, ok := findAttr(out, "print-quality-supported")
	require.True(t, ok)
	var levels []int
	for _, v := range values {
		levels = append(levels, int(v.V.(goipp.Integer)))
	}
	assert.ElementsMatch(t, []int{3, 5}, levels)
}

func TestAttributeOverrideDerivesCopiesRange(t *testing.T) {
	o := NewAttributeOverride(map[string]string{"copies-supported": "1-99"})
	out, _ := o.CustomizeIppAttributes(context.Background(), nil)

	values, ok := findAttr(out, "copies-supported")
	require.True(t, ok)
	require.Len(t, values, 1)
	r, ok := values[0].V.(goipp.Range)
	require.True(t, ok)
	assert.Equal(t, 1, r.Lower)
	assert.Equal(t, 99, r.Upper)
}

func TestAttributeOverrideDerivesAcceptingJobsBoolean(t *testing.T) {
	o := NewAttributeOverride(map[string]string{"printer-is-accepting-jobs": "false"})
	out, _ := o.CustomizeIppAttributes(context.Background(), nil)

	values, ok := findAttr(out, "printer-is-accepting-jobs")
	require.True(t, ok)
	require.Len(t, values, 1)
	b, ok := values[0].V.(goipp.Boolean)
	require.True(t, ok)
	assert.False(t, bool(b))
}

func findAttr(attrs goipp.Attributes, name string) (goipp.Values, bool) {
	for _, a := range attrs {
		if a.Name == name {
			return a.Values, true
		}
	}
	return nil, false
}

func TestErrorInjectorSequentialModeRotates(t *testing.T) {
	r := NewRegistry()
	injector := NewErrorInjector(ErrNetwork, 1.0)
	require.NoError(t, injector.UpdateConfiguration(map[string]any{
		"error_probability": 1.0,
		"mode":              string(ErrorInjectorModeSequential),
	}))
	r.Register(injector)
	require.NoError(t, r.Load(context.Background(), injector.Metadata().ID))

	first := r.RunBefore(context.Background(), newTestJob())
	second := r.RunBefore(context.Background(), newTestJob())
	require.True(t, first.Reject)
	require.True(t, second.Reject)
	assert.Equal(t, errorCategoryOrder[0], first.Category)
	assert.Equal(t, errorCategoryOrder[1], second.Category)
	assert.NotEmpty(t, first.Message)
}

func TestErrorInjectorZeroProbabilityNeverRejects(t *testing.T) {
	r := NewRegistry()
	injector := NewErrorInjector(ErrNetwork, 0)
	r.Register(injector)
	require.NoError(t, r.Load(context.Background(), injector.Metadata().ID))

	res := r.RunBefore(context.Background(), newTestJob())
	assert.True(t, res.Continue)
	assert.False(t, res.Reject)
}

func TestDelaySimulatorRandomDelayWithinBounds(t *testing.T) {
	d := NewDelaySimulator(0)
	require.NoError(t, d.UpdateConfiguration(map[string]any{
		"delay_ms":     float64(100),
		"random_delay": true,
	}))

	start := time.Now()
	res := d.BeforeJobProcessing(context.Background(), newTestJob())
	elapsed := time.Since(start)

	assert.True(t, res.Continue)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, 150*time.Millisecond)
}

func TestLoadRejectsUnregisteredPlugin(t *testing.T) {
	r := NewRegistry()
	p := NewLoggingEnhancer()
	r.Register(p)

	// Loading an id that was never registered fails, even when other
	// plugins are registered.
	err := r.Load(context.Background(), "does-not-exist")
	assert.Error(t, err)
}

func TestBeforeHookExceptionIsolated(t *testing.T) {
	r := NewRegistry()
	panicky := &panickyPlugin{}
	r.Register(panicky)
	require.NoError(t, r.Load(context.Background(), panicky.Metadata().ID))

	res := r.RunBefore(context.Background(), newTestJob())
	assert.True(t, res.Continue)
}

// panickyPlugin panics inside its hook to exercise the registry's
// exception-isolation recovery.
type panickyPlugin struct {
	baseNoop
	baseSchema
}

func (panickyPlugin) Metadata() Metadata {
	return Metadata{ID: "panicky-plugin", Name: "Panicky", Version: "1.0.0", Enabled: true, LoadOrder: 1}
}

func (panickyPlugin) BeforeJobProcessing(context.Context, *jobsvc.Job) BeforeResult {
	panic("boom")
}
