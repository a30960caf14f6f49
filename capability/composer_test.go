package capability

import (
	"context"
	"testing"

	"github.com/OpenPrinting/goipp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rrohitkmr/vprinter/plugin"
)

func TestDefaultsOnlyWhenNoOverrides(t *testing.T) {
	c := New(Identity{}, "ipp://localhost/printers/default", func() int { return 0 }, nil)
	attrs := c.Attributes(context.Background())

	vv, ok := find(attrs, "printer-name")
	require.True(t, ok)
	assert.Equal(t, "Virtual Printer", vv[0].V.String())
}

func TestIdentityOverridesDefaults(t *testing.T) {
	c := New(Identity{Name: "Reception Printer"}, "ipp://localhost/printers/default", func() int { return 0 }, nil)
	attrs := c.Attributes(context.Background())

	vv, ok := find(attrs, "printer-name")
	require.True(t, ok)
	assert.Equal(t, "Reception Printer", vv[0].V.String())
}

func TestPluginOverridesIdentity(t *testing.T) {
	registry := plugin.NewRegistry()
	override := plugin.NewAttributeOverride(map[string]string{"printer-name": "Plugin Printer"})
	registry.Register(override)
	require.NoError(t, registry.Load(context.Background(), override.Metadata().ID))

	c := New(Identity{Name: "Reception Printer"}, "ipp://localhost/printers/default", func() int { return 0 }, registry)
	attrs := c.Attributes(context.Background())

	vv, ok := find(attrs, "printer-name")
	require.True(t, ok)
	assert.Equal(t, "Plugin Printer", vv[0].V.String())
}

func TestQueuedJobCountReflectsCallback(t *testing.T) {
	c := New(Identity{}, "ipp://localhost/printers/default", func() int { return 3 }, nil)
	attrs := c.Attributes(context.Background())

	vv, ok := find(attrs, "queued-job-count")
	require.True(t, ok)
	assert.EqualValues(t, 3, vv[0].V.(goipp.Integer))
}

func TestIsAcceptingJobsDefaultsTrue(t *testing.T) {
	c := New(Identity{}, "ipp://localhost/printers/default", func() int { return 0 }, nil)
	assert.True(t, c.IsAcceptingJobs(context.Background()))
}

func TestIsAcceptingJobsHonorsPluginOverride(t *testing.T) {
	registry := plugin.NewRegistry()
	override := plugin.NewAttributeOverride(map[string]string{"printer-is-accepting-jobs": "false"})
	registry.Register(override)
	require.NoError(t, registry.Load(context.Background(), override.Metadata().ID))

	c := New(Identity{}, "ipp://localhost/printers/default", func() int { return 0 }, registry)
	assert.False(t, c.IsAcceptingJobs(context.Background()))
}

func TestIsFormatSupportedChecksEffectiveList(t *testing.T) {
	registry := plugin.NewRegistry()
	override := plugin.NewAttributeOverride(map[string]string{"document-format-supported": "application/pdf"})
	registry.Register(override)
	require.NoError(t, registry.Load(context.Background(), override.Metadata().ID))

	c := New(Identity{}, "ipp://localhost/printers/default", func() int { return 0 }, registry)
	assert.True(t, c.IsFormatSupported(context.Background(), "application/pdf"))
	assert.False(t, c.IsFormatSupported(context.Background(), "text/plain"))
	assert.True(t, c.IsFormatSupported(context.Background(), ""))
}

func find(attrs goipp.Attributes, name string) (goipp.Values, bool) {
	for _, a := range attrs {
		if a.Name == name {
			return a.Values, true
		}
	}
	return nil, false
}
