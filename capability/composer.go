// Package capability implements the three-layer printer-attribute composer
// from §4.3: a fixed set of operational defaults, overridden by
// administrator-configured values, overridden again by whatever the plugin
// chain contributes through customizeIppAttributes. The layering mechanics
// reuse ipp.ReplaceOrAppend, the same helper the plugin package's
// attribute-customization fold uses, matching this codebase's habit of
// building goipp.Attributes through small composable helpers instead of a
// bespoke attribute-tree type.
package capability

import (
	"context"
	"sync"
	"time"

	"github.com/OpenPrinting/goipp"

	"github.com/rrohitkmr/vprinter/ipp"
	"github.com/rrohitkmr/vprinter/plugin"
)

// Identity is the set of administrator-configurable printer identity
// fields, per §6's set-printer-name operation and §4.3's user-override
// layer.
type Identity struct {
	Name     string
	Location string
	Info     string
	MakeAndModel string
	UUID     string
}

// Composer produces the effective printer-attributes group for
// Get-Printer-Attributes responses by layering defaults, identity
// overrides, imported attribute documents, and the plugin chain's
// customizations, in that order.
type Composer struct {
	mu         sync.RWMutex
	identity   Identity
	printerURI string
	imported   goipp.Attributes
	queuedJobs func() int
	registry   *plugin.Registry
	startedAt  time.Time
}

func New(identity Identity, printerURI string, queuedJobs func() int, registry *plugin.Registry) *Composer {
	return &Composer{
		identity:   identity,
		printerURI: printerURI,
		queuedJobs: queuedJobs,
		registry:   registry,
		startedAt:  time.Now(),
	}
}

// SetIdentity updates the administrator-configured identity overrides
// (§6's set-printer-name and related operations).
func (c *Composer) SetIdentity(id Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity = id
}

func (c *Composer) Identity() Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity
}

// SetImportedAttributes installs the attribute set produced by
// ParseImportDocument as the import-attributes layer (§6's
// import-attributes operation), replacing whatever was imported before.
func (c *Composer) SetImportedAttributes(attrs goipp.Attributes) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.imported = attrs
}

// defaults returns the fixed baseline attribute set enumerated in §4.3.
func (c *Composer) defaults() goipp.Attributes {
	var attrs goipp.Attributes
	add := func(name string, tag goipp.Tag, values ...goipp.Value) {
		attrs = ipp.Adder(attrs)(name, tag, values...)
	}

	add("printer-name", goipp.TagName, goipp.String("Virtual Printer"))
	add("printer-state", goipp.TagEnum, goipp.Integer(3)) // idle
	add("printer-state-reasons", goipp.TagKeyword, goipp.String("none"))
	add("printer-is-accepting-jobs", goipp.TagBoolean, goipp.Boolean(true))
	add("printer-up-time", goipp.TagInteger, goipp.Integer(time.Since(c.startedAt).Seconds()))
	add("queued-job-count", goipp.TagInteger, goipp.Integer(0))
	add("pdl-override-supported", goipp.TagKeyword, goipp.String("not-attempted"))
	add("printer-uuid", goipp.TagURI, goipp.String(""))
	add("printer-uri", goipp.TagURI, goipp.String(c.printerURI))
	add("printer-uri-supported", goipp.TagURI, goipp.String(c.printerURI))
	add("uri-security-supported", goipp.TagKeyword, goipp.String("none"))
	add("uri-authentication-supported", goipp.TagKeyword, goipp.String("none"))
	add("document-format", goipp.TagMimeType, ipp.MimePDF)
	add("document-format-default", goipp.TagMimeType, ipp.MimePDF)
	add("document-format-supported", goipp.TagMimeType,
		ipp.MimePDF, ipp.MimeOctetStream, ipp.MimeJPEG, ipp.MimePNG, ipp.MimeText, ipp.MimeCUPSRaw, ipp.MimeCUPSPDF)
	add("printer-resolution-supported", goipp.TagResolution, goipp.Resolution{Xres: 300, Yres: 300, Units: goipp.UnitsDpi})
	add("compression-supported", goipp.TagKeyword, goipp.String("none"), goipp.String("gzip"), goipp.String("deflate"))
	add("ipp-versions-supported", goipp.TagKeyword, goipp.String("1.1"), goipp.String("2.0"))
	add("operations-supported", goipp.TagEnum,
		goipp.Integer(goipp.OpPrintJob), goipp.Integer(goipp.OpValidateJob), goipp.Integer(goipp.OpCreateJob),
		goipp.Integer(goipp.OpSendDocument), goipp.Integer(goipp.OpCancelJob), goipp.Integer(goipp.OpGetJobAttributes),
		goipp.Integer(goipp.OpGetPrinterAttributes))
	add("charset-configured", goipp.TagCharset, ipp.CharsetUTF8)
	add("charset-supported", goipp.TagCharset, ipp.CharsetUTF8)
	add("natural-language-configured", goipp.TagLanguage, ipp.LanguageEnUS)
	add("generated-natural-language-supported", goipp.TagLanguage, ipp.LanguageEnUS)
	add("printer-location", goipp.TagText, goipp.String(""))
	add("printer-info", goipp.TagText, goipp.String("Virtual IPP printer"))
	add("printer-make-and-model", goipp.TagText, goipp.String("vprinter Virtual Printer"))
	add("color-supported", goipp.TagBoolean, goipp.Boolean(true))
	add("media-default", goipp.TagKeyword, goipp.String("iso_a4_210x297mm"))
	add("media-supported", goipp.TagKeyword,
		goipp.String("iso_a4_210x297mm"), goipp.String("na_letter_8.5x11in"),
		goipp.String("iso_a5_148x210mm"), goipp.String("na_legal_8.5x14in"))
	add("sides-default", goipp.TagKeyword, goipp.String("one-sided"))
	add("sides-supported", goipp.TagKeyword, goipp.String("one-sided"), goipp.String("two-sided-long-edge"))
	add("multiple-document-jobs-supported", goipp.TagBoolean, goipp.Boolean(false))

	return attrs
}

// identityOverrides renders the current identity layer as an attribute
// override set.
func (c *Composer) identityOverrides() goipp.Attributes {
	id := c.Identity()
	var attrs goipp.Attributes
	add := func(name string, tag goipp.Tag, values ...goipp.Value) {
		attrs = ipp.Adder(attrs)(name, tag, values...)
	}
	if id.Name != "" {
		add("printer-name", goipp.TagName, goipp.String(id.Name))
	}
	if id.Location != "" {
		add("printer-location", goipp.TagText, goipp.String(id.Location))
	}
	if id.Info != "" {
		add("printer-info", goipp.TagText, goipp.String(id.Info))
	}
	if id.MakeAndModel != "" {
		add("printer-make-and-model", goipp.TagText, goipp.String(id.MakeAndModel))
	}
	if id.UUID != "" {
		add("printer-uuid", goipp.TagURI, goipp.String("urn:uuid:"+id.UUID))
	}
	return attrs
}

// dynamicOverrides layers values only known at request time, such as the
// live queued-job count.
func (c *Composer) dynamicOverrides() goipp.Attributes {
	var attrs goipp.Attributes
	if c.queuedJobs != nil {
		attrs = ipp.Adder(attrs)("queued-job-count", goipp.TagInteger, goipp.Integer(c.queuedJobs()))
	}
	attrs = ipp.Adder(attrs)("printer-up-time", goipp.TagInteger, goipp.Integer(time.Since(c.startedAt).Seconds()))
	return attrs
}

// IsAcceptingJobs reports the effective printer-is-accepting-jobs value
// after all override layers, per §4.3's policy invariant: ingest
// operations must consult this before touching document data.
func (c *Composer) IsAcceptingJobs(ctx context.Context) bool {
	attrs := c.Attributes(ctx)
	for _, a := range attrs {
		if a.Name != "printer-is-accepting-jobs" || len(a.Values) == 0 {
			continue
		}
		b, ok := a.Values[0].V.(goipp.Boolean)
		return !ok || bool(b)
	}
	return true
}

// IsFormatSupported reports whether format appears in the effective
// document-format-supported list. An empty format is always accepted,
// since the declaring client omitted document-format entirely.
func (c *Composer) IsFormatSupported(ctx context.Context, format string) bool {
	if format == "" {
		return true
	}
	attrs := c.Attributes(ctx)
	for _, a := range attrs {
		if a.Name != "document-format-supported" {
			continue
		}
		for _, v := range a.Values {
			if v.V.String() == format {
				return true
			}
		}
		return false
	}
	return true
}

// Attributes composes the layers in precedence order: defaults, identity
// overrides, imported attribute documents, dynamic values, and finally
// the plugin chain's customizations, per §4.3.
func (c *Composer) Attributes(ctx context.Context) goipp.Attributes {
	c.mu.RLock()
	imported := c.imported
	c.mu.RUnlock()

	attrs := c.defaults()
	attrs = ipp.ReplaceOrAppend(attrs, c.identityOverrides())
	attrs = ipp.ReplaceOrAppend(attrs, imported)
	attrs = ipp.ReplaceOrAppend(attrs, c.dynamicOverrides())
	if c.registry != nil {
		attrs = c.registry.RunCustomizeAttributes(ctx, attrs)
	}
	return attrs
}
