package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/OpenPrinting/goipp"

	"github.com/rrohitkmr/vprinter/jobsvc"
)

// baseSchema is the no-op implementation shared by built-ins without
// configuration fields.
type baseSchema struct{}

func (baseSchema) Schema() ([]ConfigField, bool)        { return nil, false }
func (baseSchema) UpdateConfiguration(map[string]any) error { return nil }

// baseNoop implements the rarely-used hooks with their neutral default.
type baseNoop struct{}

func (baseNoop) OnLoad(context.Context) error { return nil }
func (baseNoop) OnUnload() error              { return nil }
func (baseNoop) BeforeJobProcessing(context.Context, *jobsvc.Job) BeforeResult {
	return BeforeResult{Continue: true}
}
func (baseNoop) ProcessJob(context.Context, *jobsvc.Job, []byte) (ProcessResult, bool) {
	return ProcessResult{}, false
}
func (baseNoop) AfterJobProcessing(context.Context, *jobsvc.Job, bool) {}
func (baseNoop) CustomizeIppAttributes(_ context.Context, original goipp.Attributes) (goipp.Attributes, bool) {
	return original, false
}
func (baseNoop) HandleCustomIppOperation(context.Context, string, goipp.Attributes) bool { return false }
func (baseNoop) HandleError(context.Context, error, string) bool                        { return false }

// DelaySimulator artificially delays job processing, exercising queue
// depth and client-timeout handling (§4.7's first built-in plugin). In
// random mode it sleeps a duration drawn uniformly from
// [0.5*delay, 1.5*delay) instead of the fixed delay.
type DelaySimulator struct {
	baseNoop
	mu          sync.RWMutex
	delay       time.Duration
	randomDelay bool
}

func NewDelaySimulator(delay time.Duration) *DelaySimulator {
	return &DelaySimulator{delay: delay}
}

func (p *DelaySimulator) Metadata() Metadata {
	return Metadata{
		ID: "delay-simulator", Name: "Delay Simulator", Version: "1.0.0",
		Description: "Introduces a configurable artificial delay before job processing",
		Author:      "vprinter", Enabled: true, LoadOrder: 10,
	}
}

func (p *DelaySimulator) BeforeJobProcessing(ctx context.Context, job *jobsvc.Job) BeforeResult {
	p.mu.RLock()
	d, random := p.delay, p.randomDelay
	p.mu.RUnlock()
	if d <= 0 {
		return BeforeResult{Continue: true}
	}
	if random {
		half := float64(d) * 0.5
		d = time.Duration(half + rand.Float64()*float64(d))
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
	return BeforeResult{Continue: true}
}

func (p *DelaySimulator) Schema() ([]ConfigField, bool) {
	return []ConfigField{
		{Key: "delay_ms", Label: "Delay (milliseconds)", Type: "number", Default: float64(0)},
		{Key: "random_delay", Label: "Randomize delay within 0.5x-1.5x", Type: "boolean", Default: false},
	}, true
}

func (p *DelaySimulator) UpdateConfiguration(cfg map[string]any) error {
	ms, ok := cfg["delay_ms"].(float64)
	if !ok {
		return fmt.Errorf("delay_ms must be a number")
	}
	random, _ := cfg["random_delay"].(bool)
	p.mu.Lock()
	p.delay = time.Duration(ms) * time.Millisecond
	p.randomDelay = random
	p.mu.Unlock()
	return nil
}

// ErrorInjectorMode selects how ErrorInjector picks a rejected job's error
// category, per §4.7's second built-in plugin.
type ErrorInjectorMode string

const (
	ErrorInjectorModeRandom     ErrorInjectorMode = "random"
	ErrorInjectorModeSequential ErrorInjectorMode = "sequential"
	ErrorInjectorModeSpecific   ErrorInjectorMode = "specific"
)

// errorCategoryOrder fixes the rotation sequential mode walks through.
var errorCategoryOrder = []ErrorCategory{ErrNetwork, ErrMemory, ErrFormat, ErrHardware, ErrAuthorization, ErrQueue}

// errorMessagePool holds a handful of plausible messages per category;
// BeforeJobProcessing draws one at random on each rejection.
var errorMessagePool = map[ErrorCategory][]string{
	ErrNetwork:       {"connection reset by peer", "network unreachable", "timed out waiting for printer response"},
	ErrMemory:        {"out of memory", "spool buffer allocation failed", "insufficient memory for rasterization"},
	ErrFormat:        {"unrecognized document format", "corrupt document header", "unsupported page description language"},
	ErrHardware:      {"paper jam", "toner cartridge empty", "print head fault"},
	ErrAuthorization: {"unauthorized print request", "invalid credentials", "access denied by printer policy"},
	ErrQueue:         {"queue full", "job queue overflow", "too many pending jobs"},
}

// ErrorInjector rejects jobs to exercise client error handling. Each job
// draws a uniform p in [0,1) against errorProbability; on rejection, mode
// selects the error category (a fixed one in specific mode, the next in
// a fixed rotation in sequential mode, or a random one in random mode),
// and the rejection message is drawn from that category's message pool.
type ErrorInjector struct {
	baseNoop
	mu               sync.RWMutex
	errorProbability float64
	mode             ErrorInjectorMode
	category         ErrorCategory // used in specific mode
	sequenceIdx      int           // used in sequential mode
}

func NewErrorInjector(category ErrorCategory, errorProbability float64) *ErrorInjector {
	return &ErrorInjector{category: category, errorProbability: errorProbability, mode: ErrorInjectorModeSpecific}
}

func (p *ErrorInjector) Metadata() Metadata {
	return Metadata{
		ID: "error-injector", Name: "Error Injector", Version: "1.0.0",
		Description: "Rejects a configurable fraction of jobs with a simulated error",
		Author:      "vprinter", Enabled: true, LoadOrder: 20,
	}
}

func (p *ErrorInjector) BeforeJobProcessing(_ context.Context, job *jobsvc.Job) BeforeResult {
	p.mu.Lock()
	prob := p.errorProbability
	mode := p.mode
	specific := p.category
	idx := p.sequenceIdx
	p.sequenceIdx++
	p.mu.Unlock()

	if prob <= 0 || rand.Float64() >= prob {
		return BeforeResult{Continue: true}
	}

	var cat ErrorCategory
	switch mode {
	case ErrorInjectorModeSequential:
		cat = errorCategoryOrder[idx%len(errorCategoryOrder)]
	case ErrorInjectorModeRandom:
		cat = errorCategoryOrder[rand.Intn(len(errorCategoryOrder))]
	default:
		cat = specific
	}
	return BeforeResult{Reject: true, Category: cat, Message: pickErrorMessage(cat)}
}

func pickErrorMessage(cat ErrorCategory) string {
	pool := errorMessagePool[cat]
	if len(pool) == 0 {
		return string(cat) + " error"
	}
	return pool[rand.Intn(len(pool))]
}

func (p *ErrorInjector) Schema() ([]ConfigField, bool) {
	return []ConfigField{
		{Key: "error_probability", Label: "Error probability (0..1)", Type: "number", Default: 0.0},
		{Key: "mode", Label: "Category selection mode", Type: "select", Default: string(ErrorInjectorModeSpecific),
			Options: []string{string(ErrorInjectorModeRandom), string(ErrorInjectorModeSequential), string(ErrorInjectorModeSpecific)}},
		{Key: "category", Label: "Error category (specific mode)", Type: "select", Default: string(ErrNetwork),
			Options: []string{string(ErrNetwork), string(ErrMemory), string(ErrFormat), string(ErrHardware), string(ErrAuthorization), string(ErrQueue)}},
	}, true
}

func (p *ErrorInjector) UpdateConfiguration(cfg map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r, ok := cfg["error_probability"].(float64); ok {
		p.errorProbability = r
	}
	if m, ok := cfg["mode"].(string); ok {
		p.mode = ErrorInjectorMode(m)
	}
	if c, ok := cfg["category"].(string); ok {
		p.category = ErrorCategory(c)
	}
	return nil
}

// DocumentWatermark appends a newline and the configured text to every
// document payload, whatever its format, exercising the processJob override
// path (§4.7's third built-in plugin). It does not draw a visual overlay
// into PDF or image documents.
type DocumentWatermark struct {
	baseNoop
	mu   sync.RWMutex
	text string
}

func NewDocumentWatermark(text string) *DocumentWatermark {
	return &DocumentWatermark{text: text}
}

func (p *DocumentWatermark) Metadata() Metadata {
	return Metadata{
		ID: "document-watermark", Name: "Document Watermark", Version: "1.0.0",
		Description: "Appends a text watermark to the stored document artifact",
		Author:      "vprinter", Enabled: true, LoadOrder: 30,
	}
}

func (p *DocumentWatermark) ProcessJob(_ context.Context, job *jobsvc.Job, data []byte) (ProcessResult, bool) {
	p.mu.RLock()
	text := p.text
	p.mu.RUnlock()
	if text == "" {
		return ProcessResult{}, false
	}
	out := make([]byte, 0, len(data)+len(text)+2)
	out = append(out, data...)
	out = append(out, '\n')
	out = append(out, []byte(text)...)
	return ProcessResult{ProcessedBytes: out, ModifiedJob: true, ShouldContinue: true}, true
}

func (p *DocumentWatermark) Schema() ([]ConfigField, bool) {
	return []ConfigField{{Key: "text", Label: "Watermark text", Type: "text", Default: ""}}, true
}

func (p *DocumentWatermark) UpdateConfiguration(cfg map[string]any) error {
	text, ok := cfg["text"].(string)
	if !ok {
		return fmt.Errorf("text must be a string")
	}
	p.mu.Lock()
	p.text = text
	p.mu.Unlock()
	return nil
}

// AttributeOverride layers a fixed set of attribute overrides into every
// Get-Printer-Attributes response, exercising customizeIppAttributes
// (§4.7's fourth built-in plugin). Most keys pass through as flat
// text-valued overrides, but a handful of recognized keys are derived
// into the typed attribute(s) a real printer would advertise instead:
//
//   - printer-is-accepting-jobs=true|false -> printer-is-accepting-jobs (boolean)
//   - duplex-supported=true|false        -> sides-supported / sides-default
//   - queued-job-count-max=<int>         -> queued-job-count-max
//   - quality-supported=draft,normal,... -> print-quality-supported (enum)
//   - copies-supported=<low>-<high>      -> copies-supported (range)
//   - orientation-requested-supported=…  -> orientation-requested-supported (enum)
//   - number-up-supported=1,2,4          -> number-up-supported (integer)
type AttributeOverride struct {
	baseNoop
	mu    sync.RWMutex
	attrs map[string]string
}

func NewAttributeOverride(attrs map[string]string) *AttributeOverride {
	return &AttributeOverride{attrs: attrs}
}

func (p *AttributeOverride) Metadata() Metadata {
	return Metadata{
		ID: "attribute-override", Name: "Attribute Override", Version: "1.0.0",
		Description: "Overrides selected printer attributes with fixed or derived values",
		Author:      "vprinter", Enabled: true, LoadOrder: 40,
	}
}

func (p *AttributeOverride) CustomizeIppAttributes(_ context.Context, original goipp.Attributes) (goipp.Attributes, bool) {
	p.mu.RLock()
	attrs := p.attrs
	p.mu.RUnlock()
	if len(attrs) == 0 {
		return original, false
	}
	out := original
	for name, value := range attrs {
		switch name {
		case "printer-is-accepting-jobs":
			if b, err := strconv.ParseBool(value); err == nil {
				out = replaceNamed(out, "printer-is-accepting-jobs", goipp.TagBoolean, goipp.Boolean(b))
			}
		case "duplex-supported":
			out = applyDuplexOverride(out, value)
		case "document-format-supported":
			formats := splitCSV(value)
			values := make([]goipp.Value, len(formats))
			for i, f := range formats {
				values[i] = goipp.String(f)
			}
			out = replaceNamedValues(out, "document-format-supported", goipp.TagMimeType, values...)
		case "queued-job-count-max":
			if n, err := strconv.Atoi(value); err == nil {
				out = replaceNamed(out, "queued-job-count-max", goipp.TagInteger, goipp.Integer(n))
			}
		case "quality-supported":
			out = replaceNamedValues(out, "print-quality-supported", goipp.TagEnum, printQualityValues(value)...)
		case "copies-supported":
			if r, ok := parseRange(value); ok {
				out = replaceNamed(out, "copies-supported", goipp.TagRange, r)
			}
		case "orientation-requested-supported":
			out = replaceNamedValues(out, "orientation-requested-supported", goipp.TagEnum, orientationValues(value)...)
		case "number-up-supported":
			out = replaceNamedValues(out, "number-up-supported", goipp.TagInteger, integerValues(value)...)
		default:
			out = replaceNamed(out, name, goipp.TagText, goipp.String(value))
		}
	}
	return out, true
}

// applyDuplexOverride translates a duplex-supported=true|false
// configuration value into the sides-supported/sides-default pair a
// client actually queries, per §4.7 scenario S5.
func applyDuplexOverride(attrs goipp.Attributes, value string) goipp.Attributes {
	duplex, err := strconv.ParseBool(value)
	if err != nil {
		return attrs
	}
	sides := []goipp.Value{goipp.String("one-sided")}
	if duplex {
		sides = append(sides, goipp.String("two-sided-long-edge"), goipp.String("two-sided-short-edge"))
	}
	attrs = replaceNamedValues(attrs, "sides-supported", goipp.TagKeyword, sides...)
	attrs = replaceNamed(attrs, "sides-default", goipp.TagKeyword, goipp.String("one-sided"))
	return attrs
}

// printQuality maps RFC 2911 §4.2.12 print-quality keywords to their wire
// enum values.
var printQuality = map[string]int{"draft": 3, "normal": 4, "high": 5}

func printQualityValues(csv string) []goipp.Value {
	var out []goipp.Value
	for _, s := range splitCSV(csv) {
		if n, ok := printQuality[s]; ok {
			out = append(out, goipp.Integer(n))
		}
	}
	return out
}

// orientationRequested maps RFC 2911 §4.2.10 orientation-requested
// keywords to their wire enum values.
var orientationRequested = map[string]int{"portrait": 3, "landscape": 4, "reverse-landscape": 5, "reverse-portrait": 6}

func orientationValues(csv string) []goipp.Value {
	var out []goipp.Value
	for _, s := range splitCSV(csv) {
		if n, ok := orientationRequested[s]; ok {
			out = append(out, goipp.Integer(n))
		}
	}
	return out
}

func integerValues(csv string) []goipp.Value {
	var out []goipp.Value
	for _, s := range splitCSV(csv) {
		if n, err := strconv.Atoi(s); err == nil {
			out = append(out, goipp.Integer(n))
		}
	}
	return out
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseRange(s string) (goipp.Range, bool) {
	lo, hi, found := strings.Cut(s, "-")
	if !found {
		return goipp.Range{}, false
	}
	l, err1 := strconv.Atoi(strings.TrimSpace(lo))
	u, err2 := strconv.Atoi(strings.TrimSpace(hi))
	if err1 != nil || err2 != nil {
		return goipp.Range{}, false
	}
	return goipp.Range{Lower: l, Upper: u}, true
}

func replaceNamed(attrs goipp.Attributes, name string, tag goipp.Tag, value goipp.Value) goipp.Attributes {
	return replaceNamedValues(attrs, name, tag, value)
}

// replaceNamedValues replaces (or appends) the named multi-valued
// attribute in attrs, the general form replaceNamed delegates to.
func replaceNamedValues(attrs goipp.Attributes, name string, tag goipp.Tag, values ...goipp.Value) goipp.Attributes {
	if len(values) == 0 {
		return attrs
	}
	attr := goipp.MakeAttribute(name, tag, values[0])
	for _, v := range values[1:] {
		attr.Values.Add(tag, v)
	}
	for i := range attrs {
		if attrs[i].Name == name {
			attrs[i] = attr
			return attrs
		}
	}
	return append(attrs, attr)
}

func (p *AttributeOverride) Schema() ([]ConfigField, bool) {
	return []ConfigField{{Key: "attributes", Label: "Attribute overrides (key=value)", Type: "text", Default: ""}}, true
}

func (p *AttributeOverride) UpdateConfiguration(cfg map[string]any) error {
	m, ok := cfg["attributes"].(map[string]any)
	if !ok {
		return fmt.Errorf("attributes must be an object")
	}
	next := make(map[string]string, len(m))
	for k, v := range m {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("attribute %s must be a string", k)
		}
		next[k] = s
	}
	p.mu.Lock()
	p.attrs = next
	p.mu.Unlock()
	return nil
}

// LoggingEnhancer emits structured log records for every lifecycle hook it
// observes, exercising the observation-only after/error hooks (§4.7's
// fifth built-in plugin).
type LoggingEnhancer struct {
	baseSchema
}

func NewLoggingEnhancer() *LoggingEnhancer { return &LoggingEnhancer{} }

func (p *LoggingEnhancer) Metadata() Metadata {
	return Metadata{
		ID: "logging-enhancer", Name: "Logging Enhancer", Version: "1.0.0",
		Description: "Logs a structured record for every job lifecycle transition",
		Author:      "vprinter", Enabled: true, LoadOrder: 100,
	}
}

func (p *LoggingEnhancer) OnLoad(context.Context) error { return nil }
func (p *LoggingEnhancer) OnUnload() error              { return nil }

func (p *LoggingEnhancer) BeforeJobProcessing(_ context.Context, job *jobsvc.Job) BeforeResult {
	slog.Info("job processing starting", "job_id", job.ID, "job_name", job.Name)
	return BeforeResult{Continue: true}
}

func (p *LoggingEnhancer) ProcessJob(context.Context, *jobsvc.Job, []byte) (ProcessResult, bool) {
	return ProcessResult{}, false
}

func (p *LoggingEnhancer) AfterJobProcessing(_ context.Context, job *jobsvc.Job, success bool) {
	slog.Info("job processing finished", "job_id", job.ID, "success", success, "state", job.State.String())
}

func (p *LoggingEnhancer) CustomizeIppAttributes(_ context.Context, original goipp.Attributes) (goipp.Attributes, bool) {
	return original, false
}

func (p *LoggingEnhancer) HandleCustomIppOperation(context.Context, string, goipp.Attributes) bool {
	return false
}

func (p *LoggingEnhancer) HandleError(_ context.Context, err error, context_ string) bool {
	slog.Error("plugin-visible error", "context", context_, "error", err)
	return false
}
