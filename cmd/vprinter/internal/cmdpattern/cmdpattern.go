// Package cmdpattern implements the "pattern" debug command, adapted
// from this codebase's original cmd/tp/internal/cmdpattern: instead of
// sending a test pattern to a Bluetooth-attached thermal head, it
// submits one as a Print-Job to the virtual printer over IPP.
package cmdpattern

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sort"

	"github.com/OpenPrinting/goipp"

	"github.com/rrohitkmr/vprinter/cmd/vprinter/internal/cfg"
	"github.com/rrohitkmr/vprinter/cmd/vprinter/internal/golang/base"
	"github.com/rrohitkmr/vprinter/ipp"
	"github.com/rrohitkmr/vprinter/testpattern"
)

var CmdPattern = &base.Command{
	Run:        runPattern,
	UsageLine:  "vprinter pattern [flags] <pattern name>",
	Short:      "submit a test pattern as a print job",
	PrintFlags: true,
	Long: `
Pattern renders a named test image and submits it as a Print-Job to the
printer at -admin-addr, exercising the document ingestion pipeline
end-to-end without a real client.
`,
}

var (
	listPatterns bool
	width        int
)

func init() {
	CmdPattern.Flag.BoolVar(&listPatterns, "list", false, "list available patterns")
	CmdPattern.Flag.IntVar(&width, "width", 384, "pattern width in pixels")
}

func runPattern(ctx context.Context, cmd *base.Command, args []string) error {
	if listPatterns {
		return printPatternNames(cmd.Flag.Output())
	}
	if len(args) != 1 {
		base.SetExitStatus(base.SInvalidParameters)
		printPatternNames(cmd.Flag.Output())
		return errors.New("expected exactly one argument: <pattern name>")
	}

	data, err := testpattern.Render(args[0], width)
	if err != nil {
		base.SetExitStatus(base.SInvalidParameters)
		return err
	}

	req := goipp.NewRequest(goipp.DefaultVersion, goipp.OpPrintJob, 1)
	add := ipp.Adder(req.Operation)
	req.Operation = add("attributes-charset", goipp.TagCharset, ipp.CharsetUTF8)
	req.Operation = add("attributes-natural-language", goipp.TagLanguage, ipp.LanguageEnUS)
	req.Operation = add("printer-uri", goipp.TagURI, goipp.String(cfg.AdminAddr+"/printers/default"))
	req.Operation = add("requesting-user-name", goipp.TagName, goipp.String("vprinter-pattern"))
	req.Operation = add("job-name", goipp.TagName, goipp.String("test-pattern-"+args[0]))
	req.Operation = add("document-format", goipp.TagMimeType, ipp.MimePNG)

	var buf bytes.Buffer
	if err := req.Encode(&buf); err != nil {
		base.SetExitStatus(base.SGenericError)
		return fmt.Errorf("failed to encode IPP request: %w", err)
	}
	buf.Write(data)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.AdminAddr+"/", &buf)
	if err != nil {
		base.SetExitStatus(base.SGenericError)
		return err
	}
	httpReq.Header.Set("Content-Type", "application/ipp")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		base.SetExitStatus(base.SGenericError)
		return fmt.Errorf("request to %s failed: %w", cfg.AdminAddr, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		base.SetExitStatus(base.SGenericError)
		return err
	}
	var ippResp goipp.Message
	if err := ippResp.DecodeBytes(body); err != nil {
		base.SetExitStatus(base.SGenericError)
		return fmt.Errorf("failed to decode IPP response: %w", err)
	}
	if ippResp.Code != goipp.Code(ipp.StatusSuccessfulOK) {
		base.SetExitStatus(base.SGenericError)
		return fmt.Errorf("printer rejected job: status 0x%04x", int(ippResp.Code))
	}
	return nil
}

func printPatternNames(w io.Writer) error {
	names := make([]string, 0, len(testpattern.Generators))
	for name := range testpattern.Generators {
		names = append(names, name)
	}
	sort.Strings(names)
	_, err := fmt.Fprintf(w, "Available test patterns: %v\n", slices.Clone(names))
	return err
}
