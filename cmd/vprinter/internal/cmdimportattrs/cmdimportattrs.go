// Package cmdimportattrs implements the "import-attributes" command.
package cmdimportattrs

import (
	"context"
	"fmt"
	"os"

	"github.com/rrohitkmr/vprinter/cmd/vprinter/internal/adminclient"
	"github.com/rrohitkmr/vprinter/cmd/vprinter/internal/cfg"
	"github.com/rrohitkmr/vprinter/cmd/vprinter/internal/golang/base"
)

var CmdImportAttributes = &base.Command{
	Run:       runImportAttributes,
	UsageLine: "vprinter import-attributes <path>",
	Short:     "install a printer-attributes override document",
	Long: `
Import-attributes reads the ipp_attributes/*.json document at <path>,
in either the legacy array shape or the captured printer-response
shape, and installs it as the printer's attribute-override layer.
`,
}

func runImportAttributes(ctx context.Context, cmd *base.Command, args []string) error {
	if len(args) != 1 {
		base.SetExitStatus(base.SInvalidParameters)
		return fmt.Errorf("expected exactly one argument: <path>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		base.SetExitStatus(base.SGenericError)
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	if _, err := adminclient.PostRaw(ctx, cfg.AdminAddr, "/admin/import-attributes", data); err != nil {
		base.SetExitStatus(base.SGenericError)
		return err
	}
	return nil
}
