// Package cmdsetname implements the "set-printer-name" command.
package cmdsetname

import (
	"context"
	"fmt"

	"github.com/rrohitkmr/vprinter/cmd/vprinter/internal/adminclient"
	"github.com/rrohitkmr/vprinter/cmd/vprinter/internal/cfg"
	"github.com/rrohitkmr/vprinter/cmd/vprinter/internal/golang/base"
)

var CmdSetName = &base.Command{
	Run:       runSetName,
	UsageLine: "vprinter set-printer-name <name>",
	Short:     "change the printer's advertised name",
	Long: `
Set-printer-name changes the printer-name attribute and, if advertisement
is enabled, republishes the DNS-SD advertisement. The advertised instance
name is the printer-make-and-model value, so it changes only when
-make-and-model is given, not with the printer name.
`,
}

var (
	location     string
	info         string
	makeAndModel string
)

func init() {
	CmdSetName.Flag.StringVar(&location, "location", "", "printer-location attribute value")
	CmdSetName.Flag.StringVar(&info, "info", "", "printer-info attribute value")
	CmdSetName.Flag.StringVar(&makeAndModel, "make-and-model", "", "printer-make-and-model attribute value")
}

type setNameRequest struct {
	Name         string `json:"name"`
	Location     string `json:"location"`
	Info         string `json:"info"`
	MakeAndModel string `json:"make_and_model"`
}

func runSetName(ctx context.Context, cmd *base.Command, args []string) error {
	if len(args) != 1 {
		base.SetExitStatus(base.SInvalidParameters)
		return fmt.Errorf("expected exactly one argument: <name>")
	}
	req := setNameRequest{Name: args[0], Location: location, Info: info, MakeAndModel: makeAndModel}
	if _, err := adminclient.Post(ctx, cfg.AdminAddr, "/admin/set-printer-name", req); err != nil {
		base.SetExitStatus(base.SGenericError)
		return err
	}
	return nil
}
