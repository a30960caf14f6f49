// Package cmdstop implements the "stop" command.
package cmdstop

import (
	"context"
	"fmt"

	"github.com/rrohitkmr/vprinter/cmd/vprinter/internal/adminclient"
	"github.com/rrohitkmr/vprinter/cmd/vprinter/internal/cfg"
	"github.com/rrohitkmr/vprinter/cmd/vprinter/internal/golang/base"
)

var CmdStop = &base.Command{
	Run:       runStop,
	UsageLine: "vprinter stop",
	Short:     "stop a running virtual printer",
	Long: `
Stop requests a graceful shutdown of the printer listening at -admin-addr.
`,
}

func runStop(ctx context.Context, cmd *base.Command, args []string) error {
	if len(args) > 0 {
		base.SetExitStatus(base.SInvalidParameters)
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	if _, err := adminclient.Post(ctx, cfg.AdminAddr, "/admin/stop", struct{}{}); err != nil {
		base.SetExitStatus(base.SGenericError)
		return err
	}
	return nil
}
