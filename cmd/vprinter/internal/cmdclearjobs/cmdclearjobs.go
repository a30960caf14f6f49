// Package cmdclearjobs implements the "clear-jobs" command.
package cmdclearjobs

import (
	"context"
	"fmt"

	"github.com/rrohitkmr/vprinter/cmd/vprinter/internal/adminclient"
	"github.com/rrohitkmr/vprinter/cmd/vprinter/internal/cfg"
	"github.com/rrohitkmr/vprinter/cmd/vprinter/internal/golang/base"
)

var CmdClearJobs = &base.Command{
	Run:       runClearJobs,
	UsageLine: "vprinter clear-jobs",
	Short:     "remove every job from the spool",
	Long: `
Clear-jobs deletes every persisted job artifact and empties the job
queue.
`,
}

func runClearJobs(ctx context.Context, cmd *base.Command, args []string) error {
	if len(args) > 0 {
		base.SetExitStatus(base.SInvalidParameters)
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	if _, err := adminclient.Post(ctx, cfg.AdminAddr, "/admin/clear-jobs", struct{}{}); err != nil {
		base.SetExitStatus(base.SGenericError)
		return err
	}
	return nil
}
