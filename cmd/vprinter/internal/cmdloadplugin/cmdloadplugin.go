// Package cmdloadplugin implements the "load-plugin" command.
package cmdloadplugin

import (
	"context"
	"fmt"

	"github.com/rrohitkmr/vprinter/cmd/vprinter/internal/adminclient"
	"github.com/rrohitkmr/vprinter/cmd/vprinter/internal/cfg"
	"github.com/rrohitkmr/vprinter/cmd/vprinter/internal/golang/base"
)

var CmdLoadPlugin = &base.Command{
	Run:       runLoadPlugin,
	UsageLine: "vprinter load-plugin <id>",
	Short:     "enable a registered plugin",
	Long: `
Load-plugin enables the plugin with the given id, failing if any of its
declared dependencies is not already loaded.
`,
}

func runLoadPlugin(ctx context.Context, cmd *base.Command, args []string) error {
	if len(args) != 1 {
		base.SetExitStatus(base.SInvalidParameters)
		return fmt.Errorf("expected exactly one argument: <id>")
	}
	if _, err := adminclient.Post(ctx, cfg.AdminAddr, "/admin/load-plugin", map[string]string{"id": args[0]}); err != nil {
		base.SetExitStatus(base.SGenericError)
		return err
	}
	return nil
}
