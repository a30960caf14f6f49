// Package cmdunloadplugin implements the "unload-plugin" command.
package cmdunloadplugin

import (
	"context"
	"fmt"

	"github.com/rrohitkmr/vprinter/cmd/vprinter/internal/adminclient"
	"github.com/rrohitkmr/vprinter/cmd/vprinter/internal/cfg"
	"github.com/rrohitkmr/vprinter/cmd/vprinter/internal/golang/base"
)

var CmdUnloadPlugin = &base.Command{
	Run:       runUnloadPlugin,
	UsageLine: "vprinter unload-plugin <id>",
	Short:     "disable a registered plugin",
	Long: `
Unload-plugin disables the plugin with the given id.
`,
}

func runUnloadPlugin(ctx context.Context, cmd *base.Command, args []string) error {
	if len(args) != 1 {
		base.SetExitStatus(base.SInvalidParameters)
		return fmt.Errorf("expected exactly one argument: <id>")
	}
	if _, err := adminclient.Post(ctx, cfg.AdminAddr, "/admin/unload-plugin", map[string]string{"id": args[0]}); err != nil {
		base.SetExitStatus(base.SGenericError)
		return err
	}
	return nil
}
