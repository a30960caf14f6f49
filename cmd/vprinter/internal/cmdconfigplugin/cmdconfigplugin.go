// Package cmdconfigplugin implements the "configure-plugin" command.
package cmdconfigplugin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rrohitkmr/vprinter/cmd/vprinter/internal/adminclient"
	"github.com/rrohitkmr/vprinter/cmd/vprinter/internal/cfg"
	"github.com/rrohitkmr/vprinter/cmd/vprinter/internal/golang/base"
)

var CmdConfigurePlugin = &base.Command{
	Run:       runConfigurePlugin,
	UsageLine: "vprinter configure-plugin <id> <json>",
	Short:     "push a configuration update to a plugin",
	Long: `
Configure-plugin sends <json>, an object of configuration keys and
values, to the plugin with the given id, regardless of whether it is
currently loaded.
`,
}

type configureRequest struct {
	ID     string         `json:"id"`
	Config map[string]any `json:"config"`
}

func runConfigurePlugin(ctx context.Context, cmd *base.Command, args []string) error {
	if len(args) != 2 {
		base.SetExitStatus(base.SInvalidParameters)
		return fmt.Errorf("expected exactly two arguments: <id> <json>")
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(args[1]), &fields); err != nil {
		base.SetExitStatus(base.SInvalidParameters)
		return fmt.Errorf("invalid JSON configuration: %w", err)
	}
	req := configureRequest{ID: args[0], Config: fields}
	if _, err := adminclient.Post(ctx, cfg.AdminAddr, "/admin/configure-plugin", req); err != nil {
		base.SetExitStatus(base.SGenericError)
		return err
	}
	return nil
}
