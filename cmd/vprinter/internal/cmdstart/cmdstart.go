// Package cmdstart implements the "start" command, which runs the
// virtual printer in the foreground, generalizing this codebase's
// original cmd/tp/internal/cmdserver package from a thermal-printer
// driver wrapper to the full ippsrv.Server.
package cmdstart

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/afero"

	"github.com/rrohitkmr/vprinter/advertise"
	"github.com/rrohitkmr/vprinter/cmd/vprinter/internal/cfg"
	"github.com/rrohitkmr/vprinter/cmd/vprinter/internal/golang/base"
	"github.com/rrohitkmr/vprinter/config"
	"github.com/rrohitkmr/vprinter/events"
	"github.com/rrohitkmr/vprinter/ippsrv"
	"github.com/rrohitkmr/vprinter/spool"
)

var CmdStart = &base.Command{
	Run:        runStart,
	UsageLine:  "vprinter start [flags]",
	Short:      "start the virtual IPP printer",
	PrintFlags: true,
	FlagMask:   cfg.OmitAdminFlags,
	Long: `
Start runs the virtual printer's IPP/HTTP listener in the foreground
until interrupted, loading configuration from the optional -config file,
VPRINTER_* environment variables, and flags, in that precedence order.
`,
}

var svcCfg = config.Default()

func init() {
	config.LoadEnv(&svcCfg)
	CmdStart.Flag.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "path to a config.yaml file, applied on top of defaults but below VPRINTER_* environment variables and any other flag given on this command line")
	config.SetFlags(&CmdStart.Flag, &svcCfg)
}

func runStart(ctx context.Context, cmd *base.Command, args []string) error {
	if len(args) > 0 {
		base.SetExitStatus(base.SInvalidParameters)
		return fmt.Errorf("unexpected arguments: %v", args)
	}

	if cfg.ConfigFile != "" {
		// The file is read after flags are parsed, so environment
		// variables and explicitly given flags are re-applied on top of it.
		explicit := map[string]string{}
		cmd.Flag.Visit(func(f *flag.Flag) { explicit[f.Name] = f.Value.String() })
		if err := config.LoadFile(&svcCfg, cfg.ConfigFile); err != nil {
			base.SetExitStatus(base.SGenericError)
			return err
		}
		config.LoadEnv(&svcCfg)
		for name, value := range explicit {
			if err := cmd.Flag.Set(name, value); err != nil {
				base.SetExitStatus(base.SGenericError)
				return err
			}
		}
	}

	fs := afero.NewOsFs()
	bus := events.NewBus()
	sp, err := spool.New(fs, svcCfg.JobDir, bus)
	if err != nil {
		base.SetExitStatus(base.SGenericError)
		return fmt.Errorf("failed to open job spool: %w", err)
	}

	var advertiser advertise.ServiceAdvertiser
	if svcCfg.MDNSEnabled {
		advertiser = advertise.NewZeroconfAdvertiser()
	}

	s, err := ippsrv.New(svcCfg, fs, sp, bus, advertiser)
	if err != nil {
		base.SetExitStatus(base.SGenericError)
		return fmt.Errorf("failed to initialize printer: %w", err)
	}
	cfg.RegisterSigInfoReporter(s.Info)

	go func() {
		select {
		case <-ctx.Done():
		case <-s.Stopped():
		}
		if err := s.Shutdown(context.Background()); err != nil {
			slog.Error("error shutting down printer", "err", err)
		} else {
			slog.Info("printer shut down successfully")
		}
	}()

	slog.Info("starting printer", "addr", svcCfg.ListenAddr, "name", svcCfg.PrinterName)
	if err := s.ListenAndServe(svcCfg.ListenAddr); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		base.SetExitStatus(base.SGenericError)
		return fmt.Errorf("error starting printer: %w", err)
	}
	return nil
}
