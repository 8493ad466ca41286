package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/routeflow/rfcoord/internal/coordsvc"
	"github.com/routeflow/rfcoord/internal/ipc"
	"github.com/routeflow/rfcoord/internal/rfconfig"
	"github.com/routeflow/rfcoord/internal/wire"
)

var cmd Cmd

// Cmd is the command line arguments: a positional config.csv plus the
// flags for the ISL, fastpath and vendor-override config described in the
// external interfaces section.
type Cmd struct {
	ConfigPath string
	ISLPath    string
	MTable     string
	Satellite  string
	FastPath   string
	DaemonPath string
}

var rootCmd = &cobra.Command{
	Use:   "rfcoord config.csv",
	Short: "RouteFlow coordinator: pairs virtual and datapath ports and translates RouteMods",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		cmd.ConfigPath = args[0]
		if err := run(cmd); err != nil {
			if errors.Is(err, Interrupted{}) {
				return
			}
			fmt.Printf("ERROR: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.Flags().StringVarP(&cmd.ISLPath, "islconf", "i", "", "Path to islconf.csv")
	rootCmd.Flags().StringVarP(&cmd.MTable, "multitable", "m", "", "Comma-list of dpid/vendor overrides (vendor: noviflow, corsa, corsa-v1, corsa-v3)")
	rootCmd.Flags().StringVarP(&cmd.Satellite, "satellite", "s", "", "Comma-list of satellite dp_ids, in hex")
	rootCmd.Flags().StringVarP(&cmd.FastPath, "fastpath", "f", "", "Path to fastpaths.csv")
	rootCmd.Flags().StringVarP(&cmd.DaemonPath, "config", "c", "", "Path to the optional daemon config YAML (log level, vendor_overrides)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd Cmd) error {
	daemon := rfconfig.DefaultDaemonConfig()
	if cmd.DaemonPath != "" {
		var err error
		daemon, err = rfconfig.LoadDaemonConfig(cmd.DaemonPath)
		if err != nil {
			return err
		}
	}

	zapCfg := zap.NewDevelopmentConfig()
	zapCfg.Development = false
	zapCfg.Level.SetLevel(zap.DebugLevel)
	if err := zapCfg.Level.UnmarshalText([]byte(daemon.LogLevel)); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", daemon.LogLevel, err)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Daemon = daemon

	bus := ipc.NewBus()
	c, err := coordsvc.New("coordinator", bus, cfg, coordsvc.WithLog(log))
	if err != nil {
		return fmt.Errorf("failed to initialize coordinator: %w", err)
	}

	telemetry := c.Service().Subscribe(coordsvc.ChannelTelemetry)
	go mirrorTelemetry(telemetry, log)

	ctx := context.Background()
	wg, ctx := errgroup.WithContext(ctx)
	wg.Go(func() error {
		return c.Run(ctx)
	})
	wg.Go(func() error {
		err := WaitInterrupted(ctx)
		log.Infof("caught signal: %v", err)
		return err
	})

	return wg.Wait()
}

// mirrorTelemetry logs every message the coordinator sends, as a
// read-only observer subscribed alongside the point-to-point delivery —
// it never addresses the coordinator and has no bearing on dispatch.
func mirrorTelemetry(frames <-chan wire.Frame, log *zap.SugaredLogger) {
	for f := range frames {
		msg, err := f.Decode()
		if err != nil {
			continue
		}
		log.Debugw("telemetry", "recipient", f.Recipient, "channel", f.Channel, "type", msg.Type())
	}
}

// loadConfig parses the three CSV inputs and the -m/-s override flags into
// a coordsvc.Config. A malformed CSV or -s token aborts startup; malformed
// -m tokens are skipped (see parseMultiTable).
func loadConfig(cmd Cmd) (coordsvc.Config, error) {
	rfConfig, err := rfconfig.LoadRFConfig(cmd.ConfigPath)
	if err != nil {
		return coordsvc.Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	islConf := rfconfig.NewRFISLConf(nil)
	if cmd.ISLPath != "" {
		islConf, err = rfconfig.LoadRFISLConf(cmd.ISLPath)
		if err != nil {
			return coordsvc.Config{}, fmt.Errorf("failed to load isl config: %w", err)
		}
	}

	fpConf := rfconfig.NewRFFPConf(nil)
	if cmd.FastPath != "" {
		fpConf, err = rfconfig.LoadRFFPConf(cmd.FastPath)
		if err != nil {
			return coordsvc.Config{}, fmt.Errorf("failed to load fastpath config: %w", err)
		}
	}

	multiTable, err := parseMultiTable(cmd.MTable)
	if err != nil {
		return coordsvc.Config{}, err
	}

	satellite, err := parseSatellite(cmd.Satellite)
	if err != nil {
		return coordsvc.Config{}, err
	}

	return coordsvc.Config{
		RFConfig:      rfConfig,
		ISLConf:       islConf,
		FPConf:        fpConf,
		MultiTableDPs: multiTable,
		SatelliteDPs:  satellite,
	}, nil
}

// parseMultiTable parses "-m" tokens of the form dpid(hex)/vendor,
// comma-separated. A malformed token is skipped without being logged or
// reported; the well-formed tokens still apply, and the returned error is
// always nil.
func parseMultiTable(raw string) (map[uint64]string, error) {
	out := map[uint64]string{}
	if raw == "" {
		return out, nil
	}
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		parts := strings.SplitN(tok, "/", 2)
		if len(parts) != 2 {
			continue
		}
		dpID, err := strconv.ParseUint(parts[0], 16, 64)
		if err != nil {
			continue
		}
		out[dpID] = parts[1]
	}
	return out, nil
}

// parseSatellite parses "-s" tokens: comma-separated dp_ids in hex.
func parseSatellite(raw string) (map[uint64]bool, error) {
	out := map[uint64]bool{}
	if raw == "" {
		return out, nil
	}
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		dpID, err := strconv.ParseUint(tok, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed satellite dp_id %q: %w", tok, err)
		}
		out[dpID] = true
	}
	return out, nil
}

type Interrupted struct {
	os.Signal
}

func (m Interrupted) Error() string {
	return m.String()
}

// WaitInterrupted blocks until either SIGINT or SIGTERM is received, or ctx
// is canceled.
func WaitInterrupted(ctx context.Context) error {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	select {
	case v := <-ch:
		return Interrupted{Signal: v}
	case <-ctx.Done():
		return ctx.Err()
	}
}
