package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/gpio"
)

// envDir is the directory searched for a .env file.
var envDir string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "estopd",
	Short: "E-stop monitor and settings service",
	Long: `estopd watches the emergency stop button, blinks the status LED while
the system is healthy and serves a small settings page for the alliance
color and network configuration.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the e-stop monitor and settings web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := LoadOptions(envDir)
		if err != nil {
			return fmt.Errorf("load options: %w", err)
		}
		logg, err := newLogger(opts.Log)
		if err != nil {
			return fmt.Errorf("initialise logger: %w", err)
		}
		defer logg.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, opts, logg)
	},
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect or change the persisted operator settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the persisted operator settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := LoadOptions(envDir)
		if err != nil {
			return fmt.Errorf("load options: %w", err)
		}
		store, err := NewConfigStore(NewFileSettings(opts.Settings.Path))
		if err != nil {
			return err
		}
		printSettings(cmd, store.Snapshot())
		return nil
	},
}

var settingsSetFlags struct {
	color     string
	ip        string
	arenaIP   string
	arenaPort string
	dhcp      bool
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change persisted operator settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := LoadOptions(envDir)
		if err != nil {
			return fmt.Errorf("load options: %w", err)
		}
		store, err := NewConfigStore(NewFileSettings(opts.Settings.Path))
		if err != nil {
			return err
		}
		changes := flagChanges(cmd)
		if changes.Empty() {
			return errors.New("no settings given")
		}
		cfg, err := store.Update(changes)
		printSettings(cmd, cfg)
		return err
	},
}

// flagChanges builds a change set from the flags the user actually passed.
func flagChanges(cmd *cobra.Command) ConfigChanges {
	var changes ConfigChanges
	f := cmd.Flags()
	if f.Changed("color") {
		changes.AllianceColor = &settingsSetFlags.color
	}
	if f.Changed("ip") {
		changes.DeviceIP = &settingsSetFlags.ip
	}
	if f.Changed("arena-ip") {
		changes.ArenaIP = &settingsSetFlags.arenaIP
	}
	if f.Changed("arena-port") {
		changes.ArenaPort = &settingsSetFlags.arenaPort
	}
	if f.Changed("dhcp") {
		changes.UseDHCP = &settingsSetFlags.dhcp
	}
	return changes
}

func printSettings(cmd *cobra.Command, cfg Configuration) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "allianceColor=%s\n", cfg.AllianceColor)
	fmt.Fprintf(out, "arenaIP=%s\n", cfg.ArenaIP)
	fmt.Fprintf(out, "deviceIP=%s\n", cfg.DeviceIP)
	fmt.Fprintf(out, "arenaPort=%s\n", cfg.ArenaPort)
	fmt.Fprintf(out, "useDHCP=%d\n", boolToInt(cfg.UseDHCP))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envDir, "env-dir", ".", "directory containing an optional .env file")

	f := settingsSetCmd.Flags()
	f.StringVar(&settingsSetFlags.color, "color", "", "alliance color (Red, Blue or Field)")
	f.StringVar(&settingsSetFlags.ip, "ip", "", "static device IP")
	f.StringVar(&settingsSetFlags.arenaIP, "arena-ip", "", "arena controller IP")
	f.StringVar(&settingsSetFlags.arenaPort, "arena-port", "", "arena controller port")
	f.BoolVar(&settingsSetFlags.dhcp, "dhcp", false, "use DHCP for the device address")

	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)
	rootCmd.AddCommand(serveCmd, settingsCmd)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		l, logErr := newLogger(LogOptions{Level: "debug", Format: "console"})
		if logErr == nil {
			for _, e := range multierr.Errors(err) {
				l.Error("command failed", zap.Error(e))
			}
			_ = l.Sync()
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// Hardware hooks used by runServe.  Tests swap in periph's gpiotest pins.
var (
	gpioInit   = initGPIO
	openEStop  = openEStopPin
	openStatus = openStatusPin
)

// runServe wires the monitor, status loop, trip reporter and web server and
// runs them until ctx is cancelled.  The e-stop watcher shares nothing with
// the web server except the monitor's atomic flag.
func runServe(ctx context.Context, opts *Options, logg *zap.Logger) error {
	events := NewEventLogger(opts.Log.EventFile)
	defer events.Close()

	store, err := NewConfigStore(NewFileSettings(opts.Settings.Path))
	if err != nil {
		logg.Warn("Failed to load settings, using defaults", zap.Error(err))
	}

	if err := gpioInit(); err != nil {
		return fmt.Errorf("initialise gpio: %w", err)
	}
	estopPin, err := openEStop(opts.GPIO.EStopPin)
	if err != nil {
		return err
	}
	defer estopPin.Halt()
	statusPin, err := openStatus(opts.GPIO.StatusPin)
	if err != nil {
		return err
	}
	defer func() {
		_ = statusPin.Out(gpio.Low)
		_ = statusPin.Halt()
		logg.Info("Cleanup complete")
	}()

	ln, err := net.Listen("tcp", opts.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", opts.HTTP.Addr, err)
	}

	monitor := NewEStopMonitor(statusPin)
	service := NewConfigService(store, monitor, logg, events)
	server := NewServer(ln, service, logg, opts.HTTP)
	signaler := NewStatusSignaler(statusPin, monitor, opts.Status.Interval)
	reporter := NewTripReporter(monitor, store, initAlertHandlers(opts.Alerts), logg, events)

	cfg := store.Snapshot()
	logg.Info("FreakyEStops initialized",
		zap.String("estop_pin", opts.GPIO.EStopPin),
		zap.String("status_pin", opts.GPIO.StatusPin),
		zap.String("alliance_color", string(cfg.AllianceColor)),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return watchEStop(gctx, estopPin, monitor, opts.GPIO.EdgePoll) })
	g.Go(func() error { return signaler.Run(gctx) })
	g.Go(func() error { return reporter.Run(gctx) })
	g.Go(func() error { return server.Serve(gctx) })
	err = g.Wait()
	logg.Info("Shutting down", zap.String("estop_state", string(monitor.State())))
	return err
}
