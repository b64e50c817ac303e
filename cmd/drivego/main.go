package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/cjeanneret/DriveGo/internal/config"
	"github.com/cjeanneret/DriveGo/internal/debug"
	"github.com/cjeanneret/DriveGo/internal/hw/gpio"
	"github.com/cjeanneret/DriveGo/internal/logic/motion"
	"github.com/cjeanneret/DriveGo/internal/web"
)

// telemetryEvery is the SSE telemetry decimation: one sample in five.
const telemetryEvery = 5

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start web server on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	pathsDir := flag.String("paths", "paths", "directory holding <name>.wpilib.json trajectories")
	routine := flag.String("routine", web.RoutineStraight, "routine to run: straight, path, align or manual")
	pathName := flag.String("path", "", "trajectory name for -routine path")
	distanceM := flag.Float64("distance_m", 0, "straight routine distance in meters, negative drives backwards (0 = -4)")
	runForever := flag.Bool("run_forever", false, "keep aligning after the target is settled")
	timeout := flag.Duration("timeout", 0, "step timeout, 0 for none")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := config.ValidateConfigPath(*cfgPath); err != nil {
		log.Fatalf("invalid config path: %v", err)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", debug.Level())
	debug.PrintStruct("Drivetrain config", cfg.Drivetrain)
	debug.PrintStruct("Vision config", cfg.Vision)

	debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)
	debug.Step(1, "Initializing GPIO driver")
	gpioDriver, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
	if err != nil {
		log.Fatalf("init GPIO failed: %v", err)
	}
	defer func() {
		if err := gpioDriver.Close(); err != nil {
			log.Printf("closing GPIO driver failed: %v", err)
		}
	}()

	if port := webPort.port(); port > 0 {
		debug.Step(2, "Initializing simulated drivetrain (live pacing)")
		bot, err := newRobot(cfg, gpioDriver, *pathsDir, func(p motion.Plant) motion.Clock {
			return &motion.WallSimClock{Real: motion.RealClock{Period: cfg.ControlPeriod()}, Plant: p}
		})
		if err != nil {
			log.Fatalf("init drive failed: %v", err)
		}

		broadcaster := web.NewStatusBroadcaster()
		debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))
		telemetry := web.NewTelemetry(broadcaster, telemetryEvery)
		bot.record(telemetry)

		run := func(ctx context.Context, runID string, req web.RunRequest) error {
			debug.Section("Run " + runID)
			results, err := bot.run(ctx, req)
			summarize(results)
			return err
		}
		srv := web.NewServer(fmt.Sprintf(":%d", port), broadcaster, web.Options{
			Run:       run,
			Defaults:  cfg,
			Stick:     bot.stick,
			Telemetry: telemetry,
		})
		if err := srv.Run(ctx); err != nil {
			log.Fatalf("web server: %v", err)
		}
		return
	}

	req := web.RunRequest{
		Routine:    *routine,
		Path:       *pathName,
		DistanceM:  *distanceM,
		TimeoutSec: timeout.Seconds(),
	}
	if flagSet("run_forever") {
		req.RunForever = runForever
	}
	if err := validateCLIRun(cfg, req); err != nil {
		log.Fatalf("invalid run: %v", err)
	}

	debug.Step(2, "Initializing simulated drivetrain")
	bot, err := newRobot(cfg, gpioDriver, *pathsDir, func(p motion.Plant) motion.Clock {
		return &motion.SimClock{Period: cfg.ControlPeriod(), Plant: p}
	})
	if err != nil {
		log.Fatalf("init drive failed: %v", err)
	}

	debug.Section("Running " + req.Routine)
	start := time.Now()
	results, err := bot.run(ctx, req)
	summarize(results)
	if err != nil {
		log.Fatalf("run failed: %v", err)
	}
	final := bot.odo.Pose()
	fmt.Printf("final pose: x=%.3f m y=%.3f m heading=%.1f deg (%d steps in %v)\n",
		final.X(), final.Y(), final.HeadingDeg(), len(results), time.Since(start).Round(time.Millisecond))
}

// validateCLIRun checks req and rejects routines that could never end on
// the instant simulated clock.
func validateCLIRun(cfg *config.Config, req web.RunRequest) error {
	if err := web.ValidateRequest(req); err != nil {
		return err
	}
	if endless(cfg, req) && req.TimeoutSec == 0 {
		return errors.New("routine " + req.Routine + " never finishes on its own; set -timeout")
	}
	return nil
}

// flagSet reports whether the named flag was given on the command line.
func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
