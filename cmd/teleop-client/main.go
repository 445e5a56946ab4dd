package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/open-teleop/mission-control/domain/teleop"
	"github.com/open-teleop/mission-control/pkg/client"
	customlog "github.com/open-teleop/mission-control/pkg/log"
)

func main() {
	var (
		server   = pflag.StringP("server", "s", "http://localhost:8080", "mission control base URL")
		robotID  = pflag.StringP("robot", "r", "", "id of the robot to drive (required)")
		repeat   = pflag.Duration("repeat", teleop.DefaultRepeatInterval, "command repeat interval while an input is held")
		resync   = pflag.Duration("resync", 0, "periodic full-state resync interval, 0 disables")
		script   = pflag.String("script", "", `input script, e.g. "up:1s,w+d:500ms,pause:200ms"; reads steps from stdin when empty`)
		timeout  = pflag.Duration("timeout", client.DefaultRequestTimeout, "lookup and connect timeout")
		logLevel = pflag.String("log-level", "info", "log level (debug, info, warn, error)")
	)
	pflag.Parse()

	logger, err := customlog.NewLogrusLogger(*logLevel, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	if *robotID == "" {
		fmt.Fprintln(os.Stderr, "--robot is required")
		pflag.Usage()
		os.Exit(2)
	}

	var steps []Step
	if *script != "" {
		if steps, err = ParseScript(*script); err != nil {
			logger.Fatalf("Invalid --script: %v", err)
		}
	}

	dialer, err := client.NewControlDialer(*server, logger)
	if err != nil {
		logger.Fatalf("Invalid --server: %v", err)
	}

	session := teleop.NewSession(*robotID, client.NewRobotClient(*server, *timeout), dialer, teleop.Options{
		RepeatInterval: *repeat,
		ResyncInterval: *resync,
		Logger:         logger,
		OnUpdate: func(p teleop.Position) {
			logger.Infof("Position %d,%d", p.X, p.Y)
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, *timeout)
	err = session.Start(startCtx)
	cancel()
	if err != nil {
		logger.Fatalf("Failed to start session for robot %s: %v", *robotID, err)
	}
	device := session.Device()
	arena := session.Arena()
	logger.Infof("Driving %s (%s, %s) from %d,%d in arena x %d..%d, y %d..%d, step %d",
		device.ID, device.Name, device.Model, device.Position.X, device.Position.Y,
		arena.XMin, arena.XMax, arena.YMin, arena.YMax, arena.Step)

	// A remote close ends the run as well as a signal.
	runCtx, cancelRun := context.WithCancel(ctx)
	go func() {
		<-session.Done()
		cancelRun()
	}()

	if steps != nil {
		err = RunScript(runCtx, session, steps)
	} else {
		err = runStdin(runCtx, session, logger)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Errorf("Input stopped: %v", err)
	}

	if cerr := session.Close(); cerr != nil {
		logger.Warnf("Close: %v", cerr)
	}
	if serr := session.Err(); serr != nil {
		logger.Warnf("Session ended: %v", serr)
	}
	st := session.Stats()
	pos := session.Position()
	logger.Infof("Final position %d,%d (sent=%d dropped=%d received=%d stale=%d corrections=%d)",
		pos.X, pos.Y, st.Sent, st.Dropped, st.Received, st.Stale, st.Corrections)
	cancelRun()
}

// runStdin plays one script per input line until EOF or ctx ends.
func runStdin(ctx context.Context, drv Driver, logger customlog.Logger) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	logger.Infof(`Reading steps from stdin, e.g. "up:500ms" or "w+d:1s"`)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			steps, err := ParseScript(line)
			if err != nil {
				logger.Warnf("Skipping line: %v", err)
				continue
			}
			if err := RunScript(ctx, drv, steps); err != nil {
				return err
			}
		}
	}
}
