package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/faoswatch/faoswatch/sender/internal/feed"
	"github.com/faoswatch/faoswatch/sender/internal/shipper"
)

type options struct {
	addr      string
	pass      feed.Pass
	quitAfter bool
	verbose   bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "faos-send",
		Short: "Send FAOS countdown packets to a faoswatch listener",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.addr, "addr", "127.0.0.1:9932", "listener host:port")
	f.StringVarP(&opts.pass.Name, "name", "n", "RS-44", "satellite name")
	f.Float64Var(&opts.pass.Azimuth, "az", 151.1, "starting azimuth in degrees")
	f.Float64Var(&opts.pass.Drift, "drift", 0, "azimuth change per packet in degrees")
	f.IntVar(&opts.pass.StartTTG, "start", 90, "starting time-to-go in seconds")
	f.DurationVar(&opts.pass.Step, "step", 2*time.Second, "countdown step and live pacing")
	f.IntVar(&opts.pass.Count, "count", 0, "packets to send (0 counts down to zero)")
	f.BoolVar(&opts.quitAfter, "quit-after", false, "send the quit sentinel after the schedule")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log every payload")

	root.AddCommand(
		newModeCmd(opts, feed.ModeLive, "Send a countdown paced in real time"),
		newModeCmd(opts, feed.ModeBurst, "Send the whole countdown at once, as a buffered burst"),
		newModeCmd(opts, feed.ModeQuit, "Send the remote quit sentinel"),
	)
	return root
}

func newModeCmd(opts *options, mode feed.Mode, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(mode),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pkts, err := feed.Schedule(opts.pass, mode)
			if err != nil {
				return err
			}
			if opts.quitAfter && mode != feed.ModeQuit {
				pkts = append(pkts, feed.Packet{Payload: feed.QuitPayload})
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return send(ctx, opts.addr, pkts)
		},
	}
}

// send ships pkts in order, honouring each packet's delay, and waits until
// the shipper has written everything. An interrupt stops it early without
// error.
func send(ctx context.Context, addr string, pkts []feed.Packet) error {
	shp := shipper.New(shipper.Options{Addr: addr, BufferSize: len(pkts) + 1})
	done := make(chan struct{})
	go func() {
		shp.Run(ctx)
		close(done)
	}()

	slog.Info("faos-send starting", "addr", addr, "packets", len(pkts))
	for _, pkt := range pkts {
		if pkt.Delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(pkt.Delay):
			}
		}
		if ctx.Err() != nil {
			break
		}
		shp.Ship(pkt.Payload)
	}
	shp.Close()
	<-done

	slog.Info("faos-send finished", "interrupted", ctx.Err() != nil)
	return nil
}
