package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/newtron-network/saimeta/pkg/cli"
	"github.com/newtron-network/saimeta/pkg/sai"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print switch notifications as they are processed",
	Long: `Warm start from the switch, subscribe to its notifications and print each
one after the metadata layer has applied it, until interrupted.

Examples:
  saimeta watch
  saimeta watch --interval 30s`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if dumpFile != "" {
			return fmt.Errorf("watch needs a live switch; --dump is not supported")
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		events := make(chan watchEvent, 64)
		sess, err := openSession(ctx, "", func(n sai.Notification, err error) {
			ev := watchEvent{Time: time.Now(), Kind: n.Kind().String(), Switch: n.SwitchID().String()}
			if err != nil {
				ev.Error = err.Error()
			}
			select {
			case events <- ev:
			default:
			}
		})
		if err != nil {
			return err
		}
		defer sess.Close()
		fmt.Fprintf(os.Stderr, "watching %s, interrupt to stop\n", redisAddr)

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case ev := <-events:
					printWatchEvent(ev)
				}
			}
		})
		if watchInterval > 0 {
			g.Go(func() error {
				tick := time.NewTicker(watchInterval)
				defer tick.Stop()
				for {
					select {
					case <-ctx.Done():
						return nil
					case <-tick.C:
						total := 0
						for _, n := range sess.client.ObjectCounts() {
							total += n
						}
						fmt.Fprintf(os.Stderr, "%s %d objects, %d notifications queued\n",
							cli.Dim(time.Now().Format(time.TimeOnly)), total, sess.client.Notifications().Len())
					}
				}
			})
		}
		return g.Wait()
	},
}

type watchEvent struct {
	Time   time.Time `json:"time"`
	Kind   string    `json:"kind"`
	Switch string    `json:"switch"`
	Error  string    `json:"error,omitempty"`
}

func printWatchEvent(ev watchEvent) {
	if jsonOutput {
		json.NewEncoder(os.Stdout).Encode(ev)
		return
	}
	status := cli.Green("ok")
	if ev.Error != "" {
		status = cli.Red(ev.Error)
	}
	fmt.Printf("%s  %-26s %s  %s\n", ev.Time.Format(time.TimeOnly), ev.Kind, ev.Switch, status)
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Print an object count summary at this interval")
}
