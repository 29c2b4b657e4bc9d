package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Because66666/CanLiang/internal/signaling"
)

var hostsTimeout time.Duration

var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "List streamers registered with the signaling server",
	Args:  cobra.NoArgs,
	RunE:  runHosts,
}

func init() {
	hostsCmd.Flags().DurationVar(&hostsTimeout, "timeout", 5*time.Second, "how long to wait for the list")
	rootCmd.AddCommand(hostsCmd)
}

func runHosts(cmd *cobra.Command, _ []string) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !conf.Signaling.IsEnabled() {
		return errors.New("--signaling is required")
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), hostsTimeout)
	defer cancel()

	list := make(chan []signaling.HostInfo, 1)
	var client *signaling.Client
	client = signaling.NewClient(conf.Signaling.URL, conf.Signaling.ID, signaling.ClientTypeViewer, signaling.Handler{
		OnRegistered: func() { _ = client.RequestHostList() },
		OnHostsUpdated: func(hosts []signaling.HostInfo) {
			select {
			case list <- hosts:
			default:
			}
		},
	}, newLogger(conf))
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	select {
	case hosts := <-list:
		out := cmd.OutOrStdout()
		for _, h := range hosts {
			state := "offline"
			if h.Online {
				state = "online"
			}
			fmt.Fprintf(out, "%s\t%s\n", h.ID, state)
		}
		fmt.Fprintf(out, "found %d hosts\n", len(hosts))
		return nil
	case <-client.Done():
		return errors.New("signaling connection closed")
	case <-ctx.Done():
		return fmt.Errorf("no host list: %w", ctx.Err())
	}
}
