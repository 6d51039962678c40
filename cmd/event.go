package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/household-ledger/internal/messaging"
	"github.com/frahmantamala/household-ledger/pkg/logger"
)

var eventCmd = &cobra.Command{
	Use:   "events",
	Short: "Event management commands",
	Long:  `Inspect the change notifications exchanged between server instances.`,
}

var tailUser string

var tailEventCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print change notifications from the broker",
	Long:  `Bind a private queue to the change exchange and print every notification until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return tailEvents(cmd.Context())
	},
}

func tailEvents(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	if !cfg.Messaging.Enabled {
		return fmt.Errorf("messaging is disabled; set messaging.enabled")
	}

	lg := logger.LoggerWrapper()
	client, err := messaging.NewClient(cfg.Messaging.AMQPURL, cfg.Messaging.Exchange)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lg.Info("tailing change notifications", "exchange", cfg.Messaging.Exchange)
	err = client.Consume(ctx, func(msg *messaging.ChangeMessage) error {
		if tailUser != "" && msg.UserID != tailUser {
			return nil
		}
		fmt.Printf("%s %-22s user=%s origin=%s id=%s\n",
			msg.Timestamp.Format("15:04:05.000"), msg.Type, msg.UserID, msg.Origin, msg.ID)
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func init() {
	tailEventCmd.Flags().StringVarP(&tailUser, "user", "u", "", "only print notifications for this user id")

	eventCmd.AddCommand(tailEventCmd)
	rootCmd.AddCommand(eventCmd)
}
