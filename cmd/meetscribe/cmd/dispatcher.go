package cmd

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"
	"github.com/streadway/amqp"

	"meetscribe/internal/broker"
	"meetscribe/internal/container"
	"meetscribe/internal/worker"
)

var dispatcherCmd = &cobra.Command{
	Use:   "dispatcher",
	Short: "Run the start-transcribe worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup("dispatcher")
		if err != nil {
			return err
		}

		base, err := container.NewBase(cfg, log)
		if err != nil {
			return err
		}
		defer base.Close()

		ctx, stop := signalContext()
		defer stop()

		d, err := base.NewDispatcher(ctx)
		if err != nil {
			return err
		}

		runner := &worker.Runner{
			Broker:      base.Broker,
			Queue:       broker.QueueDispatch,
			ConsumerTag: "dispatcher",
			MaxRetries:  cfg.Pipeline.MaxRetries,
			RetryDelay:  60 * time.Second,
			MaxTasks:    cfg.Pipeline.MaxTasksPerChild,
			Log:         log,
			Handler: func(ctx context.Context, delivery amqp.Delivery) error {
				var msg broker.StartTranscribeMessage
				if err := json.Unmarshal(delivery.Body, &msg); err != nil {
					log.WithError(err).Error().Msg("malformed start message")
					return nil
				}
				_, err := d.Run(ctx, msg)
				return err
			},
		}

		log.Info().Str("queue", broker.QueueDispatch).Msg("dispatcher worker started")
		return ignoreCancel(runner.Run(ctx))
	},
}

func init() {
	rootCmd.AddCommand(dispatcherCmd)
}

// ignoreCancel maps a clean shutdown to a zero exit.
func ignoreCancel(err error) error {
	if err == context.Canceled {
		return nil
	}
	return err
}
