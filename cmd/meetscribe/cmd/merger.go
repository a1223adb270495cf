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

var mergerCmd = &cobra.Command{
	Use:   "merger",
	Short: "Run the transcript merge worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup("merger")
		if err != nil {
			return err
		}

		base, err := container.NewBase(cfg, log)
		if err != nil {
			return err
		}
		defer base.Close()

		mg := base.NewMerger()

		ctx, stop := signalContext()
		defer stop()

		runner := &worker.Runner{
			Broker:      base.Broker,
			Queue:       broker.QueueMerge,
			ConsumerTag: "merger",
			MaxRetries:  cfg.Pipeline.MaxRetries,
			RetryDelay:  time.Duration(cfg.Pipeline.RetryDelaySeconds) * time.Second,
			MaxTasks:    cfg.Pipeline.MaxTasksPerChild,
			Log:         log,
			Handler: func(ctx context.Context, delivery amqp.Delivery) error {
				var msg broker.MergeMessage
				if err := json.Unmarshal(delivery.Body, &msg); err != nil {
					log.WithError(err).Error().Msg("malformed merge message")
					return nil
				}
				return mg.Run(ctx, msg)
			},
		}

		log.Info().Str("queue", broker.QueueMerge).Msg("merger worker started")
		return ignoreCancel(runner.Run(ctx))
	},
}

func init() {
	rootCmd.AddCommand(mergerCmd)
}
