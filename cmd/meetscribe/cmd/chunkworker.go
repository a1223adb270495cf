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

var chunkworkerCmd = &cobra.Command{
	Use:   "chunkworker",
	Short: "Run the per-chunk transcription worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup("chunkworker")
		if err != nil {
			return err
		}

		base, err := container.NewBase(cfg, log)
		if err != nil {
			return err
		}
		defer base.Close()

		w, err := base.NewChunkWorker()
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		runner := &worker.Runner{
			Broker:      base.Broker,
			Queue:       broker.QueueChunk,
			ConsumerTag: "chunkworker",
			MaxRetries:  cfg.Pipeline.MaxRetries,
			RetryDelay:  time.Duration(cfg.Pipeline.RetryDelaySeconds) * time.Second,
			MaxTasks:    cfg.Pipeline.MaxTasksPerChild,
			Log:         log,
			Handler: func(ctx context.Context, delivery amqp.Delivery) error {
				var msg broker.ChunkMessage
				if err := json.Unmarshal(delivery.Body, &msg); err != nil {
					log.WithError(err).Error().Msg("malformed chunk message")
					return nil
				}
				return w.Run(ctx, msg)
			},
		}

		log.Info().Str("queue", broker.QueueChunk).Msg("chunk worker started")
		return ignoreCancel(runner.Run(ctx))
	},
}

func init() {
	rootCmd.AddCommand(chunkworkerCmd)
}
