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

var summarizerCmd = &cobra.Command{
	Use:   "summarizer",
	Short: "Run the summarize worker and its key-notes/tasks consumers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup("summarizer")
		if err != nil {
			return err
		}

		base, err := container.NewBase(cfg, log)
		if err != nil {
			return err
		}
		defer base.Close()

		s, err := base.NewSummarizer()
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		newRunner := func(queue, tag string, handler worker.Handler) *worker.Runner {
			return &worker.Runner{
				Broker:      base.Broker,
				Queue:       queue,
				ConsumerTag: tag,
				MaxRetries:  cfg.Pipeline.MaxRetries,
				RetryDelay:  time.Duration(cfg.Pipeline.RetryDelaySeconds) * time.Second,
				MaxTasks:    cfg.Pipeline.MaxTasksPerChild,
				Log:         log.WithField("queue", queue),
				Handler:     handler,
			}
		}

		runners := []*worker.Runner{
			newRunner(broker.QueueSummarize, "summarizer", func(ctx context.Context, d amqp.Delivery) error {
				var msg broker.SummarizeMessage
				if err := json.Unmarshal(d.Body, &msg); err != nil {
					log.WithError(err).Error().Msg("malformed summarize message")
					return nil
				}
				return s.Summarize(ctx, msg)
			}),
			newRunner(broker.QueueKeyNotes, "summarizer-keynotes", func(ctx context.Context, d amqp.Delivery) error {
				var msg broker.KeyNotesMessage
				if err := json.Unmarshal(d.Body, &msg); err != nil {
					log.WithError(err).Error().Msg("malformed key-notes message")
					return nil
				}
				return s.ExtractKeyNotes(ctx, msg)
			}),
			newRunner(broker.QueueTasks, "summarizer-tasks", func(ctx context.Context, d amqp.Delivery) error {
				var msg broker.TasksMessage
				if err := json.Unmarshal(d.Body, &msg); err != nil {
					log.WithError(err).Error().Msg("malformed tasks message")
					return nil
				}
				return s.ExtractTasks(ctx, msg)
			}),
		}

		// One consume loop per queue; the first to stop takes the process
		// down so a recycle restarts all three together.
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		errCh := make(chan error, len(runners))
		for _, r := range runners {
			r := r
			go func() {
				errCh <- r.Run(runCtx)
				cancel()
			}()
		}

		log.Info().Msg("summarizer worker started")
		return ignoreCancel(<-errCh)
	},
}

func init() {
	rootCmd.AddCommand(summarizerCmd)
}
