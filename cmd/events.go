/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/weatherlogger/apiserver/internal/mq"
)

// eventsCmd inspects the change events published by the server.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Work with series and measurement change events",
}

var eventsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print change events as they are published",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := setup()
		if cmd.Flags().Changed("only") {
			cfg.MQ.RabbitMQ.BindingKey = eventsOnly
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		broker, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		defer broker.Close()

		logger.WithField("backend", cfg.MQ.Backend).WithField("topic", cfg.MQ.Topic).Info("watching events")
		err = broker.Subscribe(ctx, cfg.MQ.Topic, logEvent(logger))
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

var eventsOnly string

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsWatchCmd)

	eventsWatchCmd.Flags().StringVar(&eventsOnly, "only", "#", `event type pattern to watch on rabbitmq, e.g. "measurement.*"`)
}

// logEvent acks undecodable messages after logging them so that they are not
// redelivered forever.
func logEvent(logger logrus.FieldLogger) mq.Handler {
	return func(ctx context.Context, msg mq.Message) error {
		ev, err := mq.DecodeEvent(msg)
		if err != nil {
			logger.WithError(err).WithField("message_id", msg.ID).Warn("undecodable event")
			return nil
		}
		entry := logger.WithField("message_id", msg.ID).
			WithField("type", ev.Type).
			WithField("occurred_at", ev.OccurredAt)
		if ev.SeriesID != 0 {
			entry = entry.WithField("series_id", ev.SeriesID)
		}
		if ev.MeasurementID != 0 {
			entry = entry.WithField("measurement_id", ev.MeasurementID)
		}
		entry.Info("event")
		return nil
	}
}
