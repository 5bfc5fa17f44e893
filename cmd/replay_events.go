package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/newhorizons/case-service/internal/database"
	"github.com/newhorizons/case-service/internal/events"
	"github.com/newhorizons/case-service/internal/notify"
	"github.com/newhorizons/case-service/internal/service"
	"github.com/newhorizons/case-service/internal/workflow"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var replayEventsCmd = &cobra.Command{
	Use:   "replay-events",
	Short: "Publish ticket.updated for every ticket so consumers can rebuild their state. Requires KAFKA_BROKERS.",
	RunE:  runReplayEvents,
}

func runReplayEvents(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if len(cfg.KafkaBrokers) == 0 || cfg.KafkaTopicCases == "" {
		return errors.New("replay-events: KAFKA_BROKERS and KAFKA_TOPIC_CASES must be set")
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	producer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicCases, log)
	notifier := notify.NewNotifier(notify.LogMailer{Log: log}, cfg.ClientURL, log)
	tickets := service.NewTicketService(db, workflow.Default(), notifier, producer, service.NewAuditService(db, log), log)

	sent, failed, err := tickets.Republish(ctx, func(done int) {
		log.Info("replay-events: progress", zap.Int("processed", done))
	})
	if cerr := producer.Close(); cerr != nil {
		log.Warn("replay-events: close producer", zap.Error(cerr))
	}
	log.Info("replay-events: finished",
		zap.Int("sent", sent), zap.Int("failed", failed), zap.String("topic", cfg.KafkaTopicCases))
	if err != nil {
		return fmt.Errorf("replay-events: %w", err)
	}
	return nil
}
