package main

import (
	"fmt"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"wires/internal/platform/config"
	"wires/internal/platform/kafka/admin"
	"wires/internal/platform/kafka/producer"
)

func newTopicsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topics {ensure}",
		Short: "Manage the topics the wire service reads and writes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newTopicsEnsureCommand())
	return cmd
}

func newTopicsEnsureCommand() *cobra.Command {
	cfg := config.FromEnv().Kafka

	cmd := &cobra.Command{
		Use:   "ensure [TOPIC...]",
		Short: "Create missing topics; defaults to every configured topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			topics := args
			if len(topics) == 0 {
				topics = cfg.Topics.All()
			}
			return ensureTopics(cmd, cfg, topics)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&cfg.Brokers, "brokers", cfg.Brokers, "seed brokers")
	flags.Int32Var(&cfg.Partitions, "partitions", cfg.Partitions, "partitions for new topics")
	flags.Int16Var(&cfg.ReplicationFactor, "replication", cfg.ReplicationFactor, "replication factor for new topics")
	return cmd
}

func ensureTopics(cmd *cobra.Command, cfg config.KafkaConfig, topics []string) error {
	tlsConfig, err := cfg.TLS.Build()
	if err != nil {
		return fmt.Errorf("kafka tls: %w", err)
	}
	p, err := producer.New(cfg.Brokers, cfg.ClientID+"-ctl", producer.WithTLS(tlsConfig))
	if err != nil {
		return err
	}
	defer p.Close()

	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
	spec := admin.TopicSpec{Partitions: cfg.Partitions, ReplicationFactor: cfg.ReplicationFactor}
	created, err := admin.EnsureTopics(cmd.Context(), p.Client(), spec, log, topics...)
	if err != nil {
		return fmt.Errorf("ensure topics: %w", err)
	}

	out := cmd.OutOrStdout()
	made := make(map[string]bool, len(created))
	for _, t := range created {
		made[t] = true
	}
	for _, t := range topics {
		if made[t] {
			color.New(color.FgGreen).Fprintf(out, "created %s\n", t)
		} else {
			fmt.Fprintf(out, "exists  %s\n", t)
		}
	}
	return nil
}
