package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openlands/caselens/internal/infrastructure/messaging/kafka"
)

// NewRefreshCmd creates the refresh command, which publishes a corpus
// refresh request so running API servers reload their snapshots.
func NewRefreshCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Request a corpus snapshot refresh on running API servers",
		Long:  "Publish a corpus refresh event.  Every API server consuming the topic\nrebuilds its snapshot from the named datasets (or its configured default\nset when --datasets is omitted).",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRefresh(cmd, opts)
		},
	}
}

func runRefresh(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger, err := newLogger(opts)
	if err != nil {
		return err
	}

	producer, err := kafka.NewProducer(cfg.Kafka, "cli", logger)
	if err != nil {
		return err
	}
	defer producer.Close()

	err = producer.PublishCorpusRefresh(cmd.Context(), kafka.CorpusRefreshRequestedPayload{
		Datasets:    opts.Datasets,
		RequestedBy: "cli",
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	if len(opts.Datasets) > 0 {
		fmt.Printf("refresh requested for datasets %v\n", opts.Datasets)
	} else {
		fmt.Println("refresh requested for the configured default datasets")
	}
	return nil
}
