package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/lyraio/lyra/internal/config"
	"github.com/lyraio/lyra/internal/trigger"
)

func dispatchCmd() *cobra.Command {
	var (
		collection string
		id         string
		file       string
	)

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Process one event document synchronously",
		Long: `Decode a sos_alerts or tracking_events document from a YAML or JSON file and
run it through the dispatcher against the configured store and sender.
The delivery log is written as for any other trigger.`,
		Example: `  lyra-notify dispatch --collection sos_alerts --id a1 -f alert.yaml
  lyra-notify dispatch --collection tracking_events --id t1 -f start.json --sender log -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read event file: %w", err)
			}
			doc := map[string]interface{}{}
			if err := yaml.Unmarshal(data, &doc); err != nil {
				return fmt.Errorf("failed to parse event file: %w", err)
			}
			ev, err := trigger.Decode(collection, id, doc)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Log)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer logger.Sync()

			ctx := cmd.Context()
			st, err := newStoreFunc(ctx, cfg.Store)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer st.Close()

			sender, err := newSenderFunc(ctx, cfg.Sender, logger)
			if err != nil {
				return fmt.Errorf("failed to create sender: %w", err)
			}

			out := newDispatcher(cfg, st, sender, logger).Dispatch(ctx, ev)
			return outputResult(cmd.OutOrStdout(), newDispatchResult(out), outputFmt)
		},
	}

	cmd.Flags().StringVar(&collection, "collection", "", "Trigger collection: sos_alerts, tracking_events")
	cmd.Flags().StringVar(&id, "id", "", "Event document id")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the event document (YAML or JSON)")
	cmd.Flags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json, yaml")
	cmd.Flags().String("store", config.StoreMemory, "Store backend: memory, firestore, sql")
	cmd.Flags().String("sender", config.SenderLog, "Sender backend: log, fcm, http")
	_ = cmd.MarkFlagRequired("collection")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
