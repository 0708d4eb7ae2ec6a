package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tutorui/internal/genui"
)

func (c *cli) eventCmd() *cobra.Command {
	var (
		componentType string
		action        string
		data          string
	)
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Run an interaction event through the acknowledgement rules",
		Long:  "Prints the acknowledgement as JSON, or null when no rule matches.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ev := genui.InteractionEvent{
				ComponentType: componentType,
				Action:        action,
				Timestamp:     float64(time.Now().UnixMilli()),
			}
			if data != "" {
				if err := json.Unmarshal([]byte(data), &ev.Data); err != nil {
					return fmt.Errorf("invalid --data: %w", err)
				}
			}
			orch, err := genui.New(nil, genui.WithLogger(c.log()))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), orch.ProcessInteractionEvent(ev, genui.RequestContext{UserID: "cli"}))
		},
	}
	cmd.Flags().StringVar(&componentType, "type", "", "component type that emitted the event")
	cmd.Flags().StringVar(&action, "action", "", "event action, e.g. slider_change")
	cmd.Flags().StringVar(&data, "data", "", "event data as a JSON object")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("action")
	return cmd
}

func (c *cli) schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the page JSON schema the model is prompted with",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := c.catalog()
			if err != nil {
				return err
			}
			raw, err := genui.PageSchemaJSON(catalog)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return err
		},
	}
}
