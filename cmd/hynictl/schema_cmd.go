package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hynigo/hyni"
	"github.com/hynigo/hyni/schema"
)

func newSchemaCmd() *cobra.Command {
	var schemaDir string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect provider wire-contract schemas",
	}
	cmd.PersistentFlags().StringVar(&schemaDir, "dir", "", "additional directory of schema files to register")

	cmd.AddCommand(newSchemaListCmd(&schemaDir))
	cmd.AddCommand(newSchemaValidateCmd(&schemaDir))
	cmd.AddCommand(newSchemaDryRunCmd(&schemaDir))
	return cmd
}

func registryFor(schemaDir string) *schema.Registry {
	reg := schema.NewRegistry()
	if schemaDir != "" {
		reg.SetDirectory(schemaDir)
	}
	return reg
}

func newSchemaListCmd(schemaDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every provider name the registry can load",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := registryFor(*schemaDir)
			for _, name := range reg.ListProviders() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newSchemaValidateCmd(schemaDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <provider>",
		Short: "Load and report on one provider's schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := registryFor(*schemaDir)
			doc, err := reg.Load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "provider:         %s (%s)\n", doc.Provider.Name, doc.Provider.DisplayName)
			fmt.Fprintf(out, "endpoint:         %s %s\n", doc.API.Method, doc.API.Endpoint)
			fmt.Fprintf(out, "streaming:        %v\n", doc.Features.Streaming)
			fmt.Fprintf(out, "multimodal:       %v\n", doc.Multimodal.Supported)
			fmt.Fprintf(out, "system message:   %v\n", doc.SystemMessage.Supported)
			fmt.Fprintf(out, "message roles:    %v\n", doc.MessageRoles)
			fmt.Fprintf(out, "known models:     %d\n", len(doc.Models.Available))
			fmt.Fprintf(out, "parameters:       %d\n", len(doc.Parameters))
			fmt.Fprintln(out, "ok")
			return nil
		},
	}
}

func newSchemaDryRunCmd(schemaDir *string) *cobra.Command {
	var (
		model   string
		system  string
		message string
	)
	cmd := &cobra.Command{
		Use:   "dry-run <provider>",
		Short: "Print the request body a schema would build for one message, without sending it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := registryFor(*schemaDir)
			doc, err := reg.Load(args[0])
			if err != nil {
				return err
			}
			ctx, err := hyni.NewContext(doc, hyni.NewContextConfig())
			if err != nil {
				return err
			}
			if model != "" {
				if _, err := ctx.SetModel(model); err != nil {
					return err
				}
			}
			if system != "" {
				if _, err := ctx.SetSystemMessage(system); err != nil {
					return err
				}
			}
			if _, err := ctx.AddUserMessage(message, "", ""); err != nil {
				return err
			}

			body, err := ctx.BuildRequest(false)
			if err != nil {
				return err
			}
			var pretty map[string]interface{}
			if err := json.Unmarshal(body, &pretty); err != nil {
				return fmt.Errorf("decode built request: %w", err)
			}
			encoded, err := json.MarshalIndent(pretty, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
			return nil
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "model to select before building the request")
	cmd.Flags().StringVar(&system, "system", "", "system message to set before building the request")
	cmd.Flags().StringVar(&message, "message", "hello", "user message text to build a request for")
	return cmd
}
