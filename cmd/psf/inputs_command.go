package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"psfd/internal/api"
)

func newInputsCommand(ctx *commandContext) *cobra.Command {
	inputsCmd := &cobra.Command{
		Use:   "inputs",
		Short: "Read and write value-proposition inputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var fields api.CVPFields
	setCmd := &cobra.Command{
		Use:   "set <session-id>",
		Short: "Save value-proposition fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.client()
			if err != nil {
				return err
			}
			current, err := c.GetInputs(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			merged := mergeInputs(*current, fields, cmd)
			if _, err := c.SaveInputs(cmd.Context(), args[0], merged); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "inputs saved")
			return nil
		},
	}
	setCmd.Flags().StringVar(&fields.ForWho, "for-who", "", "Who the offer is for")
	setCmd.Flags().StringVar(&fields.InSituation, "in-situation", "", "The triggering situation")
	setCmd.Flags().StringVar(&fields.StrugglesWith, "struggles-with", "", "The struggle being solved")
	setCmd.Flags().StringVar(&fields.CurrentWorkaround, "current-workaround", "", "What they do today")
	setCmd.Flags().StringVar(&fields.WeOffer, "we-offer", "", "The offer")
	setCmd.Flags().StringVar(&fields.SoTheyGet, "so-they-get", "", "The outcome")
	setCmd.Flags().StringVar(&fields.Unlike, "unlike", "", "The alternative being displaced")
	setCmd.Flags().StringVar(&fields.Because, "because", "", "Why the claim is credible")
	inputsCmd.AddCommand(setCmd)

	inputsCmd.AddCommand(&cobra.Command{
		Use:   "show <session-id>",
		Short: "Show saved value-proposition fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.client()
			if err != nil {
				return err
			}
			saved, err := c.GetInputs(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rows := [][]string{
				{"for who", saved.ForWho},
				{"in situation", saved.InSituation},
				{"struggles with", saved.StrugglesWith},
				{"current workaround", saved.CurrentWorkaround},
				{"we offer", saved.WeOffer},
				{"so they get", saved.SoTheyGet},
				{"unlike", saved.Unlike},
				{"because", saved.Because},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"FIELD", "VALUE"}, rows))
			return nil
		},
	})

	return inputsCmd
}

// mergeInputs overlays only the flags the user actually set, so a
// partial `inputs set` never blanks the other fields.
func mergeInputs(current, updates api.CVPFields, cmd *cobra.Command) api.CVPFields {
	merged := current
	if cmd.Flags().Changed("for-who") {
		merged.ForWho = updates.ForWho
	}
	if cmd.Flags().Changed("in-situation") {
		merged.InSituation = updates.InSituation
	}
	if cmd.Flags().Changed("struggles-with") {
		merged.StrugglesWith = updates.StrugglesWith
	}
	if cmd.Flags().Changed("current-workaround") {
		merged.CurrentWorkaround = updates.CurrentWorkaround
	}
	if cmd.Flags().Changed("we-offer") {
		merged.WeOffer = updates.WeOffer
	}
	if cmd.Flags().Changed("so-they-get") {
		merged.SoTheyGet = updates.SoTheyGet
	}
	if cmd.Flags().Changed("unlike") {
		merged.Unlike = updates.Unlike
	}
	if cmd.Flags().Changed("because") {
		merged.Because = updates.Because
	}
	return merged
}
