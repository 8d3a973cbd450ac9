package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/insightdb-cli/internal/policy"
)

var polOutput string

var policyCmd = &cobra.Command{
	Use:   "policy <dir>",
	Short: "Infer a validation policy with the configured model and save it for review",
	Long: `Asks the configured model for per-column rules (sign, range, pattern and
ordering) and writes them as YAML or JSON. Pass the file to
'insightdb profile --policy' to apply it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(nil)
		if err != nil {
			return err
		}
		if a.runtime == nil {
			return fmt.Errorf("policy inference needs a model provider (set --provider)")
		}
		snap, err := a.load(cmd.Context(), args)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if cfg.PolicyTimeoutSec > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.PolicyTimeoutSec)*time.Second)
			defer cancel()
		}
		prov := policy.LLMProvider{Runtime: a.runtime, Model: a.model, MaxTokens: cfg.MaxTokens}
		pol, err := prov.Provide(ctx, snap.Schemas)
		if err != nil {
			return fmt.Errorf("%s: %w", a.modelHint(err), err)
		}
		if err := policy.Save(polOutput, pol); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d column rules for %d tables to %s\n", pol.RuleCount(), len(pol), polOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.Flags().StringVarP(&polOutput, "output", "o", "policy.yaml", "output file (.yaml or .json)")
}
