package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/insightdb-cli/internal/docs"
	"github.com/KaramelBytes/insightdb-cli/internal/policy"
	"github.com/KaramelBytes/insightdb-cli/internal/quality"
	"github.com/KaramelBytes/insightdb-cli/internal/schema"
	"github.com/KaramelBytes/insightdb-cli/internal/utils"
)

var (
	profPolicyFile string
	profAIPolicy   bool
	profJSON       bool
	profOutput     string
	profSave       string
)

// profileResult is the JSON form of a profile run.
type profileResult struct {
	Summary quality.Summary                `json:"summary"`
	Schemas map[string]*schema.TableSchema `json:"schemas"`
	Metrics map[string]*quality.Metrics    `json:"metrics"`
	Policy  policy.Policy                  `json:"policy"`
}

var profileCmd = &cobra.Command{
	Use:   "profile <dir> [more dirs...]",
	Short: "Load tables, infer schema and score data quality",
	Long: `Loads every CSV/TSV file in <dir> as a table and prints schema, quality
metrics and trust scores. Extra directories are appended; tables with the
same name replace earlier ones.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if profPolicyFile != "" && profAIPolicy {
			return fmt.Errorf("--policy and --ai-policy are mutually exclusive")
		}
		pol, err := policyFromFlags(profPolicyFile, profAIPolicy)
		if err != nil {
			return err
		}
		a, err := newApp(pol)
		if err != nil {
			return err
		}
		snap, err := a.load(cmd.Context(), args)
		if err != nil {
			return err
		}

		if profSave != "" {
			if err := snap.Save(profSave); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Snapshot saved to %s\n", profSave)
		}

		asJSON := profJSON || strings.EqualFold(filepath.Ext(profOutput), ".json")
		var out string
		if asJSON {
			b, err := utils.PrettyJSON(profileResult{
				Summary: snap.Summary(),
				Schemas: snap.Schemas,
				Metrics: snap.Metrics,
				Policy:  snap.Policy,
			})
			if err != nil {
				return err
			}
			out = string(b)
		} else {
			out = docs.RenderMarkdown(docs.Report{
				Summary: snap.Summary(),
				Schemas: snap.Schemas,
				Metrics: snap.Metrics,
			})
		}

		if profOutput != "" {
			if err := utils.SafeWriteFile(profOutput, []byte(out)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Report written to %s\n", profOutput)
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

// policyFromFlags picks the policy source. A named file must load; a model
// policy is resolved later and falls back to the default rules on failure.
func policyFromFlags(path string, useAI bool) (policy.Provider, error) {
	if path != "" {
		p, err := policy.LoadFile(path)
		if err != nil {
			return nil, err
		}
		return policy.Static(p), nil
	}
	if !useAI {
		return nil, nil
	}
	rt, model, err := buildRuntime()
	if err != nil {
		return nil, err
	}
	if rt == nil {
		return nil, fmt.Errorf("--ai-policy needs a model provider (set --provider)")
	}
	return policy.LLMProvider{Runtime: rt, Model: model, MaxTokens: cfg.MaxTokens}, nil
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().StringVar(&profPolicyFile, "policy", "", "validation policy file (.yaml or .json)")
	profileCmd.Flags().BoolVar(&profAIPolicy, "ai-policy", false, "infer a validation policy with the configured model")
	profileCmd.Flags().BoolVar(&profJSON, "json", false, "print JSON instead of the markdown report")
	profileCmd.Flags().StringVarP(&profOutput, "output", "o", "", "write the report to a file (.json implies --json)")
	profileCmd.Flags().StringVar(&profSave, "save", "", "save the analysis snapshot as JSON")
}
