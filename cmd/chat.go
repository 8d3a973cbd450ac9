package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/insightdb-cli/internal/docs"
)

var chatCmd = &cobra.Command{
	Use:   "chat <dir> <question...>",
	Short: "Ask a question about the dataset",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(nil)
		if err != nil {
			return err
		}
		snap, err := a.load(cmd.Context(), args[:1])
		if err != nil {
			return err
		}
		question := strings.TrimSpace(strings.Join(args[1:], " "))
		if question == "" {
			return errors.New("question is empty")
		}

		cc := docs.ChatContext{Schemas: snap.Schemas, TrustScores: snap.TrustScores()}
		if a.runtime != nil {
			if ov, err := a.gen.Overview(cmd.Context(), snap.Schemas); err == nil {
				cc.Overview = &ov
			}
		}
		answer, err := a.gen.Chat(cmd.Context(), question, cc)
		a.warnFallback(cmd.ErrOrStderr(), err)
		fmt.Fprintln(cmd.OutOrStdout(), answer)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
