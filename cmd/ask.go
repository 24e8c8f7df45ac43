package cmd

import (
	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question against the ingested corpus",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, st, err := openQueryPipeline()
		if err != nil {
			return err
		}
		defer st.Close()

		ans, err := pipeline.AnswerQuestion(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		printAnswer(ans)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
