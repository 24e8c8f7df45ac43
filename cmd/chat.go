package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, st, err := openQueryPipeline()
		if err != nil {
			return err
		}
		defer st.Close()

		scanner := bufio.NewScanner(os.Stdin)

		fmt.Println("medibot chat (type /exit to quit)")
		fmt.Println()

		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			question := strings.TrimSpace(scanner.Text())
			if question == "" {
				continue
			}

			switch question {
			case "/exit", "/quit":
				fmt.Println("Goodbye.")
				return nil
			case "/help":
				fmt.Println("Commands:")
				fmt.Println("  /exit  - quit chat")
				fmt.Println("  /help  - show this help")
				continue
			}

			// Each question is independent; a failed one doesn't end
			// the session.
			ans, err := pipeline.AnswerQuestion(cmd.Context(), question)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}

			fmt.Println()
			printAnswer(ans)
			fmt.Println()
		}

		return scanner.Err()
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
