package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/person-search/internal/model"
)

var answerCmd = &cobra.Command{
	Use:   "answer <person-id>",
	Short: "Generate (or print the stored) biography for a person",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		p, err := env.Answers.Generate(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "answer")
		}
		return printJSON(newAnswerResponse(p))
	},
}

var followupCmd = &cobra.Command{
	Use:   "followup <person-id> <question>",
	Short: "Ask a follow-up question about a stored person",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		if env.Followup == nil {
			return eris.New("followup: openai.key is not configured")
		}
		res, err := env.Followup.Ask(ctx, args[0], strings.Join(args[1:], " "))
		if err != nil {
			return eris.Wrap(err, "followup")
		}
		return printJSON(res)
	},
}

var chatHistory bool

var chatCmd = &cobra.Command{
	Use:   "chat <person-id> [message...]",
	Short: "Continue the stored chat about a person",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !chatHistory && len(args) < 2 {
			return eris.New("chat: message is required unless --history is set")
		}
		ctx := cmd.Context()
		env, err := initEnv(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		if env.Followup == nil {
			return eris.New("chat: openai.key is not configured")
		}
		if chatHistory {
			c, err := env.Followup.History(ctx, args[0])
			if err != nil {
				return eris.Wrap(err, "chat")
			}
			return printJSON(c)
		}
		res, err := env.Followup.Chat(ctx, args[0], []model.ChatMessage{
			{Role: model.ChatRoleUser, Content: strings.Join(args[1:], " ")},
		})
		if err != nil {
			return eris.Wrap(err, "chat")
		}
		return printJSON(res)
	},
}

func init() {
	chatCmd.Flags().BoolVar(&chatHistory, "history", false, "print the stored conversation instead of sending a message")

	rootCmd.AddCommand(answerCmd)
	rootCmd.AddCommand(followupCmd)
	rootCmd.AddCommand(chatCmd)
}
