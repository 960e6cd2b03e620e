package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/toolbench/gateway-client/pkg/gateway"
	"github.com/toolbench/gateway-client/pkg/gateway/chat"
)

func newChatCmd() *cobra.Command {
	var system string
	var noStream bool
	c := &cobra.Command{
		Use:   "chat MODEL PROMPT...",
		Short: "Send a chat completion to the gateway",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			model := args[0]
			var messages []gateway.ChatMessage
			if system != "" {
				messages = append(messages, gateway.ChatMessage{
					Role:    gateway.RoleSystem,
					Content: system,
				})
			}
			messages = append(messages, gateway.ChatMessage{
				Role:    gateway.RoleUser,
				Content: strings.Join(args[1:], " "),
			})

			if noStream {
				response, err := gw.chat.Complete(cmd.Context(), model, messages, nil)
				if err != nil {
					return err
				}
				if len(response.Choices) > 0 {
					cmd.Println(response.Choices[0].Message.Content)
				}
				printUsage(cmd, response.Usage)
				return nil
			}

			err := gw.streaming.StreamWithHandlers(cmd.Context(), model, messages, nil, chat.StreamHandlers{
				OnChunk: func(chunk *gateway.StreamChunk) {
					cmd.Print(chunk.ContentDelta())
				},
				OnComplete: func(usage *gateway.Usage) {
					cmd.Println()
					printUsage(cmd, usage)
				},
			})
			return err
		},
	}
	c.Flags().StringVar(&system, "system", "", "Optional system prompt")
	c.Flags().BoolVar(&noStream, "no-stream", false, "Wait for the full response instead of streaming")
	return c
}

func printUsage(cmd *cobra.Command, usage *gateway.Usage) {
	if usage == nil {
		return
	}
	cmd.PrintErrf("[%d prompt + %d completion = %d tokens]\n",
		usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
}
