package commands

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/talkcode/talkcode-go/internal/engine"
	"github.com/talkcode/talkcode-go/internal/index"
	"github.com/talkcode/talkcode-go/internal/logging"
	"github.com/talkcode/talkcode-go/internal/provider"
	"github.com/talkcode/talkcode-go/internal/store"
)

// NewChatCmd constructs the `talkcode chat` command: an interactive loop that
// answers successive questions, carrying the conversation as model context.
func NewChatCmd() *cobra.Command {
	var dir string
	var k int

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive question session about the codebase",
		Long: `Start an interactive session. Each question is answered from the indexed
directory; earlier turns stay in the model context so follow-up questions
work. Type "exit" or "quit" (or press Ctrl-D) to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			sess, err := newSession(log)
			if err != nil {
				return err
			}
			root, err := absRoot(dir)
			if err != nil {
				return err
			}

			vs, err := sess.manager.CreateOrLoad(ctx, root, index.WithProgress(indexProgress("indexing")))
			if err != nil {
				return err
			}

			chatModel, err := provider.New(ctx, sess.settings)
			if err != nil {
				return err
			}
			eng := engine.New(vs, chatModel, logging.FromContext(ctx))

			if k <= 0 {
				k = sess.settings.K
			}

			hs, err := openHistory(sess.settings)
			if err != nil {
				log.Warn("history unavailable", slog.Any("error", err))
				hs = nil
			} else {
				defer hs.Close()
			}

			promptColor := color.New(color.FgGreen, color.Bold)
			var history []*schema.Message

			scanner := bufio.NewScanner(os.Stdin)
			for {
				_, _ = promptColor.Print("> ")
				if !scanner.Scan() {
					fmt.Println()
					break
				}
				question := strings.TrimSpace(scanner.Text())
				if question == "" {
					continue
				}
				if question == "exit" || question == "quit" {
					break
				}

				answer, err := eng.AnswerWithHistory(ctx, question, k, history)
				if err != nil {
					return err
				}

				var full strings.Builder
				for frag := range answer.Fragments {
					fmt.Print(frag)
					full.WriteString(frag)
				}
				fmt.Println()
				if err := answer.Wait(); err != nil {
					return err
				}

				fmt.Println()
				printProvenance(os.Stdout, answer.Provenance)
				fmt.Println()

				history = append(history,
					schema.UserMessage(question),
					schema.AssistantMessage(full.String(), nil),
				)

				if hs != nil {
					ex := store.Exchange{Question: question, Answer: full.String(), Sources: answer.Provenance}
					if err := hs.Append(ctx, root, ex); err != nil {
						log.Warn("failed to record exchange", slog.Any("error", err))
					}
				}
			}

			return scanner.Err()
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory to answer questions about")
	cmd.Flags().IntVarP(&k, "k", "k", 0, "Number of chunks to retrieve (default: K from config)")

	return cmd
}
