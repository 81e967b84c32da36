package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/talkcode/talkcode-go/internal/engine"
	"github.com/talkcode/talkcode-go/internal/index"
	"github.com/talkcode/talkcode-go/internal/logging"
	"github.com/talkcode/talkcode-go/internal/provider"
	"github.com/talkcode/talkcode-go/internal/store"
)

// NewAskCmd constructs the `talkcode ask` command, which answers a single
// question about the directory and streams the response to stdout.
func NewAskCmd() *cobra.Command {
	var dir string
	var k int

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a one-shot question about the codebase",
		Long: `Ask a natural language question about a local directory.

The directory is indexed on first use (and the index reused afterwards), the
most relevant chunks are retrieved, and the answer streams to stdout followed
by the source files it was grounded in.

Examples:
  talkcode ask "where is the config loaded?"
  talkcode ask --dir ./service "how are retries handled?"
  talkcode ask -k 8 "what does the chunker do with empty files?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			question := strings.Join(args, " ")

			answer, err := eng.Answer(ctx, question, k)
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

			// History is best effort: a broken database never fails the answer.
			if hs, err := openHistory(sess.settings); err != nil {
				log.Warn("history unavailable", slog.Any("error", err))
			} else {
				defer hs.Close()
				ex := store.Exchange{Question: question, Answer: full.String(), Sources: answer.Provenance}
				if err := hs.Append(ctx, root, ex); err != nil {
					log.Warn("failed to record exchange", slog.Any("error", err))
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory to answer questions about")
	cmd.Flags().IntVarP(&k, "k", "k", 0, "Number of chunks to retrieve (default: K from config)")

	return cmd
}
