package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/talkcode/talkcode-go/internal/config"
	"github.com/talkcode/talkcode-go/internal/logging"
)

// NewHistoryCmd constructs the `talkcode history` command, which prints the
// most recent question/answer exchanges recorded for a directory.
func NewHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [dir]",
		Short: "Show recent questions and answers for a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			root, err := absRoot(dir)
			if err != nil {
				return err
			}

			hs, err := openHistory(config.FromEnv())
			if err != nil {
				return err
			}
			defer hs.Close()

			exchanges, err := hs.Recent(ctx, root, limit)
			if err != nil {
				return err
			}
			if len(exchanges) == 0 {
				fmt.Printf("No recorded exchanges for %s\n", root)
				return nil
			}

			questionColor := color.New(color.FgGreen, color.Bold)
			timeColor := color.New(color.Faint)
			for _, ex := range exchanges {
				_, _ = timeColor.Println(ex.CreatedAt.Format("2006-01-02 15:04:05"))
				_, _ = questionColor.Printf("Q: %s\n", ex.Question)
				fmt.Printf("A: %s\n", ex.Answer)
				printProvenance(os.Stdout, ex.Sources)
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of exchanges to show")

	return cmd
}
