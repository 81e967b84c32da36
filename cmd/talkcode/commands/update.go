package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/talkcode/talkcode-go/internal/logging"
)

// NewUpdateCmd constructs the `talkcode update` command, which re-indexes
// individual files in an existing index after they change.
func NewUpdateCmd() *cobra.Command {
	var files []string

	cmd := &cobra.Command{
		Use:   "update [dir]",
		Short: "Re-index changed files in an existing index",
		Long: `Update the persisted index for a directory: stale chunks of each given file
are evicted and replaced with freshly embedded ones. The index must already
exist (see 'talkcode index').

Examples:
  talkcode update --file main.go
  talkcode update ./service --file handler.go --file router.go`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			sess, err := newSession(log)
			if err != nil {
				return err
			}

			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			root, err := absRoot(dir)
			if err != nil {
				return err
			}

			paths := resolveFiles(root, files)

			vs, err := sess.manager.Load(root)
			if err != nil {
				return err
			}
			if err := sess.manager.Update(ctx, vs, paths); err != nil {
				return err
			}

			fmt.Printf("Index updated: %d chunks at %s\n", vs.Count(), sess.manager.IndexPath(root))
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "File to re-index (repeatable)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
