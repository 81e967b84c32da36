package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/talkcode/talkcode-go/internal/index"
	"github.com/talkcode/talkcode-go/internal/logging"
)

// NewIndexCmd constructs the `talkcode index` command, which builds (or
// reuses) the vector index for a directory without asking anything.
func NewIndexCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "index [dir]",
		Short: "Build the vector index for a directory",
		Long: `Index a directory: load its text files, chunk and embed them, and persist
the result under <dir>/vector_store/<model type>. An existing index is reused
unless --force is given.

Examples:
  talkcode index
  talkcode index ./service
  talkcode index --force ./service`,
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

			opts := []index.Option{index.WithProgress(indexProgress("embedding chunks"))}
			if force {
				opts = append(opts, index.WithForceRecreate())
			}

			vs, err := sess.manager.CreateOrLoad(ctx, root, opts...)
			if err != nil {
				return err
			}

			fmt.Printf("Index ready: %d chunks at %s\n", vs.Count(), sess.manager.IndexPath(root))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Rebuild the index even if one exists")

	return cmd
}
