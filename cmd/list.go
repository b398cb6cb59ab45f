package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/storewise/snapvault/pkg/snapshot"
)

func NewListCommand() *cobra.Command {
	v := newViper()

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the snapshots in the snapshot directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := snapshotDirFlag(v)
			entries, err := os.ReadDir(dir)
			if err != nil {
				return err
			}

			current := ""
			if data, err := os.ReadFile(filepath.Join(dir, snapshot.CurrentName)); err == nil {
				current = strings.TrimSpace(string(data))
			}

			var ids []string
			for _, entry := range entries {
				if entry.IsDir() && strings.HasPrefix(entry.Name(), snapshot.SnapshotPrefix) {
					ids = append(ids, entry.Name())
				}
			}
			sort.Sort(sort.Reverse(sort.StringSlice(ids)))

			for _, id := range ids {
				marker := " "
				if id == current {
					marker = "*"
				}
				fmt.Println(marker, id)
			}
			return nil
		},
	}

	addSnapshotDirFlag(cmd.Flags(), v)

	return cmd
}
