package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Vvil1568/lct-hackathone/pkg/adapters/queryengine"
)

func newEnginesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "List the engine adapters compiled in",
		Run: func(cmd *cobra.Command, args []string) {
			for _, e := range queryengine.RegisteredEngines() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-12s %s\n", e.Type, e.DisplayName, strings.Join(e.Schemes, ", "))
			}
		},
	}
}
