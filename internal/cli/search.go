package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search changes with a Gerrit query",
	Long: `Search changes. The query uses Gerrit's search operators
(owner:, reviewer:, project:, status:, …). Defaults to "is:open".

Examples:
  gert search
  gert search "owner:self status:merged" -n 5
  gert search "project:infra is:open" --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

var (
	mineCmd = &cobra.Command{
		Use:   "mine",
		Short: "List your open changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return searchQuery(cmd, "owner:self is:open")
		},
	}
	incomingCmd = &cobra.Command{
		Use:     "incoming",
		Aliases: []string{"i"},
		Short:   "List open changes waiting for your review",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return searchQuery(cmd, "reviewer:self -owner:self is:open")
		},
	}
)

const defaultSearchLimit = 25

func init() {
	searchCmd.Flags().IntP("limit", "n", defaultSearchLimit, "maximum number of results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := "is:open"
	if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
		query = strings.TrimSpace(args[0])
	}

	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", limit)
	}
	// A limit already embedded in the query wins.
	if !strings.Contains(query, "limit:") {
		query = fmt.Sprintf("%s limit:%d", query, limit)
	}
	return searchQuery(cmd, query)
}

func searchQuery(cmd *cobra.Command, query string) error {
	format := outFormat(cmd)
	client, _, err := newClient(cmd)
	if err != nil {
		return err
	}
	changes, err := client.ListChanges(cmd.Context(), query)
	if err != nil {
		return err
	}
	return emitChangeList(format, changes)
}
