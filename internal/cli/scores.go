package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/victornm/tables/internal/domain"
	"github.com/victornm/tables/internal/numeric"
	"github.com/victornm/tables/internal/score"
	"github.com/victornm/tables/internal/user"
)

func (a *app) scoresCommand() *cobra.Command {
	var (
		username string
		sortKey  string
		order    string
	)

	cmd := &cobra.Command{
		Use:   "scores",
		Short: "Show saved times",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sorter := score.DefaultSorter()
			if sortKey != "" {
				key, err := domain.ParseSortKey(sortKey)
				if err != nil {
					return err
				}
				sorter = score.Sorter{Key: key, Ascending: score.DefaultAscending(key)}
			}

			switch strings.ToLower(order) {
			case "":
			case "asc":
				sorter.Ascending = true
			case "desc":
				sorter.Ascending = false
			default:
				return fmt.Errorf("invalid order %q: want asc or desc", order)
			}

			ss, closeScores, err := a.openScores(cmd.Context())
			if err != nil {
				return err
			}
			defer closeScores()

			var rs []domain.ScoreRecord
			if username != "" {
				rs, err = ss.QueryForUser(cmd.Context(), user.FormatUsername(username))
			} else {
				rs, err = ss.ListAll(cmd.Context())
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(rs) == 0 {
				fmt.Fprintln(out, "No scores yet.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "User\tTable\tSeconds\tDate")
			for _, r := range sorter.Sort(rs) {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					r.Username, r.TableLabel, numeric.FormatMillis(r.DurationMs), r.Timestamp.Local().Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&username, "user", "u", "", "only the scores of this user")
	cmd.Flags().StringVarP(&sortKey, "sort", "s", "", "sort by table, duration or datetime")
	cmd.Flags().StringVar(&order, "order", "", "asc or desc, defaults to the column's natural order")

	return cmd
}

func (a *app) clearCommand() *cobra.Command {
	var (
		username string
		all      bool
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete saved times. There is no undo.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name := user.FormatUsername(username)
			if name == "" && !all {
				return fmt.Errorf("--user or --all is required")
			}

			ss, closeScores, err := a.openScores(cmd.Context())
			if err != nil {
				return err
			}
			defer closeScores()

			if err := ss.Clear(cmd.Context(), name); err != nil {
				return err
			}

			if name == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "All scores deleted.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scores of %s deleted.\n", name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "user", "u", "", "delete the scores of this user")
	cmd.Flags().BoolVar(&all, "all", false, "delete the scores of every user")

	return cmd
}
