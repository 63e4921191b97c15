package cli

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/victornm/tables/internal/domain"
	"github.com/victornm/tables/internal/numeric"
	"github.com/victornm/tables/internal/quiz"
	"github.com/victornm/tables/internal/score"
	"github.com/victornm/tables/internal/user"
)

var errPracticeAborted = stderrors.New("practice aborted: no more input")

func (a *app) practiceCommand() *cobra.Command {
	var (
		username string
		table    string
		divide   bool
	)

	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Drill one table in the terminal and save the time",
		Long: `Drill one table in the terminal. The ten questions come in a random
order; a wrong answer is asked again. Answers may use '.' or ',' as decimal
separator. The time is saved when all questions are answered.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name := user.FormatUsername(username)
			if name == "" {
				return fmt.Errorf("--user is required")
			}

			op := domain.OperationMultiply
			if divide {
				op = domain.OperationDivide
			}

			ss, engine, s, closeScores, err := a.startPractice(cmd.Context(), table, op)
			if err != nil {
				return err
			}
			defer closeScores()

			out := cmd.OutOrStdout()
			in := bufio.NewScanner(cmd.InOrStdin())

			fmt.Fprintf(out, "Table %s, %d questions. Good luck %s!\n", s.TableLabel(), quiz.QuestionCount, name)
			for !s.Finished() {
				q, _ := s.Current()
				fmt.Fprintf(out, "[%d/%d] %s\n", s.CurrentIndex()+1, quiz.QuestionCount, q.Prompt)

				if !in.Scan() {
					if err := in.Err(); err != nil {
						return err
					}
					return errPracticeAborted
				}

				if res := engine.SubmitAnswer(s, in.Text()); !res.Correct {
					fmt.Fprintln(out, "Wrong, try again.")
				}
			}

			r, err := engine.Result(s, name)
			if err != nil {
				return err
			}

			if err := ss.Insert(cmd.Context(), r); err != nil {
				return err
			}

			fmt.Fprintf(out, "Done! Table %s in %s seconds.\n", r.TableLabel, numeric.FormatMillis(r.DurationMs))
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "user", "u", "", "your name")
	cmd.Flags().StringVarP(&table, "table", "t", "", "the table to practice, e.g. 7 or 2,5")
	cmd.Flags().BoolVarP(&divide, "divide", "d", false, "practice divisions instead of multiplications")
	_ = cmd.MarkFlagRequired("table")

	return cmd
}

// startPractice opens the score store before starting the session, so the
// time to connect is not counted in the score.
func (a *app) startPractice(ctx context.Context, table string, op domain.Operation) (*score.Service, *quiz.Engine, *quiz.Session, func() error, error) {
	ss, closeScores, err := a.openScores(ctx)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	engine := quiz.NewEngine(quiz.Config{Now: a.now})
	s, err := engine.Start(table, op)
	if err != nil {
		_ = closeScores()
		return nil, nil, nil, nil, err
	}

	return ss, engine, s, closeScores, nil
}

func (a *app) tablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the suggested tables",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(domain.PredefinedTables, "  "))
		},
	}
}
