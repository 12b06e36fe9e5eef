package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sarchlab/ptsim/datarecording"
	"github.com/sarchlab/ptsim/tracing"
)

type traceQuery struct {
	kind   string
	pid    int
	limit  int
	offset int
}

func newTraceCmd(stdout io.Writer) *cobra.Command {
	q := traceQuery{}

	traceCmd := &cobra.Command{
		Use:   "trace <file.sqlite3>",
		Short: "Print the tasks recorded in a SQLite trace.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printTrace(cmd.Context(), stdout, args[0], q)
		},
	}

	f := traceCmd.Flags()
	f.StringVar(&q.kind, "kind", "", "only print tasks of this kind")
	f.IntVar(&q.pid, "pid", -1, "only print tasks of this process")
	f.IntVar(&q.limit, "limit", 0, "print at most this many tasks")
	f.IntVar(&q.offset, "offset", 0, "skip this many tasks")

	return traceCmd
}

func (q traceQuery) params() datarecording.QueryParams {
	var (
		where []string
		args  []any
	)

	if q.kind != "" {
		where = append(where, "Kind = ?")
		args = append(args, q.kind)
	}

	if q.pid >= 0 {
		where = append(where, "PID = ?")
		args = append(args, q.pid)
	}

	return datarecording.QueryParams{
		Where:   strings.Join(where, " AND "),
		Args:    args,
		Limit:   q.limit,
		Offset:  q.offset,
		OrderBy: "Step",
	}
}

func printTrace(
	ctx context.Context,
	w io.Writer,
	filename string,
	q traceQuery,
) error {
	_, err := os.Stat(filename)
	if err != nil {
		return err
	}

	reader := datarecording.NewReader(filename)
	defer reader.Close()

	tables, err := reader.ListTables(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "tables: %s\n", strings.Join(tables, ", "))

	reader.MapTable(tracing.TraceTableName, tracing.Task{})

	results, total, err := reader.Query(ctx, tracing.TraceTableName, q.params())
	if err != nil {
		return err
	}

	for _, r := range results {
		t := r.(*tracing.Task)
		fmt.Fprintf(w, "%d %s %s pid=%d vaddr=%d paddr=%d value=%d %s\n",
			t.Step, t.ID, t.Kind, t.PID, t.VAddr, t.PAddr, t.Value, t.What)
	}

	fmt.Fprintf(w, "%s of %s tasks\n",
		humanize.Comma(int64(len(results))), humanize.Comma(int64(total)))

	return nil
}
