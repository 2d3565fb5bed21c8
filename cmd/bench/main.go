package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/reflowui/reflow/cell"
	"github.com/reflowui/reflow/loop"
	"github.com/reflowui/reflow/machine"
	"github.com/reflowui/reflow/view"
)

const (
	itersKey = "iters"
)

func main() {
	cmd := &cli.Command{
		Name:  "bench",
		Usage: "Benchmark reflow propagation and transition throughput",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  itersKey,
				Usage: "Iterations per measurement",
				Value: 100,
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "propagate",
				Usage:  "Write bursts through width x depth derived grids",
				Action: benchPropagate,
			},
			{
				Name:   "transitions",
				Usage:  "Send/render cycles through a guarded machine",
				Action: benchTransitions,
			},
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

var (
	ww = []int{1, 10, 100, 1_000}
	hh = []int{1, 10, 100}
)

func benchPropagate(ctx context.Context, cmd *cli.Command) error {
	iters := int(cmd.Uint(itersKey))

	tbl := table.NewWriter()
	tbl.SetTitle("Cell Propagation")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max"})

	for _, w := range ww {
		for _, h := range hh {
			tach := tachymeter.New(&tachymeter.Config{Size: iters})

			lp := loop.New()
			g := cell.New(lp, func(err error) { log.Panic(err) })
			src := cell.Signal(g, 1)
			for i := 0; i < w; i++ {
				last := func() int { return src.Value() }
				for j := 0; j < h; j++ {
					prev := last
					d := cell.Computed(g, func(oldValue int) (int, error) {
						return prev() + 1, nil
					})
					last = func() int { return d.Value() }
				}

				cell.Effect(g, func() (cell.CleanupFn, error) {
					last()
					return nil, nil
				})
			}
			lp.Drain()

			for i := 0; i < iters; i++ {
				start := time.Now()
				src.SetValue(src.Peek() + 1)
				lp.Drain()
				tach.AddTime(time.Since(start))
			}

			calc := tach.Calc()
			tbl.AppendRows([]table.Row{
				{
					fmt.Sprintf("propagate: %d * %d", w, h),
					calc.Time.Avg,
					calc.Time.Min,
					calc.Time.P75,
					calc.Time.P99,
					calc.Time.Max,
				},
			})
		}
	}

	tbl.Render()
	return nil
}

func benchTransitions(ctx context.Context, cmd *cli.Command) error {
	iters := int64(cmd.Uint(itersKey)) * 1000

	tbl := tablewriter.NewWriter(os.Stdout)
	tbl.SetHeader([]string{"test", "sends", "time", "sendRate"})

	anyOrder := machine.Guard(func(current, proposed machine.State) bool { return true })

	tests := []struct {
		name   string
		guards []machine.Guard
	}{
		{name: "unguarded"},
		{name: "guarded", guards: []machine.Guard{anyOrder, anyOrder, anyOrder}},
	}

	for _, tc := range tests {
		lp := loop.New()
		g := cell.New(lp, func(err error) { log.Panic(err) })
		tab, err := machine.Define("idle", map[machine.State]machine.Node{
			"idle":    {On: map[machine.Event]machine.Handler{"go": machine.Target("busy")}, Rules: tc.guards},
			"busy":    {On: map[machine.Event]machine.Handler{"done": machine.Target("idle")}, Rules: tc.guards},
			"stalled": {},
		})
		if err != nil {
			return err
		}
		m := machine.New(g, tab)

		vt := view.NewTable(nil).
			Add("idle", func(state string) view.View { return state }).
			Add("*", func(state string) view.View { return state })

		rendered := 0
		cell.Effect(g, func() (cell.CleanupFn, error) {
			if _, rerr := m.Render(vt); rerr != nil {
				return nil, rerr
			}
			rendered++
			return nil, nil
		})
		lp.Drain()

		start := time.Now()
		for i := int64(0); i < iters; i++ {
			if i%2 == 0 {
				m.Send("go", nil)
			} else {
				m.Send("done", nil)
			}
			lp.Drain()
		}
		elapsed := time.Since(start)
		rate := float64(iters) / (float64(elapsed) / float64(time.Second))

		tbl.Append([]string{
			tc.name,
			humanize.Comma(iters),
			fmt.Sprint(elapsed),
			humanize.Comma(int64(rate)),
		})
		log.Printf("%s: %d renders for %d sends", tc.name, rendered, iters)
	}

	tbl.Render()
	return nil
}
