package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/solumlabs/sigbag/scheduler"
	"github.com/solumlabs/sigbag/signal"
)

const eventsKey = "events"

var subCounts = []int{1, 10, 100, 1_000}

func main() {
	cmd := &cli.Command{
		Name:  "benchmark",
		Usage: "Measure signal drain latency and fan-out throughput",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  eventsKey,
				Usage: "Payloads fired per run",
				Value: 50_000,
			},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

type runResult struct {
	subs      int
	events    int
	elapsed   time.Duration
	delivered int64
}

func run(ctx context.Context, cmd *cli.Command) error {
	events := int(cmd.Uint(eventsKey))
	log.Printf("starting signal benchmark, %s payloads per run", humanize.Comma(int64(events)))

	// Every subscriber folds the payload stream into an xxhash digest;
	// a FIFO violation or an elided delivery shows up as a mismatch
	// against the digest of the fired sequence.
	expected := sequenceDigest(events)

	tbl := table.NewWriter()
	tbl.SetTitle("Signal drain rounds")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"subscribers", "avg", "min", "p75", "p99", "max"})

	results := make([]runResult, 0, len(subCounts))
	for _, subs := range subCounts {
		tach := tachymeter.New(&tachymeter.Config{Size: events})

		sched := scheduler.NewManual()
		s := signal.New[int](sched, signal.WithOnError(func(_ any, err error) {
			log.Panic(err)
		}))

		digests := make([]*xxhash.Digest, subs)
		var delivered int64
		for i := range digests {
			d := xxhash.New()
			digests[i] = d
			if _, err := s.Subscribe(func(v int) error {
				var buf [8]byte
				binary.LittleEndian.PutUint64(buf[:], uint64(v))
				_, _ = d.Write(buf[:])
				delivered++
				return nil
			}); err != nil {
				return err
			}
		}

		start := time.Now()
		for i := 0; i < events; i++ {
			if err := s.Fire(i); err != nil {
				return err
			}
		}
		for i := 0; i < events; i++ {
			roundStart := time.Now()
			sched.Step()
			tach.AddTime(time.Since(roundStart))
		}
		elapsed := time.Since(start)

		for i, d := range digests {
			if d.Sum64() != expected {
				return fmt.Errorf("subscriber %d digest mismatch: delivery broke fire order", i)
			}
		}
		if err := s.Destroy(); err != nil {
			return err
		}

		metrics := tach.Calc()
		tbl.AppendRow(table.Row{
			subs,
			metrics.Time.Avg,
			metrics.Time.Min,
			metrics.Time.P75,
			metrics.Time.P99,
			metrics.Time.Max,
		})
		results = append(results, runResult{
			subs:      subs,
			events:    events,
			elapsed:   elapsed,
			delivered: delivered,
		})
	}
	tbl.Render()

	summary := tablewriter.NewWriter(os.Stdout)
	summary.SetHeader([]string{"subscribers", "payloads", "deliveries", "elapsed", "deliveries/sec"})
	for _, r := range results {
		perSec := float64(r.delivered) / r.elapsed.Seconds()
		summary.Append([]string{
			humanize.Comma(int64(r.subs)),
			humanize.Comma(int64(r.events)),
			humanize.Comma(r.delivered),
			r.elapsed.Round(time.Microsecond).String(),
			humanize.Comma(int64(perSec)),
		})
	}
	summary.Render()

	log.Print("finished signal benchmark")
	return nil
}

func sequenceDigest(events int) uint64 {
	d := xxhash.New()
	var buf [8]byte
	for i := 0; i < events; i++ {
		binary.LittleEndian.PutUint64(buf[:], uint64(i))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}
