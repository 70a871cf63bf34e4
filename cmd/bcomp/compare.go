package main

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/urfave/cli/v2"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"k8s.io/klog/v2"

	"github.com/bcomp/bcomp"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

func newCmd_Compare() *cli.Command {
	return &cli.Command{
		Name:      "compare",
		Usage:     "Compute the multiset line difference between two files.",
		ArgsUsage: "<file_a> <file_b>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "external-sort", Usage: "use external partitioned or sort-merge mode instead of in-memory"},
			&cli.BoolFlag{Name: "sort-merge", Usage: "within external mode, use the sort-merge variant instead of partitioned"},
			&cli.IntFlag{Name: "partitions", Usage: "N_PARTITIONS for external partitioned mode", Value: 0},
			&cli.BoolFlag{Name: "ignore-occurrences", Usage: "treat a hash present on both sides as fully cancelled"},
			&cli.BoolFlag{Name: "single-thread", Usage: "fingerprint files sequentially"},
			&cli.BoolFlag{Name: "ignore-line-number", Usage: "skip line-number resolution; report line_number=0"},
			&cli.StringFlag{Name: "primary-key-regex", Usage: "reserved for future use; validated but not consulted"},
			&cli.StringFlag{Name: "temp-dir", Usage: "base directory for temporary comparison state"},
			&cli.BoolFlag{Name: "json", Usage: "print the raw event stream as JSON lines instead of a progress bar"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("expected exactly two file arguments")
			}
			cfg := bcomp.Config{
				FileA:             c.Args().Get(0),
				FileB:             c.Args().Get(1),
				UseExternalSort:   c.Bool("external-sort"),
				SortMerge:         c.Bool("sort-merge"),
				Partitions:        c.Int("partitions"),
				IgnoreOccurrences: c.Bool("ignore-occurrences"),
				UseSingleThread:   c.Bool("single-thread"),
				IgnoreLineNumber:  c.Bool("ignore-line-number"),
				PrimaryKeyRegex:   c.String("primary-key-regex"),
				TempDir:           c.String("temp-dir"),
			}
			if c.Bool("json") {
				return runJSON(c.Context, cfg)
			}
			return runProgress(c.Context, cfg)
		},
	}
}

func runJSON(ctx context.Context, cfg bcomp.Config) error {
	for ev := range bcomp.StartComparison(ctx, cfg) {
		b, err := jsonAPI.Marshal(ev)
		if err != nil {
			return err
		}
		fmt.Println(string(b))
		if f, ok := ev.(bcomp.ComparisonFailedEvent); ok {
			return f.Err
		}
	}
	return nil
}

// runProgress renders progress events with mpb/v8 bars, logs
// step-completed events through klog, and prints unique_line events as
// plain text as they arrive.
func runProgress(ctx context.Context, cfg bcomp.Config) error {
	p := mpb.New(mpb.WithWidth(64))
	bars := map[bcomp.FileID]*mpb.Bar{
		bcomp.FileA: newScanBar(p, "a"),
		bcomp.FileB: newScanBar(p, "b"),
	}

	var failErr error
	for ev := range bcomp.StartComparison(ctx, cfg) {
		switch e := ev.(type) {
		case bcomp.ProgressEvent:
			if bar, ok := bars[e.File]; ok {
				bar.SetCurrent(int64(e.Percentage))
			}
		case bcomp.StepCompletedEvent:
			klog.Infof("step %q completed in %s", e.Step, e.Duration.Round(time.Millisecond))
		case bcomp.UniqueLineEvent:
			fmt.Printf("[%s:%d] %s\n", e.File, e.LineNumber, e.Text)
		case bcomp.ComparisonFailedEvent:
			failErr = e.Err
		}
	}
	p.Wait()
	return failErr
}

func newScanBar(p *mpb.Progress, name string) *mpb.Bar {
	return p.New(100,
		mpb.BarStyle().Rbound("|"),
		mpb.PrependDecorators(decor.Name(fmt.Sprintf("scanning %s", name))),
		mpb.AppendDecorators(decor.Percentage()),
	)
}
