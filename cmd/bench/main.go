// bench runs a synthetic OLTP/OLAP workload against a B+ tree index across
// a sweep of buffer pool sizes, recording per-size latency percentiles and
// buffer pool hit rate to a CSV and two PNG line charts.
// Usage: go run ./cmd/bench [output-prefix]
package main

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"image/color"
	"log"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"bptreeindex/btree"
	"bptreeindex/buffer"
	"bptreeindex/disk"
)

// palette cycles a handful of distinct line colors across the workload
// series a plot draws, since gonum/plot assigns no default per-series color.
var palette = []color.Color{
	color.RGBA{R: 0xd6, G: 0x2d, B: 0x20, A: 0xff},
	color.RGBA{R: 0x20, G: 0x7d, B: 0xd6, A: 0xff},
	color.RGBA{R: 0x2d, G: 0xa0, B: 0x2d, A: 0xff},
	color.RGBA{R: 0xd6, G: 0xa0, B: 0x20, A: 0xff},
	color.RGBA{R: 0x8a, G: 0x2d, B: 0xd6, A: 0xff},
	color.RGBA{R: 0x20, G: 0xc0, B: 0xb0, A: 0xff},
}

const (
	numKeys = 20000
	opsRun  = 5000
)

var poolSizes = []int{8, 32, 128, 512, 2048}

func main() {
	prefix := "bench"
	if len(os.Args) > 1 {
		prefix = os.Args[1]
	}

	var results []SweepResult
	for _, size := range poolSizes {
		for _, wType := range []WorkloadType{OLTP, OLAP, Reporting} {
			res, err := runOneConfig(size, wType)
			if err != nil {
				log.Fatalf("pool size %d, workload %s: %v", size, wType, err)
			}
			fmt.Printf("pool=%-5d %-28s p50=%8dns p99=%8dns hitRate=%.3f\n",
				size, wType, res.P50Ns, res.P99Ns, res.HitRate)
			results = append(results, res)
		}
	}

	csvPath := prefix + ".csv"
	f, err := os.Create(csvPath)
	if err != nil {
		log.Fatalf("create %s: %v", csvPath, err)
	}
	if err := writeCSV(csv.NewWriter(f), results); err != nil {
		f.Close()
		log.Fatalf("write csv: %v", err)
	}
	f.Close()
	fmt.Printf("wrote %s\n", csvPath)

	if err := renderPlots(prefix, results); err != nil {
		log.Fatalf("render plots: %v", err)
	}
}

// runOneConfig seeds a fresh in-memory-backed tree with numKeys entries,
// runs opsRun operations of wType against it, and summarizes the buffer
// pool's cumulative hit rate alongside the operation latency distribution.
func runOneConfig(poolSize int, wType WorkloadType) (SweepResult, error) {
	pool := buffer.NewPoolManager(poolSize, disk.NewMemoryManager())
	tree := btree.NewBTree("bench", pool, bytes.Compare, 64, 64)

	for i := 0; i < numKeys; i++ {
		if _, err := tree.Insert(genKey(i), genKey(i)); err != nil {
			return SweepResult{}, fmt.Errorf("seed insert: %w", err)
		}
	}

	latencies, err := executeWorkload(tree, wType, opsRun, numKeys)
	if err != nil {
		return SweepResult{}, fmt.Errorf("workload: %w", err)
	}

	stats := pool.GetStats()
	return summarize(poolSize, string(wType), latencies, stats.HitRate()), nil
}

// renderPlots writes prefix_hitrate.png and prefix_latency.png: hit rate and
// p50/p99 latency against pool size, one line per workload.
func renderPlots(prefix string, results []SweepResult) error {
	byWorkload := make(map[string][]SweepResult)
	var order []string
	for _, r := range results {
		if _, ok := byWorkload[r.Workload]; !ok {
			order = append(order, r.Workload)
		}
		byWorkload[r.Workload] = append(byWorkload[r.Workload], r)
	}

	hitPlot := plot.New()
	hitPlot.Title.Text = "Buffer pool hit rate vs. pool size"
	hitPlot.X.Label.Text = "Pool size (frames)"
	hitPlot.Y.Label.Text = "Hit rate"
	hitPlot.Add(plotter.NewGrid())

	latPlot := plot.New()
	latPlot.Title.Text = "Operation latency vs. pool size"
	latPlot.X.Label.Text = "Pool size (frames)"
	latPlot.Y.Label.Text = "Latency (ns)"
	latPlot.Add(plotter.NewGrid())

	for i, workload := range order {
		rows := byWorkload[workload]

		hitPts := make(plotter.XYs, len(rows))
		p50Pts := make(plotter.XYs, len(rows))
		p99Pts := make(plotter.XYs, len(rows))
		for j, r := range rows {
			hitPts[j].X = float64(r.PoolSize)
			hitPts[j].Y = r.HitRate
			p50Pts[j].X = float64(r.PoolSize)
			p50Pts[j].Y = float64(r.P50Ns)
			p99Pts[j].X = float64(r.PoolSize)
			p99Pts[j].Y = float64(r.P99Ns)
		}

		if err := addLine(hitPlot, workload, hitPts, i); err != nil {
			return err
		}
		if err := addLine(latPlot, workload+" p50", p50Pts, i*2); err != nil {
			return err
		}
		if err := addLine(latPlot, workload+" p99", p99Pts, i*2+1); err != nil {
			return err
		}
	}

	if err := hitPlot.Save(8*vg.Inch, 5*vg.Inch, prefix+"_hitrate.png"); err != nil {
		return fmt.Errorf("save hitrate plot: %w", err)
	}
	if err := latPlot.Save(8*vg.Inch, 5*vg.Inch, prefix+"_latency.png"); err != nil {
		return fmt.Errorf("save latency plot: %w", err)
	}
	fmt.Printf("wrote %s_hitrate.png, %s_latency.png\n", prefix, prefix)
	return nil
}

func addLine(p *plot.Plot, label string, pts plotter.XYs, colorIdx int) error {
	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return fmt.Errorf("plot line %q: %w", label, err)
	}
	c := palette[colorIdx%len(palette)]
	line.Color = c
	points.Color = c
	p.Add(line, points)
	p.Legend.Add(label, line, points)
	return nil
}
