// Command plot-episode renders a recorded episode from the flight log as an
// HTML page of interactive charts or as a PNG.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/aerobench/quadsim/internal/flightlog"
)

func main() {
	dbPath := flag.String("db", "flightlog.db", "Flight log database path")
	episodeID := flag.String("episode", "", "Episode ID (latest when empty)")
	htmlOut := flag.String("html", "", "Write interactive charts to this HTML file")
	pngOut := flag.String("png", "", "Write a trajectory plot to this PNG file")
	flag.Parse()

	if *htmlOut == "" && *pngOut == "" {
		log.Fatal("nothing to do: pass -html and/or -png")
	}

	db, err := flightlog.Open(*dbPath)
	if err != nil {
		log.Fatalf("failed to open flight log: %v", err)
	}
	defer db.Close()

	ep, err := selectEpisode(db, *episodeID)
	if err != nil {
		log.Fatal(err)
	}
	ticks, err := db.Ticks(ep.ID)
	if err != nil {
		log.Fatalf("failed to load ticks: %v", err)
	}
	if len(ticks) == 0 {
		log.Fatalf("episode %s has no ticks", ep.ID)
	}

	if *htmlOut != "" {
		if err := writeHTML(ep, ticks, *htmlOut); err != nil {
			log.Fatalf("failed to write HTML: %v", err)
		}
		log.Printf("wrote %s", *htmlOut)
	}
	if *pngOut != "" {
		if err := writePNG(ep, ticks, *pngOut); err != nil {
			log.Fatalf("failed to write PNG: %v", err)
		}
		log.Printf("wrote %s", *pngOut)
	}
}

func selectEpisode(db *flightlog.DB, id string) (*flightlog.Episode, error) {
	if id != "" {
		return db.GetEpisode(id)
	}
	eps, err := db.ListEpisodes()
	if err != nil {
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}
	if len(eps) == 0 {
		return nil, fmt.Errorf("flight log is empty")
	}
	return &eps[0], nil
}

func writeHTML(ep *flightlog.Episode, ticks []flightlog.Tick, path string) error {
	times := make([]string, len(ticks))
	for i, tk := range ticks {
		times[i] = fmt.Sprintf("%.2f", tk.Time)
	}

	series := func(f func(flightlog.Tick) float64) []opts.LineData {
		data := make([]opts.LineData, len(ticks))
		for i, tk := range ticks {
			data[i] = opts.LineData{Value: f(tk)}
		}
		return data
	}

	newLine := func(title, yLabel string) *charts.Line {
		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{Title: title}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithXAxisOpts(opts.XAxis{Name: "t (s)"}),
			charts.WithYAxisOpts(opts.YAxis{Name: yLabel}),
		)
		return line
	}

	position := newLine("Position", "m")
	position.SetXAxis(times).
		AddSeries("x", series(func(tk flightlog.Tick) float64 { return tk.State.Position.X })).
		AddSeries("y", series(func(tk flightlog.Tick) float64 { return tk.State.Position.Y })).
		AddSeries("z", series(func(tk flightlog.Tick) float64 { return tk.State.Position.Z }))

	velocity := newLine("Speed", "m/s")
	velocity.SetXAxis(times).
		AddSeries("|v|", series(func(tk flightlog.Tick) float64 { return tk.State.Velocity.Norm() })).
		AddSeries("|ω|", series(func(tk flightlog.Tick) float64 { return tk.State.AngularVelocity.Norm() }))

	rotors := newLine("Rotor speeds", "rad/s")
	rotors.SetXAxis(times)
	for i := 0; i < 4; i++ {
		i := i
		rotors.AddSeries(fmt.Sprintf("rotor %d", i),
			series(func(tk flightlog.Tick) float64 { return tk.State.RotorSpeed[i] }))
	}

	reward := newLine("Reward", "")
	reward.SetXAxis(times).
		AddSeries("reward", series(func(tk flightlog.Tick) float64 { return tk.Reward }))

	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("Episode %s", ep.ID)
	page.AddCharts(position, velocity, rotors, reward)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return page.Render(f)
}

func writePNG(ep *flightlog.Episode, ticks []flightlog.Tick, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Episode %s (seed %d)", ep.ID, ep.Seed)
	p.X.Label.Text = "t (s)"
	p.Y.Label.Text = "Position (m)"

	pts := func(f func(flightlog.Tick) float64) plotter.XYs {
		xys := make(plotter.XYs, len(ticks))
		for i, tk := range ticks {
			xys[i] = plotter.XY{X: tk.Time, Y: f(tk)}
		}
		return xys
	}

	for i, axis := range []struct {
		name string
		f    func(flightlog.Tick) float64
	}{
		{"x", func(tk flightlog.Tick) float64 { return tk.State.Position.X }},
		{"y", func(tk flightlog.Tick) float64 { return tk.State.Position.Y }},
		{"z", func(tk flightlog.Tick) float64 { return tk.State.Position.Z }},
		{"|p|", func(tk flightlog.Tick) float64 { return tk.State.Position.Norm() }},
	} {
		line, err := plotter.NewLine(pts(axis.f))
		if err != nil {
			return fmt.Errorf("build %s line: %w", axis.name, err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(axis.name, line)
	}
	p.Legend.Top = true

	return p.Save(14*vg.Inch, 6*vg.Inch, path)
}
