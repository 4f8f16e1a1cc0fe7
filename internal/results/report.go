package results

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

type reportChart struct {
	title  string
	series string
	value  func(Summary) float64
}

var reportCharts = []reportChart{
	{"Success rate", "success %", func(s Summary) float64 { return 100 * s.SuccessRate() }},
	{"Average steps", "steps", func(s Summary) float64 { return s.AvgSteps }},
	{"Average decomposition calls", "calls", func(s Summary) float64 { return s.AvgDecompositions }},
	{"Average reward", "reward", func(s Summary) float64 { return s.AvgReward }},
	{"Average planning time", "ms", func(s Summary) float64 { return float64(s.AvgPlanningTime.Microseconds()) / 1000 }},
	{"Average fidelity", "fidelity", func(s Summary) float64 { return s.AvgFidelity }},
}

// WriteReport renders one bar chart per metric, comparing strategies.
func WriteReport(w io.Writer, summaries []Summary) error {
	names := make([]string, len(summaries))
	for i, s := range summaries {
		names[i] = s.Strategy
	}

	page := components.NewPage()
	page.PageTitle = "Taxi HTN strategy comparison"
	for _, rc := range reportCharts {
		bar := charts.NewBar()
		bar.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{Title: rc.title}),
			charts.WithInitializationOpts(opts.Initialization{Theme: "shine"}),
		)
		items := make([]opts.BarData, 0, len(summaries))
		for _, s := range summaries {
			items = append(items, opts.BarData{Value: rc.value(s)})
		}
		bar.SetXAxis(names).AddSeries(rc.series, items)
		page.AddCharts(bar)
	}
	return page.Render(w)
}

// WriteReportFile writes the report to path, creating its directory.
func WriteReportFile(path string, summaries []Summary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report %s: %w", path, err)
	}
	if err := WriteReport(f, summaries); err != nil {
		f.Close()
		return fmt.Errorf("failed to render report: %w", err)
	}
	return f.Close()
}
