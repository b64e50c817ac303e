package web

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/spatial/r2"
)

// maxChartPoints caps each series; longer paths are strided.
const maxChartPoints = 1500

// RenderPathChart writes an HTML scatter chart of the reference path against
// the odometry estimate.
func RenderPathChart(w io.Writer, title string, reference, estimated []r2.Vec) error {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "DriveGo path", Width: "900px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: "reference vs estimated pose (field frame, meters)",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("reference", scatterData(reference), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	scatter.AddSeries("estimated", scatterData(estimated), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	return scatter.Render(w)
}

func scatterData(points []r2.Vec) []opts.ScatterData {
	stride := 1
	if len(points) > maxChartPoints {
		stride = (len(points) + maxChartPoints - 1) / maxChartPoints
	}
	data := make([]opts.ScatterData, 0, len(points)/stride+1)
	for i := 0; i < len(points); i += stride {
		data = append(data, opts.ScatterData{Value: []interface{}{points[i].X, points[i].Y}})
	}
	return data
}
