package render

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/clustering"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/config"
	apperrors "github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/errors"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/infrastructure"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/segmentation"
)

// DendrogramTail is how many of the last merges the dendrogram draws
const DendrogramTail = 20

// Renderer writes HTML charts into one directory
type Renderer struct {
	dir    string
	logger *slog.Logger
}

// NewRenderer creates a renderer writing into dir
func NewRenderer(dir string, logger *slog.Logger) *Renderer {
	return &Renderer{dir: dir, logger: infrastructure.WithComponent(logger, "render")}
}

// WriteAll renders every chart the result has data for and returns the
// written paths. A result with neither an elbow curve nor a hierarchy
// writes nothing.
func (r *Renderer) WriteAll(res *segmentation.Result) ([]string, error) {
	var paths []string
	if res.Elbow != nil {
		p, err := r.WriteElbow(res.Elbow)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	if res.Hierarchy != nil {
		p, err := r.WriteDendrogram(res.Hierarchy, res.Cut)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// WriteElbow writes the inertia curve to elbow.html
func (r *Renderer) WriteElbow(e *clustering.ElbowResult) (string, error) {
	return r.write(config.ElbowChartFile, ElbowChart(e))
}

// WriteDendrogram writes the truncated tree and the merge distance curve to
// dendrogram.html. cut may be nil when no gap was found.
func (r *Renderer) WriteDendrogram(h *clustering.Hierarchy, cut *clustering.Cut) (string, error) {
	return r.write(config.DendrogramFile, DendrogramPage(h, cut))
}

type renderer interface {
	Render(w io.Writer) error
}

func (r *Renderer) write(name string, chart renderer) (string, error) {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return "", apperrors.NewIOError("failed to create output directory", err)
	}

	path := filepath.Join(r.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", apperrors.NewIOError(fmt.Sprintf("failed to create %s", name), err)
	}
	defer f.Close()

	if err := chart.Render(f); err != nil {
		return "", apperrors.NewIOError(fmt.Sprintf("failed to render %s", name), err)
	}

	r.logger.Info("chart written", slog.String("path", path))
	return path, nil
}

// ElbowChart plots inertia against k with a marker at the selected k
func ElbowChart(e *clustering.ElbowResult) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Elbow"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Elbow method",
			Subtitle: fmt.Sprintf("selected k=%d", e.K),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "k"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "inertia"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: pointer(true), Trigger: "axis"}),
	)

	ks := make([]string, len(e.Candidates))
	points := make([]opts.LineData, len(e.Candidates))
	for i, c := range e.Candidates {
		ks[i] = strconv.Itoa(c.K)
		points[i] = opts.LineData{Value: c.Inertia}
	}

	line.SetXAxis(ks).AddSeries("inertia", points,
		charts.WithLabelOpts(opts.Label{Show: pointer(false)}),
		charts.WithMarkLineNameXAxisItemOpts(opts.MarkLineNameXAxisItem{
			Name:  "selected k",
			XAxis: strconv.Itoa(e.K),
		}),
	)
	return line
}

// DendrogramPage combines the tree of the last merges with the merge
// distance curve and the cut height
func DendrogramPage(h *clustering.Hierarchy, cut *clustering.Cut) *components.Page {
	page := components.NewPage()
	page.AddCharts(dendrogram(h, cut), mergeDistances(h, cut))
	return page
}

func dendrogram(h *clustering.Hierarchy, cut *clustering.Cut) *charts.Tree {
	subtitle := fmt.Sprintf("last %d merges of %d rows", len(h.Tail(DendrogramTail)), h.N)
	if cut != nil {
		subtitle += fmt.Sprintf(", cut at %.4g", cut.Height)
	}

	tree := charts.NewTree()
	tree.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Dendrogram"}),
		charts.WithTitleOpts(opts.Title{Title: "Dendrogram", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: pointer(true)}),
	)
	tree.AddSeries("ward", []opts.TreeData{*TruncatedTree(h, DendrogramTail)},
		charts.WithTreeOpts(opts.TreeChart{
			Layout:           "orthogonal",
			Orient:           "TB",
			InitialTreeDepth: -1,
		}),
		charts.WithLabelOpts(opts.Label{Show: pointer(true), Position: "top"}),
	)
	return tree
}

func mergeDistances(h *clustering.Hierarchy, cut *clustering.Cut) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Merge distances"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "merge"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "distance"}),
	)

	tail := h.Tail(DendrogramTail)
	first := len(h.Merges) - len(tail)
	xs := make([]string, len(tail))
	points := make([]opts.LineData, len(tail))
	for i, m := range tail {
		xs[i] = strconv.Itoa(first + i)
		points[i] = opts.LineData{Value: m.Distance}
	}

	series := []charts.SeriesOpts{charts.WithLabelOpts(opts.Label{Show: pointer(false)})}
	if cut != nil {
		series = append(series, charts.WithMarkLineNameYAxisItemOpts(opts.MarkLineNameYAxisItem{
			Name:  "cut",
			YAxis: cut.Height,
		}))
	}
	line.SetXAxis(xs).AddSeries("distance", points, series...)
	return line
}

// TruncatedTree converts the last p merges of h into a tree. Internal nodes
// are named by merge distance. Leaves formed before the tail show their size
// in parentheses; single rows show their row index.
func TruncatedTree(h *clustering.Hierarchy, p int) *opts.TreeData {
	if len(h.Merges) == 0 {
		return &opts.TreeData{Name: "0"}
	}
	first := len(h.Merges) - len(h.Tail(p))

	var node func(id int) *opts.TreeData
	node = func(id int) *opts.TreeData {
		if id < h.N {
			return &opts.TreeData{Name: strconv.Itoa(id)}
		}
		m := h.Merges[id-h.N]
		if id-h.N < first {
			return &opts.TreeData{Name: fmt.Sprintf("(%d)", m.Size)}
		}
		return &opts.TreeData{
			Name:     strconv.FormatFloat(m.Distance, 'f', 3, 64),
			Children: []*opts.TreeData{node(m.Left), node(m.Right)},
		}
	}
	return node(h.N + len(h.Merges) - 1)
}

func pointer(b bool) *bool {
	return &b
}
