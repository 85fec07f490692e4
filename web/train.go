package web

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/xuwangyin/Beta-VAE/stats"
	"github.com/xuwangyin/Beta-VAE/vae"
)

// points averaged per plotted sample to smooth out batch noise
const smoothWindow = 10

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type TrainPage struct {
	*Templates
	run *Run
}

// Base data for handler functions to control training and display the stats
func NewTrainPage(t *Templates, run *Run) *TrainPage {
	p := &TrainPage{run: run}
	p.Templates = t.Select("/train")
	p.AddOption(Link{Name: "start", Url: "/train/start"})
	p.AddOption(Link{Name: "stop", Url: "/train/stop"})
	p.AddOption(Link{Name: "continue", Url: "/train/continue"})
	return p
}

// Handler function for the train template
func (p *TrainPage) Base() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		cmd := mux.Vars(r)["cmd"]
		p.run.Lock()
		defer p.run.Unlock()
		switch cmd {
		case "start", "continue":
			if p.run.running {
				log.Println("skip start - already running")
			} else if err := p.run.Train(cmd == "start"); err != nil {
				logError(w, err)
				return
			}
			http.Redirect(w, r, "/train/stats", http.StatusFound)
		case "stop":
			p.run.Stop()
			http.Redirect(w, r, "/train/stats", http.StatusFound)
		default:
			if err := p.ExecuteTemplate(w, "train", p); err != nil {
				logError(w, err)
			}
		}
	}
}

// Handler function for the stats frame
func (p *TrainPage) Stats() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := p.ExecuteTemplate(w, "stats", p); err != nil {
			logError(w, err)
		}
	}
}

// Handler function for websocket connection
func (p *TrainPage) Websocket() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logError(w, err)
			return
		}
		p.run.setConn(conn)
	}
}

func (p *TrainPage) Heading() template.HTML {
	return p.run.heading()
}

func (p *TrainPage) SeriesNames() []string {
	return p.run.History.SeriesNames()
}

// Latest summarises the tail of the named series as mean and spread.
func (p *TrainPage) Latest(name string) template.HTML {
	pts := p.run.History.Series(name)
	if len(pts) == 0 {
		return ""
	}
	avg := &stats.Average{}
	first := len(pts) - smoothWindow
	if first < 0 {
		first = 0
	}
	for _, pt := range pts[first:] {
		avg.Add(pt.Value)
	}
	last := pts[len(pts)-1]
	return template.HTML(fmt.Sprintf("%s: %s at iteration %d", name, avg.HTML(), last.Iter))
}

// Plot returns an inline svg plot of the named scalar series.
func (p *TrainPage) Plot(name string, width, height int) template.HTML {
	pts := p.run.History.Series(name)
	if len(pts) == 0 {
		return ""
	}
	plt := newPlot()
	line := newLinePlot(pts, colorIndex(name, p.SeriesNames()))
	plt.Add(line)
	plt.Legend.Add(name+" ", line)
	return writePlot(plt, width, height)
}

func colorIndex(name string, names []string) int {
	for i, key := range names {
		if key == name {
			return i
		}
	}
	return 0
}

func newPlot() *plot.Plot {
	p := plot.New()
	p.X.Padding, p.Y.Padding = 0, 0
	p.X.Tick.Label.Font.Size = 10
	p.Y.Tick.Label.Font.Size = 10
	p.Legend.Top = true
	p.Legend.TextStyle.Font.Size = 12
	p.Add(plotter.NewGrid())
	return p
}

func writePlot(p *plot.Plot, w, h int) template.HTML {
	var buf bytes.Buffer
	writer, err := p.WriterTo(vg.Inch*vg.Length(w)/96, vg.Inch*vg.Length(h)/96, "svg")
	if err != nil {
		log.Fatal("Error writing plot: ", err)
	}
	writer.WriteTo(&buf)
	return template.HTML(buf.String())
}

func newLinePlot(points []vae.Point, cix int) linePlot {
	vals := make([]float64, len(points))
	for i, pt := range points {
		vals[i] = pt.Value
	}
	vals = stats.Smooth(vals, smoothWindow)
	var pts plotter.XYs
	xmax, ymax := 1.0, 0.0
	for i, pt := range points {
		x, y := float64(pt.Iter), vals[i]
		pts = append(pts, plotter.XY{X: x, Y: y})
		if x > xmax {
			xmax = x
		}
		if y > ymax {
			ymax = y
		}
	}
	l, _ := plotter.NewLine(pts)
	l.Width = 2
	l.Color = plotutil.Color(cix)
	return linePlot{Line: l, xmin: 1, xmax: xmax, ymin: 0, ymax: ymax}
}

// modified plotter.Line with a fixed scale
type linePlot struct {
	*plotter.Line
	xmin, xmax, ymin, ymax float64
}

func (l linePlot) DataRange() (xmin, xmax, ymin, ymax float64) {
	return l.xmin, l.xmax, l.ymin, l.ymax
}
