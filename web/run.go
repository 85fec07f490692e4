// Package web has a web based dashboard for solver training and visualisation.
package web

import (
	"fmt"
	"html/template"
	"log"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/xuwangyin/Beta-VAE/vae"
)

// Run wraps a solver together with the in memory history the dashboard pages
// read from. Training happens in a background goroutine; the mutex guards the
// solver pointer, the running flag and the websocket connection.
type Run struct {
	Conf    vae.Config
	History *vae.History
	solver  *vae.Solver
	data    vae.Data
	conn    *websocket.Conn
	connMu  sync.Mutex
	running bool
	sync.Mutex
}

// Create a new run and load the dataset and config for the given run name.
func NewRun(conf vae.Config) (*Run, error) {
	r := &Run{History: vae.NewHistory()}
	r.History.Notify = r.notify
	var err error
	if r.data, err = vae.LoadData(conf.DataSet); err != nil {
		return nil, err
	}
	if err = r.init(conf); err != nil {
		return nil, err
	}
	return r, nil
}

// build a fresh solver, restoring the checkpoint named in the config if set
func (r *Run) init(conf vae.Config) error {
	sink := vae.Sink(r.History)
	if conf.OutDir != "" {
		ds, err := vae.NewDirSink(conf.OutDir, conf.RunName)
		if err != nil {
			return err
		}
		sink = vae.Tee{r.History, ds}
	}
	s, err := vae.NewSolver(conf, r.data, sink)
	if err != nil {
		return err
	}
	r.Conf = conf
	r.solver = s
	return nil
}

// Train starts or continues training in the background. With restart set the
// solver is rebuilt from fresh state, else it picks up from the current
// iteration.
func (r *Run) Train(restart bool) error {
	log.Printf("train %s: restart=%v\n", r.Conf.RunName, restart)
	if restart {
		conf := r.Conf
		conf.CkptName = ""
		if err := r.init(conf); err != nil {
			return err
		}
	}
	r.solver.Reset()
	r.running = true
	go func() {
		err := r.solver.Train()
		r.Lock()
		r.running = false
		r.Unlock()
		if err != nil {
			log.Println("train error:", err)
		}
		r.push("done")
	}()
	return nil
}

// Stop requests that the background training loop exits.
func (r *Run) Stop() {
	r.solver.Stop()
}

// SetConfig applies a new config. The solver is rebuilt so the change only
// makes sense while training is stopped.
func (r *Run) SetConfig(conf vae.Config) error {
	r.Lock()
	defer r.Unlock()
	if r.running {
		return fmt.Errorf("cannot change config while training is running")
	}
	return r.init(conf)
}

// Iter returns the current global iteration.
func (r *Run) Iter() int {
	r.solver.Lock()
	defer r.solver.Unlock()
	return r.solver.GlobalIter
}

// Traverse renders a latent traversal grid into the history on demand.
func (r *Run) Traverse() {
	r.solver.Lock()
	defer r.solver.Unlock()
	r.solver.VizTraverse()
}

func (r *Run) heading() template.HTML {
	s := fmt.Sprintf(`%s %s: iteration <span id="iter">%d</span> of %d`,
		r.Conf.RunName, r.Conf.Model, r.Iter(), r.Conf.MaxIter)
	return template.HTML(s)
}

// notify is called by the history after each image update
func (r *Run) notify(iter int) {
	r.push(strconv.Itoa(iter))
}

// push sends a message over the websocket. A separate mutex guards the
// connection since pushes come from the training goroutine.
func (r *Run) push(msg string) {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	if r.conn == nil {
		return
	}
	if err := r.conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		log.Println("error writing to websocket:", err)
	}
}

func (r *Run) setConn(conn *websocket.Conn) {
	r.connMu.Lock()
	r.conn = conn
	r.connMu.Unlock()
}
