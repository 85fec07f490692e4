package web

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/xuwangyin/Beta-VAE/vae"
)

type ConfigPage struct {
	*Templates
	Fields []Field
	run    *Run
	sync.Mutex
}

type Field struct {
	Name    string
	Value   string
	Error   string
	Boolean bool
	On      bool
}

// Base data for handler functions to view and update the training config
func NewConfigPage(t *Templates, run *Run) *ConfigPage {
	p := &ConfigPage{run: run}
	p.Templates = t.Select("/config")
	p.AddOption(Link{Name: "save", Url: "/config/save", Submit: true})
	p.AddOption(Link{Name: "reset", Url: "/config/reset"})
	p.Fields = getFields(run.Conf)
	return p
}

// Handler function for the config template
func (p *ConfigPage) Base() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.Lock()
		defer p.Unlock()
		if err := p.ExecuteTemplate(w, "config", p); err != nil {
			logError(w, err)
		}
	}
}

// Handler function for the config form save action
func (p *ConfigPage) Save() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.Lock()
		defer p.Unlock()
		r.ParseForm()
		haveErrors := false
		conf := p.run.Conf
		for i, fld := range p.Fields {
			val := r.Form.Get(fld.Name)
			var err error
			if fld.Boolean {
				p.Fields[i].On = (val == "true")
				conf, err = conf.SetBool(fld.Name, p.Fields[i].On)
			} else {
				p.Fields[i].Value = val
				conf, err = conf.SetString(fld.Name, val)
			}
			p.Fields[i].Error = ""
			if err != nil {
				p.Fields[i].Error = "invalid syntax"
				haveErrors = true
			}
		}
		if !haveErrors {
			if err := conf.Validate(); err != nil {
				logError(w, err)
				return
			}
			if err := p.apply(conf); err != nil {
				logError(w, err)
				return
			}
		}
		http.Redirect(w, r, "/config", http.StatusFound)
	}
}

// Handler function for the config form reset action
func (p *ConfigPage) Reset() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.Lock()
		defer p.Unlock()
		conf := vae.DefaultConfig()
		conf.RunName = p.run.Conf.RunName
		if err := p.apply(conf); err != nil {
			logError(w, err)
			return
		}
		http.Redirect(w, r, "/config", http.StatusFound)
	}
}

// persist the config and rebuild the solver
func (p *ConfigPage) apply(conf vae.Config) error {
	if err := conf.Save(conf.RunName + ".conf"); err != nil {
		return err
	}
	if err := p.run.SetConfig(conf); err != nil {
		return err
	}
	p.Fields = getFields(conf)
	return nil
}

func getFields(conf vae.Config) []Field {
	var flds []Field
	for _, key := range conf.Fields() {
		f := Field{Name: key, Value: fmt.Sprint(conf.Get(key))}
		f.On, f.Boolean = conf.Get(key).(bool)
		flds = append(flds, f)
	}
	return flds
}
