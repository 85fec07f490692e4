package web

import (
	"html/template"
	"image/png"
	"net/http"

	"github.com/gorilla/mux"
)

// image names in the order they appear on the page
var imageNames = []string{"recons", "rand_samples", "traversal"}

type ImagePage struct {
	*Templates
	run *Run
}

// Base data for handler functions to view the model visualisations
func NewImagePage(t *Templates, run *Run) *ImagePage {
	p := &ImagePage{run: run}
	p.Templates = t.Select("/images")
	p.AddOption(Link{Name: "traverse", Url: "/images/traverse"})
	return p
}

// Handler function for the main image page
func (p *ImagePage) Base() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if mux.Vars(r)["opt"] == "traverse" {
			p.run.Traverse()
			http.Redirect(w, r, "/images", http.StatusFound)
			return
		}
		if err := p.ExecuteTemplate(w, "images", p); err != nil {
			logError(w, err)
		}
	}
}

// Names lists the visualisations which have been rendered so far.
func (p *ImagePage) Names() []string {
	var names []string
	for _, name := range imageNames {
		if p.run.History.LatestImage(name) != nil {
			names = append(names, name)
		}
	}
	return names
}

func (p *ImagePage) Heading() template.HTML {
	return p.run.heading()
}

// Handler function for the image data
func (p *ImagePage) Image() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]
		m := p.run.History.LatestImage(name)
		if m == nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-type", "image/png")
		png.Encode(w, m)
	}
}
