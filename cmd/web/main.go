package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/xuwangyin/Beta-VAE/vae"
	"github.com/xuwangyin/Beta-VAE/web"
)

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		fmt.Println("usage: web [opts] <run>")
		os.Exit(1)
	}
	run := os.Args[len(os.Args)-1]
	conf, err := vae.LoadConfig(run + ".conf")
	if err != nil {
		fmt.Println("new run:", run)
		conf = vae.DefaultConfig()
		conf.RunName = run
	}
	flag.StringVar(&conf.CkptName, "ckpt", conf.CkptName, "checkpoint to restore")
	port := flag.Int("port", 8080, "port to listen on")
	flag.Parse()

	rn, err := web.NewRun(conf)
	vae.CheckErr(err)

	t, err := web.NewTemplates()
	vae.CheckErr(err)
	t.AddMenuItem(web.Link{Url: "/train", Name: "train"})
	t.AddMenuItem(web.Link{Url: "/images", Name: "images"})
	t.AddMenuItem(web.Link{Url: "/config", Name: "config"})

	trainPage := web.NewTrainPage(t.Clone(), rn)
	imagePage := web.NewImagePage(t.Clone(), rn)
	configPage := web.NewConfigPage(t.Clone(), rn)

	r := mux.NewRouter()
	r.Handle("/", http.RedirectHandler("/train/stats", http.StatusFound))
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir(web.AssetDir))))

	r.Handle("/train", http.RedirectHandler("/train/stats", http.StatusFound))
	r.HandleFunc("/train/{cmd:(?:stats|start|stop|continue)}", trainPage.Base())
	r.HandleFunc("/stats", trainPage.Stats())
	r.HandleFunc("/ws", trainPage.Websocket())

	r.HandleFunc("/images", imagePage.Base())
	r.HandleFunc("/images/{opt:traverse}", imagePage.Base())
	r.HandleFunc("/img/{name}", imagePage.Image())

	r.HandleFunc("/config", configPage.Base())
	r.HandleFunc("/config/save", configPage.Save()).Methods("POST")
	r.HandleFunc("/config/reset", configPage.Reset())

	handler := http.Handler(r)
	if user := os.Getenv("BETAVAE_WEB_USER"); user != "" {
		mw := web.NewAuthMiddleware(user, os.Getenv("BETAVAE_WEB_PASS"))
		handler = mw.Middleware(r)
	}
	fmt.Printf("serving web page at http://localhost:%d\n", *port)
	http.ListenAndServe(fmt.Sprintf(":%d", *port), handler)
}
