package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/xuwangyin/Beta-VAE/vae"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: train [opts] <run>")
		os.Exit(1)
	}
	run := os.Args[len(os.Args)-1]
	conf, err := vae.LoadConfig(run + ".conf")
	if err != nil {
		fmt.Println("new run:", run)
		conf = vae.DefaultConfig()
		conf.RunName = run
	}

	// override config settings from command line
	flag.StringVar(&conf.DataSet, "dataset", conf.DataSet, "dataset name")
	flag.StringVar(&conf.Model, "model", conf.Model, "model family: H, B or WAE")
	flag.StringVar(&conf.Objective, "objective", conf.Objective, "objective: H or B")
	flag.Float64Var(&conf.Eta, "eta", conf.Eta, "learning rate")
	flag.Float64Var(&conf.Beta, "beta", conf.Beta, "kl divergence weight")
	flag.Float64Var(&conf.Gamma, "gamma", conf.Gamma, "capacity constraint weight")
	flag.Float64Var(&conf.CMax, "cmax", conf.CMax, "maximum channel capacity")
	flag.IntVar(&conf.ZDim, "zdim", conf.ZDim, "latent dimension")
	flag.IntVar(&conf.BatchSize, "batch", conf.BatchSize, "train batch size")
	flag.IntVar(&conf.MaxIter, "iters", conf.MaxIter, "max training iterations")
	flag.Int64Var(&conf.RandSeed, "seed", conf.RandSeed, "random number seed")
	flag.StringVar(&conf.CkptName, "ckpt", conf.CkptName, "checkpoint to restore")
	flag.BoolVar(&conf.Traverse, "traverse", conf.Traverse, "render latent traversals")
	flag.IntVar(&conf.DebugLevel, "debug", conf.DebugLevel, "debug logging level")
	flag.Parse()
	vae.CheckErr(conf.Validate())
	vae.CheckErr(conf.Save(run + ".conf"))
	if conf.DebugLevel >= 1 {
		fmt.Println(conf)
	}

	data, err := vae.LoadData(conf.DataSet)
	vae.CheckErr(err)

	sink, err := vae.NewDirSink(conf.OutDir, conf.RunName)
	vae.CheckErr(err)

	s, err := vae.NewSolver(conf, data, sink)
	vae.CheckErr(err)
	vae.CheckErr(s.Train())
}
