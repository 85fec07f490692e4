package vae

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"reflect"
	"strconv"
	"strings"
)

// Model output distribution families
const (
	Bernoulli = "bernoulli"
	Gaussian  = "gaussian"
)

// Training configuration settings
type Config struct {
	DataSet     string
	Model       string
	Objective   string
	ZDim        int
	Hidden      int
	Beta        float64
	Gamma       float64
	CMax        float64
	CStopIter   int
	Eta         float64
	Beta1       float64
	Beta2       float64
	BatchSize   int
	MaxIter     int
	GatherStep  int
	DisplayStep int
	SaveStep    int
	Traverse    bool
	RunName     string
	CkptDir     string
	OutDir      string
	CkptName    string
	RandSeed    int64
	DebugLevel  int
}

// Default settings for a new run
func DefaultConfig() Config {
	return Config{
		DataSet:     "sprites",
		Model:       "H",
		Objective:   "H",
		ZDim:        10,
		Hidden:      256,
		Beta:        4,
		Gamma:       1000,
		CMax:        25,
		CStopIter:   100000,
		Eta:         1e-4,
		Beta1:       0.9,
		Beta2:       0.999,
		BatchSize:   64,
		MaxIter:     1000000,
		GatherStep:  1000,
		DisplayStep: 10000,
		SaveStep:    10000,
		RunName:     "main",
		CkptDir:     "checkpoints",
		OutDir:      "outputs",
	}
}

// Validate checks the settings which select the model variant and objective.
// An unsupported dataset, model family or objective is a fatal configuration
// error - training must not start from an ambiguous config.
func (c Config) Validate() error {
	if _, _, err := c.DataSetInfo(); err != nil {
		return err
	}
	switch c.Model {
	case "H", "B", "WAE":
	default:
		return fmt.Errorf("config: unsupported model family %q - must be H, B or WAE", c.Model)
	}
	switch c.Objective {
	case "H", "B":
	default:
		return fmt.Errorf("config: unsupported objective %q - must be H or B", c.Objective)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("config: batch size must be at least 1")
	}
	if c.MaxIter < 1 {
		return fmt.Errorf("config: max iterations must be at least 1")
	}
	if c.ZDim < 1 || c.Hidden < 1 {
		return fmt.Errorf("config: latent and hidden sizes must be at least 1")
	}
	if c.Model == "B" || c.Objective == "B" {
		if c.CStopIter < 1 {
			return fmt.Errorf("config: capacity ramp iterations must be at least 1")
		}
	}
	return nil
}

// DataSetInfo returns the number of image channels and the decoder output
// distribution selected by the dataset identifier.
func (c Config) DataSetInfo() (channels int, dist string, err error) {
	switch strings.ToLower(c.DataSet) {
	case "sprites", "dsprites":
		return 1, Bernoulli, nil
	case "3dchairs", "celeba", "cifar10", "church128", "celebahq128", "bedroom128", "dog128":
		return 3, Gaussian, nil
	default:
		return 0, "", fmt.Errorf("config: unsupported dataset %q", c.DataSet)
	}
}

// Load config from json file under DataDir
func LoadConfig(name string) (c Config, err error) {
	filePath := path.Join(DataDir, name)
	var f *os.File
	if f, err = os.Open(filePath); err != nil {
		return
	}
	defer f.Close()
	fmt.Println("loading config from", name)
	dec := json.NewDecoder(f)
	err = dec.Decode(&c)
	return
}

// Save config to JSON file under DataDir
func (c Config) Save(name string) error {
	filePath := path.Join(DataDir, "."+name)
	f, err := os.Create(filePath)
	if err != nil {
		return err
	}
	fmt.Println("saving config to", name)
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err = enc.Encode(c); err != nil {
		f.Close()
		return err
	}
	f.Close()
	return os.Rename(filePath, path.Join(DataDir, name))
}

func (c Config) Fields() []string {
	st := reflect.TypeOf(c)
	fld := make([]string, st.NumField())
	for i := range fld {
		fld[i] = st.Field(i).Name
	}
	return fld
}

func (c Config) Get(key string) interface{} {
	s := reflect.ValueOf(c)
	return s.FieldByName(key).Interface()
}

func (c Config) String() string {
	fields := c.Fields()
	str := []string{"== Config =="}
	for _, key := range fields {
		str = append(str, fmt.Sprintf("%-14s: %v", key, c.Get(key)))
	}
	return strings.Join(str, "\n")
}

func (c Config) SetString(key, val string) (Config, error) {
	s := reflect.ValueOf(&c).Elem()
	f := s.FieldByName(key)
	var err error
	switch f.Type().Kind() {
	case reflect.Int, reflect.Int64:
		var x int64
		if x, err = strconv.ParseInt(val, 10, 64); err == nil {
			f.SetInt(x)
		}
	case reflect.Float64:
		var x float64
		if x, err = strconv.ParseFloat(val, 64); err == nil {
			f.SetFloat(x)
		}
	case reflect.String:
		f.SetString(val)
	default:
		return c, fmt.Errorf("invalid type for SetString: %v", f.Type().Kind())
	}
	return c, err
}

func (c Config) SetBool(key string, val bool) (Config, error) {
	s := reflect.ValueOf(&c).Elem()
	f := s.FieldByName(key)
	if f.Type().Kind() == reflect.Bool {
		f.SetBool(val)
		return c, nil
	}
	return c, fmt.Errorf("invalid type for SetBool: %v", f.Type().Kind())
}
