package vae

import "testing"

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	bad := []func(c *Config){
		func(c *Config) { c.Model = "VQ" },
		func(c *Config) { c.Objective = "C" },
		func(c *Config) { c.DataSet = "mnist" },
		func(c *Config) { c.BatchSize = 0 },
		func(c *Config) { c.MaxIter = 0 },
		func(c *Config) { c.ZDim = 0 },
		func(c *Config) { c.Objective = "B"; c.CStopIter = 0 },
	}
	for i, mod := range bad {
		c := DefaultConfig()
		mod(&c)
		if err := c.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestDataSetInfo(t *testing.T) {
	c := DefaultConfig()
	channels, dist, err := c.DataSetInfo()
	if err != nil || channels != 1 || dist != Bernoulli {
		t.Errorf("sprites: got %d %s %v", channels, dist, err)
	}
	c.DataSet = "CelebA"
	channels, dist, err = c.DataSetInfo()
	if err != nil || channels != 3 || dist != Gaussian {
		t.Errorf("celeba: got %d %s %v", channels, dist, err)
	}
}

func TestConfigSet(t *testing.T) {
	c := DefaultConfig()
	c, err := c.SetString("Beta", "2.5")
	if err != nil || c.Beta != 2.5 {
		t.Errorf("SetString Beta: %v %v", c.Beta, err)
	}
	c, err = c.SetString("ZDim", "16")
	if err != nil || c.ZDim != 16 {
		t.Errorf("SetString ZDim: %v %v", c.ZDim, err)
	}
	c, err = c.SetString("Model", "WAE")
	if err != nil || c.Model != "WAE" {
		t.Errorf("SetString Model: %v %v", c.Model, err)
	}
	if _, err = c.SetString("ZDim", "ten"); err == nil {
		t.Error("expected parse error")
	}
	c, err = c.SetBool("Traverse", true)
	if err != nil || !c.Traverse {
		t.Errorf("SetBool Traverse: %v %v", c.Traverse, err)
	}
	if _, err = c.SetBool("Beta", true); err == nil {
		t.Error("expected type error for SetBool on float field")
	}
}

func TestConfigSaveLoad(t *testing.T) {
	saved := DataDir
	DataDir = t.TempDir()
	defer func() { DataDir = saved }()

	c := DefaultConfig()
	c.RunName = "roundtrip"
	c.Beta = 3.5
	if err := c.Save("test.conf"); err != nil {
		t.Fatal(err)
	}
	c2, err := LoadConfig("test.conf")
	if err != nil {
		t.Fatal(err)
	}
	if c2 != c {
		t.Errorf("config changed in round trip:\n%v\n%v", c, c2)
	}
}
