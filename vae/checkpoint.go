package vae

import (
	"encoding/gob"
	"fmt"
	"os"
	"path"
)

// Checkpoint holds everything needed to resume a run: the global iteration
// counter, model parameters, optimizer moments and the identifiers of the
// dashboard windows the run was plotting to.
type Checkpoint struct {
	Iter    int
	Params  []ParamState
	Optim   AdamState
	Windows map[string]string
}

// ParamState is one serialized weight array.
type ParamState struct {
	Name       string
	Rows, Cols int
	Data       []float64
}

// Checkpointer reads and writes checkpoint files under a run specific
// directory.
type Checkpointer struct {
	Dir string
}

// NewCheckpointer creates the checkpoint directory for the given run.
func NewCheckpointer(ckptDir, runName string) (*Checkpointer, error) {
	dir := path.Join(ckptDir, runName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Checkpointer{Dir: dir}, nil
}

// Save writes the checkpoint atomically to the file named by tag: the blob
// is written to a temp file first and renamed into place so a crash mid
// write never corrupts the previous checkpoint.
func (c *Checkpointer) Save(tag string, ck *Checkpoint) error {
	filePath := path.Join(c.Dir, tag)
	tmpPath := path.Join(c.Dir, "."+tag)
	f, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	if err = gob.NewEncoder(f).Encode(ck); err != nil {
		f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, filePath)
}

// Load reads back the checkpoint with the given tag. A missing file is not
// an error: ok is false and the caller proceeds from fresh state.
func (c *Checkpointer) Load(tag string) (ck *Checkpoint, ok bool, err error) {
	filePath := path.Join(c.Dir, tag)
	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()
	ck = new(Checkpoint)
	if err = gob.NewDecoder(f).Decode(ck); err != nil {
		return nil, false, fmt.Errorf("error decoding checkpoint %s: %v", tag, err)
	}
	return ck, true, nil
}
