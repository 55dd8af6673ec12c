// Package checkpoint persists the policy/value network's weight
// matrices to disk so training can resume across process restarts.
package checkpoint

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gorgonia.org/tensor"

	"sfneuman.com/nearmiss/network"
)

// LoadResult describes the outcome of loading a checkpoint. A load
// either succeeds completely or routes the caller to random
// initialization; there is no partial load.
type LoadResult int

const (
	// Loaded means every weight array was read successfully
	Loaded LoadResult = iota

	// Absent means no checkpoint exists in the store's directory
	Absent

	// Invalid means a checkpoint exists but could not be decoded or
	// was incomplete
	Invalid
)

func (r LoadResult) String() string {
	switch r {
	case Loaded:
		return "Loaded"
	case Absent:
		return "Absent"
	default:
		return "Invalid"
	}
}

const fileExtension = ".bin"

// Store saves and loads the five weight matrices of the network, one
// gob-encoded file per layer keyed by the layer's fixed name.
type Store struct {
	dir string
}

// NewStore returns a Store over the given directory. The directory is
// created on the first save if it does not exist.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Save writes every weight matrix to the store's directory, replacing
// any previous checkpoint
func (s *Store) Save(weights map[string]*tensor.Dense) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("save: could not create checkpoint directory: %v",
			err)
	}

	for _, name := range network.WeightNames {
		value, ok := weights[name]
		if !ok {
			return fmt.Errorf("save: missing weights for layer %v", name)
		}
		if err := s.saveOne(name, value); err != nil {
			return fmt.Errorf("save: %v", err)
		}
	}
	return nil
}

func (s *Store) saveOne(name string, value *tensor.Dense) error {
	file, err := os.Create(filepath.Join(s.dir, name+fileExtension))
	if err != nil {
		return fmt.Errorf("could not create file for layer %v: %v", name, err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(value); err != nil {
		return fmt.Errorf("could not encode layer %v: %v", name, err)
	}
	return nil
}

// Load reads the weight matrices from the store's directory. The
// returned LoadResult distinguishes a complete load from an absent or
// invalid checkpoint; in the latter two cases the returned map is nil
// and the caller should fall back to random initialization. Shape
// validation against the live network happens when the weights are
// applied, not here.
func (s *Store) Load() (map[string]*tensor.Dense, LoadResult) {
	weights := make(map[string]*tensor.Dense, len(network.WeightNames))
	for _, name := range network.WeightNames {
		value, err := s.loadOne(name)
		if errors.Is(err, fs.ErrNotExist) {
			// A checkpoint with any file missing counts as absent
			// only when no file was read at all
			if len(weights) == 0 {
				return nil, Absent
			}
			return nil, Invalid
		}
		if err != nil {
			return nil, Invalid
		}
		weights[name] = value
	}
	return weights, Loaded
}

func (s *Store) loadOne(name string) (*tensor.Dense, error) {
	file, err := os.Open(filepath.Join(s.dir, name+fileExtension))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	value := new(tensor.Dense)
	if err := gob.NewDecoder(file).Decode(value); err != nil {
		return nil, fmt.Errorf("loadone: could not decode layer %v: %v",
			name, err)
	}
	return value, nil
}
