// Package pipeline ties the variant and person classifiers together into a
// trainable, serializable disease-risk model.
package pipeline

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/M0-Anwar/diseases-detection/internal/person"
	"github.com/M0-Anwar/diseases-detection/internal/snp"
)

// State is the prediction mode of a model.
type State int

const (
	// Stage1Only models score risk from variant probabilities alone.
	Stage1Only State = iota
	// TwoStage models aggregate relevant variants and score them with the
	// person classifier.
	TwoStage
)

func (s State) String() string {
	if s == TwoStage {
		return "TWO_STAGE"
	}
	return "STAGE1_ONLY"
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Model is a trained pipeline for one target condition. A Model is never
// modified once built; retraining returns a new value.
type Model struct {
	TargetCondition string
	Variant         *snp.Classifier
	Person          *person.Classifier
	PersonTrained   bool
}

// State reports whether the person classifier is available.
func (m *Model) State() State {
	if m.PersonTrained && m.Person != nil {
		return TwoStage
	}
	return Stage1Only
}

func (m *Model) validate() error {
	if m.Variant == nil || m.Variant.Model == nil {
		return errors.New("model has no variant classifier")
	}
	if m.PersonTrained && (m.Person == nil || m.Person.Model == nil) {
		return errors.New("model marked two-stage without a person classifier")
	}
	return nil
}

var modelMagic = [8]byte{'S', 'N', 'P', 'R', 'I', 'S', 'K', 0}

const modelVersion uint32 = 1

// ErrNotModel is returned when decoding bytes that are not a serialized model.
var ErrNotModel = errors.New("not a snprisk model")

// Marshal encodes the model as an opaque byte slice.
func Marshal(m *Model) ([]byte, error) {
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("marshal model: %w", err)
	}
	var buf bytes.Buffer
	buf.Write(modelMagic[:])
	if err := binary.Write(&buf, binary.BigEndian, modelVersion); err != nil {
		return nil, fmt.Errorf("marshal model: %w", err)
	}
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a model produced by Marshal. It returns either a
// complete model or an error, never a partial model.
func Unmarshal(data []byte) (*Model, error) {
	if len(data) < len(modelMagic)+4 || !bytes.Equal(data[:len(modelMagic)], modelMagic[:]) {
		return nil, ErrNotModel
	}
	version := binary.BigEndian.Uint32(data[len(modelMagic):])
	if version != modelVersion {
		return nil, fmt.Errorf("unsupported model version %d (want %d)", version, modelVersion)
	}
	var m Model
	if err := gob.NewDecoder(bytes.NewReader(data[len(modelMagic)+4:])).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return &m, nil
}

// Save writes the model to path atomically: the bytes go to a temporary
// file in the same directory which is then renamed over path.
func Save(path string, m *Model) error {
	data, err := Marshal(m)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close model file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename model file: %w", err)
	}
	return nil
}

// Load reads a model written by Save.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}
	m, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return m, nil
}
