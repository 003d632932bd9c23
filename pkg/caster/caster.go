package caster

import (
	"encoding/json"

	"github.com/pkg/errors"
)

var ErrVersionMismatch = errors.New("payload written by another format version")

// Caster converts values to and from the string form they are stored with.
type Caster[T any] interface {
	Decode(string) (T, error)
	Encode(T) (string, error)
}

type envelope[T any] struct {
	Version int `json:"v"`
	Data    T   `json:"data"`
}

// JSONCaster stores values as json tagged with Version, so payloads written
// before a model change are rejected instead of decoded into zero fields.
type JSONCaster[T any] struct {
	Version int
}

func (jc JSONCaster[T]) Decode(payload string) (T, error) {
	var env envelope[T]
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return env.Data, err
	}
	if env.Version != jc.Version {
		var zero T
		return zero, errors.Wrapf(ErrVersionMismatch, "got %d, want %d", env.Version, jc.Version)
	}
	return env.Data, nil
}

func (jc JSONCaster[T]) Encode(v T) (string, error) {
	data, err := json.Marshal(envelope[T]{Version: jc.Version, Data: v})
	return string(data), err
}
