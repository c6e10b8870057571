package storage

import (
	"bytes"
	"encoding/gob"

	"github.com/YuminosukeSato/stepwise/pkg/errors"
)

// encode serialises v with encoding/gob, the format models already use for
// their persisted state.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, errors.Wrap(err, "storage: failed to encode value")
	}
	return buf.Bytes(), nil
}

func decode(data []byte, v any) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return errors.Wrap(err, "storage: failed to decode value")
	}
	return nil
}
