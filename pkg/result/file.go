package result

import (
	"bytes"
	"encoding/json"
	"io"
	"os"

	"github.com/francoispqt/gojay"
	"github.com/pipebench/pipebench/pkg/log"
	"github.com/pkg/errors"
)

// Encode writes v as compact JSON followed by a newline
func Encode(w io.Writer, v gojay.MarshalerJSONObject) error {
	enc := gojay.BorrowEncoder(w)
	defer enc.Release()
	if err := enc.EncodeObject(v); err != nil {
		return errors.Wrap(err, "failed to marshal data")
	}
	_, err := w.Write([]byte{'\n'})
	return err
}

// Decode reads a single JSON object from r into v
func Decode(r io.Reader, v gojay.UnmarshalerJSONObject) error {
	dec := gojay.BorrowDecoder(r)
	defer dec.Release()
	if err := dec.DecodeObject(v); err != nil {
		return errors.Wrap(err, "failed to unmarshal data")
	}
	return nil
}

// Indent marshals v with two space indentation
func Indent(v gojay.MarshalerJSONObject) ([]byte, error) {
	data, err := gojay.MarshalJSONObject(v)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal data")
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, errors.Wrap(err, "failed to indent data")
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// WriteFile writes v as indented JSON to filename, overwriting any existing file
func WriteFile(filename string, v gojay.MarshalerJSONObject) error {
	log.Debug().Str("filename", filename).Msg("writing result to disk")
	data, err := Indent(v)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, os.FileMode(0666)); err != nil {
		return errors.Wrap(err, "failed to write file")
	}
	return nil
}

// ReadRecordFile decodes the run result stored in filename
func ReadRecordFile(filename string) (*Record, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	defer f.Close()

	ret := &Record{}
	if err := Decode(f, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// ReadCollectionFile decodes the collector output stored in filename
func ReadCollectionFile(filename string) (*Collection, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	defer f.Close()

	ret := &Collection{}
	if err := Decode(f, ret); err != nil {
		return nil, err
	}
	return ret, nil
}
