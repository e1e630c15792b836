package jsonx

import (
	"bytes"
	"io"

	jsoniter "github.com/json-iterator/go"
)

var jsonx = jsoniter.ConfigCompatibleWithStandardLibrary

func Marshal(v interface{}) ([]byte, error) {
	return jsonx.Marshal(v)
}

func MarshalIndent(v interface{}, prefix, indent string) ([]byte, error) {
	return jsonx.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v interface{}) error {
	return jsonx.Unmarshal(data, v)
}

func NewDecoder(r io.Reader) *jsoniter.Decoder {
	return jsonx.NewDecoder(r)
}

func NewEncoder(w io.Writer) *jsoniter.Encoder {
	return jsonx.NewEncoder(w)
}

// Canonical renders v as JSON with object keys sorted at every depth and no
// insignificant whitespace. Numbers keep the text produced by the first
// encoding pass, so identical logical content always yields identical bytes.
func Canonical(v interface{}) ([]byte, error) {
	raw, err := jsonx.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := jsonx.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	// map[string]interface{} keys are sorted by the std-compatible config.
	return jsonx.Marshal(generic)
}

// UnmarshalUseNumber decodes numbers inside interface{} values as
// json.Number so their text survives a load/save cycle unchanged.
func UnmarshalUseNumber(data []byte, v interface{}) error {
	dec := jsonx.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
