package cache

import (
	json "github.com/goccy/go-json"

	"github.com/cuemby/cachalot/pkg/types"
)

// jsonSerializer is the default types.Serializer, backed by
// goccy/go-json rather than encoding/json.
type jsonSerializer struct{}

func (jsonSerializer) Marshal(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (jsonSerializer) Unmarshal(data string, v any) error {
	return json.Unmarshal([]byte(data), v)
}

var defaultSerializer types.Serializer = jsonSerializer{}
