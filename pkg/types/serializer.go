package types

// Serializer converts typed payloads to and from the opaque strings
// that cross the Manager/Storage boundary. The Cache façade accepts
// one so callers can swap goccy/go-json for another codec without
// touching anything below the façade.
type Serializer interface {
	Marshal(v any) (string, error)
	Unmarshal(data string, v any) error
}
