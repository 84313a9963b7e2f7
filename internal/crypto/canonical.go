package crypto

import "encoding/json"

// Canonical re-marshals v with map keys sorted at every nesting level,
// the wire preimage used for hashing and signing. encoding/json already
// sorts map[string]any keys alphabetically on marshal, so round-tripping
// through an untyped value is enough to make a caller's own field-order
// choices irrelevant to the result.
func Canonical(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", err
	}

	sorted, err := json.Marshal(generic)
	if err != nil {
		return "", err
	}
	return string(sorted), nil
}
