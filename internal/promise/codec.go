package promise

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
)

// QueryParam carries the encoded payload.
const QueryParam = "query"

// EncodeQuery renders p as compact JSON and base64-encodes it.
func EncodeQuery(p RequestPayload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func DecodeQuery(encoded string) (RequestPayload, error) {
	var p RequestPayload
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return p, fmt.Errorf("decode base64: %w", err)
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("unmarshal payload: %w", err)
	}
	return p, nil
}

// BuildURL appends the encoded payload to endpoint, keeping any query
// parameters the endpoint already carries.
func BuildURL(endpoint, encoded string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set(QueryParam, encoded)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
