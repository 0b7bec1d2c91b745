package agent

import (
	"encoding/json"
	"strings"
)

const redacted = "***REDACTED***"

// Keys never written to logs or session files. Endpoint URLs often carry provider API keys.
var redactKeys = map[string]struct{}{
	"password":     {},
	"api_key":      {},
	"apikey":       {},
	"access_token": {},
	"private_key":  {},
	"privatekey":   {},
	"secret":       {},
	"mnemonic":     {},
	"provider_url": {},
	"rpc_url":      {},
}

// RedactJSONArgs masks sensitive keys at any depth. Input that is not JSON is returned unchanged.
func RedactJSONArgs(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}

	b, err := json.Marshal(redactValue(v))
	if err != nil {
		return raw
	}
	return string(b)
}

func redactValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			if _, ok := redactKeys[strings.ToLower(k)]; ok {
				out[k] = redacted
				continue
			}
			out[k] = redactValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = redactValue(t[i])
		}
		return out
	default:
		return v
	}
}
