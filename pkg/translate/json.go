package translate

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// unmarshalRepair decodes model output as JSON, stripping code fences
// and repairing malformed JSON before giving up.
func unmarshalRepair(raw string, v any) error {
	s := strings.TrimSpace(raw)
	if after, ok := strings.CutPrefix(s, "```json"); ok {
		s = after
	} else if after, ok := strings.CutPrefix(s, "```"); ok {
		s = after
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")

	err := json.Unmarshal([]byte(s), v)
	if err == nil {
		return nil
	}
	fixed, rerr := jsonrepair.JSONRepair(s)
	if rerr != nil {
		return err
	}
	return json.Unmarshal([]byte(fixed), v)
}
