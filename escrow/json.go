package escrow

import (
	"encoding/json"
	"fmt"
)

func (s Secret) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Secret) UnmarshalText(text []byte) error {
	parsed, err := ParseSecret(string(text))
	if err != nil {
		return err
	}
	*s = parsed

	return nil
}

func (h HashLock) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *HashLock) UnmarshalText(text []byte) error {
	parsed, err := ParseHashLock(string(text))
	if err != nil {
		return err
	}
	*h = parsed

	return nil
}

type timeLocksJSON struct {
	Offsets
	DeployedAt uint32 `json:"deployedAt"`
}

func (t TimeLocks) MarshalJSON() ([]byte, error) {
	return json.Marshal(timeLocksJSON{Offsets: t.Offsets(), DeployedAt: t.deployedAt})
}

func (t *TimeLocks) UnmarshalJSON(data []byte) error {
	var raw timeLocksJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode timelocks: %w", err)
	}
	*t = NewTimeLocks(raw.Offsets)
	t.deployedAt = raw.DeployedAt

	return nil
}
