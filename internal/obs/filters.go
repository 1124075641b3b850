package obs

import (
	"context"
	"encoding/json"
)

// FilterSettings is a filter's settings payload. The render delay filter
// keeps its value under "delay_ms".
type FilterSettings map[string]any

// DelayMS extracts the "delay_ms" setting, when present.
func (s FilterSettings) DelayMS() (int64, bool) {
	v, ok := s["delay_ms"]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

// Filter is one filter attached to a source.
type Filter struct {
	Enabled  bool           `json:"filterEnabled"`
	Kind     string         `json:"filterKind"`
	Index    int            `json:"filterIndex"`
	Settings FilterSettings `json:"filterSettings"`
}

// GetSourceFilter fetches one named filter on a source.
// Fails when the source or filter does not exist, or the session is down.
func (c *Client) GetSourceFilter(ctx context.Context, sourceName, filterName string) (*Filter, error) {
	raw, err := c.call(ctx, "GetSourceFilter", map[string]any{
		"sourceName": sourceName,
		"filterName": filterName,
	})
	if err != nil {
		return nil, err
	}
	f := new(Filter)
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, err
	}
	return f, nil
}

// SetSourceFilterSettings writes a filter's settings. With overlay set,
// keys absent from settings keep their current values on the device.
func (c *Client) SetSourceFilterSettings(ctx context.Context, sourceName, filterName string, settings FilterSettings, overlay bool) error {
	_, err := c.call(ctx, "SetSourceFilterSettings", map[string]any{
		"sourceName":     sourceName,
		"filterName":     filterName,
		"filterSettings": settings,
		"overlay":        overlay,
	})
	return err
}
