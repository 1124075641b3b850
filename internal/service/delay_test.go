package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/edirooss/obsdelay-server/internal/domain/delay"
	"github.com/edirooss/obsdelay-server/internal/obs"
	"go.uber.org/zap"
)

type setCall struct {
	source   string
	filter   string
	settings obs.FilterSettings
	overlay  bool
}

// fakeFilterClient is an in-memory stand-in for the OBS session.
type fakeFilterClient struct {
	mu       sync.Mutex
	delays   map[string]int64         // source -> current delay
	failing  map[string]error         // source -> forced read error
	readLags map[string]time.Duration // source -> artificial read latency
	setErr   error
	setCalls []setCall
}

func newFakeFilterClient() *fakeFilterClient {
	return &fakeFilterClient{
		delays:   make(map[string]int64),
		failing:  make(map[string]error),
		readLags: make(map[string]time.Duration),
	}
}

func (f *fakeFilterClient) GetSourceFilter(ctx context.Context, sourceName, filterName string) (*obs.Filter, error) {
	f.mu.Lock()
	lag := f.readLags[sourceName]
	f.mu.Unlock()
	if lag > 0 {
		time.Sleep(lag)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failing[sourceName]; ok {
		return nil, err
	}
	ms, ok := f.delays[sourceName]
	if !ok {
		return nil, &obs.RequestError{RequestType: "GetSourceFilter", Code: 600, Comment: "no source was found"}
	}
	return &obs.Filter{
		Enabled:  true,
		Kind:     "render_delay_filter",
		Settings: obs.FilterSettings{"delay_ms": float64(ms)},
	}, nil
}

func (f *fakeFilterClient) SetSourceFilterSettings(ctx context.Context, sourceName, filterName string, settings obs.FilterSettings, overlay bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls = append(f.setCalls, setCall{sourceName, filterName, settings, overlay})
	if f.setErr != nil {
		return f.setErr
	}
	if ms, ok := settings.DelayMS(); ok {
		f.delays[sourceName] = ms
	}
	return nil
}

func newTestService(fc *fakeFilterClient) *DelayService {
	return NewDelayService(zap.NewNop(), fc, "Render Delay")
}

func TestListDelaysOrderAndIsolation(t *testing.T) {
	fc := newFakeFilterClient()
	fc.delays["01 input"] = 120
	fc.failing["02 input"] = errors.New("transport down")
	fc.delays["03 input"] = 80

	svc := newTestService(fc)
	got := svc.ListDelays(context.Background(), []string{"01 input", "02 input", "03 input"})

	want := []delay.Reading{
		{Source: "01 input", DelayMS: 120},
		{Source: "02 input", DelayMS: delay.Unknown},
		{Source: "03 input", DelayMS: 80},
	}
	if len(got) != len(want) {
		t.Fatalf("ListDelays() returned %d readings, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("reading[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestListDelaysPreservesInputOrder(t *testing.T) {
	sources := []string{"a", "b", "c", "d", "e"}

	fc := newFakeFilterClient()
	// Make earlier sources finish last so completion order inverts input order.
	for i, s := range sources {
		fc.delays[s] = int64(i * 10)
		fc.readLags[s] = time.Duration(len(sources)-i) * 10 * time.Millisecond
	}

	svc := newTestService(fc)
	got := svc.ListDelays(context.Background(), sources)

	if len(got) != len(sources) {
		t.Fatalf("ListDelays() returned %d readings, want %d", len(got), len(sources))
	}
	for i, s := range sources {
		if got[i].Source != s {
			t.Errorf("reading[%d].Source = %q, want %q", i, got[i].Source, s)
		}
		if got[i].DelayMS != int64(i*10) {
			t.Errorf("reading[%d].DelayMS = %d, want %d", i, got[i].DelayMS, i*10)
		}
	}
}

func TestListDelaysVariousLengths(t *testing.T) {
	for _, n := range []int{1, 2, 3, 7} {
		sources := make([]string, n)
		fc := newFakeFilterClient()
		for i := range sources {
			sources[i] = string(rune('a' + i))
			fc.delays[sources[i]] = int64(i)
		}

		got := newTestService(fc).ListDelays(context.Background(), sources)
		if len(got) != n {
			t.Errorf("n=%d: got %d readings", n, len(got))
		}
	}
}

func TestListDelaysAllSentinelWhenDisconnected(t *testing.T) {
	sources := []string{"cam1", "cam2", "cam3"}
	fc := newFakeFilterClient()
	for _, s := range sources {
		fc.failing[s] = obs.ErrNotConnected
	}

	got := newTestService(fc).ListDelays(context.Background(), sources)
	for i, r := range got {
		if r.DelayMS != delay.Unknown {
			t.Errorf("reading[%d].DelayMS = %d, want %d", i, r.DelayMS, delay.Unknown)
		}
	}
}

// Filter exists but its settings carry no delay_ms.
func TestListDelaysMissingDelaySetting(t *testing.T) {
	svc := NewDelayService(zap.NewNop(), &noDelaySettingClient{}, "Render Delay")
	got := svc.ListDelays(context.Background(), []string{"cam1"})
	if got[0].DelayMS != delay.Unknown {
		t.Errorf("DelayMS = %d, want sentinel %d", got[0].DelayMS, delay.Unknown)
	}
}

type noDelaySettingClient struct{}

func (noDelaySettingClient) GetSourceFilter(ctx context.Context, sourceName, filterName string) (*obs.Filter, error) {
	return &obs.Filter{Enabled: true, Settings: obs.FilterSettings{}}, nil
}

func (noDelaySettingClient) SetSourceFilterSettings(ctx context.Context, sourceName, filterName string, settings obs.FilterSettings, overlay bool) error {
	return nil
}

func TestUpdateDelayPassthrough(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		delayMS int64
	}{
		{"typical", "01 input", 250},
		{"zero", "01 input", 0},
		{"negative passes through unclamped", "01 input", -500},
		{"large", "01 input", 1 << 40},
		{"unknown source forwarded as-is", "no such source", 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := newFakeFilterClient()
			svc := newTestService(fc)

			if err := svc.UpdateDelay(context.Background(), tt.source, tt.delayMS); err != nil {
				t.Fatalf("UpdateDelay() error: %v", err)
			}

			if len(fc.setCalls) != 1 {
				t.Fatalf("remote write called %d times, want 1", len(fc.setCalls))
			}
			call := fc.setCalls[0]
			if call.source != tt.source {
				t.Errorf("source = %q, want %q", call.source, tt.source)
			}
			if call.filter != "Render Delay" {
				t.Errorf("filter = %q, want %q", call.filter, "Render Delay")
			}
			if ms, ok := call.settings.DelayMS(); !ok || ms != tt.delayMS {
				t.Errorf("settings delay_ms = %d (present=%v), want %d", ms, ok, tt.delayMS)
			}
			if !call.overlay {
				t.Error("overlay = false, want true (other settings must survive)")
			}
		})
	}
}

func TestUpdateDelayRemoteFailure(t *testing.T) {
	fc := newFakeFilterClient()
	fc.setErr = &obs.RequestError{RequestType: "SetSourceFilterSettings", Code: 600}

	err := newTestService(fc).UpdateDelay(context.Background(), "cam1", 100)
	if err == nil {
		t.Fatal("UpdateDelay() = nil error, want failure")
	}
	var reqErr *obs.RequestError
	if !errors.As(err, &reqErr) {
		t.Errorf("error chain does not expose *obs.RequestError: %v", err)
	}
}

func TestUpdateThenListRoundTrip(t *testing.T) {
	fc := newFakeFilterClient()
	fc.delays["cam1"] = 50

	svc := newTestService(fc)
	if err := svc.UpdateDelay(context.Background(), "cam1", 425); err != nil {
		t.Fatalf("UpdateDelay() error: %v", err)
	}

	got := svc.ListDelays(context.Background(), []string{"cam1"})
	if got[0].DelayMS != 425 {
		t.Errorf("DelayMS after update = %d, want 425 (value must come from the device, not a cache)", got[0].DelayMS)
	}
}
