package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"mangrovewatch/geocode"
	"mangrovewatch/vegetation"
)

type fakeMessenger struct {
	updates func(offset int64) ([]Update, error)
	sent    []string
}

func (f *fakeMessenger) GetUpdates(_ context.Context, offset int64, _ time.Duration) ([]Update, error) {
	if f.updates == nil {
		return nil, nil
	}
	return f.updates(offset)
}

func (f *fakeMessenger) SendMessage(_ context.Context, _ int64, text string) error {
	f.sent = append(f.sent, text)
	return nil
}

type fakeResolver struct {
	resolve func(text string) (*geocode.Point, error)
}

func (f *fakeResolver) Resolve(_ context.Context, text string) (*geocode.Point, error) {
	return f.resolve(text)
}

type fakeAnalyzer struct {
	enhanced func(lat, lon float64) (*vegetation.EnhancedResult, error)
}

func (f *fakeAnalyzer) EnhancedChange(_ context.Context, lat, lon float64) (*vegetation.EnhancedResult, error) {
	return f.enhanced(lat, lon)
}

func update(id int64, text string) Update {
	return Update{UpdateID: id, Message: &Message{MessageID: id, Text: text, Chat: Chat{ID: 55}}}
}

func newTestBot(m *fakeMessenger, r *fakeResolver, a *fakeAnalyzer) *Bot {
	return New(m, r, a, 2, time.Second, 5*time.Second)
}

func change(v float64) *float64 { return &v }

func TestStartCommand(t *testing.T) {
	m := &fakeMessenger{}
	b := newTestBot(m, &fakeResolver{}, &fakeAnalyzer{})

	b.handleUpdate(context.Background(), update(1, "/start"))

	if len(m.sent) != 1 || !strings.Contains(m.sent[0], "Mangrove Watch bot") {
		t.Errorf("Unexpected replies: %v", m.sent)
	}
}

func TestTestCommand(t *testing.T) {
	m := &fakeMessenger{}
	b := newTestBot(m, &fakeResolver{}, &fakeAnalyzer{})

	b.handleUpdate(context.Background(), update(1, "/test"))

	if len(m.sent) != 1 || m.sent[0] != aliveReply {
		t.Errorf("Unexpected replies: %v", m.sent)
	}
}

func TestFreeTextReportsVegetationChange(t *testing.T) {
	m := &fakeMessenger{}
	r := &fakeResolver{resolve: func(text string) (*geocode.Point, error) {
		if text != "Ahmedabad" {
			t.Errorf("Unexpected query %q", text)
		}
		return &geocode.Point{Latitude: 23.02, Longitude: 72.57}, nil
	}}
	a := &fakeAnalyzer{enhanced: func(lat, lon float64) (*vegetation.EnhancedResult, error) {
		return &vegetation.EnhancedResult{
			VegetationChange: change(-21.5),
			TrendDirection:   vegetation.TrendDecreasing,
			AlertLevel:       vegetation.AlertWarning,
			AnalysisType:     "enhanced",
		}, nil
	}}

	newTestBot(m, r, a).handleUpdate(context.Background(), update(1, "Ahmedabad"))

	if len(m.sent) != 2 {
		t.Fatalf("Expected acknowledgement + summary, got %v", m.sent)
	}
	if m.sent[0] != processingReply {
		t.Errorf("Expected processing acknowledgement first, got %q", m.sent[0])
	}
	summary := m.sent[1]
	for _, want := range []string{"23.02", "72.57", "-21.50%", "decreasing", "unusual vegetation change"} {
		if !strings.Contains(summary, want) {
			t.Errorf("Summary missing %q: %q", want, summary)
		}
	}
}

func TestFreeTextNoImagery(t *testing.T) {
	m := &fakeMessenger{}
	r := &fakeResolver{resolve: func(string) (*geocode.Point, error) {
		return &geocode.Point{Latitude: 1, Longitude: 2}, nil
	}}
	a := &fakeAnalyzer{enhanced: func(float64, float64) (*vegetation.EnhancedResult, error) {
		return &vegetation.EnhancedResult{
			TrendDirection: vegetation.TrendStable,
			AlertLevel:     vegetation.AlertNormal,
			AnalysisType:   "enhanced",
		}, nil
	}}

	newTestBot(m, r, a).handleUpdate(context.Background(), update(1, "1, 2"))

	summary := m.sent[len(m.sent)-1]
	if !strings.Contains(summary, "no recent imagery") {
		t.Errorf("Expected explicit no-imagery note, got %q", summary)
	}
}

func TestLocationNotFound(t *testing.T) {
	m := &fakeMessenger{}
	r := &fakeResolver{resolve: func(string) (*geocode.Point, error) {
		return nil, geocode.ErrNotFound
	}}

	newTestBot(m, r, &fakeAnalyzer{}).handleUpdate(context.Background(), update(1, "Atlantis"))

	if m.sent[len(m.sent)-1] != notFoundReply {
		t.Errorf("Unexpected replies: %v", m.sent)
	}
}

func TestInvalidCoordinates(t *testing.T) {
	m := &fakeMessenger{}
	r := &fakeResolver{resolve: func(string) (*geocode.Point, error) {
		return nil, geocode.ErrInvalidFormat
	}}

	newTestBot(m, r, &fakeAnalyzer{}).handleUpdate(context.Background(), update(1, "21.17, abc"))

	if m.sent[len(m.sent)-1] != badFormatReply {
		t.Errorf("Unexpected replies: %v", m.sent)
	}
}

func TestGeocoderUnavailable(t *testing.T) {
	m := &fakeMessenger{}
	r := &fakeResolver{resolve: func(string) (*geocode.Point, error) {
		return nil, geocode.ErrUnavailable
	}}

	newTestBot(m, r, &fakeAnalyzer{}).handleUpdate(context.Background(), update(1, "Ahmedabad"))

	if m.sent[len(m.sent)-1] != geocodeDownReply {
		t.Errorf("Unexpected replies: %v", m.sent)
	}
}

func TestSlowGeocodeHitsMessageTimeout(t *testing.T) {
	m := &fakeMessenger{}
	r := &fakeResolver{resolve: func(string) (*geocode.Point, error) {
		time.Sleep(300 * time.Millisecond)
		return &geocode.Point{Latitude: 1, Longitude: 2}, nil
	}}
	b := New(m, r, &fakeAnalyzer{}, 1, time.Second, 50*time.Millisecond)

	b.handleUpdate(context.Background(), update(1, "Ahmedabad"))

	if m.sent[len(m.sent)-1] != geocodeDownReply {
		t.Errorf("Expected timeout reply, got %v", m.sent)
	}
}

func TestSatelliteUnavailable(t *testing.T) {
	m := &fakeMessenger{}
	r := &fakeResolver{resolve: func(string) (*geocode.Point, error) {
		return &geocode.Point{Latitude: 1, Longitude: 2}, nil
	}}
	a := &fakeAnalyzer{enhanced: func(float64, float64) (*vegetation.EnhancedResult, error) {
		return nil, vegetation.ErrUnavailable
	}}

	newTestBot(m, r, a).handleUpdate(context.Background(), update(1, "1, 2"))

	if m.sent[len(m.sent)-1] != satelliteReply {
		t.Errorf("Unexpected replies: %v", m.sent)
	}
}

func TestPanicDoesNotKillHandler(t *testing.T) {
	m := &fakeMessenger{}
	r := &fakeResolver{resolve: func(string) (*geocode.Point, error) {
		return &geocode.Point{Latitude: 1, Longitude: 2}, nil
	}}
	a := &fakeAnalyzer{enhanced: func(float64, float64) (*vegetation.EnhancedResult, error) {
		panic("boom")
	}}
	b := newTestBot(m, r, a)

	b.handleUpdate(context.Background(), update(1, "1, 2"))
	b.handleUpdate(context.Background(), update(2, "/test"))

	if m.sent[len(m.sent)-1] != aliveReply {
		t.Errorf("Handler did not survive the panic: %v", m.sent)
	}
	found := false
	for _, s := range m.sent {
		if s == genericApology {
			found = true
		}
	}
	if !found {
		t.Error("Expected an apology after the panic")
	}
}

func TestRunAdvancesOffsetAndStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var offsets []int64
	m := &fakeMessenger{}
	m.updates = func(offset int64) ([]Update, error) {
		offsets = append(offsets, offset)
		switch offset {
		case 0:
			return []Update{update(10, "/test"), update(11, "/test")}, nil
		default:
			cancel()
			return nil, nil
		}
	}

	err := newTestBot(m, &fakeResolver{}, &fakeAnalyzer{}).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if len(offsets) < 2 || offsets[1] != 12 {
		t.Errorf("Offset not advanced past handled updates: %v", offsets)
	}
}
