package alignment

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweet-price-lab/internal/domain"
)

func f64(v float64) *float64 { return &v }

func aligned(id string, at, plus1h, plus24h *float64) *domain.AlignedEvent {
	e := &domain.AlignedEvent{
		ClusteredEvent: domain.ClusteredEvent{EventID: id, MemberPostIDs: []string{id + "-p"}},
		PriceAtEvent:   at,
		PricePlus1h:    plus1h,
		PricePlus24h:   plus24h,
	}
	e.Change1hPct = domain.PctChange(at, plus1h)
	e.Change24hPct = domain.PctChange(at, plus24h)
	return e
}

func TestApplyOverrides_Exclude(t *testing.T) {
	events := []*domain.AlignedEvent{aligned("e1", f64(1), nil, nil), aligned("e2", f64(2), nil, nil)}

	out := ApplyOverrides(events, []Override{Exclude{EventID: "e1", Reason: "spam"}})
	require.Len(t, out, 1)
	assert.Equal(t, "e2", out[0].EventID)
	assert.Len(t, events, 2)
}

func TestApplyOverrides_PinPriceRecomputesChanges(t *testing.T) {
	events := []*domain.AlignedEvent{aligned("e1", nil, f64(1.5), f64(0.5))}

	out := ApplyOverrides(events, []Override{PinPrice{EventID: "e1", Offset: OffsetEvent, Price: 1.0}})
	require.Len(t, out, 1)

	got := out[0]
	require.NotNil(t, got.Change1hPct)
	assert.InDelta(t, 50.0, *got.Change1hPct, 1e-9)
	require.NotNil(t, got.Change24hPct)
	assert.InDelta(t, -50.0, *got.Change24hPct, 1e-9)
	assert.True(t, got.Overridden)
	assert.Nil(t, got.ResolutionAtEvent)

	// input untouched
	assert.Nil(t, events[0].PriceAtEvent)
	assert.Nil(t, events[0].Change1hPct)
	assert.False(t, events[0].Overridden)
}

func TestApplyOverrides_PinTargetKeepsAbsentBaseAbsent(t *testing.T) {
	events := []*domain.AlignedEvent{aligned("e1", nil, nil, nil)}

	out := ApplyOverrides(events, []Override{PinPrice{EventID: "e1", Offset: Offset24h, Price: 3}})
	require.Len(t, out, 1)
	assert.NotNil(t, out[0].PricePlus24h)
	assert.Nil(t, out[0].Change24hPct)
}

func TestApplyOverrides_AnnotateAndOrder(t *testing.T) {
	events := []*domain.AlignedEvent{aligned("e1", f64(1), nil, nil)}

	out := ApplyOverrides(events, []Override{
		Annotate{EventID: "e1", Label: "first"},
		Annotate{EventID: "e1", Label: "launch"},
	})
	require.Len(t, out, 1)
	assert.Equal(t, "launch", out[0].Annotation)
}

func TestApplyOverrides_NoOverridesCopies(t *testing.T) {
	events := []*domain.AlignedEvent{aligned("e1", f64(1), f64(2), nil)}

	out := ApplyOverrides(events, nil)
	require.Len(t, out, 1)
	assert.Equal(t, events[0], out[0])
	assert.NotSame(t, events[0], out[0])
	assert.NotSame(t, events[0].PriceAtEvent, out[0].PriceAtEvent)
}

func TestUnmatched(t *testing.T) {
	events := []*domain.AlignedEvent{aligned("e1", nil, nil, nil)}
	got := Unmatched(events, []Override{
		Exclude{EventID: "e1"},
		Exclude{EventID: "ghost"},
		Annotate{EventID: "ghost", Label: "x"},
	})
	assert.Equal(t, []string{"ghost"}, got)
}

func TestParseOverrides(t *testing.T) {
	doc := []byte(`
overrides:
  - event_id: e1
    kind: exclude
    reason: duplicate account
  - event_id: e2
    kind: pin_price
    offset: 24h
    price: 0.0042
  - event_id: e3
    kind: annotate
    label: launch
`)
	got, err := ParseOverrides(doc)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, Exclude{EventID: "e1", Reason: "duplicate account"}, got[0])
	assert.Equal(t, PinPrice{EventID: "e2", Offset: Offset24h, Price: 0.0042}, got[1])
	assert.Equal(t, Annotate{EventID: "e3", Label: "launch"}, got[2])
}

func TestParseOverrides_Invalid(t *testing.T) {
	docs := map[string]string{
		"unknown kind":     "overrides:\n  - event_id: e1\n    kind: merge\n",
		"missing price":    "overrides:\n  - event_id: e1\n    kind: pin_price\n    offset: 1h\n",
		"bad offset":       "overrides:\n  - event_id: e1\n    kind: pin_price\n    offset: 2h\n    price: 1\n",
		"negative price":   "overrides:\n  - event_id: e1\n    kind: pin_price\n    offset: 1h\n    price: -1\n",
		"missing event id": "overrides:\n  - kind: exclude\n",
		"empty label":      "overrides:\n  - event_id: e1\n    kind: annotate\n",
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			_, err := ParseOverrides([]byte(doc))
			assert.True(t, errors.Is(err, ErrInvalidOverride), "got %v", err)
		})
	}
}

func TestLoadOverrides(t *testing.T) {
	got, err := LoadOverrides("")
	require.NoError(t, err)
	assert.Empty(t, got)

	path := filepath.Join(t.TempDir(), "overrides.yaml")
	require.NoError(t, os.WriteFile(path, []byte("overrides:\n  - event_id: e1\n    kind: exclude\n"), 0o600))

	got, err = LoadOverrides(path)
	require.NoError(t, err)
	require.Len(t, got, 1)

	_, err = LoadOverrides(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
