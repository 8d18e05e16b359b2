package domain

// ClusteredEvent is one or more posts by one author merged into a single analysis unit.
type ClusteredEvent struct {
	EventID         string   `json:"event_id"`
	AssetID         string   `json:"asset_id"`
	Author          string   `json:"author"`
	AnchorPostID    string   `json:"anchor_post_id"`
	MemberPostIDs   []string `json:"member_post_ids"` // chronological, anchor first
	CombinedText    string   `json:"combined_text"`
	EventTimestamp  int64    `json:"event_timestamp_ms"` // anchor timestamp
	ClusterSize     int      `json:"cluster_size"`
	TimeSpanMs      int64    `json:"time_span_ms"` // last member - anchor
	FormedViaThread bool     `json:"formed_via_thread"`

	TotalLikes   int64 `json:"total_likes"`
	TotalReposts int64 `json:"total_reposts"`
	TotalReplies int64 `json:"total_replies"`
	TotalQuotes  int64 `json:"total_quotes"`
	TotalViews   int64 `json:"total_views"`
}

// AlignedEvent is a ClusteredEvent with prices at the event, +1h and +24h.
// Nil price or change fields mean the value is unavailable, never zero.
type AlignedEvent struct {
	ClusteredEvent

	PriceAtEvent *float64 `json:"price_at_event"`
	PricePlus1h  *float64 `json:"price_plus_1h"`
	PricePlus24h *float64 `json:"price_plus_24h"`
	Change1hPct  *float64 `json:"change_1h_pct"`
	Change24hPct *float64 `json:"change_24h_pct"`

	ResolutionAtEvent *Resolution `json:"resolution_at_event"`
	ResolutionPlus1h  *Resolution `json:"resolution_plus_1h"`
	ResolutionPlus24h *Resolution `json:"resolution_plus_24h"`
	StaleAtEvent      bool        `json:"stale_at_event"`

	Overridden bool   `json:"overridden"`
	Annotation string `json:"annotation,omitempty"`
}

// Clone returns a deep copy so derived records never share mutable state.
func (e *AlignedEvent) Clone() *AlignedEvent {
	c := *e
	c.MemberPostIDs = append([]string(nil), e.MemberPostIDs...)
	c.PriceAtEvent = cloneFloat(e.PriceAtEvent)
	c.PricePlus1h = cloneFloat(e.PricePlus1h)
	c.PricePlus24h = cloneFloat(e.PricePlus24h)
	c.Change1hPct = cloneFloat(e.Change1hPct)
	c.Change24hPct = cloneFloat(e.Change24hPct)
	c.ResolutionAtEvent = cloneResolution(e.ResolutionAtEvent)
	c.ResolutionPlus1h = cloneResolution(e.ResolutionPlus1h)
	c.ResolutionPlus24h = cloneResolution(e.ResolutionPlus24h)
	return &c
}

// PctChange returns (target-base)/base*100, or nil when either side is absent or base is zero.
func PctChange(base, target *float64) *float64 {
	if base == nil || target == nil || *base == 0 {
		return nil
	}
	v := (*target - *base) / *base * 100
	return &v
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneResolution(r *Resolution) *Resolution {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
