package domain

// Asset is a tracked token paired with the founder account whose posts are analysed.
// Corresponds to assets table in PostgreSQL.
type Asset struct {
	ID            string // PRIMARY KEY, short slug (e.g. "pump")
	Symbol        string // ticker symbol
	Name          string // display name
	FounderHandle string // author handle without leading '@'
	LaunchedAtMs  int64  // token launch time, Unix ms (0 if unknown)
	CreatedAt     int64  // record creation timestamp (ms)
}
