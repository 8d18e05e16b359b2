// Package clustering collapses bursts of posts and delayed self-reply threads
// by one author into single events.
package clustering

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"tweet-price-lab/internal/domain"
	"tweet-price-lab/internal/idhash"
)

// DefaultSeparator joins member texts in CombinedText.
const DefaultSeparator = "\n\n---\n\n"

// ErrInvalidOptions is returned when clustering options are rejected.
var ErrInvalidOptions = errors.New("invalid clustering options")

// Options controls event clustering.
type Options struct {
	// Window is the fast-burst threshold, measured from the last member.
	Window time.Duration
	// ThreadMaxGap caps self-reply chaining, measured from the anchor.
	ThreadMaxGap time.Duration
	// Separator joins member texts. Empty means DefaultSeparator.
	Separator string
}

// DefaultOptions returns a 15 minute window and a 6 hour thread cap.
func DefaultOptions() Options {
	return Options{
		Window:       15 * time.Minute,
		ThreadMaxGap: 6 * time.Hour,
		Separator:    DefaultSeparator,
	}
}

// Validate checks 0 < Window < ThreadMaxGap.
func (o Options) Validate() error {
	if o.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %s", ErrInvalidOptions, o.Window)
	}
	if o.ThreadMaxGap <= o.Window {
		return fmt.Errorf("%w: thread max gap (%s) must exceed window (%s)", ErrInvalidOptions, o.ThreadMaxGap, o.Window)
	}
	return nil
}

// Cluster groups one author's posts into events.
//
// Posts are stable-sorted by timestamp, so equal timestamps keep input order.
// A post joins the open cluster when it is within Window of the previous member,
// or when it replies to the author and lies within ThreadMaxGap of the anchor.
// Posts must have passed domain.ValidatePosts; the input slice is not modified.
func Cluster(assetID string, posts []*domain.Post, opts Options) []*domain.ClusteredEvent {
	if len(posts) == 0 {
		return nil
	}

	sorted := make([]*domain.Post, len(posts))
	copy(sorted, posts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TimestampMs < sorted[j].TimestampMs
	})

	sep := opts.Separator
	if sep == "" {
		sep = DefaultSeparator
	}
	windowMs := opts.Window.Milliseconds()
	threadMs := opts.ThreadMaxGap.Milliseconds()
	author := sorted[0].Author

	var events []*domain.ClusteredEvent
	members := []*domain.Post{sorted[0]}
	viaThread := false

	for _, p := range sorted[1:] {
		anchor := members[0]
		last := members[len(members)-1]

		fromLast := p.TimestampMs - last.TimestampMs
		fromAnchor := p.TimestampMs - anchor.TimestampMs
		inWindow := fromLast <= windowMs
		selfReply := p.IsReplyTo(author) && fromAnchor <= threadMs

		if inWindow || selfReply {
			members = append(members, p)
			if !inWindow {
				viaThread = true
			}
			continue
		}

		events = append(events, buildEvent(assetID, members, viaThread, sep))
		members = []*domain.Post{p}
		viaThread = false
	}
	events = append(events, buildEvent(assetID, members, viaThread, sep))

	return events
}

func buildEvent(assetID string, members []*domain.Post, viaThread bool, sep string) *domain.ClusteredEvent {
	anchor := members[0]
	last := members[len(members)-1]

	ids := make([]string, len(members))
	texts := make([]string, len(members))
	ev := &domain.ClusteredEvent{
		EventID:         idhash.ComputeEventID(anchor.Author, anchor.ID),
		AssetID:         assetID,
		Author:          domain.NormalizeHandle(anchor.Author),
		AnchorPostID:    anchor.ID,
		EventTimestamp:  anchor.TimestampMs,
		ClusterSize:     len(members),
		TimeSpanMs:      last.TimestampMs - anchor.TimestampMs,
		FormedViaThread: viaThread,
	}
	for i, m := range members {
		ids[i] = m.ID
		texts[i] = m.Text
		ev.TotalLikes += m.Likes
		ev.TotalReposts += m.Reposts
		ev.TotalReplies += m.Replies
		ev.TotalQuotes += m.Quotes
		ev.TotalViews += m.Views
	}
	ev.MemberPostIDs = ids
	ev.CombinedText = strings.Join(texts, sep)

	return ev
}
