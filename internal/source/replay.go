package source

import (
	"context"

	"github.com/Suhaibinator/SChangelog/internal/release"
)

// Replay serves entries captured by an earlier run instead of calling the upstream.
type Replay struct {
	name    string
	entries []release.RawEntry
}

func NewReplay(name string, entries []release.RawEntry) *Replay {
	return &Replay{name: name, entries: entries}
}

func (r *Replay) Name() string { return r.name }

// Fetch returns a copy of the captured entries, in their original order.
func (r *Replay) Fetch(ctx context.Context) ([]release.RawEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]release.RawEntry, len(r.entries))
	copy(out, r.entries)
	return out, nil
}
