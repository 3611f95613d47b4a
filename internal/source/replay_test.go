package source

import (
	"context"
	"testing"
	"time"

	"github.com/Suhaibinator/SChangelog/internal/release"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplay(t *testing.T) {
	published := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	e, err := release.NewRawEntry("v2.0", "v2.0", &published, "body", "", "")
	require.NoError(t, err)

	r := NewReplay("snap", []release.RawEntry{e})
	assert.Equal(t, "snap", r.Name())

	got, err := r.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	got[0].Tag = "changed"

	again, err := r.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v2.0", again[0].Tag)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
