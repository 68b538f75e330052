package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "voxchat.db"))
	require.NoError(t, err, "failed to open store")
	t.Cleanup(func() { s.Close() })

	return s
}

func TestTokenRoundTrip(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Token()
	assert.ErrorIs(t, err, ErrNotFound, "expected ErrNotFound before any save")

	require.NoError(t, s.SaveToken("tok-1"), "failed to save token")
	tok, err := s.Token()
	require.NoError(t, err, "failed to load token")
	assert.Equal(t, "tok-1", tok, "unexpected token")

	require.NoError(t, s.SaveToken("tok-2"), "failed to overwrite token")
	tok, err = s.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok, "expected the newer token")

	require.NoError(t, s.DeleteToken(), "failed to delete token")
	_, err = s.Token()
	assert.ErrorIs(t, err, ErrNotFound, "expected ErrNotFound after delete")
}

func TestPreviewsRoundTrip(t *testing.T) {
	s := newTestStore(t)

	previews, err := s.Previews()
	require.NoError(t, err)
	assert.Empty(t, previews, "expected an empty cache initially")

	saved := []Preview{
		{Kind: "contact", PeerId: 10, Name: "ten", Content: "old", LastTime: time.Unix(100, 0).UTC(), Unread: 2},
		{Kind: "contact", PeerId: 20, Name: "twenty", Content: "new", LastTime: time.Unix(200, 0).UTC()},
		{Kind: "group", PeerId: 5, Name: "room"},
	}
	require.NoError(t, s.SavePreviews(saved), "failed to save previews")

	previews, err = s.Previews()
	require.NoError(t, err, "failed to load previews")
	require.Len(t, previews, 3)

	assert.Equal(t, 20, previews[0].PeerId, "expected most recent preview first")
	assert.Equal(t, 10, previews[1].PeerId)
	assert.Equal(t, "group", previews[2].Kind, "expected the entry with no timestamp last")
	assert.Equal(t, 2, previews[1].Unread, "unread counter should survive the round trip")
	assert.True(t, previews[0].LastTime.Equal(time.Unix(200, 0)), "timestamp should survive the round trip")
}

func TestSavePreviewsReplaces(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SavePreviews([]Preview{{Kind: "contact", PeerId: 10, Name: "ten"}}))
	require.NoError(t, s.SavePreviews([]Preview{{Kind: "contact", PeerId: 20, Name: "twenty"}}))

	previews, err := s.Previews()
	require.NoError(t, err)
	require.Len(t, previews, 1, "expected the cache replaced wholesale")
	assert.Equal(t, 20, previews[0].PeerId)
}
