package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*ScryfallClient, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewScryfallClient(srv.URL, 2*time.Second, 0), &calls
}

func writeCards(w http.ResponseWriter, cards []map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": cards})
}

func TestSearchShortQueryMakesNoCall(t *testing.T) {
	client, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeCards(w, nil)
	})

	cards, err := client.Search(context.Background(), " l ")

	require.NoError(t, err)
	assert.Empty(t, cards)
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestSearchMapsFieldsAndRequestsPrints(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cards/search", r.URL.Path)
		assert.Equal(t, "lightning bolt", r.URL.Query().Get("q"))
		assert.Equal(t, "prints", r.URL.Query().Get("unique"))
		writeCards(w, []map[string]any{
			{
				"id": "bolt-1", "name": "Lightning Bolt", "set_name": "Magic 2010",
				"image_uris": map[string]string{"small": "s.jpg", "normal": "n.jpg"},
				"prices":     map[string]any{"usd": "1.5"},
			},
			{
				"id": "dfc-1", "name": "Delver of Secrets // Insectile Aberration", "set_name": "Innistrad",
				"card_faces": []map[string]any{
					{"image_uris": map[string]string{"small": "face-s.jpg", "normal": "face-n.jpg"}},
					{"image_uris": map[string]string{"small": "back-s.jpg", "normal": "back-n.jpg"}},
				},
				"prices": map[string]any{"usd": nil},
			},
		})
	})

	cards, err := client.Search(context.Background(), "lightning bolt")
	require.NoError(t, err)
	require.Len(t, cards, 2)

	assert.Equal(t, "bolt-1", cards[0].ID)
	assert.Equal(t, "Magic 2010", cards[0].SetName)
	assert.Equal(t, Images{Small: "s.jpg", Normal: "n.jpg"}, cards[0].Images)
	require.NotNil(t, cards[0].Price)
	assert.Equal(t, "1.50", *cards[0].Price)

	assert.Equal(t, Images{Small: "face-s.jpg", Normal: "face-n.jpg"}, cards[1].Images)
	assert.Nil(t, cards[1].Price)
}

func TestSearchTruncatesToMaxResults(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		cards := make([]map[string]any, 35)
		for i := range cards {
			cards[i] = map[string]any{"id": fmt.Sprintf("c%d", i), "name": "Forest"}
		}
		writeCards(w, cards)
	})

	cards, err := client.Search(context.Background(), "forest")

	require.NoError(t, err)
	assert.Len(t, cards, MaxResults)
	assert.Equal(t, "c0", cards[0].ID)
}

func TestSearchNotFoundIsEmpty(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"object":"error","code":"not_found"}`))
	})

	cards, err := client.Search(context.Background(), "zzzzqq")

	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestSearchServerErrorIsUpstreamError(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Search(context.Background(), "forest")

	assert.True(t, errors.Is(err, ErrUpstream))
}

type mapCache struct {
	data map[string][]Card
	sets int
}

func (m *mapCache) GetCache(ctx context.Context, key string, dest interface{}) error {
	cards, ok := m.data[key]
	if !ok {
		return errors.New("miss")
	}
	*(dest.(*[]Card)) = cards
	return nil
}

func (m *mapCache) SetCache(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.data[key] = value.([]Card)
	m.sets++
	return nil
}

func TestCachedLookupServesRepeatQueries(t *testing.T) {
	client, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeCards(w, []map[string]any{{"id": "bolt-1", "name": "Lightning Bolt"}})
	})
	cache := &mapCache{data: map[string][]Card{}}
	lookup := NewCachedLookup(client, cache, time.Minute)

	first, err := lookup.Search(context.Background(), "Bolt")
	require.NoError(t, err)
	second, err := lookup.Search(context.Background(), " bolt ")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, 1, cache.sets)
}
