package idx_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/sessiongate/pkg/idx"
)

func TestNewAndParse(t *testing.T) {
	id := idx.New()
	require.False(t, id.IsZero())

	parsed, err := idx.Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
	require.True(t, idx.Valid(id.String()))
}

func TestParseInvalid(t *testing.T) {
	for _, s := range []string{"", "   ", "not-a-ulid", "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3Z"} {
		_, err := idx.Parse(s)
		require.ErrorIs(t, err, idx.ErrInvalid, "input %q", s)
		require.False(t, idx.Valid(s))
	}
}

func TestSameInstantStillUnique(t *testing.T) {
	g := idx.NewGenerator(nil)
	at := time.Unix(1700000000, 0).UTC()

	prev := g.NewAt(at)
	for range 1000 {
		next := g.NewAt(at)
		// Monotonic entropy: strictly increasing within the millisecond.
		require.Greater(t, next.String(), prev.String())
		prev = next
	}
}

func TestConcurrentNew(t *testing.T) {
	const workers, per = 8, 250

	var (
		mu   sync.Mutex
		seen = make(map[idx.ID]struct{}, workers*per)
		wg   sync.WaitGroup
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]idx.ID, 0, per)
			for range per {
				local = append(local, idx.New())
			}
			mu.Lock()
			for _, id := range local {
				seen[id] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, seen, workers*per)
}

func TestTimeExtraction(t *testing.T) {
	tm := time.Unix(1700000000, 0).UTC()
	id := idx.NewAt(tm)

	require.WithinDuration(t, tm, id.Time(), time.Millisecond)
	require.True(t, idx.Zero.Time().IsZero())
	require.True(t, idx.ID("garbage").Time().IsZero())
}
