package pagination

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("decode(encode(n)) == n for n >= 0", prop.ForAll(
		func(n int) bool {
			got, err := DecodeCursor(EncodeCursor(n))
			return err == nil && got == n
		},
		gen.IntRange(0, 1<<40),
	))

	properties.Property("tokens are URL safe", prop.ForAll(
		func(n int) bool {
			for _, r := range EncodeCursor(n) {
				if r == '+' || r == '/' || r == '=' {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 1<<40),
	))

	properties.TestingRun(t)
}

func TestDecodeCursor_Empty(t *testing.T) {
	n, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	neg := base64.RawURLEncoding.EncodeToString([]byte(`{"offset":-3}`))
	missing := base64.RawURLEncoding.EncodeToString([]byte(`{"page":2}`))
	notJSON := base64.RawURLEncoding.EncodeToString([]byte(`offset=2`))

	for name, tok := range map[string]string{
		"negative":  neg,
		"missing":   missing,
		"not json":  notJSON,
		"not b64":   "%%%",
		"std b64 +": "ab+/",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeCursor(tok)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidCursor))
		})
	}
}

func TestEncodeCursor_ClampsNegative(t *testing.T) {
	n, err := DecodeCursor(EncodeCursor(-5))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestPaginate_ThreePages(t *testing.T) {
	items := seq(25)

	p1, err := Paginate(items, 10, "")
	require.NoError(t, err)
	assert.Equal(t, items[0:10], p1.Items)
	assert.True(t, p1.HasMore)
	off, err := DecodeCursor(p1.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, 10, off)
	require.NotNil(t, p1.TotalCount)
	assert.Equal(t, 25, *p1.TotalCount)

	p2, err := Paginate(items, 10, p1.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, items[10:20], p2.Items)
	assert.True(t, p2.HasMore)

	p3, err := Paginate(items, 10, p2.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, items[20:25], p3.Items)
	assert.False(t, p3.HasMore)
	assert.Empty(t, p3.NextCursor)
}

func TestPaginate_OffsetPastEnd(t *testing.T) {
	p, err := Paginate(seq(5), 10, EncodeCursor(5))
	require.NoError(t, err)
	assert.Empty(t, p.Items)
	assert.NotNil(t, p.Items)
	assert.False(t, p.HasMore)

	p, err = Paginate(seq(5), 10, EncodeCursor(99))
	require.NoError(t, err)
	assert.Empty(t, p.Items)
	assert.False(t, p.HasMore)
}

func TestPaginate_InvalidCursor(t *testing.T) {
	_, err := Paginate(seq(5), 2, "!!")
	require.ErrorIs(t, err, ErrInvalidCursor)
}

func TestPaginate_DefaultPageSize(t *testing.T) {
	p, err := Paginate(seq(120), 0, "")
	require.NoError(t, err)
	assert.Len(t, p.Items, DefaultPageSize)
	assert.True(t, p.HasMore)
}

func TestPaginate_DoesNotAliasInput(t *testing.T) {
	items := seq(4)
	p, err := Paginate(items, 2, "")
	require.NoError(t, err)
	p.Items[0] = 100
	assert.Equal(t, 0, items[0])
}

type fakeBackend struct {
	data  []string
	calls [][2]int
}

func (b *fakeBackend) fetch(_ context.Context, skip, top int) ([]string, error) {
	b.calls = append(b.calls, [2]int{skip, top})
	if skip >= len(b.data) {
		return nil, nil
	}
	end := min(skip+top, len(b.data))
	return b.data[skip:end], nil
}

func TestPaginateStream_Heuristic(t *testing.T) {
	b := &fakeBackend{data: []string{"a", "b", "c", "d", "e"}}
	ctx := context.Background()

	p1, err := PaginateStream(ctx, b.fetch, 2, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, p1.Items)
	assert.True(t, p1.HasMore)
	assert.Nil(t, p1.TotalCount)

	p2, err := PaginateStream(ctx, b.fetch, 2, p1.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, p2.Items)
	assert.True(t, p2.HasMore)

	p3, err := PaginateStream(ctx, b.fetch, 2, p2.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, []string{"e"}, p3.Items)
	assert.False(t, p3.HasMore)

	assert.Equal(t, [][2]int{{0, 2}, {2, 2}, {4, 2}}, b.calls)
}

func TestPaginateStream_FullLastPageNeedsExtraFetch(t *testing.T) {
	b := &fakeBackend{data: []string{"a", "b", "c", "d"}}
	ctx := context.Background()

	p2, err := PaginateStream(ctx, b.fetch, 2, EncodeCursor(2))
	require.NoError(t, err)
	assert.True(t, p2.HasMore, "heuristic reports more on an exactly full page")

	p3, err := PaginateStream(ctx, b.fetch, 2, p2.NextCursor)
	require.NoError(t, err)
	assert.Empty(t, p3.Items)
	assert.False(t, p3.HasMore)
}

func TestPaginateStream_Lookahead(t *testing.T) {
	b := &fakeBackend{data: []string{"a", "b", "c", "d"}}
	ctx := context.Background()

	p1, err := PaginateStream(ctx, b.fetch, 2, "", WithLookahead())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, p1.Items)
	assert.True(t, p1.HasMore)

	p2, err := PaginateStream(ctx, b.fetch, 2, p1.NextCursor, WithLookahead())
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, p2.Items)
	assert.False(t, p2.HasMore)
	assert.Empty(t, p2.NextCursor)
	assert.Equal(t, [][2]int{{0, 3}, {2, 3}}, b.calls)
}

func TestPaginateStream_FetchError(t *testing.T) {
	boom := errors.New("backend down")
	_, err := PaginateStream(context.Background(), func(context.Context, int, int) ([]int, error) {
		return nil, boom
	}, 10, "")
	require.ErrorIs(t, err, boom)
}
