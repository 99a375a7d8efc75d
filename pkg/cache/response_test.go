package cache

import (
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, time.March, 14, 15, 9, 26, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func httpDate(t time.Time) string { return t.UTC().Format(http.TimeFormat) }

func newTestResponse(headers http.Header) *CachedResponse {
	return NewCachedResponse(ResponseConfig{ResponseHeaders: headers, Clock: fixedClock})
}

func TestCachedResponse_IsFresh(t *testing.T) {
	tests := []struct {
		name    string
		headers http.Header
		want    bool
	}{
		{
			name: "time to live remaining",
			headers: http.Header{
				"Cache-Control": {"max-age=400"},
				"Date":          {httpDate(testNow.Add(-200 * time.Second))},
			},
			want: true,
		},
		{
			name: "ttl expired",
			headers: http.Header{
				"Cache-Control": {"max-age=400"},
				"Date":          {httpDate(testNow.Add(-500 * time.Second))},
			},
			want: false,
		},
		{
			name: "ttl exactly zero",
			headers: http.Header{
				"Cache-Control": {"max-age=400"},
				"Date":          {httpDate(testNow.Add(-400 * time.Second))},
			},
			want: false,
		},
		{
			name:    "no freshness information",
			headers: http.Header{"Content-Type": {"text/plain"}},
			want:    false,
		},
		{
			name: "expires in the past",
			headers: http.Header{
				"Expires": {httpDate(testNow.Add(-10 * time.Second))},
				"Date":    {httpDate(testNow)},
			},
			want: false,
		},
		{
			name: "age header consumes lifetime",
			headers: http.Header{
				"Cache-Control": {"max-age=60"},
				"Age":           {"90"},
				"Date":          {httpDate(testNow)},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := newTestResponse(tt.headers).IsFresh(); got != tt.want {
				t.Errorf("IsFresh() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCachedResponse_IsFresh_ElapsedWithinLifetime(t *testing.T) {
	const maxAge = 300
	for _, elapsed := range []int{0, 1, 150, 299} {
		headers := http.Header{
			"Cache-Control": {"max-age=300"},
			"Date":          {httpDate(testNow.Add(-time.Duration(elapsed) * time.Second))},
		}
		resp := newTestResponse(headers)

		ttl, ok := resp.TTL()
		require.True(t, ok, "elapsed %d", elapsed)
		assert.Equal(t, time.Duration(maxAge-elapsed)*time.Second, ttl, "elapsed %d", elapsed)
		assert.True(t, resp.IsFresh(), "elapsed %d", elapsed)
	}
}

func TestCachedResponse_MaxAge(t *testing.T) {
	tests := []struct {
		name    string
		headers http.Header
		want    time.Duration
		wantOK  bool
	}{
		{
			name:    "shared max age wins",
			headers: http.Header{"Cache-Control": {"s-maxage=200, max-age=0"}},
			want:    200 * time.Second,
			wantOK:  true,
		},
		{
			name:    "max age directive",
			headers: http.Header{"Cache-Control": {"max-age=200"}},
			want:    200 * time.Second,
			wantOK:  true,
		},
		{
			name: "expires fallback",
			headers: http.Header{
				"Expires": {httpDate(testNow.Add(100 * time.Second))},
				"Date":    {httpDate(testNow)},
			},
			want:   100 * time.Second,
			wantOK: true,
		},
		{
			name:    "expires fallback without date uses now",
			headers: http.Header{"Expires": {httpDate(testNow.Add(100 * time.Second))}},
			want:    100 * time.Second,
			wantOK:  true,
		},
		{
			name: "expires in the past is negative",
			headers: http.Header{
				"Expires": {httpDate(testNow.Add(-30 * time.Second))},
				"Date":    {httpDate(testNow)},
			},
			want:   -30 * time.Second,
			wantOK: true,
		},
		{
			name:    "no information",
			headers: nil,
			wantOK:  false,
		},
		{
			name: "malformed directives fall through to expires",
			headers: http.Header{
				"Cache-Control": {"s-maxage=-1, max-age=abc"},
				"Expires":       {httpDate(testNow.Add(50 * time.Second))},
				"Date":          {httpDate(testNow)},
			},
			want:   50 * time.Second,
			wantOK: true,
		},
		{
			name:    "malformed shared max age falls back to max age",
			headers: http.Header{"Cache-Control": {"s-maxage=1.5, max-age=20"}},
			want:    20 * time.Second,
			wantOK:  true,
		},
		{
			name:    "unparseable expires is absent",
			headers: http.Header{"Expires": {"0"}},
			wantOK:  false,
		},
		{
			name:    "non canonical header name",
			headers: http.Header{"cache-control": {"MAX-AGE=42"}},
			want:    42 * time.Second,
			wantOK:  true,
		},
		{
			name:    "quoted argument",
			headers: http.Header{"Cache-Control": {`max-age="60"`}},
			want:    60 * time.Second,
			wantOK:  true,
		},
		{
			name:    "first repeated directive wins",
			headers: http.Header{"Cache-Control": {"max-age=10, max-age=20"}},
			want:    10 * time.Second,
			wantOK:  true,
		},
		{
			name:    "directives over several field lines",
			headers: http.Header{"Cache-Control": {"public", "max-age=30"}},
			want:    30 * time.Second,
			wantOK:  true,
		},
		{
			name:    "overflow is clamped",
			headers: http.Header{"Cache-Control": {"max-age=99999999999999999999"}},
			want:    maxDeltaSeconds * time.Second,
			wantOK:  true,
		},
		{
			name:    "unrelated directives ignored",
			headers: http.Header{"Cache-Control": {"no-transform, must-revalidate"}},
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := newTestResponse(tt.headers).MaxAge()
			if ok != tt.wantOK {
				t.Fatalf("MaxAge() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("MaxAge() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCachedResponse_Age(t *testing.T) {
	tests := []struct {
		name    string
		headers http.Header
		want    time.Duration
	}{
		{
			name:    "age header",
			headers: http.Header{"Age": {"3"}},
			want:    3 * time.Second,
		},
		{
			name: "age header wins over date",
			headers: http.Header{
				"Age":  {"3"},
				"Date": {httpDate(testNow.Add(-100 * time.Second))},
			},
			want: 3 * time.Second,
		},
		{
			name:    "age from date",
			headers: http.Header{"Date": {httpDate(testNow.Add(-3 * time.Second))}},
			want:    3 * time.Second,
		},
		{
			name:    "list valued age uses first member",
			headers: http.Header{"Age": {"5, 7"}},
			want:    5 * time.Second,
		},
		{
			name: "invalid age falls back to date",
			headers: http.Header{
				"Age":  {"-1"},
				"Date": {httpDate(testNow.Add(-3 * time.Second))},
			},
			want: 3 * time.Second,
		},
		{
			name:    "date in the future",
			headers: http.Header{"Date": {httpDate(testNow.Add(10 * time.Second))}},
			want:    0,
		},
		{
			name:    "no date and no age",
			headers: http.Header{},
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := newTestResponse(tt.headers).Age(); got != tt.want {
				t.Errorf("Age() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCachedResponse_AgeResolvesDate(t *testing.T) {
	headers := http.Header{}
	resp := newTestResponse(headers)

	assert.Equal(t, time.Duration(0), resp.Age())
	assert.Equal(t, testNow, resp.Date())
	assert.Empty(t, headers.Get("Date"), "caller headers must not be mutated")
}

func TestCachedResponse_DateIsStable(t *testing.T) {
	now := testNow
	clock := func() time.Time {
		now = now.Add(1500 * time.Millisecond)
		return now
	}
	resp := NewCachedResponse(ResponseConfig{Clock: clock})

	first := resp.Date()
	second := resp.Date()
	if !first.Equal(second) {
		t.Errorf("Date() = %v then %v, want the same instant", first, second)
	}
	if first.IsZero() {
		t.Error("Date() should not be zero")
	}
}

func TestCachedResponse_DateConcurrent(t *testing.T) {
	var mu sync.Mutex
	now := testNow
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
	resp := NewCachedResponse(ResponseConfig{Clock: clock})

	dates := make([]time.Time, 32)
	var wg sync.WaitGroup
	for i := range dates {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dates[i] = resp.Date()
		}(i)
	}
	wg.Wait()

	for i, d := range dates {
		if !d.Equal(dates[0]) {
			t.Errorf("dates[%d] = %v, want %v", i, d, dates[0])
		}
	}
}

func TestCachedResponse_DateParsesHeader(t *testing.T) {
	resp := newTestResponse(http.Header{"Date": {"Sun, 06 Nov 1994 08:49:37 GMT"}})
	want := time.Date(1994, time.November, 6, 8, 49, 37, 0, time.UTC)
	assert.True(t, want.Equal(resp.Date()), "Date() = %v, want %v", resp.Date(), want)
}

func TestCachedResponse_TTL(t *testing.T) {
	resp := newTestResponse(http.Header{
		"Cache-Control": {"max-age=400"},
		"Date":          {httpDate(testNow.Add(-200 * time.Second))},
	})
	ttl, ok := resp.TTL()
	require.True(t, ok)
	assert.Equal(t, 200*time.Second, ttl)

	_, ok = newTestResponse(nil).TTL()
	assert.False(t, ok, "TTL() should be absent without max age")

	stale := newTestResponse(http.Header{
		"Cache-Control": {"max-age=10"},
		"Age":           {"25"},
	})
	ttl, ok = stale.TTL()
	require.True(t, ok)
	assert.Equal(t, -15*time.Second, ttl)
}

func TestCachedResponse_Evaluate(t *testing.T) {
	resp := newTestResponse(http.Header{
		"Cache-Control": {"s-maxage=120, max-age=60"},
		"Date":          {httpDate(testNow.Add(-20 * time.Second))},
	})

	f := resp.Evaluate()
	assert.Equal(t, Freshness{
		MaxAge:    120 * time.Second,
		HasMaxAge: true,
		Age:       20 * time.Second,
		TTL:       100 * time.Second,
		Fresh:     true,
	}, f)
}

func TestCachedResponse_ToResponse(t *testing.T) {
	cached := NewCachedResponse(ResponseConfig{
		Status:          200,
		ResponseHeaders: http.Header{},
		Body:            []byte("Hi!"),
	})

	resp, err := cached.ToResponse()
	require.NoError(t, err)

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "200 OK", resp.Status)
	assert.Equal(t, http.Header{}, resp.Header)
	assert.Equal(t, int64(3), resp.ContentLength)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Hi!", string(body))
}

func TestCachedResponse_ToResponse_ExposesResolvedDate(t *testing.T) {
	headers := http.Header{"Content-Type": {"text/plain"}}
	cached := NewCachedResponse(ResponseConfig{
		Status:          200,
		ResponseHeaders: headers,
		Clock:           fixedClock,
	})
	cached.Age()

	resp, err := cached.ToResponse()
	require.NoError(t, err)
	assert.Equal(t, httpDate(testNow), resp.Header.Get("Date"))
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	assert.Empty(t, headers.Get("Date"))

	// the unwrapped header is a copy
	resp.Header.Set("X-Test", "1")
	assert.Empty(t, cached.Headers.Get("X-Test"))
}

func TestCachedResponse_ToResponse_MissingStatus(t *testing.T) {
	cached := NewCachedResponse(ResponseConfig{Body: []byte("Hi!")})

	resp, err := cached.ToResponse()
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("ToResponse() error = %v, want ErrInvalidState", err)
	}
	if resp != nil {
		t.Error("ToResponse() should not return a response on error")
	}
}
