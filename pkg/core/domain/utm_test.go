package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewUTMParams(t *testing.T) {
	p := NewUTMParams(map[string]string{
		"utm_source": "google",
		"utm_term":   "",
		"ref":        "newsletter",
	})
	assert.Equal(t, UTMParams{"utm_source": "google"}, p)

	assert.Nil(t, NewUTMParams(nil))
	assert.Nil(t, NewUTMParams(map[string]string{"foo": "bar"}))
}

func TestUTMParamsApply(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		params UTMParams
		want   string
	}{
		{
			name:   "no params",
			url:    "https://x.com/a",
			params: nil,
			want:   "https://x.com/a",
		},
		{
			name:   "fixed key order",
			url:    "https://x.com/a",
			params: UTMParams{"utm_medium": "cpc", "utm_source": "google"},
			want:   "https://x.com/a?utm_source=google&utm_medium=cpc",
		},
		{
			name:   "existing query",
			url:    "https://x.com/a?x=1",
			params: UTMParams{"utm_campaign": "spring"},
			want:   "https://x.com/a?x=1&utm_campaign=spring",
		},
		{
			name:   "all five keys",
			url:    "https://x.com",
			params: UTMParams{"utm_content": "e", "utm_term": "d", "utm_campaign": "c", "utm_medium": "b", "utm_source": "a"},
			want:   "https://x.com?utm_source=a&utm_medium=b&utm_campaign=c&utm_term=d&utm_content=e",
		},
		{
			name:   "values are escaped",
			url:    "https://x.com/a",
			params: UTMParams{"utm_campaign": "spring sale&more"},
			want:   "https://x.com/a?utm_campaign=spring+sale%26more",
		},
		{
			name:   "fragment kept last",
			url:    "https://x.com/a#top",
			params: UTMParams{"utm_source": "mail"},
			want:   "https://x.com/a?utm_source=mail#top",
		},
		{
			name:   "trailing question mark",
			url:    "https://x.com/a?",
			params: UTMParams{"utm_source": "mail"},
			want:   "https://x.com/a?utm_source=mail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.params.Apply(tt.url))
		})
	}
}

func TestLinkActiveAt(t *testing.T) {
	now := time.Date(2025, 5, 11, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.True(t, (&Link{}).ActiveAt(now))
	assert.True(t, (&Link{ExpiresAt: &future}).ActiveAt(now))
	assert.False(t, (&Link{ExpiresAt: &past}).ActiveAt(now))
	assert.False(t, (&Link{ExpiresAt: &now}).ActiveAt(now))

	d := (&Link{OriginalURL: "https://x.com", ExpiresAt: &past}).Destination()
	assert.True(t, d.ExpiredAt(now))
	assert.Equal(t, "https://x.com", d.URL())
}
