package content

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageExtractor_MainImage(t *testing.T) {
	page := `<!DOCTYPE html>
<html>
<head>
	<title>A post</title>
	<meta property="og:title" content="A post"/>
	<meta property="og:image" content="https://cdn.example.com/cover.png"/>
</head>
<body><article><p>Some body text for the post, long enough to matter.</p></article></body>
</html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	e := NewImageExtractor(5*time.Second, "ReadMoa/1.0")
	img, err := e.MainImage(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/cover.png", img)
}

func TestImageExtractor_NoImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><head><title>t</title></head><body><p>no image here</p></body></html>"))
	}))
	defer server.Close()

	e := NewImageExtractor(5*time.Second, "ReadMoa/1.0")
	img, err := e.MainImage(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Empty(t, img)
}

func TestImageExtractor_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	e := NewImageExtractor(5*time.Second, "ReadMoa/1.0")
	_, err := e.MainImage(context.Background(), server.URL)
	require.Error(t, err)
}

func TestImageExtractor_BadURL(t *testing.T) {
	e := NewImageExtractor(time.Second, "ReadMoa/1.0")

	_, err := e.MainImage(context.Background(), "not-a-url")
	require.Error(t, err)

	_, err = e.MainImage(context.Background(), "://broken")
	require.Error(t, err)
}

func TestOGImage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"present", `<meta property="og:image" content="https://x/i.png">`, "https://x/i.png"},
		{"self closing", `<head><meta property="og:image" content="https://x/i.png"/></head>`, "https://x/i.png"},
		{"absent", `<meta property="og:title" content="t">`, ""},
		{"empty content", `<meta property="og:image" content="">`, ""},
		{"malformed html degrades", `<<<meta property="og:image"`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ogImage([]byte(tt.body)))
		})
	}
}
