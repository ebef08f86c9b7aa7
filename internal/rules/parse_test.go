package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRedirects(t *testing.T) {
	t.Parallel()

	data := []byte(`# user comment

/old  /new  301
/api  /.netlify/functions/api  200
/spa/*  /index.html  200!  Country=us  Language=en
/short  /long
`)

	got, err := ParseRedirects(data)
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, RedirectRule{From: "/old", To: "/new", Status: 301}, got[0])
	assert.Equal(t, RedirectRule{From: "/api", To: "/.netlify/functions/api", Status: 200}, got[1])
	assert.Equal(t, RedirectRule{
		From:   "/spa/*",
		To:     "/index.html",
		Status: 200,
		Force:  true,
		Params: map[string]string{"Country": "us", "Language": "en"},
	}, got[2])
	assert.Equal(t, RedirectRule{From: "/short", To: "/long"}, got[3])
}

func TestParseRedirectsErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
	}{
		{"missing to", "/only-from"},
		{"bad status", "/a  /b  banana"},
		{"bad param", "/a  /b  200  keyonly Country=us"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseRedirects([]byte(tc.in))
			assert.Error(t, err)
		})
	}
}

func TestParseHeaders(t *testing.T) {
	t.Parallel()

	data := []byte(`# managed headers
/*
  X-Frame-Options: DENY
  X-XSS-Protection: 1; mode=block
/admin/*
  Cache-Control: no-store
`)

	got, err := ParseHeaders(data)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "/*", got[0].For)
	assert.Equal(t, map[string]string{
		"X-Frame-Options":  "DENY",
		"X-XSS-Protection": "1; mode=block",
	}, got[0].Values)

	assert.Equal(t, "/admin/*", got[1].For)
	assert.Equal(t, map[string]string{"Cache-Control": "no-store"}, got[1].Values)
}

func TestParseHeadersTrailingWhitespaceOnPath(t *testing.T) {
	t.Parallel()

	got, err := ParseHeaders([]byte("/docs/* \n  Cache-Control: no-store\n"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "/docs/*", got[0].For)
	assert.Equal(t, map[string]string{"Cache-Control": "no-store"}, got[0].Values)
}

func TestParseHeadersOrphanHeader(t *testing.T) {
	t.Parallel()

	_, err := ParseHeaders([]byte("  X-Frame-Options: DENY\n"))
	assert.Error(t, err)
}
