package rules

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRedirectsNewFile(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	rewrites := []RedirectRule{{From: "/api", To: "/.netlify/functions/api"}}

	require.NoError(t, WriteRedirects(fs, "/site/_redirects", rewrites))

	got, err := afero.ReadFile(fs, "/site/_redirects")
	require.NoError(t, err)
	assert.Equal(t, MachineHeader+"\n\n/api  /.netlify/functions/api  200", string(got))
}

func TestWriteRedirectsAppendsToUserFile(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	user := "/hand  /written  302\n"
	require.NoError(t, afero.WriteFile(fs, "/site/_redirects", []byte(user), 0o644))

	require.NoError(t, WriteRedirects(fs, "/site/_redirects", []RedirectRule{
		{From: "/api", To: "/fn/api"},
	}))

	got, err := afero.ReadFile(fs, "/site/_redirects")
	require.NoError(t, err)
	assert.Equal(t,
		"/hand  /written  302\n\n"+MachineHeader+"\n\n/api  /fn/api  200",
		string(got))
}

func TestWriteRedirectsReplacesManagedFile(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, WriteRedirects(fs, "/site/_redirects", []RedirectRule{
		{From: "/v1", To: "/v2"},
	}))
	require.NoError(t, WriteRedirects(fs, "/site/_redirects", []RedirectRule{
		{From: "/v2", To: "/v3"},
	}))

	got, err := afero.ReadFile(fs, "/site/_redirects")
	require.NoError(t, err)
	assert.Equal(t, MachineHeader+"\n\n/v2  /v3  200", string(got))
}

func TestWriteRedirectsRewriteKeepsUserRules(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	user := "/hand  /written  302\n"
	require.NoError(t, afero.WriteFile(fs, "/site/_redirects", []byte(user), 0o644))

	// Two consecutive builds rewrite the generated block; the user-authored
	// rule survives both and only the latest generated content remains.
	require.NoError(t, WriteRedirects(fs, "/site/_redirects", []RedirectRule{
		{From: "/api", To: "/fn/api"},
	}))
	require.NoError(t, WriteRedirects(fs, "/site/_redirects", []RedirectRule{
		{From: "/api", To: "/fn/api2"},
	}))

	got, err := afero.ReadFile(fs, "/site/_redirects")
	require.NoError(t, err)
	assert.Equal(t,
		"/hand  /written  302\n\n"+MachineHeader+"\n\n/api  /fn/api2  200",
		string(got))
}

func TestFormatRedirect(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   RedirectRule
		want string
	}{
		{
			"defaults status",
			RedirectRule{From: "/a", To: "/b"},
			"/a  /b  200",
		},
		{
			"force marker",
			RedirectRule{From: "/a", To: "/b", Status: 301, Force: true},
			"/a  /b  301!",
		},
		{
			"params sorted",
			RedirectRule{From: "/a", To: "/b", Status: 200, Params: map[string]string{
				"Language": "en",
				"Country":  "us",
			}},
			"/a  /b  200  Country=us  Language=en",
		},
		{
			"whitespace value dropped",
			RedirectRule{From: "/a", To: "/b", Status: 200, Params: map[string]string{
				"Role":    "admin user",
				"Country": "us",
			}},
			"/a  /b  200  Country=us",
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, formatRedirect(tc.in))
		})
	}
}
