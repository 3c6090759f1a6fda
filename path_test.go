package mirror_test

import (
	"testing"

	"github.com/fwojciec/mirror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/", "index.html"},
		{"https://example.com", "index.html"},
		{"https://example.com/blog/", "blog/index.html"},
		{"https://example.com/about", "about.html"},
		{"https://example.com/assets/app.js", "assets/app.js"},
		{"https://example.com/app.js?v=2", "app__q_v_2.js"},
		{"https://example.com/search?q=a+b&x=1", "search__q_q_a_b_x_1.html"},
		{"https://example.com/page#frag", "page.html"},
		{"https://example.com/../../etc/passwd", "etc/passwd.html"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, mirror.LocalPath(tt.url))
		})
	}
}

func TestLocalPath_IsDeterministic(t *testing.T) {
	t.Parallel()

	u := "https://example.com/a/b/c.css?x=1&y=2"
	assert.Equal(t, mirror.LocalPath(u), mirror.LocalPath(u))
}

func TestRelativeRef(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		from     string
		target   string
		fragment string
		want     string
	}{
		{"same directory", "index.html", "app.js", "", "./app.js"},
		{"same nested directory", "mod/a.js", "mod/chunk.js", "", "./chunk.js"},
		{"down one level", "index.html", "assets/app.js", "", "./assets/app.js"},
		{"up one level", "about/index.html", "assets/app.js", "", "../assets/app.js"},
		{"fragment appended", "index.html", "about.html", "team", "./about.html#team"},
		{"sibling directory", "a/b/c.css", "a/img/x.png", "", "../img/x.png"},
		{"space escaped", "index.html", "my file.png", "", "./my%20file.png"},
		{"colon in first segment", "index.html", "a:b.html", "", "./a:b.html"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, mirror.RelativeRef(tt.from, tt.target, tt.fragment))
		})
	}
}

func TestMapper_Localize(t *testing.T) {
	t.Parallel()

	s, err := mirror.NewScope("https://example.com/")
	require.NoError(t, err)

	t.Run("root-relative reference becomes relative path", func(t *testing.T) {
		t.Parallel()
		m := mirror.NewMapper(s)
		got, ok := m.Localize(mirror.KindHTML, "/assets/app.js", "about/index.html")
		assert.True(t, ok)
		assert.Equal(t, "../assets/app.js", got)
	})

	t.Run("fragment preserved", func(t *testing.T) {
		t.Parallel()
		m := mirror.NewMapper(s)
		got, ok := m.Localize(mirror.KindHTML, "/about#team", "index.html")
		assert.True(t, ok)
		assert.Equal(t, "./about.html#team", got)
	})

	t.Run("absolute and protocol-relative same-origin references are localized", func(t *testing.T) {
		t.Parallel()
		m := mirror.NewMapper(s)
		got, ok := m.Localize(mirror.KindHTML, "https://example.com/assets/app.js", "about/index.html")
		assert.True(t, ok)
		assert.Equal(t, "../assets/app.js", got)
		got, ok = m.Localize(mirror.KindHTML, "//example.com/assets/app.js", "about/index.html")
		assert.True(t, ok)
		assert.Equal(t, "../assets/app.js", got)
		got, ok = m.Localize(mirror.KindHTML, "HTTPS://EXAMPLE.COM/about", "index.html")
		assert.True(t, ok)
		assert.Equal(t, "./about.html", got)
	})

	t.Run("relative and other-host references are left alone", func(t *testing.T) {
		t.Parallel()
		m := mirror.NewMapper(s)
		_, ok := m.Localize(mirror.KindHTML, "img/a.png", "index.html")
		assert.False(t, ok)
		_, ok = m.Localize(mirror.KindHTML, "//cdn.example.net/a.png", "index.html")
		assert.False(t, ok)
		_, ok = m.Localize(mirror.KindHTML, "https://cdn.example.net/a.png", "index.html")
		assert.False(t, ok)
	})

	t.Run("out of filter reference is left alone", func(t *testing.T) {
		t.Parallel()
		m := mirror.NewMapper(s)
		_, ok := m.Localize(mirror.KindCSS, "/fonts/", "css/site.css")
		assert.False(t, ok)
	})

	t.Run("alias redirects to resolved module", func(t *testing.T) {
		t.Parallel()
		m := mirror.NewMapper(s)
		m.Alias("https://example.com/mod/util", "https://example.com/mod/util.js")
		got, ok := m.Localize(mirror.KindJS, "/mod/util", "mod/a.js")
		assert.True(t, ok)
		assert.Equal(t, "./util.js", got)
		assert.Equal(t, "https://example.com/mod/util.js", m.Resolved("https://example.com/mod/util"))
	})
}
