package accepts_test

import (
	"net/http"
	"testing"

	"github.com/advdv/bkoa/accepts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func header(kv ...string) http.Header {
	h := http.Header{}
	for i := 0; i+1 < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return h
}

func TestType(t *testing.T) {
	for _, tt := range []struct {
		name   string
		accept []string
		offers []string
		want   string
		ok     bool
	}{
		{"no header picks first offer", nil, []string{"html", "json"}, "html", true},
		{"empty header picks first offer", []string{""}, []string{"json", "html"}, "json", true},
		{"extension offers", []string{"application/json"}, []string{"html", "json"}, "json", true},
		{"full type offers", []string{"text/html"}, []string{"application/json", "text/html"}, "text/html", true},
		{"quality ordering", []string{"text/html;q=0.5, application/json"}, []string{"html", "json"}, "json", true},
		{"wildcard subtype", []string{"text/*"}, []string{"image/png", "text/plain"}, "text/plain", true},
		{"specificity wins ties", []string{"text/*, text/html"}, []string{"text/plain", "text/html"}, "text/html", true},
		{"refused with q=0", []string{"text/html;q=0"}, []string{"html"}, "", false},
		{"no match", []string{"image/png"}, []string{"html", "json"}, "", false},
		{"unknown extensions", []string{"text/html"}, []string{"nope-nope"}, "", false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.accept != nil {
				h["Accept"] = tt.accept
			}

			got, ok := accepts.New(h).Type(tt.offers...)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestTypes(t *testing.T) {
	a := accepts.New(header("Accept", "application/*;q=0.2, image/jpeg;q=0.8, text/html, text/plain"))
	require.Equal(t, []string{"text/html", "text/plain", "image/jpeg", "application/*"}, a.Types())

	require.Equal(t, []string{"*/*"}, accepts.New(nil).Types())

	best, ok := accepts.New(header("Accept", "text/plain;q=0.5, text/html")).Type()
	require.True(t, ok)
	require.Equal(t, "text/html", best)
}

func TestCharset(t *testing.T) {
	t.Run("absent header picks first offer", func(t *testing.T) {
		got, ok := accepts.New(nil).Charset("utf-7", "utf-8")
		require.True(t, ok)
		require.Equal(t, "utf-7", got)
	})

	t.Run("quality ordering", func(t *testing.T) {
		a := accepts.New(header("Accept-Charset", "utf-8, iso-8859-1;q=0.2, utf-7;q=0.5"))
		got, ok := a.Charset("utf-7", "utf-8")
		require.True(t, ok)
		require.Equal(t, "utf-8", got)
		require.Equal(t, []string{"utf-8", "utf-7", "iso-8859-1"}, a.Charsets())
	})

	t.Run("no match", func(t *testing.T) {
		_, ok := accepts.New(header("Accept-Charset", "utf-8")).Charset("latin1")
		require.False(t, ok)
	})
}

func TestEncoding(t *testing.T) {
	t.Run("absent header only allows identity", func(t *testing.T) {
		a := accepts.New(nil)
		_, ok := a.Encoding("gzip")
		require.False(t, ok)

		got, ok := a.Encoding("gzip", "identity")
		require.True(t, ok)
		require.Equal(t, "identity", got)
		require.Equal(t, []string{"identity"}, a.Encodings())
	})

	t.Run("quality ordering", func(t *testing.T) {
		a := accepts.New(header("Accept-Encoding", "gzip, compress;q=0.2"))
		require.Equal(t, []string{"gzip", "compress", "identity"}, a.Encodings())

		got, ok := a.Encoding("compress", "gzip")
		require.True(t, ok)
		require.Equal(t, "gzip", got)
	})

	t.Run("identity refused", func(t *testing.T) {
		a := accepts.New(header("Accept-Encoding", "gzip, identity;q=0"))
		_, ok := a.Encoding("identity")
		require.False(t, ok)
	})

	t.Run("wildcard covers identity", func(t *testing.T) {
		a := accepts.New(header("Accept-Encoding", "*;q=0.5, br"))
		got, ok := a.Encoding("gzip", "br")
		require.True(t, ok)
		require.Equal(t, "br", got)
	})
}

func TestLanguage(t *testing.T) {
	a := accepts.New(header("Accept-Language", "en;q=0.8, es, pt"))
	require.Equal(t, []string{"es", "pt", "en"}, a.Languages())

	got, ok := a.Language("en", "pt")
	require.True(t, ok)
	assert.Equal(t, "pt", got)

	got, ok = a.Language("en-US", "de")
	require.True(t, ok)
	assert.Equal(t, "en-US", got)

	_, ok = a.Language("de")
	assert.False(t, ok)

	got, ok = accepts.New(nil).Language("de", "en")
	require.True(t, ok)
	assert.Equal(t, "de", got)
}

func TestTieBreaks(t *testing.T) {
	for _, tt := range []struct {
		name   string
		field  string
		value  string
		offers []string
		want   string
		ok     bool
	}{
		{"equal quality follows header order", "Accept-Encoding", "gzip, deflate", []string{"deflate", "gzip"}, "gzip", true},
		{"charset header order", "Accept-Charset", "utf-8, iso-8859-1", []string{"iso-8859-1", "utf-8"}, "utf-8", true},
		{"exact refusal beats wildcard", "Accept-Encoding", "gzip;q=0, *", []string{"gzip"}, "", false},
		{"language prefix", "Accept-Language", "en", []string{"en-US"}, "en-US", true},
		{"absent encoding header", "", "", []string{"gzip"}, "", false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			a := accepts.New(header(tt.field, tt.value))

			var (
				got string
				ok  bool
			)
			switch tt.field {
			case "Accept-Charset":
				got, ok = a.Charset(tt.offers...)
			case "Accept-Language":
				got, ok = a.Language(tt.offers...)
			default:
				got, ok = a.Encoding(tt.offers...)
			}

			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}
