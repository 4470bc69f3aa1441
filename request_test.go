package spiderweb

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRequestForm(t *testing.T) {
	t.Parallel()
	req := httptest.NewRequest(http.MethodPost, "/signup?source=ad&tag=q",
		strings.NewReader("email=a%40b.co&tag=x&tag=y&subscribe="))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	raw, err := ReadRequest(req, DefaultMaxMemory)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@b.co"}, raw.Values("email"))
	assert.Equal(t, []string{"ad"}, raw.Values("source"))
	assert.Equal(t, []string{"x", "y", "q"}, raw.Values("tag"), "body values come before query values")
	assert.Equal(t, []string{""}, raw.Values("subscribe"))
	assert.Nil(t, raw.File("email"))
}

func TestReadRequestMultipart(t *testing.T) {
	t.Parallel()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("email", "a@b.co"))
	require.NoError(t, mw.WriteField("color", "red"))
	require.NoError(t, mw.WriteField("color", "green"))
	fw, err := mw.CreateFormFile("avatar", "me.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("first"))
	require.NoError(t, err)
	fw, err = mw.CreateFormFile("avatar", "other.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("second"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload?id=3", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	raw, err := ReadRequest(req, DefaultMaxMemory)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@b.co"}, raw.Values("email"))
	assert.Equal(t, []string{"red", "green"}, raw.Values("color"))
	assert.Equal(t, []byte("first"), raw.File("avatar"), "only the first file of a name is kept")
	assert.Nil(t, raw.Values("avatar"))
	assert.Nil(t, raw.Values("id"), "multipart requests use the body only")

	in := NewInput(raw, nil)
	avatar, err := Get[[]byte](in, "avatar")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), avatar)
}

func TestReadRequestMultipartWithoutBoundary(t *testing.T) {
	t.Parallel()
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("x"))
	req.Header.Set("Content-Type", "multipart/form-data")
	_, err := ReadRequest(req, DefaultMaxMemory)
	assert.ErrorIs(t, err, http.ErrMissingBoundary)
	assert.Contains(t, err.Error(), "failed to parse multipart")
}

func TestReadRequestRouteVars(t *testing.T) {
	t.Parallel()
	req := httptest.NewRequest(http.MethodGet, "/users/7?id=8&q=x", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "7", "section": "posts"})

	raw, err := ReadRequest(req, DefaultMaxMemory)
	require.NoError(t, err)
	assert.Equal(t, []string{"7", "8"}, raw.Values("id"))
	assert.Equal(t, []string{"posts"}, raw.Values("section"))
	assert.Equal(t, []string{"x"}, raw.Values("q"))

	id, err := Get[int](NewInput(raw, nil), "id")
	require.NoError(t, err)
	assert.Equal(t, 7, id)
}

func TestReadRequestEmptyUpload(t *testing.T) {
	t.Parallel()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_, err := mw.CreateFormFile("avatar", "empty.png")
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	raw, err := ReadRequest(req, DefaultMaxMemory)
	require.NoError(t, err)
	in := NewInput(raw, nil)

	avatar, err := Get[[]byte](in, "avatar")
	require.NoError(t, err)
	assert.NotNil(t, avatar, "an empty upload is not an absent one")
	assert.Empty(t, avatar)

	missing, err := Get[[]byte](in, "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestReadRequestContentTypes(t *testing.T) {
	t.Parallel()
	cases := []struct {
		contentType string
		multipart   bool
	}{
		{"multipart/form-data; boundary=b", true},
		{"application/x-www-form-urlencoded", false},
		{"text/plain", false},
		{"", false},
		{"not a media type", false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		if tc.contentType != "" {
			req.Header.Set("Content-Type", tc.contentType)
		}
		assert.Equal(t, tc.multipart, isMultipart(req), tc.contentType)
	}
}
