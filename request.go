package spiderweb

import (
	"fmt"
	"io"
	"net/http"

	"github.com/elnormous/contenttype"
	"github.com/gorilla/mux"
)

// DefaultMaxMemory is the part of a multipart body kept in memory when
// no Config says otherwise.
const DefaultMaxMemory = 32 << 20

// ReadRequest decodes the raw parameters of r.
//
// A multipart body yields its form fields as single values and its file
// parts as payloads; only the first file sent under a name is kept.  Any
// other request yields r.Form, the query plus a urlencoded body.  Route
// variables matched by gorilla/mux come first in the values of their name.
func ReadRequest(r *http.Request, maxMemory int64) (*RawParameters, error) {
	values := make(map[string][]string)
	files := make(map[string][]byte)

	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return nil, fmt.Errorf("failed to parse multipart: %w", err)
		}
		for name, vs := range r.MultipartForm.Value {
			values[name] = vs
		}
		for name, fhs := range r.MultipartForm.File {
			if len(fhs) == 0 {
				continue
			}
			f, err := fhs[0].Open()
			if err != nil {
				return nil, fmt.Errorf("failed to parse multipart: %w", err)
			}
			b, err := io.ReadAll(f)
			_ = f.Close()
			if err != nil {
				return nil, fmt.Errorf("failed to parse multipart: %w", err)
			}
			files[name] = b
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("failed to parse form: %w", err)
		}
		for name, vs := range r.Form {
			values[name] = vs
		}
	}

	for name, v := range mux.Vars(r) {
		values[name] = append([]string{v}, values[name]...)
	}
	return NewRawParameters(values, files), nil
}

var multipartMediaType = contenttype.NewMediaType("multipart/form-data")

func isMultipart(r *http.Request) bool {
	ctype, err := contenttype.GetMediaType(r)
	return err == nil && ctype.Matches(multipartMediaType)
}
