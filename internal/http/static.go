package httpx

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var staticFS embed.FS

// staticHandler serves embedded static assets at /static/.
func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// The embed is part of the binary; a missing subtree is a build defect.
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServerFS(sub))
}
