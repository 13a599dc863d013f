package server

import (
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/chulminlee01/mrt-tech-test/internal/portal"
)

// outputFiles serves generated artifacts from root. Directories are never listed:
// a directory is answered with its index.html when it has one, otherwise 404.
// index.html is also served under its own name, without redirecting to the directory.
func outputFiles(root string) http.Handler {
	fsys := http.Dir(root)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := path.Clean("/" + r.URL.Path)

		info, err := stat(fsys, name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		if info.IsDir() {
			index := path.Join(name, portal.IndexFile)
			if _, err := stat(fsys, index); err != nil {
				http.NotFound(w, r)
				return
			}
			if !strings.HasSuffix(r.URL.Path, "/") {
				// relative links in the portal need the trailing slash
				w.Header().Set("Location", path.Base(name)+"/")
				w.WriteHeader(http.StatusMovedPermanently)
				return
			}
			name = index
		}

		f, err := fsys.Open(name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer func() { _ = f.Close() }()
		info, err = f.Stat()
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	})
}

func stat(fsys http.FileSystem, name string) (fs.FileInfo, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return f.Stat()
}
