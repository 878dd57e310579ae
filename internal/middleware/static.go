package middleware

import (
	"net/http"
	"os"
	"path/filepath"
)

// DocumentFileServer serves stored application documents from disk. Paths are
// cleaned so a request cannot escape the storage directory. Documents are
// private records, never cached by intermediaries.
func DocumentFileServer(dir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))

		if info, err := os.Stat(path); err != nil || info.IsDir() {
			http.Error(w, "Document not found", http.StatusNotFound)
			return
		}

		w.Header().Set("Cache-Control", "private, no-store")
		http.ServeFile(w, r, path)
	})
}
