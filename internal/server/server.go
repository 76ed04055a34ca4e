// Package server exposes document resolution and artifact acquisition
// over a small JSON API, plus the local history store.
package server

import (
	"net/http"

	"github.com/sebiscope/sebiscope/internal/utils"
	"github.com/sebiscope/sebiscope/pkg/storage"
)

type Server struct {
	DB       *storage.DB
	DataDir  string
	Proxy    string
	Username string
	Password string
}

func New(db *storage.DB, dataDir, proxy, user, pass string) *Server {
	return &Server{
		DB:       db,
		DataDir:  dataDir,
		Proxy:    proxy,
		Username: user,
		Password: pass,
	}
}

func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/resolve", s.basicAuth(s.handleResolve))
	mux.HandleFunc("POST /api/fetch", s.basicAuth(s.handleFetch))
	mux.HandleFunc("GET /api/history", s.basicAuth(s.handleHistory))

	utils.Log.Infof("starting server on %s", addr)
	return http.ListenAndServe(addr, mux)
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
