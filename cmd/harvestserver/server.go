package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/bcampbell/harvestomat/store"
	"github.com/gorilla/handlers"
)

func EmitError(w http.ResponseWriter, statusCode int) {
	txt := fmt.Sprintf("%d - %s", statusCode, http.StatusText(statusCode))
	http.Error(w, txt, statusCode)
}

type Server struct {
	ErrLog  store.Logger
	InfoLog store.Logger
	// AccessLog, if set, gets an apache-style line per request
	AccessLog io.Writer
	Prefix    string

	db store.Store
}

func NewServer(db store.Store, prefix string, infoLog store.Logger, errLog store.Logger) *Server {
	return &Server{db: db, Prefix: prefix, InfoLog: infoLog, ErrLog: errLog}
}

// Handler returns the http handler for the API.
func (srv *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(srv.Prefix+"/api/records", handlers.CompressHandler(http.HandlerFunc(srv.recordsHandler)))
	mux.HandleFunc(srv.Prefix+"/api/count", srv.countHandler)

	if srv.AccessLog != nil {
		return handlers.LoggingHandler(srv.AccessLog, mux)
	}
	return mux
}

func (srv *Server) Run(port int) error {
	srv.InfoLog.Printf("Started at localhost:%d%s/\n", port, srv.Prefix)
	return http.ListenAndServe(fmt.Sprintf(":%d", port), srv.Handler())
}

type recordsMsg struct {
	Records []store.Record `json:"records"`
	Total   int            `json:"total"`
}

// recordsHandler returns stored records, optionally filtered:
//   publisher=NAME  exact publisher match
//   q=TEXT          case-insensitive substring of title
//   count=N         at most N records
func (srv *Server) recordsHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		EmitError(w, http.StatusBadRequest)
		return
	}
	publisher := r.Form.Get("publisher")
	q := strings.ToLower(r.Form.Get("q"))
	limit := 0
	if s := r.Form.Get("count"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			EmitError(w, http.StatusBadRequest)
			return
		}
		limit = n
	}

	all, err := srv.db.LoadAll()
	if err != nil {
		srv.ErrLog.Printf("LoadAll: %s\n", err)
		EmitError(w, http.StatusInternalServerError)
		return
	}

	out := recordsMsg{Records: []store.Record{}}
	for _, rec := range all {
		if publisher != "" && rec.Publisher != publisher {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(rec.Title), q) {
			continue
		}
		out.Total++
		if limit == 0 || len(out.Records) < limit {
			out.Records = append(out.Records, rec)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	if err := enc.Encode(out); err != nil {
		srv.ErrLog.Printf("encode: %s\n", err)
	}
}

func (srv *Server) countHandler(w http.ResponseWriter, r *http.Request) {
	cnt, err := srv.db.Count()
	if err != nil {
		srv.ErrLog.Printf("Count: %s\n", err)
		EmitError(w, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"count":%d}`+"\n", cnt)
}
