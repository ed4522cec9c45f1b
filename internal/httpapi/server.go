// Package httpapi implements spec §6's `/fs/*` HTTP surface directly on
// net/http.ServeMux, grounded on the teacher's pkg/api/server.go (plain
// ServeMux, a logging middleware, respondJSON/respondError helpers) —
// "HTTP framework plumbing" is out of scope, but the path → VFS-op →
// response mapping this package does is exactly what spec §6 specifies.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vfsql/vfsql/internal/compose"
	"github.com/vfsql/vfsql/internal/logging"
	"github.com/vfsql/vfsql/internal/router"
	"github.com/vfsql/vfsql/internal/store"
	"github.com/vfsql/vfsql/internal/txwrapper"
	"github.com/vfsql/vfsql/pkg/pathutil"
	"github.com/vfsql/vfsql/pkg/pipeline"
	"github.com/vfsql/vfsql/pkg/vfs"
	"github.com/vfsql/vfsql/pkg/vfserrors"
)

// IdentityExtractor parses a request into the information the
// transaction wrapper needs to build a SystemContext. Token parsing and
// tenant resolution are out of scope for this module (spec §1); callers
// supply their own.
type IdentityExtractor func(r *http.Request) (txwrapper.IdentityRequest, error)

// RecordsFor builds the RecordStore backing one request's DataMount/
// DescribeMount/TrashedMount from its open transaction. The production
// default (see NewServer) wraps the transaction's Querier in a SQLStore;
// tests may substitute a shared MemStore instead.
type RecordsFor func(tx txwrapper.Tx) store.RecordStore

// Server exposes the composed VFS over HTTP at /fs/*.
type Server struct {
	wrapper    *txwrapper.Wrapper
	identity   IdentityExtractor
	opts       compose.Options
	logger     *logging.Logger
	mux        *http.ServeMux
	recordsFor RecordsFor
}

// NewServer builds a Server. opts configures the fixed mounts compose.New
// wires into every request's router; logger may be nil.
func NewServer(wrapper *txwrapper.Wrapper, identity IdentityExtractor, opts compose.Options, logger *logging.Logger) *Server {
	return NewServerWithRecords(wrapper, identity, opts, logger, func(tx txwrapper.Tx) store.RecordStore {
		return store.NewSQLStore(tx.Querier())
	})
}

// NewServerWithRecords builds a Server with a caller-supplied RecordsFor,
// letting tests swap in a MemStore-backed RecordStore instead of a live
// database connection.
func NewServerWithRecords(wrapper *txwrapper.Wrapper, identity IdentityExtractor, opts compose.Options, logger *logging.Logger, recordsFor RecordsFor) *Server {
	s := &Server{wrapper: wrapper, identity: identity, opts: opts, logger: logger, recordsFor: recordsFor}

	mux := http.NewServeMux()
	mux.HandleFunc("/fs/mkdir", s.handleMkdir)
	mux.HandleFunc("/fs/rename", s.handleRename)
	mux.HandleFunc("/fs/", s.handleFS)
	s.mux = mux

	return s
}

// ServeHTTP implements http.Handler, wrapping every request in a
// logging pass the way the teacher's loggingMiddleware does.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.mux.ServeHTTP(w, r)
	if s.logger != nil {
		s.logger.Debug("request handled", map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		})
	}
}

func (s *Server) beginRequest(r *http.Request) (txwrapper.IdentityRequest, error) {
	return s.identity(r)
}

// handlerResult is what an op handler hands back for response rendering.
type handlerResult struct {
	kind    resultKind
	entry   vfs.FSEntry
	entries []vfs.FSEntry
	content []byte
}

type resultKind int

const (
	resultStat resultKind = iota
	resultDirectory
	resultFile
	resultOK
)

// handleFS serves GET/PUT/DELETE against an arbitrary /fs/* path.
func (s *Server) handleFS(w http.ResponseWriter, r *http.Request) {
	path := pathutil.Normalize(strings.TrimPrefix(r.URL.Path, "/fs"))

	ir, err := s.beginRequest(r)
	if err != nil {
		writeGenericError(w, http.StatusUnauthorized, err.Error())
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGet(r, w, ir, path)
	case http.MethodPut:
		s.handlePut(r, w, ir, path)
	case http.MethodDelete:
		s.handleDelete(r, w, ir, path)
	default:
		writeGenericError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleGet(r *http.Request, w http.ResponseWriter, ir txwrapper.IdentityRequest, path string) {
	wantStat := r.URL.Query().Get("stat") == "true"

	result, _, err := s.wrapper.Do(r.Context(), ir, func(ctx context.Context, req *txwrapper.Request) (interface{}, error) {
		vfsRoot, err := s.composeFor(req)
		if err != nil {
			return nil, err
		}
		entry, err := vfsRoot.Stat(ctx, path)
		if err != nil {
			return nil, err
		}
		if wantStat {
			return handlerResult{kind: resultStat, entry: entry}, nil
		}
		if entry.IsDir() {
			entries, err := vfsRoot.Readdir(ctx, path)
			if err != nil {
				return nil, err
			}
			return handlerResult{kind: resultDirectory, entries: entries}, nil
		}
		content, err := vfsRoot.Read(ctx, path)
		if err != nil {
			return nil, err
		}
		return handlerResult{kind: resultFile, content: content}, nil
	})
	if err != nil {
		writeError(w, err)
		return
	}

	res := result.(handlerResult)
	switch res.kind {
	case resultStat:
		writeJSON(w, http.StatusOK, res.entry)
	case resultDirectory:
		writeJSON(w, http.StatusOK, directoryBody{Type: "directory", Path: path, Entries: res.entries})
	case resultFile:
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(res.content)
	}
}

func (s *Server) handlePut(r *http.Request, w http.ResponseWriter, ir txwrapper.IdentityRequest, path string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeGenericError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	_, _, err = s.wrapper.Do(r.Context(), ir, func(ctx context.Context, req *txwrapper.Request) (interface{}, error) {
		vfsRoot, err := s.composeFor(req)
		if err != nil {
			return nil, err
		}
		return nil, vfsRoot.Write(ctx, path, body)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": path})
}

func (s *Server) handleDelete(r *http.Request, w http.ResponseWriter, ir txwrapper.IdentityRequest, path string) {
	_, _, err := s.wrapper.Do(r.Context(), ir, func(ctx context.Context, req *txwrapper.Request) (interface{}, error) {
		vfsRoot, err := s.composeFor(req)
		if err != nil {
			return nil, err
		}
		entry, err := vfsRoot.Stat(ctx, path)
		if err != nil {
			return nil, err
		}
		if entry.IsDir() {
			return nil, vfsRoot.Rmdir(ctx, path)
		}
		return nil, vfsRoot.Unlink(ctx, path)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": path})
}

type mkdirRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleMkdir(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeGenericError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body mkdirRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeGenericError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	path := pathutil.Normalize(body.Path)

	ir, err := s.beginRequest(r)
	if err != nil {
		writeGenericError(w, http.StatusUnauthorized, err.Error())
		return
	}

	_, _, err = s.wrapper.Do(r.Context(), ir, func(ctx context.Context, req *txwrapper.Request) (interface{}, error) {
		vfsRoot, err := s.composeFor(req)
		if err != nil {
			return nil, err
		}
		return nil, vfsRoot.Mkdir(ctx, path)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": path})
}

type renameRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeGenericError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body renameRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeGenericError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	from := pathutil.Normalize(body.From)
	to := pathutil.Normalize(body.To)

	ir, err := s.beginRequest(r)
	if err != nil {
		writeGenericError(w, http.StatusUnauthorized, err.Error())
		return
	}

	_, _, err = s.wrapper.Do(r.Context(), ir, func(ctx context.Context, req *txwrapper.Request) (interface{}, error) {
		vfsRoot, err := s.composeFor(req)
		if err != nil {
			return nil, err
		}
		return nil, vfsRoot.Rename(ctx, from, to)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"from": from, "to": to})
}

// composeFor builds the per-request router over the transaction's
// SQLStore, per spec §4.H: every mount is constructed fresh, scoped to
// this request's system context.
func (s *Server) composeFor(req *txwrapper.Request) (*router.Router, error) {
	records := s.recordsFor(req.Tx)
	return compose.New(records, req.Sysctx, s.opts)
}

type directoryBody struct {
	Type    string        `json:"type"`
	Path    string        `json:"path"`
	Entries []vfs.FSEntry `json:"entries"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeGenericError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": "EINVAL", "message": message})
}

// writeError translates a VFS or pipeline error into the wire body spec
// §6 requires, mapping its kind/code to an HTTP status.
func writeError(w http.ResponseWriter, err error) {
	if verr, ok := err.(*vfserrors.Error); ok {
		writeJSON(w, vfserrors.HTTPStatus(verr.Kind), verr)
		return
	}
	if perr, ok := err.(*pipeline.Error); ok {
		writeJSON(w, pipeline.HTTPStatus(perr.Code), perr)
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "EIO", "message": err.Error()})
}
