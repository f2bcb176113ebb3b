package remote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/aanand-mishra/students-form/internal/apperr"
	"github.com/aanand-mishra/students-form/internal/storage/sheet"
	"github.com/aanand-mishra/students-form/internal/types"
)

const (
	token    = "ghp_test"
	filePath = "/repos/kelhou/privdata/contents/data/1stsem.xlsx"
)

// contentsAPI is an in-memory stand-in for the hosted contents endpoint.
type contentsAPI struct {
	mu       sync.Mutex
	content  []byte
	revision int
	inline   bool

	puts       int
	lastPutSHA string
	// beforePut, when set, runs after the sha check request and before the
	// write is accepted; tests use it to simulate a concurrent writer.
	beforePut func()
}

func (a *contentsAPI) sha() string {
	if a.content == nil {
		return ""
	}
	return fmt.Sprintf("sha-%d", a.revision)
}

func (a *contentsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+token {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"Bad credentials"}`)
		return
	}
	if r.URL.Path != filePath {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"Not Found"}`)
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.mu.Lock()
		defer a.mu.Unlock()
		if r.URL.Query().Get("ref") != "main" || a.content == nil {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"message":"Not Found"}`)
			return
		}
		if r.Header.Get("Accept") == "application/vnd.github.raw" {
			_, _ = w.Write(a.content)
			return
		}
		resp := map[string]any{"sha": a.sha(), "size": len(a.content)}
		if a.inline {
			enc := base64.StdEncoding.EncodeToString(a.content)
			var wrapped strings.Builder
			for len(enc) > 60 {
				wrapped.WriteString(enc[:60] + "\n")
				enc = enc[60:]
			}
			wrapped.WriteString(enc)
			resp["content"] = wrapped.String()
			resp["encoding"] = "base64"
		} else {
			resp["content"] = ""
			resp["encoding"] = "none"
		}
		_ = json.NewEncoder(w).Encode(resp)

	case http.MethodPut:
		if a.beforePut != nil {
			a.beforePut()
		}
		var req putRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		a.puts++
		a.lastPutSHA = req.SHA
		if req.SHA != a.sha() {
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, `{"message":"data/1stsem.xlsx does not match `+req.SHA+`"}`)
			return
		}
		data, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		status := http.StatusOK
		if a.content == nil {
			status = http.StatusCreated
		}
		a.content = data
		a.revision++
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{"content": map[string]any{"sha": a.sha()}})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type RemoteStoreSuite struct {
	suite.Suite
	api    *contentsAPI
	server *httptest.Server
	store  *Store
}

func TestRemoteStoreSuite(t *testing.T) {
	suite.Run(t, new(RemoteStoreSuite))
}

func (s *RemoteStoreSuite) SetupTest() {
	s.api = &contentsAPI{inline: true}
	s.server = httptest.NewServer(s.api)
	s.store = s.newStore(token)
}

func (s *RemoteStoreSuite) TearDownTest() {
	s.server.Close()
}

func (s *RemoteStoreSuite) newStore(tok string) *Store {
	store, err := New(Options{
		APIURL: s.server.URL + "/",
		Owner:  "kelhou",
		Repo:   "privdata",
		Path:   "/data/1stsem.xlsx",
		Token:  tok,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Require().NoError(err)
	return store
}

func (s *RemoteStoreSuite) seed() {
	data, err := sheet.Encode(types.Dataset{Records: []types.Record{
		{UID: "S001", Name: "Asha", Gender: "female", DOB: types.NewDate(2005, time.April, 1)},
	}})
	s.Require().NoError(err)
	s.api.content = data
	s.api.revision = 1
}

func (s *RemoteStoreSuite) TestLoad() {
	s.seed()

	ds, err := s.store.Load(context.Background())
	s.Require().NoError(err)
	s.Require().Len(ds.Records, 1)
	s.Equal("S001", ds.Records[0].UID)
	s.Equal("Female", ds.Records[0].Gender)
	s.Equal("2005-04-01", ds.Records[0].DOB.String())
}

func (s *RemoteStoreSuite) TestLoadLargeFileFallsBackToRaw() {
	s.seed()
	s.api.inline = false

	ds, err := s.store.Load(context.Background())
	s.Require().NoError(err)
	s.Len(ds.Records, 1)
}

func (s *RemoteStoreSuite) TestLoadFailures() {
	s.Run("missing file", func() {
		ds, err := s.store.Load(context.Background())
		s.True(apperr.HasCode(err, apperr.CodeLoadFailed))
		s.True(ds.Empty())
	})

	s.Run("bad credentials", func() {
		s.seed()
		ds, err := s.newStore("wrong").Load(context.Background())
		s.True(apperr.HasCode(err, apperr.CodeLoadFailed))
		s.True(ds.Empty())

		var serr *StatusError
		s.Require().ErrorAs(err, &serr)
		s.Equal(http.StatusUnauthorized, serr.StatusCode)
		s.Equal("Bad credentials", serr.Message)
	})

	s.Run("unreachable", func() {
		s.seed()
		s.server.Close()
		ds, err := s.store.Load(context.Background())
		s.True(apperr.HasCode(err, apperr.CodeLoadFailed))
		s.True(ds.Empty())
	})
}

func (s *RemoteStoreSuite) TestSaveSendsCurrentSHA() {
	s.seed()
	ctx := context.Background()

	ds, err := s.store.Load(ctx)
	s.Require().NoError(err)
	ds.Records[0].Mobile = "9876543210"

	s.Require().NoError(s.store.Save(ctx, ds))
	s.Equal(1, s.api.puts)
	s.Equal("sha-1", s.api.lastPutSHA)

	// The version moved on; a second save must pick up the new sha.
	s.Require().NoError(s.store.Save(ctx, ds))
	s.Equal("sha-2", s.api.lastPutSHA)

	back, err := s.store.Load(ctx)
	s.Require().NoError(err)
	s.Equal("9876543210", back.Records[0].Mobile)
}

func (s *RemoteStoreSuite) TestSaveRefetchesSHAAfterExternalEdit() {
	s.seed()
	ctx := context.Background()

	ds, err := s.store.Load(ctx)
	s.Require().NoError(err)

	// Somebody else commits between our load and our save.
	s.api.revision = 7

	s.Require().NoError(s.store.Save(ctx, ds))
	s.Equal("sha-7", s.api.lastPutSHA)
}

func (s *RemoteStoreSuite) TestSaveConflict() {
	s.seed()
	s.api.beforePut = func() {
		s.api.mu.Lock()
		s.api.revision++
		s.api.mu.Unlock()
	}

	err := s.store.Save(context.Background(), types.Dataset{})
	s.True(apperr.HasCode(err, apperr.CodeConflict))
	s.Equal(1, s.api.puts, "no retry after a rejected version token")
}

func (s *RemoteStoreSuite) TestSaveCreatesMissingFile() {
	err := s.store.Save(context.Background(), types.Dataset{})
	s.Require().NoError(err)
	s.Equal("", s.api.lastPutSHA)
	s.NotNil(s.api.content)
}

func (s *RemoteStoreSuite) TestSaveFailure() {
	s.seed()
	err := s.newStore("wrong").Save(context.Background(), types.Dataset{})
	s.True(apperr.HasCode(err, apperr.CodeSaveFailed))
	s.Zero(s.api.puts)
}

func TestNew_Validates(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := New(Options{Owner: "o", Repo: "r", Path: "p"}, log)
	assert.Error(t, err, "token required")

	_, err = New(Options{Owner: "o", Repo: "r", Token: "t"}, log)
	assert.Error(t, err, "path required")

	s, err := New(Options{Owner: "o", Repo: "r", Path: "dir/a b.xlsx", Token: "t"}, log)
	require.NoError(t, err)
	assert.Equal(t, "https://api.github.com/repos/o/r/contents/dir/a%20b.xlsx?ref=main", s.contentsURL(true))
	assert.Equal(t, DefaultTimeout, s.client.Timeout)
}
