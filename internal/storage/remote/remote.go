// Package remote keeps the dataset in a file of a private repository,
// reached through a GitHub-style contents API.
//
// GET  {api}/repos/{owner}/{repo}/contents/{path}?ref={branch}
//
//	→ {"sha": "...", "content": "<base64>", "encoding": "base64"}
//
// PUT  {api}/repos/{owner}/{repo}/contents/{path}
//
//	← {"message": "...", "content": "<base64>", "sha": "...", "branch": "..."}
//
// Both calls carry "Authorization: Bearer <token>", injected by an
// oauth2 static token source. The sha is the version token: the PUT is
// rejected unless it names the revision currently stored. Save always
// re-reads it immediately before writing and never retries on rejection.
package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/aanand-mishra/students-form/internal/apperr"
	"github.com/aanand-mishra/students-form/internal/storage/sheet"
	"github.com/aanand-mishra/students-form/internal/types"
)

const (
	DefaultAPIURL        = "https://api.github.com"
	DefaultBranch        = "main"
	DefaultCommitMessage = "Update student details"
	DefaultTimeout       = 30 * time.Second
)

// Options locate the backing file.
type Options struct {
	APIURL        string
	Owner         string
	Repo          string
	Path          string
	Branch        string
	Token         string
	CommitMessage string
	Timeout       time.Duration
}

// Store implements storage.Storage against the contents API.
type Store struct {
	opts   Options
	client *http.Client
	log    *slog.Logger
}

// New builds a Store whose HTTP client authenticates every request with
// opts.Token.
func New(opts Options, log *slog.Logger) (*Store, error) {
	if opts.Owner == "" || opts.Repo == "" || opts.Path == "" {
		return nil, errors.New("remote.New: owner, repo and path are required")
	}
	if opts.Token == "" {
		return nil, errors.New("remote.New: token is required")
	}
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	opts.APIURL = strings.TrimRight(opts.APIURL, "/")
	if opts.Branch == "" {
		opts.Branch = DefaultBranch
	}
	if opts.CommitMessage == "" {
		opts.CommitMessage = DefaultCommitMessage
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	client := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: opts.Token,
		TokenType:   "Bearer",
	}))
	client.Timeout = opts.Timeout

	return &Store{opts: opts, client: client, log: log}, nil
}

// file is the subset of the contents API response we use.
type file struct {
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	Size     int64  `json:"size"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch"`
}

// StatusError is a non-2xx answer from the contents API.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
}

func (s *Store) Load(ctx context.Context) (types.Dataset, error) {
	start := time.Now()

	data, sha, err := s.fetch(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "error fetching data", slog.String("path", s.opts.Path), slog.String("error", err.Error()))
		return types.Dataset{}, apperr.Wrap(err, apperr.CodeLoadFailed, "Error loading data")
	}

	ds, err := sheet.Decode(data)
	if err != nil {
		s.log.ErrorContext(ctx, "error decoding data", slog.String("path", s.opts.Path), slog.String("error", err.Error()))
		return types.Dataset{}, apperr.Wrap(err, apperr.CodeLoadFailed, "Error loading data")
	}
	if uids := ds.UnreadableDOB(); len(uids) > 0 {
		s.log.WarnContext(ctx, "rows with an unreadable dob cannot log in",
			slog.String("path", s.opts.Path), slog.Any("uids", uids))
	}

	s.log.DebugContext(ctx, "data fetched",
		slog.String("sha", sha),
		slog.Int("records", ds.Len()),
		slog.Duration("took", time.Since(start)))
	return ds, nil
}

func (s *Store) Save(ctx context.Context, ds types.Dataset) error {
	data, err := sheet.Encode(ds)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeSaveFailed, "Error saving data")
	}

	// The sha must be the one stored right now, not the one seen at load.
	sha, err := s.currentSHA(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "error fetching version token", slog.String("error", err.Error()))
		return apperr.Wrap(err, apperr.CodeSaveFailed, "Error saving data")
	}

	body, err := json.Marshal(putRequest{
		Message: s.opts.CommitMessage,
		Content: base64.StdEncoding.EncodeToString(data),
		SHA:     sha,
		Branch:  s.opts.Branch,
	})
	if err != nil {
		return apperr.Wrap(err, apperr.CodeSaveFailed, "Error saving data")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.contentsURL(false), bytes.NewReader(body))
	if err != nil {
		return apperr.Wrap(err, apperr.CodeSaveFailed, "Error saving data")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.ErrorContext(ctx, "error saving data", slog.String("error", err.Error()))
		return apperr.Wrap(err, apperr.CodeSaveFailed, "Error saving data")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		serr := statusError("put contents", resp)
		s.log.ErrorContext(ctx, "error saving data", slog.String("error", serr.Error()))
		switch resp.StatusCode {
		case http.StatusConflict, http.StatusPreconditionFailed, http.StatusUnprocessableEntity:
			// The file changed between our sha read and the write.
			return &apperr.Error{Code: apperr.CodeConflict, Message: "Error saving data: the file was changed by someone else, please try again", Err: serr}
		default:
			return apperr.Wrap(serr, apperr.CodeSaveFailed, "Error saving data")
		}
	}

	s.log.InfoContext(ctx, "data saved", slog.String("previous_sha", sha), slog.Int("records", ds.Len()))
	return nil
}

// fetch returns the decoded file bytes and their sha. Files too large for
// inline content are downloaded again through the raw media type.
func (s *Store) fetch(ctx context.Context) ([]byte, string, error) {
	f, err := s.metadata(ctx)
	if err != nil {
		return nil, "", err
	}

	if f.Encoding == "base64" && f.Content != "" {
		// The API wraps base64 content at 60 columns.
		data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(f.Content, "\n", ""))
		if err != nil {
			return nil, "", fmt.Errorf("fetch: decode content: %w", err)
		}
		return data, f.SHA, nil
	}

	data, err := s.raw(ctx)
	if err != nil {
		return nil, "", err
	}
	return data, f.SHA, nil
}

// currentSHA returns the version token of the stored file, or "" when the
// file does not exist yet (the PUT then creates it).
func (s *Store) currentSHA(ctx context.Context) (string, error) {
	f, err := s.metadata(ctx)
	if err != nil {
		var serr *StatusError
		if errors.As(err, &serr) && serr.StatusCode == http.StatusNotFound {
			return "", nil
		}
		return "", err
	}
	return f.SHA, nil
}

func (s *Store) metadata(ctx context.Context) (file, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.contentsURL(true), nil)
	if err != nil {
		return file{}, fmt.Errorf("metadata: new request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := s.client.Do(req)
	if err != nil {
		return file{}, fmt.Errorf("metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return file{}, statusError("get contents", resp)
	}

	var f file
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		return file{}, fmt.Errorf("metadata: decode: %w", err)
	}
	return f, nil
}

func (s *Store) raw(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.contentsURL(true), nil)
	if err != nil {
		return nil, fmt.Errorf("raw: new request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.raw")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("raw: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("get raw contents", resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("raw: read body: %w", err)
	}
	return data, nil
}

func (s *Store) contentsURL(withRef bool) string {
	segments := strings.Split(strings.Trim(s.opts.Path, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		s.opts.APIURL, url.PathEscape(s.opts.Owner), url.PathEscape(s.opts.Repo), strings.Join(segments, "/"))
	if withRef {
		u += "?ref=" + url.QueryEscape(s.opts.Branch)
	}
	return u
}

func statusError(op string, resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	var payload struct {
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		msg = payload.Message
	}
	return &StatusError{Op: op, StatusCode: resp.StatusCode, Message: msg}
}
