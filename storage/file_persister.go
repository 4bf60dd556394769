package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/liuxd6825/cdpdriver/env"
)

// FilePersister stores captured artifacts such as screenshots and PDFs.
type FilePersister interface {
	Persist(ctx context.Context, path string, data io.Reader) error
}

// NewFilePersister returns a persister that writes to the local disk, or
// one that uploads to a remote location when CDPDRIVER_ARTIFACTS_OUTPUT
// holds a presigned URL configuration.
func NewFilePersister(fs afero.Fs, envLookup env.LookupFunc) (FilePersister, error) {
	v, ok := envLookup(env.ArtifactsOutput)
	if !ok || v == "" {
		return &LocalFilePersister{Fs: fs}, nil
	}

	cfg, err := parsePresignedURLConfig(v)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", env.ArtifactsOutput, err)
	}

	return NewRemoteFilePersister(cfg.getterURL, cfg.headers, cfg.basePath), nil
}

// LocalFilePersister will persist files to the local disk.
type LocalFilePersister struct {
	// Fs defaults to the OS filesystem.
	Fs afero.Fs
}

// Persist writes the contents of data to path, creating parent
// directories and truncating any existing file.
func (l *LocalFilePersister) Persist(_ context.Context, path string, data io.Reader) (err error) {
	fs := l.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	cp := filepath.Clean(path)

	dir := filepath.Dir(cp)
	if err = fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating a local directory %q: %w", dir, err)
	}

	f, err := fs.OpenFile(cp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating a local file %q: %w", cp, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing the local file %q: %w", cp, cerr)
		}
	}()

	bf := bufio.NewWriter(f)
	if _, err := io.Copy(bf, data); err != nil {
		return fmt.Errorf("copying data to file: %w", err)
	}
	if err := bf.Flush(); err != nil {
		return fmt.Errorf("flushing data to disk: %w", err)
	}

	return nil
}

// RemoteFilePersister uploads artifacts. It first asks getterURL for a
// presigned upload URL for the file, then PUTs the data there.
type RemoteFilePersister struct {
	getterURL string
	headers   map[string]string
	basePath  string

	httpClient *http.Client
}

// NewRemoteFilePersister creates a new instance of RemoteFilePersister.
func NewRemoteFilePersister(getterURL string, headers map[string]string, basePath string) *RemoteFilePersister {
	return &RemoteFilePersister{
		getterURL: getterURL,
		headers:   headers,
		basePath:  basePath,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Persist uploads the contents of data to the remote location.
func (r *RemoteFilePersister) Persist(ctx context.Context, path string, data io.Reader) error {
	pURL, err := r.presignedURL(ctx, path)
	if err != nil {
		return fmt.Errorf("getting presigned url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, pURL, data)
	if err != nil {
		return fmt.Errorf("creating upload request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing upload request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("draining upload response body: %w", err)
	}
	if err := checkStatusCode(resp); err != nil {
		return fmt.Errorf("uploading: %w", err)
	}

	return nil
}

func checkStatusCode(resp *http.Response) error {
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("server returned %d (%s)", resp.StatusCode, strings.ToLower(http.StatusText(resp.StatusCode)))
	}

	return nil
}

type presignedFile struct {
	Name string `json:"name"`
}

type presignedRequest struct {
	Service   string          `json:"service"`
	Operation string          `json:"operation"`
	Files     []presignedFile `json:"files"`
}

type presignedResponse struct {
	Service string `json:"service"`
	URLs    []struct {
		Name         string `json:"name"`
		PreSignedURL string `json:"pre_signed_url"` //nolint:tagliatelle
	} `json:"urls"`
}

func (r *RemoteFilePersister) presignedURL(ctx context.Context, path string) (string, error) {
	b, err := json.Marshal(presignedRequest{
		Service:   "aws_s3",
		Operation: "upload",
		Files:     []presignedFile{{Name: filepath.ToSlash(filepath.Join(r.basePath, path))}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.getterURL, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	for k, v := range r.headers {
		req.Header.Add(k, v)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := checkStatusCode(resp); err != nil {
		return "", err
	}

	var rb presignedResponse
	if err := json.NewDecoder(resp.Body).Decode(&rb); err != nil {
		return "", fmt.Errorf("decoding response body: %w", err)
	}
	if len(rb.URLs) == 0 {
		return "", errors.New("missing presigned url in response body")
	}

	return rb.URLs[0].PreSignedURL, nil
}

type presignedURLConfig struct {
	getterURL string
	headers   map[string]string
	basePath  string
}

// parsePresignedURLConfig parses a value such as
// url=https://127.0.0.1/,basePath=/screenshots,header.Authorization=token.
func parsePresignedURLConfig(value string) (presignedURLConfig, error) {
	cfg := presignedURLConfig{
		headers: make(map[string]string),
	}
	for _, s := range strings.Split(value, ",") {
		k, v, ok := strings.Cut(s, "=")
		if !ok {
			return presignedURLConfig{}, fmt.Errorf("format of value must be k=v, received %q", s)
		}

		if hk, isHeader := strings.CutPrefix(k, "header."); isHeader {
			if hk == "" {
				return presignedURLConfig{}, fmt.Errorf("empty header key, received %q", s)
			}
			cfg.headers[hk] = v
			continue
		}

		switch k {
		case "url":
			u, err := url.ParseRequestURI(v)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return presignedURLConfig{}, fmt.Errorf("invalid url %q", s)
			}
			cfg.getterURL = v
		case "basePath":
			cfg.basePath = v
		default:
			return presignedURLConfig{}, fmt.Errorf("invalid option %q", k)
		}
	}

	if cfg.getterURL == "" {
		return presignedURLConfig{}, errors.New("missing required url")
	}

	return cfg, nil
}
