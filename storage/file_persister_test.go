package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liuxd6825/cdpdriver/env"
)

func TestLocalFilePersister(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		path         string
		existingData string
		data         string
	}{
		{name: "just_file", path: "/out/shot.png", data: "png bytes"},
		{name: "with_dir", path: "/out/nested/dir/page.pdf", data: "pdf bytes"},
		{name: "truncates", path: "/out/shot.png", data: "new", existingData: "existing data"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fs := afero.NewMemMapFs()
			if tt.existingData != "" {
				require.NoError(t, afero.WriteFile(fs, tt.path, []byte(tt.existingData), 0o600))
			}

			l := LocalFilePersister{Fs: fs}
			require.NoError(t, l.Persist(context.Background(), tt.path, strings.NewReader(tt.data)))

			bb, err := afero.ReadFile(fs, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.data, string(bb))
		})
	}
}

func TestRemoteFilePersister(t *testing.T) {
	t.Parallel()

	const data = "screenshot data"

	uploaded := make(chan string, 1)
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/presigned", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "token abc", r.Header.Get("Authorization"))

		var req presignedRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "artifacts/shots/a.png", req.Files[0].Name)

		_, _ = io.WriteString(w, `{"service":"aws_s3","urls":[{"name":"a.png","pre_signed_url":"`+srv.URL+`/upload"}]}`)
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		b, _ := io.ReadAll(r.Body)
		uploaded <- string(b)
		w.WriteHeader(http.StatusOK)
	})

	r := NewRemoteFilePersister(srv.URL+"/presigned", map[string]string{"Authorization": "token abc"}, "artifacts")
	require.NoError(t, r.Persist(context.Background(), "shots/a.png", strings.NewReader(data)))
	assert.Equal(t, data, <-uploaded)

	bad := NewRemoteFilePersister(srv.URL+"/missing", nil, "")
	err := bad.Persist(context.Background(), "a.png", strings.NewReader(data))
	require.ErrorContains(t, err, "server returned 404 (not found)")
}

func TestNewFilePersister(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		lookup   env.LookupFunc
		wantType FilePersister
		wantErr  string
	}{
		{name: "local_no_env_var", lookup: env.EmptyLookup, wantType: &LocalFilePersister{}},
		{name: "local_empty_env_var", lookup: env.ConstLookup(env.ArtifactsOutput, ""), wantType: &LocalFilePersister{}},
		{
			name:     "remote",
			lookup:   env.ConstLookup(env.ArtifactsOutput, "url=https://127.0.0.1/,basePath=/shots,header.X-Run=1"),
			wantType: &RemoteFilePersister{},
		},
		{
			name:    "missing_url",
			lookup:  env.ConstLookup(env.ArtifactsOutput, "basePath=/shots"),
			wantErr: "missing required url",
		},
		{
			name:    "bad_pair",
			lookup:  env.ConstLookup(env.ArtifactsOutput, "url"),
			wantErr: "format of value must be k=v",
		},
		{
			name:    "empty_header",
			lookup:  env.ConstLookup(env.ArtifactsOutput, "url=https://a/,header.=x"),
			wantErr: "empty header key",
		},
		{
			name:    "unknown_option",
			lookup:  env.ConstLookup(env.ArtifactsOutput, "url=https://a/,bucket=x"),
			wantErr: `invalid option "bucket"`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := NewFilePersister(afero.NewMemMapFs(), tt.lookup)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, got)
		})
	}
}

func TestParsePresignedURLConfig(t *testing.T) {
	t.Parallel()

	cfg, err := parsePresignedURLConfig("url=https://127.0.0.1/,basePath=/shots,header.A=1,header.B=2")
	require.NoError(t, err)
	assert.Equal(t, presignedURLConfig{
		getterURL: "https://127.0.0.1/",
		basePath:  "/shots",
		headers:   map[string]string{"A": "1", "B": "2"},
	}, cfg)
}
