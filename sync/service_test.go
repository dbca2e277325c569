package sync_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchpad-hq/lpcore/dialect"
	_ "github.com/launchpad-hq/lpcore/dialect/sqlite"
	"github.com/launchpad-hq/lpcore/driver"
	"github.com/launchpad-hq/lpcore/errs"
	"github.com/launchpad-hq/lpcore/introspect/sqlite"
	"github.com/launchpad-hq/lpcore/schema"
	"github.com/launchpad-hq/lpcore/sync"
)

type memMetadataStore struct {
	rows map[string]sync.MetadataRow
}

func newMemMetadataStore() *memMetadataStore {
	return &memMetadataStore{rows: map[string]sync.MetadataRow{}}
}

func (s *memMetadataStore) Get(appID, tableName string) (*sync.MetadataRow, error) {
	row, ok := s.rows[appID+"|"+tableName]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (s *memMetadataStore) List(appID string) ([]sync.MetadataRow, error) {
	var out []sync.MetadataRow
	for _, row := range s.rows {
		if row.AppID == appID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *memMetadataStore) Upsert(row sync.MetadataRow) error {
	s.rows[row.AppID+"|"+row.TableName] = row
	return nil
}

func widgetsDefinition() *schema.Definition {
	return &schema.Definition{
		Tables: []schema.Table{
			{
				Name: "widgets",
				Columns: []schema.Column{
					{Name: "id", Type: schema.TypeInteger, PrimaryKey: true},
					{Name: "name", Type: schema.TypeText, Nullable: true},
				},
			},
		},
	}
}

func newTestService(t *testing.T, remoteURL string) (*sync.Service, driver.Driver) {
	t.Helper()
	d, err := driver.NewSQLite(context.Background(), "file::memory:?cache=shared", driver.PoolConfig{Max: 1}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	dia, err := dialect.Get(dialect.SQLite)
	require.NoError(t, err)

	remote := sync.NewRemote(sync.RemoteConfig{BaseURL: remoteURL, ProjectID: "proj1", Token: "tok", Retries: 1})

	svc := sync.NewService(sync.Config{
		AppID:        "app1",
		Remote:       remote,
		Introspecter: sqlite.Introspecter{},
		Driver:       d,
		Dialect:      dia,
		Metadata:     newMemMetadataStore(),
	})
	return svc, d
}

func remoteSchemaServer(t *testing.T, def *schema.Definition) *httptest.Server {
	t.Helper()
	raw, err := json.Marshal(def)
	require.NoError(t, err)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/projects/proj1/schema":
			resp := sync.RemoteSchema{Schema: raw, Version: 1, Checksum: "abc"}
			_ = json.NewEncoder(w).Encode(resp)
		case r.Method == http.MethodPost && r.URL.Path == "/v1/projects/proj1/schema/migrations":
			_ = json.NewEncoder(w).Encode(sync.PushResult{Success: true, Applied: true})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestPull_CreatesTableFromRemoteSchema(t *testing.T) {
	server := remoteSchemaServer(t, widgetsDefinition())
	defer server.Close()

	svc, d := newTestService(t, server.URL)
	ctx := context.Background()

	res, err := svc.Pull(ctx, "production", false, false)
	require.NoError(t, err)
	assert.True(t, res.Applied)

	_, err = d.Query(ctx, "SELECT id, name FROM widgets", nil)
	assert.NoError(t, err)
}

func TestPull_DryRunDoesNotApply(t *testing.T) {
	server := remoteSchemaServer(t, widgetsDefinition())
	defer server.Close()

	svc, d := newTestService(t, server.URL)
	ctx := context.Background()

	res, err := svc.Pull(ctx, "production", false, true)
	require.NoError(t, err)
	assert.False(t, res.Applied)

	_, err = d.Query(ctx, "SELECT 1 FROM widgets", nil)
	assert.Error(t, err)
}

func TestPush_SendsLocalSchemaToRemote(t *testing.T) {
	server := remoteSchemaServer(t, &schema.Definition{})
	defer server.Close()

	svc, d := newTestService(t, server.URL)
	ctx := context.Background()

	_, err := d.Execute(ctx, "CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)", nil)
	require.NoError(t, err)

	res, err := svc.Push(ctx, "production", false, false)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.NotNil(t, res.Remote)
}

func TestRemote_AuthenticationFailureMapsToTypedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	remote := sync.NewRemote(sync.RemoteConfig{BaseURL: server.URL, ProjectID: "proj1", Token: "bad", Retries: 1})
	_, err := remote.FetchSchema(context.Background(), "production")
	assert.ErrorIs(t, err, errs.ErrAuthentication)
}

func TestRemote_ClientErrorMapsToSchemaRemote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad request"))
	}))
	defer server.Close()

	remote := sync.NewRemote(sync.RemoteConfig{BaseURL: server.URL, ProjectID: "proj1", Token: "tok", Retries: 1})
	_, err := remote.FetchSchema(context.Background(), "production")
	var remoteErr *errs.SchemaRemote
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusBadRequest, remoteErr.StatusCode)
}

func TestDetectConflicts_FindsRowsWhereBothSidesDiverged(t *testing.T) {
	rows := []sync.MetadataRow{
		{TableName: "in_sync", LocalChecksum: "a", RemoteChecksum: "a", BaseChecksum: "a"},
		{TableName: "ahead", LocalChecksum: "b", RemoteChecksum: "a", BaseChecksum: "a"},
		{TableName: "conflict", LocalChecksum: "b", RemoteChecksum: "c", BaseChecksum: "a"},
	}
	store := newMemMetadataStore()
	for _, r := range rows {
		r.AppID = "app1"
		_ = store.Upsert(r)
	}

	svc := sync.NewService(sync.Config{AppID: "app1", Metadata: store})
	conflicts, err := svc.Conflicts()
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "conflict", conflicts[0].TableName)
}
