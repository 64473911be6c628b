package reliability

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/quantfolio/internal/database"
)

// memoryStore is an in-memory ObjectStore for tests.
type memoryStore struct {
	objects map[string][]byte
	deleted []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}}
}

func (m *memoryStore) Upload(ctx context.Context, key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memoryStore) List(ctx context.Context, prefix string) ([]types.Object, error) {
	var out []types.Object
	for key, data := range m.objects {
		size := int64(len(data))
		out = append(out, types.Object{Key: aws.String(key), Size: aws.Int64(size)})
	}
	return out, nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func openTestDB(t *testing.T, dir, name string) *database.DB {
	t.Helper()
	db, err := database.New(database.Config{
		Path:    filepath.Join(dir, name+".db"),
		Profile: database.ProfileStandard,
		Name:    name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE things (id INTEGER PRIMARY KEY, label TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO things (label) VALUES ('a'), ('b')`)
	require.NoError(t, err)
	return db
}

func TestCreateAndUploadBackup(t *testing.T) {
	dir := t.TempDir()
	db := openTestDB(t, dir, "results")
	store := newMemoryStore()

	service := NewBackupService(store, []*database.DB{db}, dir, zerolog.Nop())
	require.NoError(t, service.CreateAndUploadBackup(context.Background()))

	require.Len(t, store.objects, 1)
	for key, data := range store.objects {
		assert.Contains(t, key, "quantfolio-backup-")
		assert.Contains(t, key, ".tar.gz")

		// Archive must contain the snapshot and the metadata file
		names := readArchiveNames(t, data)
		assert.Contains(t, names, "results.db")
		assert.Contains(t, names, "backup-metadata.json")
	}
}

func readArchiveNames(t *testing.T, data []byte) []string {
	t.Helper()

	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer gz.Close()

	var names []string
	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, header.Name)
	}
	return names
}

func TestListBackupsSortsNewestFirst(t *testing.T) {
	store := newMemoryStore()
	store.objects["quantfolio-backup-2026-08-01-120000.tar.gz"] = []byte("old")
	store.objects["quantfolio-backup-2026-08-20-120000.tar.gz"] = []byte("new")
	store.objects["unrelated-object.txt"] = []byte("skip")

	service := NewBackupService(store, nil, t.TempDir(), zerolog.Nop())
	backups, err := service.ListBackups(context.Background())
	require.NoError(t, err)

	require.Len(t, backups, 2)
	assert.Equal(t, "quantfolio-backup-2026-08-20-120000.tar.gz", backups[0].Filename)
	assert.Equal(t, "quantfolio-backup-2026-08-01-120000.tar.gz", backups[1].Filename)
}

func TestRotateOldBackups(t *testing.T) {
	store := newMemoryStore()
	now := time.Now()

	// Five backups: three recent, two past retention
	for i, age := range []time.Duration{
		0,
		24 * time.Hour,
		48 * time.Hour,
		40 * 24 * time.Hour,
		60 * 24 * time.Hour,
	} {
		key := "quantfolio-backup-" + now.Add(-age).Format("2006-01-02-150405") + ".tar.gz"
		store.objects[key] = []byte{byte(i)}
	}

	service := NewBackupService(store, nil, t.TempDir(), zerolog.Nop())
	require.NoError(t, service.RotateOldBackups(context.Background(), 30))

	assert.Len(t, store.deleted, 2)
	assert.Len(t, store.objects, 3)
}

func TestRotateKeepsMinimum(t *testing.T) {
	store := newMemoryStore()
	now := time.Now()

	// All ancient, but only three exist
	for _, age := range []time.Duration{100, 200, 300} {
		key := "quantfolio-backup-" + now.Add(-age*24*time.Hour).Format("2006-01-02-150405") + ".tar.gz"
		store.objects[key] = []byte("x")
	}

	service := NewBackupService(store, nil, t.TempDir(), zerolog.Nop())
	require.NoError(t, service.RotateOldBackups(context.Background(), 30))
	assert.Empty(t, store.deleted)
}
