package images

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-cms/lumen-cms/internal/platform/httpx"
)

type mockImageRepo struct {
	images map[int64]Image
	nextID int64
}

func newMockImageRepo() *mockImageRepo {
	return &mockImageRepo{images: make(map[int64]Image), nextID: 1}
}

func (m *mockImageRepo) Create(ctx context.Context, img Image) (Image, error) {
	img.ID = m.nextID
	m.nextID++
	m.images[img.ID] = img
	return img, nil
}

func (m *mockImageRepo) Get(ctx context.Context, companyID, id int64) (Image, error) {
	img, ok := m.images[id]
	if !ok || img.CompanyID != companyID {
		return Image{}, httpx.ErrNotFound
	}
	return img, nil
}

func (m *mockImageRepo) List(ctx context.Context, companyID int64) ([]Image, error) {
	var out []Image
	for _, img := range m.images {
		if img.CompanyID == companyID {
			out = append(out, img)
		}
	}
	return out, nil
}

type mockObjectStore struct {
	objects map[string]string
}

func newMockObjectStore() *mockObjectStore {
	return &mockObjectStore{objects: make(map[string]string)}
}

func (m *mockObjectStore) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = string(data)
	return nil
}

func (m *mockObjectStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if _, ok := m.objects[key]; !ok {
		return "", httpx.ErrNotFound
	}
	return "https://media.test/" + key, nil
}

func TestUploadNamespacesKeyByCompany(t *testing.T) {
	repo := newMockImageRepo()
	store := newMockObjectStore()
	svc := NewService(repo, store)

	img, err := svc.Upload(context.Background(), 7, 42, "cat.png", "image/png", 4, strings.NewReader("data"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(img.ObjectKey, "7/"), "object key %q must start with the company ID", img.ObjectKey)
	assert.True(t, strings.HasSuffix(img.ObjectKey, "-cat.png"))
	assert.Equal(t, int64(7), img.CompanyID)
	assert.Equal(t, int64(42), img.UserID)
	assert.Equal(t, "data", store.objects[img.ObjectKey])
}

func TestURLIsTenantScoped(t *testing.T) {
	repo := newMockImageRepo()
	store := newMockObjectStore()
	svc := NewService(repo, store)

	img, err := svc.Upload(context.Background(), 7, 42, "cat.png", "image/png", 4, strings.NewReader("data"))
	require.NoError(t, err)

	url, err := svc.URL(context.Background(), 7, img.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://media.test/"+img.ObjectKey, url)

	_, err = svc.URL(context.Background(), 8, img.ID)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestListFiltersByCompany(t *testing.T) {
	repo := newMockImageRepo()
	store := newMockObjectStore()
	svc := NewService(repo, store)

	_, err := svc.Upload(context.Background(), 7, 1, "a.png", "image/png", 1, strings.NewReader("a"))
	require.NoError(t, err)
	_, err = svc.Upload(context.Background(), 8, 1, "b.png", "image/png", 1, strings.NewReader("b"))
	require.NoError(t, err)

	listed, err := svc.List(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "a.png", listed[0].OriginalName)
}
