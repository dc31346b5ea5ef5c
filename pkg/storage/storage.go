package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dtnitsch/design-scan/internal/common"
	"github.com/dtnitsch/design-scan/models"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseDir = "design-assets"
	metaSuffix     = ".meta.yaml"
)

var invalidFilenameChar = regexp.MustCompile(`[^a-zA-Z0-9\-_.]+`)

// FileStats holds metadata about a stored file without reading its contents.
type FileStats struct {
	SizeBytes int64
	ModTime   time.Time
}

// ObjectMeta is the sidecar written next to every stored object.
type ObjectMeta struct {
	OwnerID     string            `yaml:"owner_id"`
	FileName    string            `yaml:"file_name"`
	ContentType string            `yaml:"content_type"`
	SizeBytes   int64             `yaml:"size_bytes"`
	SHA256      string            `yaml:"sha256"`
	Metadata    map[string]string `yaml:"metadata,omitempty"`
	CreatedAt   time.Time         `yaml:"created_at"`
}

// FileStore is asset storage on the local filesystem. Objects live under
// <baseDir>/<owner>/<id>-<name>.
type FileStore struct {
	baseDir string
	baseURL string
}

// NewFileStore creates the base directory if needed. When baseURL is empty,
// returned URLs are file:// URLs.
func NewFileStore(baseDir, baseURL string) (*FileStore, error) {
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	if err := os.MkdirAll(baseDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStore{baseDir: baseDir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Upload writes the buffer and its metadata sidecar.
func (s *FileStore) Upload(ctx context.Context, in models.UploadInput) (models.StoredObject, error) {
	if err := ctx.Err(); err != nil {
		return models.StoredObject{}, err
	}
	if len(in.Buffer) == 0 {
		return models.StoredObject{}, fmt.Errorf("refusing to store empty buffer")
	}

	owner := sanitizeName(in.OwnerID)
	if owner == "" {
		owner = "shared"
	}
	name := sanitizeName(in.FileName)
	if name == "" {
		name = "asset"
	}
	key := path.Join(owner, uuid.NewString()+"-"+name)
	filePath := s.pathFor(key)

	if err := os.MkdirAll(filepath.Dir(filePath), 0750); err != nil {
		return models.StoredObject{}, fmt.Errorf("failed to create owner directory: %w", err)
	}
	if err := os.WriteFile(filePath, in.Buffer, 0600); err != nil {
		return models.StoredObject{}, fmt.Errorf("failed to write object: %w", err)
	}

	meta := ObjectMeta{
		OwnerID:     in.OwnerID,
		FileName:    in.FileName,
		ContentType: in.ContentType,
		SizeBytes:   int64(len(in.Buffer)),
		SHA256:      common.ContentHash(in.Buffer),
		Metadata:    in.Metadata,
		CreatedAt:   time.Now().UTC(),
	}
	data, err := yaml.Marshal(meta)
	if err != nil {
		return models.StoredObject{}, fmt.Errorf("failed to encode object metadata: %w", err)
	}
	if err := os.WriteFile(filePath+metaSuffix, data, 0600); err != nil {
		_ = os.Remove(filePath) // Orphaned object is worse than a failed upload
		return models.StoredObject{}, fmt.Errorf("failed to write object metadata: %w", err)
	}

	return models.StoredObject{URL: s.urlFor(key, filePath), Key: key}, nil
}

// ReadFile returns a stored object's bytes.
func (s *FileStore) ReadFile(key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Clean(s.pathFor(key)))
	if err != nil {
		return nil, fmt.Errorf("error reading object: %w", err)
	}
	return data, nil
}

// ReadMeta returns a stored object's sidecar metadata.
func (s *FileStore) ReadMeta(key string) (*ObjectMeta, error) {
	data, err := os.ReadFile(filepath.Clean(s.pathFor(key) + metaSuffix))
	if err != nil {
		return nil, fmt.Errorf("error reading object metadata: %w", err)
	}
	var meta ObjectMeta
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("error decoding object metadata: %w", err)
	}
	return &meta, nil
}

// HasFile reports whether key is stored.
func (s *FileStore) HasFile(key string) bool {
	_, err := os.Stat(s.pathFor(key))
	return err == nil
}

// GetFileStats returns size and modification time using os.Stat.
func (s *FileStore) GetFileStats(key string) (*FileStats, error) {
	info, err := os.Stat(s.pathFor(key))
	if err != nil {
		return nil, fmt.Errorf("error getting file stats: %w", err)
	}
	return &FileStats{
		SizeBytes: info.Size(),
		ModTime:   info.ModTime(),
	}, nil
}

func (s *FileStore) pathFor(key string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(key))
}

func (s *FileStore) urlFor(key, filePath string) string {
	if s.baseURL != "" {
		return s.baseURL + "/" + key
	}
	abs, err := filepath.Abs(filePath)
	if err != nil {
		abs = filePath
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

// sanitizeName makes a filesystem-safe name component.
func sanitizeName(name string) string {
	safe := invalidFilenameChar.ReplaceAllString(strings.TrimSpace(name), "_")
	return strings.Trim(safe, "_.")
}
