package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/camden-git/siteguard/logger"
)

var ErrAssetNotFound = errors.New("asset not found")

// Store saves and serves captured frames and debug overlays.
type Store interface {
	// Save writes data under the asset type's directory. An empty filename
	// gets a random one with ext appended. Returns the path relative to the
	// storage root, with forward slashes.
	Save(assetType AssetType, relativeDir, filename, ext string, data io.Reader) (string, error)
	Get(relativePath string) (io.ReadCloser, os.FileInfo, error)
	Delete(relativePath string) error
	GetFullPath(relativePath string) (string, error)
}

// LocalStorage implements Store on the local filesystem.
type LocalStorage struct {
	basePath string
	log      *logger.Logger

	mu   sync.Mutex
	dirs map[AssetType]string
}

func NewLocalStorage(basePath string, subDirs map[AssetType]string, log *logger.Logger) (*LocalStorage, error) {
	absBasePath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("invalid base storage path '%s': %w", basePath, err)
	}
	if err := os.MkdirAll(absBasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base storage directory '%s': %w", absBasePath, err)
	}

	dirs := make(map[AssetType]string, len(subDirs))
	for assetType, subDir := range subDirs {
		fullPath := filepath.Join(absBasePath, subDir)
		if !within(absBasePath, fullPath) {
			return nil, fmt.Errorf("invalid subdirectory configuration: '%s' resolves outside base path '%s'", subDir, absBasePath)
		}
		dirs[assetType] = fullPath
	}

	log.Info("media store initialised", "path", absBasePath)
	return &LocalStorage{basePath: absBasePath, log: log, dirs: dirs}, nil
}

func within(base, p string) bool {
	clean := filepath.Clean(p)
	return clean == base || strings.HasPrefix(clean, base+string(filepath.Separator))
}

func (ls *LocalStorage) assetDir(assetType AssetType) (string, error) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	dirPath, ok := ls.dirs[assetType]
	if !ok {
		dirPath = filepath.Join(ls.basePath, string(assetType))
		if !within(ls.basePath, dirPath) {
			return "", fmt.Errorf("asset type '%s' resolves outside base path", assetType)
		}
		ls.dirs[assetType] = dirPath
	}
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return "", fmt.Errorf("failed to ensure directory '%s': %w", dirPath, err)
	}
	return dirPath, nil
}

func (ls *LocalStorage) Save(assetType AssetType, relativeDir, filename, ext string, data io.Reader) (string, error) {
	baseDir, err := ls.assetDir(assetType)
	if err != nil {
		return "", err
	}

	targetDir := baseDir
	if relativeDir != "" {
		targetDir = filepath.Join(baseDir, relativeDir)
		if !within(baseDir, targetDir) {
			return "", fmt.Errorf("invalid relative directory '%s'", relativeDir)
		}
		if err := os.MkdirAll(targetDir, 0755); err != nil {
			return "", fmt.Errorf("failed to create sub-directory '%s': %w", targetDir, err)
		}
	}

	if filename == "" {
		id, err := uuid.NewRandom()
		if err != nil {
			return "", fmt.Errorf("failed to generate filename: %w", err)
		}
		filename = id.String() + ext
	}
	fullSavePath := filepath.Join(targetDir, filepath.Base(filename))

	outFile, err := os.Create(fullSavePath)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file '%s': %w", fullSavePath, err)
	}
	if _, err := io.Copy(outFile, data); err != nil {
		outFile.Close()
		os.Remove(fullSavePath)
		return "", fmt.Errorf("failed to write data to '%s': %w", fullSavePath, err)
	}
	if err := outFile.Close(); err != nil {
		os.Remove(fullSavePath)
		return "", fmt.Errorf("failed to close '%s': %w", fullSavePath, err)
	}

	relativePath, err := filepath.Rel(ls.basePath, fullSavePath)
	if err != nil {
		return "", fmt.Errorf("internal error calculating relative path: %w", err)
	}
	ls.log.Debug("saved asset", "path", fullSavePath)
	return filepath.ToSlash(relativePath), nil
}

func (ls *LocalStorage) Get(relativePath string) (io.ReadCloser, os.FileInfo, error) {
	fullPath, err := ls.GetFullPath(relativePath)
	if err != nil {
		return nil, nil, err
	}
	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("'%s': %w", relativePath, ErrAssetNotFound)
		}
		return nil, nil, fmt.Errorf("failed to open asset '%s': %w", relativePath, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("failed to stat asset '%s': %w", relativePath, err)
	}
	if info.IsDir() {
		file.Close()
		return nil, nil, fmt.Errorf("'%s' is a directory: %w", relativePath, ErrAssetNotFound)
	}
	return file, info, nil
}

func (ls *LocalStorage) Delete(relativePath string) error {
	fullPath, err := ls.GetFullPath(relativePath)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete asset '%s': %w", relativePath, err)
	}
	return nil
}

// GetFullPath resolves a relative asset path and refuses anything that
// escapes the storage root.
func (ls *LocalStorage) GetFullPath(relativePath string) (string, error) {
	fullPath := filepath.Join(ls.basePath, filepath.Clean("/"+relativePath))
	if !within(ls.basePath, fullPath) || fullPath == ls.basePath {
		return "", fmt.Errorf("invalid path: access denied for '%s'", relativePath)
	}
	return fullPath, nil
}
