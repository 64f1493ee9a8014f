package depprovider

import (
	"archive/tar"
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrChecksumMismatch indicates a downloaded archive's SHA-256 does not
// match the expected value.
var ErrChecksumMismatch = errors.New("downloaded archive checksum mismatch")

// ErrUnsafeArchivePath indicates an archive entry would extract outside
// the destination directory.
var ErrUnsafeArchivePath = errors.New("archive entry escapes destination directory")

// ReleaseAsset describes one platform's download for an InstallProvider.
type ReleaseAsset struct {
	// URL is the direct download URL for the release archive.
	URL string

	// SHA256 is the expected hex-encoded checksum of the archive.
	SHA256 string

	// ExecRelPath is the path to the executable inside the extracted
	// archive, relative to the archive root (after single-directory
	// flattening).
	ExecRelPath string
}

// InstallProvider downloads a pinned release archive into installDir,
// verifying its checksum and extracting it atomically.
type InstallProvider struct {
	name       string
	version    string
	installDir string
	asset      ReleaseAsset
	httpClient *http.Client
}

// InstallProviderOption configures an InstallProvider.
type InstallProviderOption func(*InstallProvider)

// WithHTTPClient overrides the HTTP client used to download the archive.
func WithHTTPClient(client *http.Client) InstallProviderOption {
	return func(p *InstallProvider) {
		p.httpClient = client
	}
}

// NewInstallProvider creates a Provider that installs name@version into
// installDir from asset, if it is not already installed at that version.
func NewInstallProvider(name, version, installDir string, asset ReleaseAsset, opts ...InstallProviderOption) *InstallProvider {
	p := &InstallProvider{
		name:       name,
		version:    version,
		installDir: installDir,
		asset:      asset,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *InstallProvider) Name() string { return "install:" + p.name + "@" + p.version }

type installMeta struct {
	Version     string `json:"version"`
	LastChecked int64  `json:"last_checked"`
}

func (p *InstallProvider) metaPath() string {
	return filepath.Join(p.installDir, ".meta", p.name+".json")
}

func (p *InstallProvider) execPath() string {
	return filepath.Join(p.installDir, p.name, p.asset.ExecRelPath)
}

func (p *InstallProvider) currentMeta() (installMeta, bool) {
	raw, err := os.ReadFile(p.metaPath())
	if err != nil {
		return installMeta{}, false
	}
	parsed := gjson.ParseBytes(raw)
	return installMeta{
		Version:     parsed.Get("version").String(),
		LastChecked: parsed.Get("last_checked").Int(),
	}, true
}

func (p *InstallProvider) writeMeta(now time.Time) error {
	raw, err := sjson.SetBytes(nil, "version", p.version)
	if err != nil {
		return err
	}
	raw, err = sjson.SetBytes(raw, "last_checked", now.Unix())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p.metaPath()), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p.metaPath(), raw, 0o644)
}

// Resolve installs the pinned version if absent or stale, then returns
// the executable path.
func (p *InstallProvider) Resolve(ctx context.Context) (string, error) {
	if meta, ok := p.currentMeta(); ok && meta.Version == p.version {
		if info, err := os.Stat(p.execPath()); err == nil && !info.IsDir() {
			return p.execPath(), nil
		}
	}

	if err := os.MkdirAll(p.installDir, 0o755); err != nil {
		return "", err
	}

	lock := flock.New(filepath.Join(p.installDir, ".lock"))
	locked, err := lock.TryLockContext(ctx, 200*time.Millisecond)
	if err != nil {
		return "", err
	}
	if !locked {
		return "", fmt.Errorf("install directory %s is locked by another process", p.installDir)
	}
	defer lock.Unlock()

	// Re-check now that we hold the lock: another process may have just
	// finished installing the same version.
	if meta, ok := p.currentMeta(); ok && meta.Version == p.version {
		if info, err := os.Stat(p.execPath()); err == nil && !info.IsDir() {
			return p.execPath(), nil
		}
	}

	if err := p.downloadAndInstall(ctx); err != nil {
		return "", err
	}

	if err := p.writeMeta(time.Now()); err != nil {
		return "", err
	}

	return p.execPath(), nil
}

func (p *InstallProvider) downloadAndInstall(ctx context.Context) error {
	archivePath, err := p.download(ctx)
	if err != nil {
		return err
	}
	defer os.Remove(archivePath)

	tempDir := filepath.Join(p.installDir, ".tmp-"+uuid.NewString())
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return err
	}
	defer os.RemoveAll(tempDir)

	if err := extractArchive(archivePath, tempDir); err != nil {
		return err
	}

	root, err := flattenSingleChild(tempDir)
	if err != nil {
		return err
	}

	finalDir := filepath.Join(p.installDir, p.name)
	staging := finalDir + ".new-" + uuid.NewString()
	if err := os.Rename(root, staging); err != nil {
		return err
	}

	os.RemoveAll(finalDir) // best-effort; Rename below overwrites on platforms that allow it
	if err := os.Rename(staging, finalDir); err != nil {
		return err
	}

	return nil
}

func (p *InstallProvider) download(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.asset.URL, nil)
	if err != nil {
		return "", err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: unexpected status %s", p.asset.URL, resp.Status)
	}

	pattern := p.name + "-*.archive"
	if strings.HasSuffix(strings.ToLower(p.asset.URL), ".zip") {
		pattern = p.name + "-*.zip"
	}
	out, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	defer out.Close()

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(out, hasher), resp.Body); err != nil {
		os.Remove(out.Name())
		return "", err
	}

	if p.asset.SHA256 != "" {
		sum := hex.EncodeToString(hasher.Sum(nil))
		if !strings.EqualFold(sum, p.asset.SHA256) {
			os.Remove(out.Name())
			return "", fmt.Errorf("%w: got %s want %s", ErrChecksumMismatch, sum, p.asset.SHA256)
		}
	}

	return out.Name(), nil
}

func extractArchive(archivePath, destDir string) error {
	lower := strings.ToLower(archivePath)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return extractZip(archivePath, destDir)
	default:
		return extractTarGz(archivePath, destDir)
	}
}

func extractTarGz(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		target, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			out.Close()
		}
	}
}

func extractZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		target, err := safeJoin(destDir, f.Name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}

		rc, err := f.Open()
		if err != nil {
			return err
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode())
		if err != nil {
			rc.Close()
			return err
		}
		if _, err := io.Copy(out, rc); err != nil {
			out.Close()
			rc.Close()
			return err
		}
		out.Close()
		rc.Close()
	}

	return nil
}

// safeJoin joins destDir and name, rejecting any entry whose cleaned path
// would escape destDir (the zip-slip guard).
func safeJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, name)
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(filepath.Separator)) && target != filepath.Clean(destDir) {
		return "", fmt.Errorf("%w: %s", ErrUnsafeArchivePath, name)
	}
	return target, nil
}

// flattenSingleChild returns dir itself, or its sole child directory if
// dir contains exactly one entry and that entry is a directory (the
// common "project-v1.2.3/" wrapper folder GitHub release archives use).
func flattenSingleChild(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dir, entries[0].Name()), nil
	}
	return dir, nil
}
