package thumbnails

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// MaxImageBytes caps a downloaded thumbnail.
const MaxImageBytes = 5 << 20

var (
	// ErrTooLarge is returned when a remote image exceeds MaxImageBytes.
	ErrTooLarge = errors.New("thumbnail exceeds size limit")

	// ErrForbiddenURL is returned for non-http(s) URLs and for hosts that
	// resolve to loopback, private or link-local addresses.
	ErrForbiddenURL = errors.New("thumbnail url not allowed")
)

// Cache keeps local copies of book thumbnails.
type Cache struct {
	dir          string
	httpClient   *http.Client
	log          logrus.FieldLogger
	allowPrivate bool
}

// NewCache creates the cache directory if needed.
func NewCache(dir string, timeout time.Duration, log logrus.FieldLogger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create thumbnail dir: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	c := &Cache{dir: dir, log: log}
	dialer := &net.Dialer{Timeout: timeout, Control: c.checkDial}
	c.httpClient = &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:       nil,
			DialContext: dialer.DialContext,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("too many redirects")
			}
			return checkScheme(req.URL)
		},
	}
	return c, nil
}

// AllowPrivateHosts lets downloads reach loopback and private networks.
// Must be called before the first Get.
func (c *Cache) AllowPrivateHosts() *Cache {
	c.allowPrivate = true
	return c
}

func checkScheme(u *url.URL) error {
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrForbiddenURL
	}
	return nil
}

// checkDial runs on the resolved address, so DNS answers and redirects
// cannot point the download at an internal host.
func (c *Cache) checkDial(network, address string, _ syscall.RawConn) error {
	if c.allowPrivate {
		return nil
	}
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || blockedIP(ip) {
		return fmt.Errorf("%w: %s", ErrForbiddenURL, host)
	}
	return nil
}

func blockedIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast()
}

// Get returns the local path of the thumbnail for bookID, downloading it on
// first use. An empty sourceURL yields an empty path.
func (c *Cache) Get(ctx context.Context, bookID, sourceURL string) (string, error) {
	if sourceURL == "" {
		return "", nil
	}

	path := filepath.Join(c.dir, c.filename(bookID, sourceURL))
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if err := c.download(ctx, sourceURL, path); err != nil {
		return "", err
	}
	c.log.WithFields(logrus.Fields{"book_id": bookID, "url": sourceURL}).Debug("thumbnail cached")
	return path, nil
}

// Invalidate removes every cached thumbnail for bookID.
func (c *Cache) Invalidate(bookID string) error {
	matches, err := filepath.Glob(filepath.Join(c.dir, "thumb_"+bookID+"_*"))
	if err != nil {
		return err
	}
	for _, match := range matches {
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// filename keys on the URL too, so a changed thumbnail is fetched fresh.
func (c *Cache) filename(bookID, sourceURL string) string {
	hash := sha256.Sum256([]byte(sourceURL))
	return fmt.Sprintf("thumb_%s_%x", bookID, hash[:8])
}

func (c *Cache) download(ctx context.Context, rawURL, path string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrForbiddenURL, err)
	}
	if err := checkScheme(u); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "LibraryService/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch thumbnail: status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(c.dir, "thumb_tmp_")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpPath)
	}()

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return err
	}
	if n > MaxImageBytes {
		return ErrTooLarge
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}
