package processor

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/context/ctxhttp"

	"github.com/nci/satlib/metrics"
	"github.com/nci/satlib/utils"
)

// LocalPath is where key is stored under the archive directory.
func (f *GoesFetcher) LocalPath(key string) (string, error) {
	dir, err := f.Config.ArchiveDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, f.Config.Bucket(), filepath.FromSlash(key)), nil
}

func (f *GoesFetcher) objectURL(key string) string {
	return f.Config.BucketEndpoint() + "/" + strings.TrimLeft(key, "/")
}

// Fetch resolves the file nearest to t and, when downloading is enabled,
// makes sure it is present locally. The local path is returned in both
// cases; existing non-empty files are never downloaded again.
func (f *GoesFetcher) Fetch(ctx context.Context, t time.Time) (string, error) {
	collector := metrics.NewMetricsCollector(f.Logger)
	defer collector.Log()

	localPath, err := f.fetch(ctx, t.UTC(), collector)
	if err != nil {
		collector.Info.Fetch.Error = err.Error()
		return "", err
	}
	return localPath, nil
}

func (f *GoesFetcher) fetch(ctx context.Context, t time.Time, collector *metrics.MetricsCollector) (string, error) {
	obj, err := f.nearest(ctx, t, collector)
	if err != nil {
		return "", err
	}

	localPath, err := f.LocalPath(obj.Key)
	if err != nil {
		return "", err
	}
	collector.Info.Fetch.Path = localPath
	if !f.Config.Download {
		return localPath, nil
	}

	if st, err := os.Stat(localPath); err == nil && st.Mode().IsRegular() && st.Size() > 0 {
		if f.Config.Verbose {
			log.Printf("GOES file already downloaded: %s", localPath)
		}
		return localPath, nil
	}

	fetchStart := time.Now()
	n, err := f.download(ctx, obj.Key, localPath, collector)
	collector.Info.Fetch.FetchDuration = time.Since(fetchStart)
	collector.Info.Fetch.BytesRead = n
	if err != nil {
		return "", err
	}
	return localPath, nil
}

// download writes the object into a temporary file next to dst and
// renames it into place once complete.
func (f *GoesFetcher) download(ctx context.Context, key string, dst string, collector *metrics.MetricsCollector) (int64, error) {
	reqURL := f.objectURL(key)
	collector.Info.Fetch.Download = metrics.URLInfo{RawURL: reqURL}
	if f.Config.Verbose {
		log.Printf("downloading GOES file: %v", reqURL)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, err
	}

	resp, err := ctxhttp.Get(ctx, f.Client, reqURL)
	if err != nil {
		return 0, fmt.Errorf("GET request to %s failed. Error: %v", reqURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("GET request to %s returned %s", reqURL, resp.Status)
	}

	tmp, err := ioutil.TempFile(filepath.Dir(dst), "."+filepath.Base(dst)+".")
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil && resp.ContentLength >= 0 && n != resp.ContentLength {
		err = fmt.Errorf("short read from %s: %d of %d bytes", reqURL, n, resp.ContentLength)
	}
	if err != nil {
		os.Remove(tmpName)
		return n, err
	}

	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return n, err
	}
	return n, nil
}

// GetGoes returns the local path of the GOES file nearest to timestamp,
// downloading it first unless cfg disables downloads. A nil cfg selects
// the defaults.
func GetGoes(ctx context.Context, timestamp time.Time, cfg *utils.GoesConfig) (string, error) {
	f, err := NewGoesFetcher(cfg, nil)
	if err != nil {
		return "", err
	}
	return f.Fetch(ctx, timestamp)
}
