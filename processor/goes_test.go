package processor

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nci/satlib/metrics"
	"github.com/nci/satlib/utils"
)

const (
	testKeyEarly = "ABI-L2-MCMIPC/2024/348/22/OR_ABI-L2-MCMIPC-M6_G16_s20243482246172_e20243482248545_c20243482249058.nc"
	testKeyLate  = "ABI-L2-MCMIPC/2024/348/22/OR_ABI-L2-MCMIPC-M6_G16_s20243482251172_e20243482253545_c20243482254047.nc"
	testKeyOld   = "ABI-L2-MCMIPC/2024/348/20/OR_ABI-L2-MCMIPC-M6_G16_s20243482001172_e20243482003545_c20243482004051.nc"
	testContent  = "CDF netcdf payload"
)

type fakeBucket struct {
	sync.Mutex
	lists     int
	downloads int
	fail      bool
}

func listing(prefix string, truncated bool, token string, keys ...string) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	sb.WriteString(`<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
	fmt.Fprintf(&sb, "<Name>noaa-goes16</Name><Prefix>%s</Prefix><IsTruncated>%v</IsTruncated>", prefix, truncated)
	for _, key := range keys {
		fmt.Fprintf(&sb, "<Contents><Key>%s</Key><Size>%d</Size><StorageClass>STANDARD</StorageClass></Contents>", key, len(testContent))
	}
	if len(token) > 0 {
		fmt.Fprintf(&sb, "<NextContinuationToken>%s</NextContinuationToken>", token)
	}
	sb.WriteString("</ListBucketResult>")
	return sb.String()
}

func (b *fakeBucket) counts() (int, int) {
	b.Lock()
	defer b.Unlock()
	return b.lists, b.downloads
}

func (b *fakeBucket) setFail(fail bool) {
	b.Lock()
	b.fail = fail
	b.Unlock()
}

func (b *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.Lock()
	defer b.Unlock()

	if b.fail {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	if query.Get("list-type") == "2" {
		b.lists++
		prefix := query.Get("prefix")
		w.Header().Set("Content-Type", "application/xml")
		switch {
		case prefix == "ABI-L2-MCMIPC/2024/348/22/" && query.Get("continuation-token") == "":
			fmt.Fprint(w, listing(prefix, true, "page2", testKeyEarly))
		case prefix == "ABI-L2-MCMIPC/2024/348/22/" && query.Get("continuation-token") == "page2":
			fmt.Fprint(w, listing(prefix, false, "", testKeyLate, "ABI-L2-MCMIPC/2024/348/22/index.html"))
		case prefix == "ABI-L2-MCMIPC/2024/348/20/":
			fmt.Fprint(w, listing(prefix, false, "", testKeyOld))
		default:
			fmt.Fprint(w, listing(prefix, false, ""))
		}
		return
	}

	key := strings.TrimPrefix(r.URL.Path, "/")
	if key != testKeyEarly && key != testKeyLate && key != testKeyOld {
		http.NotFound(w, r)
		return
	}
	b.downloads++
	fmt.Fprint(w, testContent)
}

type captureLogger struct {
	infos []*metrics.MetricsInfo
}

func (l *captureLogger) Log(info *metrics.MetricsInfo) {
	l.infos = append(l.infos, info)
}

func testGoesConfig(t *testing.T, url string) *utils.GoesConfig {
	cfg := utils.DefaultGoesConfig()
	cfg.BucketURL = url
	cfg.SaveDir = t.TempDir()
	cfg.TimeoutSecs = 10
	return cfg
}

var testScanTime = time.Date(2024, 12, 13, 22, 50, 0, 0, time.UTC)

func TestParseScanStart(t *testing.T) {
	start, err := ParseScanStart(testKeyLate)
	if err != nil {
		t.Fatalf("ParseScanStart failed: %v", err)
	}
	expected := time.Date(2024, 12, 13, 22, 51, 17, 200000000, time.UTC)
	if !start.Equal(expected) {
		t.Errorf("expecting %v, actual %v", expected, start)
	}

	if _, err := ParseScanStart("ABI-L2-MCMIPC/2024/348/22/index.html"); err == nil {
		t.Errorf("expecting an error for a key without scan start")
	}
}

func TestGetGoesDownload(t *testing.T) {
	bucket := &fakeBucket{}
	server := httptest.NewServer(bucket)
	defer server.Close()

	cfg := testGoesConfig(t, server.URL)
	path, err := GetGoes(context.Background(), testScanTime, cfg)
	if err != nil {
		t.Fatalf("GetGoes failed: %v", err)
	}

	expected := filepath.Join(cfg.SaveDir, "noaa-goes16", filepath.FromSlash(testKeyLate))
	if path != expected {
		t.Errorf("expecting %s, actual %s", expected, path)
	}
	content, err := ioutil.ReadFile(path)
	if err != nil {
		t.Fatalf("downloaded file is missing: %v", err)
	}
	if string(content) != testContent {
		t.Errorf("unexpected content %q", content)
	}

	// the second fetch finds the file in place
	if _, err := GetGoes(context.Background(), testScanTime, cfg); err != nil {
		t.Fatalf("GetGoes failed: %v", err)
	}
	if _, downloads := bucket.counts(); downloads != 1 {
		t.Errorf("existing file was downloaded again, %d downloads", downloads)
	}
}

func TestGetGoesNoDownload(t *testing.T) {
	bucket := &fakeBucket{}
	server := httptest.NewServer(bucket)
	defer server.Close()

	cfg := testGoesConfig(t, server.URL)
	cfg.Download = false
	path, err := GetGoes(context.Background(), testScanTime, cfg)
	if err != nil {
		t.Fatalf("GetGoes failed: %v", err)
	}
	if !strings.HasSuffix(path, filepath.FromSlash(testKeyLate)) {
		t.Errorf("unexpected path %s", path)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("nothing must be written without download, stat: %v", err)
	}
	if _, downloads := bucket.counts(); downloads != 0 {
		t.Errorf("expecting no downloads, actual %d", downloads)
	}
}

func TestGoesFetcherNearest(t *testing.T) {
	bucket := &fakeBucket{}
	server := httptest.NewServer(bucket)
	defer server.Close()

	logger := &captureLogger{}
	f, err := NewGoesFetcher(testGoesConfig(t, server.URL), logger)
	if err != nil {
		t.Fatalf("NewGoesFetcher failed: %v", err)
	}

	// halfway between both scans
	tie := time.Date(2024, 12, 13, 22, 48, 47, 200000000, time.UTC)
	obj, err := f.Nearest(context.Background(), tie)
	if err != nil {
		t.Fatalf("Nearest failed: %v", err)
	}
	if obj.Key != testKeyEarly {
		t.Errorf("ties must resolve to the earlier scan, got %s", obj.Key)
	}

	// listings for hours 21, 22 (2 pages) and 23
	if lists, _ := bucket.counts(); lists != 4 {
		t.Errorf("expecting 4 listing requests, actual %d", lists)
	}

	if len(logger.infos) != 1 {
		t.Fatalf("expecting 1 metrics record, actual %d", len(logger.infos))
	}
	info := logger.infos[0].Fetch
	if info.NumCandidates != 2 || info.Key != testKeyEarly || len(info.ListURLs) != 4 {
		t.Errorf("unexpected metrics %+v", info)
	}
}

func TestGoesFetcherWindow(t *testing.T) {
	bucket := &fakeBucket{}
	server := httptest.NewServer(bucket)
	defer server.Close()

	cfg := testGoesConfig(t, server.URL)
	cfg.WithinMinutes = 10
	f, err := NewGoesFetcher(cfg, nil)
	if err != nil {
		t.Fatalf("NewGoesFetcher failed: %v", err)
	}

	// 20:01 is 41 minutes away
	_, err = f.Nearest(context.Background(), time.Date(2024, 12, 13, 20, 42, 0, 0, time.UTC))
	if !errors.Is(err, ErrNoGoesFiles) {
		t.Errorf("expecting ErrNoGoesFiles, actual %v", err)
	}

	obj, err := f.Nearest(context.Background(), time.Date(2024, 12, 13, 20, 5, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Nearest failed: %v", err)
	}
	if obj.Key != testKeyOld {
		t.Errorf("expecting %s, actual %s", testKeyOld, obj.Key)
	}
}

func TestGetGoesErrors(t *testing.T) {
	bucket := &fakeBucket{}
	server := httptest.NewServer(bucket)
	defer server.Close()

	cfg := testGoesConfig(t, server.URL)
	cfg.Satellite = "goes17"
	if _, err := GetGoes(context.Background(), testScanTime, cfg); err == nil {
		t.Errorf("expecting an error for an unsupported satellite")
	}
	cfg = testGoesConfig(t, server.URL)
	cfg.Domain = "Z"
	if _, err := GetGoes(context.Background(), testScanTime, cfg); err == nil {
		t.Errorf("expecting an error for an unsupported domain")
	}
	if lists, _ := bucket.counts(); lists != 0 {
		t.Errorf("invalid requests must fail before listing, %d listings", lists)
	}

	cfg = testGoesConfig(t, server.URL)
	if _, err := GetGoes(context.Background(), time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), cfg); !errors.Is(err, ErrNoGoesFiles) {
		t.Errorf("expecting ErrNoGoesFiles, actual %v", err)
	}

	bucket.setFail(true)
	if _, err := GetGoes(context.Background(), testScanTime, cfg); err == nil || !strings.Contains(err.Error(), server.URL) {
		t.Errorf("expecting an error naming the bucket URL, actual %v", err)
	}
	bucket.setFail(false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := GetGoes(ctx, testScanTime, cfg); err == nil {
		t.Errorf("expecting an error for a canceled context")
	}
}
