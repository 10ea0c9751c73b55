package processor

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/nci/gomemcache/memcache"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/context/ctxhttp"

	"github.com/nci/satlib/metrics"
	"github.com/nci/satlib/utils"
)

var ErrNoGoesFiles = errors.New("no GOES files found near the requested time")

// GoesObject is one file of the NOAA GOES archive.
type GoesObject struct {
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	ScanStart time.Time `json:"scan_start"`
}

type listBucketResult struct {
	Contents []struct {
		Key  string `xml:"Key"`
		Size int64  `xml:"Size"`
	} `xml:"Contents"`
	IsTruncated           bool   `xml:"IsTruncated"`
	NextContinuationToken string `xml:"NextContinuationToken"`
}

// GoesFetcher finds and downloads the GOES file nearest to a time.
type GoesFetcher struct {
	Config utils.GoesConfig
	Client *http.Client
	Logger metrics.Logger

	cache *memcache.Client
}

func NewGoesFetcher(cfg *utils.GoesConfig, logger metrics.Logger) (*GoesFetcher, error) {
	if cfg == nil {
		cfg = utils.DefaultGoesConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	f := &GoesFetcher{
		Config: *cfg,
		Client: &http.Client{Timeout: cfg.Timeout()},
		Logger: logger,
	}
	if len(cfg.MemcacheURI) > 0 {
		// lazy connection; errors surface in Get and Set
		f.cache = memcache.New(cfg.MemcacheURI)
	}
	return f, nil
}

// scanStartRe matches the scan start field of a GOES file name,
// sYYYYJJJHHMMSSt with t the tenth of a second.
var scanStartRe = regexp.MustCompile(`_s(\d{4})(\d{3})(\d{2})(\d{2})(\d{2})(\d)_`)

// ParseScanStart returns the scan start time encoded in a GOES file
// name such as OR_ABI-L2-MCMIPC-M6_G16_s20243482251172_e..._c....nc.
func ParseScanStart(key string) (time.Time, error) {
	m := scanStartRe.FindStringSubmatch(path.Base(key))
	if m == nil {
		return time.Time{}, fmt.Errorf("no scan start in %q", key)
	}

	var f [6]int
	for i := range f {
		f[i], _ = strconv.Atoi(m[i+1])
	}
	year, doy, hour, minute, sec, tenth := f[0], f[1], f[2], f[3], f[4], f[5]
	if doy < 1 || doy > 366 || hour > 23 || minute > 59 || sec > 60 {
		return time.Time{}, fmt.Errorf("invalid scan start in %q", key)
	}
	t := time.Date(year, time.January, 1, hour, minute, sec, tenth*100000000, time.UTC)
	return t.AddDate(0, 0, doy-1), nil
}

// hourPrefixes lists the hourly key prefixes covering [t-within, t+within].
func (f *GoesFetcher) hourPrefixes(t time.Time) []string {
	within := f.Config.Within()
	start := t.Add(-within).Truncate(time.Hour)
	end := t.Add(within)

	var prefixes []string
	for h := start; !h.After(end); h = h.Add(time.Hour) {
		prefixes = append(prefixes, fmt.Sprintf("%s/%04d/%03d/%02d/", f.Config.ProductDir(), h.Year(), h.YearDay(), h.Hour()))
	}
	return prefixes
}

func (f *GoesFetcher) listURL(prefix, token string) string {
	q := url.Values{}
	q.Set("list-type", "2")
	q.Set("prefix", prefix)
	if len(token) > 0 {
		q.Set("continuation-token", token)
	}
	return f.Config.BucketEndpoint() + "/?" + q.Encode()
}

// listPrefix returns every object under prefix, following continuation
// tokens.
func (f *GoesFetcher) listPrefix(ctx context.Context, prefix string, collector *metrics.MetricsCollector) ([]*GoesObject, error) {
	var objects []*GoesObject
	token := ""
	for {
		reqURL := f.listURL(prefix, token)
		collector.AddListURL(reqURL)
		if f.Config.Verbose {
			log.Printf("listing GOES bucket: %v", reqURL)
		}

		resp, err := ctxhttp.Get(ctx, f.Client, reqURL)
		if err != nil {
			return nil, fmt.Errorf("GET request to %s failed. Error: %v", reqURL, err)
		}
		body, err := ioutil.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("Error parsing response body from %s. Error: %v", reqURL, err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("GET request to %s returned %s", reqURL, resp.Status)
		}

		var result listBucketResult
		if err := xml.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("Problem parsing XML response from %s. Error: %v", reqURL, err)
		}

		for _, c := range result.Contents {
			start, err := ParseScanStart(c.Key)
			if err != nil {
				continue
			}
			objects = append(objects, &GoesObject{Key: c.Key, Size: c.Size, ScanStart: start})
		}

		if !result.IsTruncated || len(result.NextContinuationToken) == 0 {
			return objects, nil
		}
		token = result.NextContinuationToken
	}
}

func cacheKey(rawURL string) string {
	buff := md5.Sum([]byte(rawURL))
	return hex.EncodeToString(buff[:])
}

// cachedListPrefix consults memcached before listing. Only hours that
// closed at least an hour ago are stored, the newer ones may still grow.
func (f *GoesFetcher) cachedListPrefix(ctx context.Context, prefix string, hourEnd time.Time, collector *metrics.MetricsCollector) ([]*GoesObject, error) {
	if f.cache == nil {
		return f.listPrefix(ctx, prefix, collector)
	}

	hash := cacheKey(f.listURL(prefix, ""))
	if cached, err := f.cache.Get(hash); err == nil {
		var objects []*GoesObject
		if err := json.Unmarshal(cached.Value, &objects); err == nil {
			collector.AddCacheHit()
			return objects, nil
		}
	}

	objects, err := f.listPrefix(ctx, prefix, collector)
	if err != nil {
		return nil, err
	}
	if hourEnd.Before(time.Now().Add(-time.Hour)) {
		if value, err := json.Marshal(objects); err == nil {
			// don't care about errors; memcache may not necessarily retain this anyway
			f.cache.Set(&memcache.Item{Key: hash, Value: value})
		}
	}
	return objects, nil
}

// Nearest returns the archive file whose scan start is closest to t,
// preferring the earlier file on ties.
func (f *GoesFetcher) Nearest(ctx context.Context, t time.Time) (*GoesObject, error) {
	collector := metrics.NewMetricsCollector(f.Logger)
	defer collector.Log()

	obj, err := f.nearest(ctx, t.UTC(), collector)
	if err != nil {
		collector.Info.Fetch.Error = err.Error()
	}
	return obj, err
}

func (f *GoesFetcher) nearest(ctx context.Context, t time.Time, collector *metrics.MetricsCollector) (*GoesObject, error) {
	info := collector.Info.Fetch
	info.Satellite = f.Config.Satellite
	info.Product = f.Config.Product
	info.Domain = f.Config.Domain
	info.Requested = t

	listStart := time.Now()
	within := f.Config.Within()
	prefixes := f.hourPrefixes(t)
	listings := make([][]*GoesObject, len(prefixes))
	errs := make([]error, len(prefixes))

	cLimiter := NewConcLimiter(f.Config.ListConcurrency)
	for ip, prefix := range prefixes {
		select {
		case <-ctx.Done():
			cLimiter.Wait()
			return nil, fmt.Errorf("GOES listing has been canceled: %v", ctx.Err())
		default:
		}

		hour, err := time.Parse("2006/002/15/", prefix[len(f.Config.ProductDir())+1:])
		if err != nil {
			cLimiter.Wait()
			return nil, fmt.Errorf("invalid listing prefix %q: %v", prefix, err)
		}

		cLimiter.Increase()
		go func(ip int, prefix string, hourEnd time.Time) {
			defer cLimiter.Decrease()
			listings[ip], errs[ip] = f.cachedListPrefix(ctx, prefix, hourEnd, collector)
		}(ip, prefix, hour.Add(time.Hour))
	}
	cLimiter.Wait()

	var candidates []*GoesObject
	for ip := range prefixes {
		if errs[ip] != nil {
			return nil, errs[ip]
		}
		for _, obj := range listings[ip] {
			if absDuration(obj.ScanStart.Sub(t)) <= within {
				candidates = append(candidates, obj)
			}
		}
	}
	info.ListDuration = time.Since(listStart)
	info.NumCandidates = len(candidates)

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s %s within %v of %s", ErrNoGoesFiles, f.Config.Satellite, f.Config.ProductDir(), within, t.Format(time.RFC3339))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		di := absDuration(candidates[i].ScanStart.Sub(t))
		dj := absDuration(candidates[j].ScanStart.Sub(t))
		if di != dj {
			return di < dj
		}
		return candidates[i].ScanStart.Before(candidates[j].ScanStart)
	})

	best := candidates[0]
	info.Key = best.Key
	info.ScanStart = best.ScanStart
	if f.Config.Verbose {
		log.Printf("nearest GOES file to %s: %s (%d candidates)", t.Format(time.RFC3339), best.Key, len(candidates))
	}
	return best, nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
