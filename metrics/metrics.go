package metrics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"
)

type URLInfo struct {
	RawURL string            `json:"raw_url"`
	Host   string            `json:"host"`
	Path   string            `json:"path"`
	Query  map[string]string `json:"query"`
}

// FetchInfo describes one nearest-time lookup and its download.
type FetchInfo struct {
	Satellite     string        `json:"satellite"`
	Product       string        `json:"product"`
	Domain        string        `json:"domain"`
	Requested     time.Time     `json:"requested"`
	ListDuration  time.Duration `json:"list_duration"`
	ListURLs      []URLInfo     `json:"list_urls"`
	CacheHits     int           `json:"cache_hits"`
	NumCandidates int           `json:"num_candidates"`
	Key           string        `json:"key"`
	ScanStart     time.Time     `json:"scan_start"`
	Download      URLInfo       `json:"download"`
	BytesRead     int64         `json:"bytes_read"`
	FetchDuration time.Duration `json:"fetch_duration"`
	Path          string        `json:"path"`
	Error         string        `json:"error,omitempty"`
}

type MetricsInfo struct {
	ReqTime     string        `json:"req_time"`
	ReqDuration time.Duration `json:"req_duration"`
	Fetch       *FetchInfo    `json:"fetch"`
}

type MetricsCollector struct {
	Info   *MetricsInfo
	logger Logger
	start  time.Time
	mu     sync.Mutex
}

func NewMetricsCollector(logger Logger) *MetricsCollector {
	now := time.Now()
	return &MetricsCollector{
		Info: &MetricsInfo{
			ReqTime: now.Format(time.RFC3339),
			Fetch:   &FetchInfo{},
		},
		logger: logger,
		start:  now,
	}
}

// Log stamps the request duration and hands the metrics to the logger.
func (m *MetricsCollector) Log() {
	if m == nil {
		return
	}
	m.Info.ReqDuration = time.Since(m.start)
	if m.logger != nil {
		m.logger.Log(m.Info)
	}
}

// AddListURL records a bucket listing request.
func (m *MetricsCollector) AddListURL(rawURL string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.Info.Fetch.ListURLs = append(m.Info.Fetch.ListURLs, URLInfo{RawURL: rawURL})
	m.mu.Unlock()
}

// AddCacheHit counts a listing served from memcached.
func (m *MetricsCollector) AddCacheHit() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.Info.Fetch.CacheHits++
	m.mu.Unlock()
}

func (i *MetricsInfo) ToJSON() (string, error) {
	if err := i.normaliseURLs(); err != nil {
		return "", err
	}

	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(i)
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (i *MetricsInfo) normaliseURLs() error {
	if i.Fetch == nil {
		return nil
	}
	for iu := range i.Fetch.ListURLs {
		if err := normaliseURL(&i.Fetch.ListURLs[iu]); err != nil {
			return fmt.Errorf("metrics: list url: %v", err)
		}
	}
	if len(i.Fetch.Download.RawURL) > 0 {
		if err := normaliseURL(&i.Fetch.Download); err != nil {
			return fmt.Errorf("metrics: download url: %v", err)
		}
	}
	return nil
}

func normaliseURL(u *URLInfo) error {
	r, err := url.Parse(u.RawURL)
	if err != nil {
		return err
	}

	u.Host = r.Host
	u.Path = r.Path
	query, err := url.ParseQuery(r.RawQuery)
	if err != nil {
		return err
	}

	if u.Query == nil {
		u.Query = make(map[string]string)
	}
	for k, v := range query {
		if len(v) == 1 {
			u.Query[k] = v[0]
		} else if len(v) > 1 {
			u.Query[k] = fmt.Sprintf("%v", v)
		} else {
			u.Query[k] = ""
		}
	}
	return nil
}
