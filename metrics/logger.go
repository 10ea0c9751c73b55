package metrics

import (
	"fmt"
	"io/ioutil"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nci/satlib/utils"
)

type Logger interface {
	Log(info *MetricsInfo)
}

type StdoutLogger struct{}

func NewStdoutLogger() *StdoutLogger {
	return &StdoutLogger{}
}

func (l *StdoutLogger) Log(info *MetricsInfo) {
	infoStr, err := info.ToJSON()
	if err == nil {
		log.Print(strings.TrimSpace(infoStr))
	} else {
		log.Printf("StdoutLogger: error: %v", err)
	}
}

// NewLogger builds the logger selected by cfg; it returns nil when
// metrics are disabled.
func NewLogger(cfg *utils.MetricsConfig) (Logger, error) {
	if cfg == nil {
		return nil, nil
	}
	switch cfg.Logger {
	case "":
		return nil, nil
	case "stdout":
		return NewStdoutLogger(), nil
	case "file":
		if len(cfg.LogDir) == 0 {
			return nil, fmt.Errorf("file metrics logger needs a log_dir")
		}
		if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
			return nil, err
		}
		return NewFileLogger(cfg.LogDir, cfg.MaxLogFileSize, cfg.MaxLogFiles, cfg.Verbose), nil
	default:
		return nil, fmt.Errorf("unknown metrics logger %q", cfg.Logger)
	}
}

const defaultQueueSize = 200
const defaultMaxLogFileSize = 64 * 1024 * 1024
const defaultMaxLogFiles = 10

// FileLogger appends metrics as JSON lines to LogDir/fetch.log, rotating
// to fetch.log.N once the file reaches MaxLogFileSize. Once MaxLogFiles
// rotated files exist the oldest is overwritten.
type FileLogger struct {
	MetricsQueue   chan *MetricsInfo
	LogDir         string
	MaxLogFileSize int64
	MaxLogFiles    int
	Verbose        bool

	done sync.WaitGroup
}

func NewFileLogger(logDir string, maxLogFileSize int64, maxLogFiles int, verbose bool) *FileLogger {
	if maxLogFileSize <= 0 {
		maxLogFileSize = defaultMaxLogFileSize
	}
	if maxLogFiles <= 0 {
		maxLogFiles = defaultMaxLogFiles
	}
	logger := &FileLogger{
		MetricsQueue:   make(chan *MetricsInfo, defaultQueueSize),
		LogDir:         logDir,
		MaxLogFileSize: maxLogFileSize,
		MaxLogFiles:    maxLogFiles,
		Verbose:        verbose,
	}

	logger.done.Add(1)
	go logger.startLogWriter()

	return logger
}

func (l *FileLogger) Log(info *MetricsInfo) {
	l.MetricsQueue <- info
}

// Close flushes the queue and waits for the writer to finish. The
// logger must not be used afterwards.
func (l *FileLogger) Close() {
	close(l.MetricsQueue)
	l.done.Wait()
}

func (l *FileLogger) logFilePath() string {
	return path.Join(l.LogDir, "fetch.log")
}

func (l *FileLogger) startLogWriter() {
	defer l.done.Done()

	f, err := l.openLogFile()
	if err != nil {
		log.Printf("FileLogger: log open error: %v", err)
	}

	for info := range l.MetricsQueue {
		infoStr, err := info.ToJSON()
		if err != nil {
			log.Printf("FileLogger: info.ToJSON() error: %v", err)
			continue
		}

		f, err = l.tryRotateLogFile(f)
		if err != nil {
			continue
		}

		if _, err := f.WriteString(infoStr); err != nil {
			log.Printf("FileLogger: write error: %v", err)
			continue
		}
		f.Sync()
	}

	if f != nil {
		f.Close()
	}
}

func (l *FileLogger) openLogFile() (*os.File, error) {
	return os.OpenFile(l.logFilePath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

func (l *FileLogger) tryRotateLogFile(currFile *os.File) (*os.File, error) {
	if currFile == nil {
		return l.openLogFile()
	}

	info, err := currFile.Stat()
	if err != nil {
		log.Printf("FileLogger: log rotation error: %v", err)
		return currFile, nil
	}
	if info.Size() < l.MaxLogFileSize {
		return currFile, nil
	}

	rotatedLogFilePath, err := l.nextRotatedPath()
	if err != nil {
		log.Printf("FileLogger: log rotation error: %v", err)
		return currFile, nil
	}

	currFile.Close()
	if err := os.Rename(l.logFilePath(), rotatedLogFilePath); err != nil {
		log.Printf("FileLogger: log rotation error: %v", err)
	} else if l.Verbose {
		log.Printf("FileLogger: log file rotated: %v", rotatedLogFilePath)
	}

	f, err := l.openLogFile()
	if err != nil {
		log.Printf("FileLogger: log rotation error: %v", err)
	}
	return f, err
}

// nextRotatedPath returns the first free fetch.log.N, or the oldest
// rotated file once all MaxLogFiles slots are taken.
func (l *FileLogger) nextRotatedPath() (string, error) {
	for i := 0; i < l.MaxLogFiles; i++ {
		filePath := fmt.Sprintf("%s.%d", l.logFilePath(), i)
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			return filePath, nil
		}
	}

	files, err := ioutil.ReadDir(l.LogDir)
	if err != nil {
		return "", err
	}

	base := filepath.Base(l.logFilePath())
	var oldestFile os.FileInfo
	oldestTime := time.Now()
	for _, file := range files {
		if !file.Mode().IsRegular() || !strings.HasPrefix(file.Name(), base+".") {
			continue
		}
		if file.ModTime().Before(oldestTime) {
			oldestFile = file
			oldestTime = file.ModTime()
		}
	}

	rotatedLogFilePath := fmt.Sprintf("%s.%d", l.logFilePath(), 0)
	if oldestFile != nil {
		rotatedLogFilePath = path.Join(l.LogDir, oldestFile.Name())
	}
	if l.Verbose {
		log.Printf("FileLogger: maximum number of log files reached, overwriting %s", rotatedLogFilePath)
	}
	if err := os.Remove(rotatedLogFilePath); err != nil && !os.IsNotExist(err) {
		return "", err
	}
	return rotatedLogFilePath, nil
}
