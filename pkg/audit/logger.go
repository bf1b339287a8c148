package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/newtron-network/saimeta/pkg/util"
)

// Recorder stores events and answers queries over them.
type Recorder interface {
	Record(event *Event) error
	Query(filter Filter) ([]*Event, error)
	Close() error
}

// RotationConfig configures record file rotation.
type RotationConfig struct {
	MaxSize    int64 // bytes written before the file is rotated
	MaxBackups int   // rotated files kept; zero keeps all
}

// backupSuffix sorts lexically in rotation order.
const backupSuffix = "20060102-150405.000000000"

// FileRecorder appends events to a JSON-lines file. Rotated files are
// named <path>.<timestamp> and stay visible to Query.
type FileRecorder struct {
	mu       sync.RWMutex
	path     string
	file     *os.File
	enc      *json.Encoder
	rotation RotationConfig
}

// NewFileRecorder opens (or creates) the record file at path.
func NewFileRecorder(path string, rotation RotationConfig) (*FileRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating record directory: %w", err)
	}
	r := &FileRecorder{path: path, rotation: rotation}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileRecorder) open() error {
	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening record file: %w", err)
	}
	r.file = f
	r.enc = json.NewEncoder(f)
	return nil
}

// Record appends one event, rotating first when the file is full.
func (r *FileRecorder) Record(event *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return util.ErrClosed
	}
	if r.full() {
		if err := r.rotate(); err != nil {
			return fmt.Errorf("rotating record file: %w", err)
		}
	}
	return r.enc.Encode(event)
}

func (r *FileRecorder) full() bool {
	if r.rotation.MaxSize <= 0 {
		return false
	}
	info, err := r.file.Stat()
	return err == nil && info.Size() >= r.rotation.MaxSize
}

// Query returns matching events oldest first, reading rotated files
// before the live one.
func (r *FileRecorder) Query(filter Filter) ([]*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	files := append(r.backups(), r.path)
	var events []*Event
	for _, path := range files {
		var err error
		events, err = scanFile(path, filter, events)
		if err != nil {
			return nil, err
		}
	}
	return filter.page(events), nil
}

// scanFile appends the events of path that match filter. A file that
// disappeared through rotation is skipped.
func scanFile(path string, filter Filter, events []*Event) ([]*Event, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return events, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for line := 1; sc.Scan(); line++ {
		var ev Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			util.WithField("file", filepath.Base(path)).Warnf("record: skipping malformed entry at line %d: %v", line, err)
			continue
		}
		if filter.Matches(&ev) {
			events = append(events, &ev)
		}
	}
	return events, sc.Err()
}

// Close closes the live file. Later calls to Record fail with ErrClosed.
func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func (r *FileRecorder) rotate() error {
	if err := r.file.Close(); err != nil {
		return err
	}
	if err := os.Rename(r.path, r.path+"."+time.Now().Format(backupSuffix)); err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}
	if r.rotation.MaxBackups > 0 {
		r.prune()
	}
	return nil
}

// backups lists the rotated files, oldest first.
func (r *FileRecorder) backups() []string {
	matches, err := filepath.Glob(r.path + ".*")
	if err != nil {
		return nil
	}
	sort.Strings(matches)
	return matches
}

func (r *FileRecorder) prune() {
	old := r.backups()
	for len(old) > r.rotation.MaxBackups {
		if err := os.Remove(old[0]); err != nil {
			util.Warnf("record: removing %s: %v", old[0], err)
		}
		old = old[1:]
	}
}

// holder keeps atomic.Value on one concrete type.
type holder struct{ r Recorder }

var defaultRecorder atomic.Value

// SetDefault sets the process-wide recorder. Nil disables recording.
func SetDefault(r Recorder) {
	defaultRecorder.Store(holder{r: r})
}

func getDefault() Recorder {
	v := defaultRecorder.Load()
	if v == nil {
		return nil
	}
	return v.(holder).r
}

// Record records an event with the default recorder.
func Record(event *Event) error {
	if r := getDefault(); r != nil {
		return r.Record(event)
	}
	return nil
}

// Query queries the default recorder.
func Query(filter Filter) ([]*Event, error) {
	if r := getDefault(); r != nil {
		return r.Query(filter)
	}
	return []*Event{}, nil
}
