package eventstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eventstore/eventcore/internal/domain"
	apperrors "github.com/eventstore/eventcore/internal/pkg/errors"
	"github.com/eventstore/eventcore/internal/pkg/logger"
)

// FileStore persists events under the hierarchical layout:
//
//	<root>/<tenant>/<namespace>/<topic>/<g1>/<g2>/<g3>/<eventIdValue>.json
//
// where, for sequence s: g1 = floor(s/1_000_000) zero-padded to 3 digits,
// g2 = floor(s/10_000) % 100 zero-padded to 2 digits, g3 = floor(s/100) % 100
// zero-padded to 2 digits. This keeps any one directory's fan-out bounded
// (100 entries at g2/g3, 100 files at the leaf) regardless of topic volume.
//
// Grounded on the write-temp-then-rename atomicity pattern already used by
// topic.FileConfigStore.Save, and on the teacher's skip-and-log tolerance
// for unreadable persisted state rather than failing an entire read.
type FileStore struct {
	root string
	loc  *time.Location
	mu   sync.Mutex // serializes writes; reads are lock-free (files are immutable once written)
}

// NewFileStore constructs a store rooted at dir, creating it if necessary.
func NewFileStore(dir string, loc *time.Location) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	return &FileStore{root: dir, loc: loc}, nil
}

func groupComponents(sequence int64) (g1, g2, g3 string) {
	g1 = fmt.Sprintf("%03d", sequence/1_000_000)
	g2 = fmt.Sprintf("%02d", (sequence/10_000)%100)
	g3 = fmt.Sprintf("%02d", (sequence/100)%100)
	return
}

func (f *FileStore) topicDir(topic string, scope domain.Scope) string {
	if scope.IsDefault() {
		return filepath.Join(f.root, topic)
	}
	return filepath.Join(f.root, scope.TenantName, scope.NamespaceName, topic)
}

// eventFileName is the leaf file name within the topic's directory. Unlike
// EventID.String(), it never includes the tenant/namespace segments: those
// are already encoded in the directory path built by topicDir, and a
// filename can't contain the "/" the scoped id text form uses.
func eventFileName(topic string, sequence int64) string {
	return fmt.Sprintf("%s-%d.json", topic, sequence)
}

func (f *FileStore) eventPath(topic string, scope domain.Scope, eventID domain.EventID) string {
	g1, g2, g3 := groupComponents(eventID.Sequence)
	return filepath.Join(f.topicDir(topic, scope), g1, g2, g3, eventFileName(topic, eventID.Sequence))
}

// fileEvent is the on-disk wire shape for a single event.
type fileEvent struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Sequence  int64           `json:"sequence"`
}

func (f *FileStore) writeEventFile(path string, evt domain.Event) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(fileEvent{
		ID:        evt.ID.String(),
		Timestamp: evt.Timestamp.UTC(),
		Type:      evt.Type,
		Payload:   evt.Payload,
		Sequence:  evt.ID.Sequence,
	})
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// StoreEvent implements Store.
func (f *FileStore) StoreEvent(topic, eventType string, payload json.RawMessage, eventID domain.EventID, timestamp time.Time, scope domain.Scope) (domain.Event, error) {
	evt := domain.Event{ID: eventID, Timestamp: timestamp, Type: eventType, Payload: payload}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.writeEventFile(f.eventPath(topic, scope, eventID), evt); err != nil {
		return domain.Event{}, err
	}
	return evt, nil
}

// StoreEvents implements Store. On any failure partway through the batch,
// files already written in this call are removed before the error is
// returned, so a batch never leaves a partially-visible gap.
func (f *FileStore) StoreEvents(pending []PendingEvent, scope domain.Scope) ([]domain.Event, error) {
	if len(pending) == 0 {
		return nil, apperrors.InvalidArgument("EMPTY_BATCH", "events must not be empty")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	written := make([]string, 0, len(pending))
	out := make([]domain.Event, 0, len(pending))

	for _, p := range pending {
		evt := domain.Event{ID: p.EventID, Timestamp: p.Timestamp, Type: p.Type, Payload: p.Payload}
		path := f.eventPath(p.Topic, scope, p.EventID)
		if err := f.writeEventFile(path, evt); err != nil {
			for _, wp := range written {
				_ = os.Remove(wp)
			}
			return nil, err
		}
		written = append(written, path)
		out = append(out, evt)
	}
	return out, nil
}

// GetEvent implements Store.
func (f *FileStore) GetEvent(topic string, eventID domain.EventID, scope domain.Scope) (domain.Event, bool, error) {
	path := f.eventPath(topic, scope, eventID)
	evt, ok, err := f.readEventFile(path, topic, scope)
	if err != nil || !ok {
		return domain.Event{}, false, err
	}
	return evt, true, nil
}

// readEventFile decodes a single event file, tolerating absence and
// malformed content: both return (zero, false, nil) after logging, per
// the skip-and-log resilience policy for corrupted persisted state. topic
// and scope come from the directory the file lives under, since the text
// form of the event id alone doesn't carry tenant/namespace.
func (f *FileStore) readEventFile(path, topic string, scope domain.Scope) (domain.Event, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return domain.Event{}, false, nil
	}
	if err != nil {
		return domain.Event{}, false, err
	}

	var fe fileEvent
	if err := json.Unmarshal(data, &fe); err != nil {
		logger.Warn("skipping malformed event file", zap.String("path", path), zap.Error(err))
		return domain.Event{}, false, nil
	}
	return domain.Event{
		ID:        domain.NewEventID(topic, fe.Sequence, scope),
		IDText:    fe.ID,
		Timestamp: fe.Timestamp,
		Type:      fe.Type,
		Payload:   fe.Payload,
	}, true, nil
}

// GetEvents implements Store. When filter.SinceEventID is set, whole
// g1/g2/g3 subtrees that can only contain sequences <= since are skipped
// without being opened, bounding directory-walk cost for consumers doing
// incremental catch-up against large topics.
func (f *FileStore) GetEvents(topic string, filter Filter, scope domain.Scope) ([]domain.Event, error) {
	root := f.topicDir(topic, scope)
	since := filter.sinceSequence()
	collector := topN(filter.Limit)

	g1Dirs, err := readSortedDirs(root)
	if err != nil {
		if os.IsNotExist(err) {
			return collector.result(), nil
		}
		return nil, err
	}

	for _, g1 := range g1Dirs {
		g1Val, ok := parseGroup(g1)
		if !ok {
			continue
		}
		// g1 spans sequences [g1Val*1_000_000, (g1Val+1)*1_000_000).
		if (g1Val+1)*1_000_000 <= since {
			continue
		}
		g2Dirs, err := readSortedDirs(filepath.Join(root, g1))
		if err != nil {
			return nil, err
		}
		for _, g2 := range g2Dirs {
			g2Val, g2ok := parseGroup(g2)
			// g2 spans 10_000 sequences starting at g1Val*1_000_000 + g2Val*10_000.
			if g2ok && g1Val*1_000_000+(g2Val+1)*10_000 <= since {
				continue
			}
			g3Dirs, err := readSortedDirs(filepath.Join(root, g1, g2))
			if err != nil {
				return nil, err
			}
			for _, g3 := range g3Dirs {
				g3Val, g3ok := parseGroup(g3)
				// g3 spans 100 sequences starting at g1Val*1_000_000 + g2Val*10_000 + g3Val*100.
				if g2ok && g3ok && g1Val*1_000_000+g2Val*10_000+(g3Val+1)*100 <= since {
					continue
				}
				leafDir := filepath.Join(root, g1, g2, g3)
				entries, err := os.ReadDir(leafDir)
				if err != nil {
					return nil, err
				}
				for _, ent := range entries {
					if ent.IsDir() || filepath.Ext(ent.Name()) != ".json" {
						continue
					}
					evt, ok, err := f.readEventFile(filepath.Join(leafDir, ent.Name()), topic, scope)
					if err != nil {
						return nil, err
					}
					if !ok {
						continue // malformed or vanished; already logged
					}
					if evt.ID.Sequence <= since {
						continue
					}
					if !filter.matchesDate(evt.Timestamp, f.loc) {
						continue
					}
					collector.offer(evt)
				}
			}
		}
	}
	return collector.result(), nil
}

// GetLatestEventID implements Store by scanning the highest-numbered
// group directories down to the highest-sequence leaf file.
func (f *FileStore) GetLatestEventID(topic string, scope domain.Scope) (domain.EventID, bool, error) {
	root := f.topicDir(topic, scope)

	g1Dirs, err := readSortedDirs(root)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.EventID{}, false, nil
		}
		return domain.EventID{}, false, err
	}
	if len(g1Dirs) == 0 {
		return domain.EventID{}, false, nil
	}
	g1 := g1Dirs[len(g1Dirs)-1]

	g2Dirs, err := readSortedDirs(filepath.Join(root, g1))
	if err != nil || len(g2Dirs) == 0 {
		return domain.EventID{}, false, err
	}
	g2 := g2Dirs[len(g2Dirs)-1]

	g3Dirs, err := readSortedDirs(filepath.Join(root, g1, g2))
	if err != nil || len(g3Dirs) == 0 {
		return domain.EventID{}, false, err
	}
	g3 := g3Dirs[len(g3Dirs)-1]

	leafDir := filepath.Join(root, g1, g2, g3)
	entries, err := os.ReadDir(leafDir)
	if err != nil {
		return domain.EventID{}, false, err
	}

	var best *domain.Event
	for _, ent := range entries {
		if ent.IsDir() || filepath.Ext(ent.Name()) != ".json" {
			continue
		}
		evt, ok, err := f.readEventFile(filepath.Join(leafDir, ent.Name()), topic, scope)
		if err != nil {
			return domain.EventID{}, false, err
		}
		if !ok {
			continue
		}
		if best == nil || evt.ID.Sequence > best.ID.Sequence {
			e := evt
			best = &e
		}
	}
	if best == nil {
		return domain.EventID{}, false, nil
	}
	return best.ID, true, nil
}

var _ Store = (*FileStore)(nil)

func readSortedDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

func parseGroup(name string) (int64, bool) {
	n, err := strconv.ParseInt(name, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
