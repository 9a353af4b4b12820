package replay

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"google.golang.org/protobuf/proto"

	"autoresolve/internal/formation"
	"autoresolve/internal/report"
)

var battleIDCleaner = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

const (
	// EventsFile is the snappy-compressed JSONL report log.
	EventsFile = "events.jsonl.sz"
	// FramesFile holds zstd-compressed, length-prefixed snapshot frames.
	FramesFile = "frames.bin.zst"
	// ManifestFile and HeaderFile describe the bundle.
	ManifestFile = "manifest.json"
	HeaderFile   = "header.json"

	frameHeaderSize = 8 + 8 + 4
)

// Manifest describes the replay bundle layout so tooling can locate artefacts.
type Manifest struct {
	Version    int    `json:"version"`
	CreatedAt  string `json:"created_at"`
	EventsPath string `json:"events_path"`
	FramesPath string `json:"frames_path"`
}

// eventRecord is one line of the event log.
type eventRecord struct {
	Seq        uint64       `json:"seq"`
	CapturedAt string       `json:"captured_at"`
	Event      report.Event `json:"event"`
}

// Writer records a battle into a bundle directory. It is a report.Sink, so it can sit
// next to any other sink; write failures are kept and surfaced by Err and Close.
type Writer struct {
	mu          sync.Mutex
	dir         string
	now         func() time.Time
	eventFile   *os.File
	eventStream *snappy.Writer
	frameFile   *os.File
	frameStream *zstd.Encoder
	header      Header
	events      uint64
	frames      uint64
	err         error
	closed      bool
}

// NewWriter prepares the bundle directory and opens compressed sinks.
func NewWriter(root, battleID string, clock func() time.Time) (*Writer, Manifest, error) {
	if root == "" {
		return nil, Manifest{}, fmt.Errorf("replay root must be provided")
	}
	if clock == nil {
		clock = time.Now
	}

	cleaned := battleIDCleaner.ReplaceAllString(battleID, "")
	if cleaned == "" {
		cleaned = "battle"
	}
	created := clock().UTC()
	path, err := claimBundleDir(root, fmt.Sprintf("%s-%s", cleaned, created.Format("20060102T150405Z")))
	if err != nil {
		return nil, Manifest{}, err
	}

	eventFile, err := os.Create(filepath.Join(path, EventsFile))
	if err != nil {
		return nil, Manifest{}, err
	}
	frameFile, err := os.Create(filepath.Join(path, FramesFile))
	if err != nil {
		eventFile.Close()
		return nil, Manifest{}, err
	}
	frameStream, err := zstd.NewWriter(frameFile)
	if err != nil {
		eventFile.Close()
		frameFile.Close()
		return nil, Manifest{}, err
	}

	manifest := Manifest{
		Version:    1,
		CreatedAt:  created.Format(time.RFC3339Nano),
		EventsPath: EventsFile,
		FramesPath: FramesFile,
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err == nil {
		err = os.WriteFile(filepath.Join(path, ManifestFile), data, 0o644)
	}
	if err != nil {
		frameStream.Close()
		frameFile.Close()
		eventFile.Close()
		return nil, Manifest{}, err
	}

	return &Writer{
		dir:         path,
		now:         clock,
		eventFile:   eventFile,
		eventStream: snappy.NewBufferedWriter(eventFile),
		frameFile:   frameFile,
		frameStream: frameStream,
		header: Header{
			SchemaVersion: HeaderSchemaVersion,
			BattleID:      battleID,
			FilePointer:   ManifestFile,
		},
	}, manifest, nil
}

// claimBundleDir creates a fresh directory beneath root. Distinct battle ids can clean to
// the same name within one second, so taken names get a numeric suffix.
func claimBundleDir(root, name string) (string, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", err
	}
	for n := 1; ; n++ {
		candidate := name
		if n > 1 {
			candidate = fmt.Sprintf("%s-%d", name, n)
		}
		path := filepath.Join(root, candidate)
		err := os.Mkdir(path, 0o755)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
	}
}

// Directory exposes the directory backing the replay bundle.
func (w *Writer) Directory() string {
	if w == nil {
		return ""
	}
	return w.dir
}

// SetHeaderMetadata records what is needed to re-run the battle.
func (w *Writer) SetHeaderMetadata(scenario string, seed int64, rules RuleSet) {
	if w == nil {
		return
	}
	w.mu.Lock()
	w.header.Scenario = scenario
	w.header.Seed = seed
	w.header.Rules = rules.Clone()
	w.mu.Unlock()
}

// Report appends one event line. After the first failure later events are dropped.
func (w *Writer) Report(ev report.Event) {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil || w.closed {
		return
	}
	line, err := json.Marshal(eventRecord{
		Seq:        w.events,
		CapturedAt: w.now().UTC().Format(time.RFC3339Nano),
		Event:      ev.Clone(),
	})
	if err == nil {
		_, err = w.eventStream.Write(append(line, '\n'))
	}
	if err != nil {
		w.err = err
		return
	}
	w.events++
}

// AppendSnapshot writes the formations' combat state as one protobuf frame.
func (w *Writer) AppendSnapshot(label string, formations []*formation.Formation) error {
	if w == nil {
		return fmt.Errorf("writer not initialised")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("writer closed")
	}

	//1.- Encode the state through structpb so any protobuf consumer can read frames.
	msg, err := TakeSnapshot(w.frames, label, formations).ToProto()
	if err != nil {
		return err
	}
	payload, err := proto.Marshal(msg)
	if err != nil {
		return err
	}

	//2.- Length-prefix the payload so readers can step frame by frame.
	header := make([]byte, frameHeaderSize)
	binary.LittleEndian.PutUint64(header[0:8], w.frames)
	binary.LittleEndian.PutUint64(header[8:16], uint64(w.now().UTC().UnixNano()))
	binary.LittleEndian.PutUint32(header[16:20], uint32(len(payload)))
	if _, err := w.frameStream.Write(header); err != nil {
		return err
	}
	if _, err := w.frameStream.Write(payload); err != nil {
		return err
	}
	w.frames++
	return nil
}

// Err returns the first event write failure, if any.
func (w *Writer) Err() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Close writes the header, flushes both streams and releases file handles. It returns
// the first failure seen during the writer's lifetime.
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return w.err
	}
	w.closed = true

	firstErr := w.err
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	header := w.header
	header.Events = int(w.events)
	header.Frames = int(w.frames)
	keep(WriteHeader(filepath.Join(w.dir, HeaderFile), header))
	keep(w.eventStream.Close())
	keep(w.eventFile.Close())
	keep(w.frameStream.Close())
	keep(w.frameFile.Close())
	w.err = firstErr
	return firstErr
}
