package replay

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"autoresolve/internal/report"
)

// RecordedEvent is one report event read back from a bundle.
type RecordedEvent struct {
	Seq        uint64
	CapturedAt time.Time
	Event      report.Event
}

// Frame is one snapshot read back from a bundle.
type Frame struct {
	Seq        uint64
	CapturedAt time.Time
	Snapshot   Snapshot
}

// Bundle is a fully loaded replay directory.
type Bundle struct {
	Dir      string
	Manifest Manifest
	Header   Header
	events   []RecordedEvent
	frames   []Frame
}

// Open loads every artefact in a bundle directory.
func Open(dir string) (*Bundle, error) {
	if dir == "" {
		return nil, fmt.Errorf("replay path must be provided")
	}
	bundle := &Bundle{Dir: dir}

	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &bundle.Manifest); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if bundle.Header, err = ReadHeader(filepath.Join(dir, HeaderFile)); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if bundle.events, err = readEvents(filepath.Join(dir, bundle.Manifest.EventsPath)); err != nil {
		return nil, err
	}
	if bundle.frames, err = readFrames(filepath.Join(dir, bundle.Manifest.FramesPath)); err != nil {
		return nil, err
	}

	//1.- Counts in the header guard against truncated streams.
	if len(bundle.events) != bundle.Header.Events {
		return nil, fmt.Errorf("event log holds %d events, header expects %d", len(bundle.events), bundle.Header.Events)
	}
	if len(bundle.frames) != bundle.Header.Frames {
		return nil, fmt.Errorf("frame stream holds %d frames, header expects %d", len(bundle.frames), bundle.Header.Frames)
	}
	return bundle, nil
}

func readEvents(path string) ([]RecordedEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var events []RecordedEvent
	scanner := bufio.NewScanner(snappy.NewReader(file))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var record eventRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			return nil, fmt.Errorf("decode event %d: %w", len(events), err)
		}
		captured, err := time.Parse(time.RFC3339Nano, record.CapturedAt)
		if err != nil {
			return nil, fmt.Errorf("parse event captured_at: %w", err)
		}
		events = append(events, RecordedEvent{Seq: record.Seq, CapturedAt: captured, Event: record.Event})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return events, nil
}

func readFrames(path string) ([]Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder, err := zstd.NewReader(file)
	if err != nil {
		return nil, err
	}
	defer decoder.Close()

	var frames []Frame
	header := make([]byte, frameHeaderSize)
	for {
		if _, err := io.ReadFull(decoder, header); err != nil {
			if errors.Is(err, io.EOF) {
				return frames, nil
			}
			return nil, fmt.Errorf("read frame header: %w", err)
		}
		payload := make([]byte, binary.LittleEndian.Uint32(header[16:20]))
		if _, err := io.ReadFull(decoder, payload); err != nil {
			return nil, fmt.Errorf("read frame payload: %w", err)
		}
		var msg structpb.Struct
		if err := proto.Unmarshal(payload, &msg); err != nil {
			return nil, fmt.Errorf("decode frame %d: %w", len(frames), err)
		}
		snap, err := SnapshotFromProto(&msg)
		if err != nil {
			return nil, err
		}
		frames = append(frames, Frame{
			Seq:        binary.LittleEndian.Uint64(header[0:8]),
			CapturedAt: time.Unix(0, int64(binary.LittleEndian.Uint64(header[8:16]))).UTC(),
			Snapshot:   snap,
		})
	}
}

// Events returns a copy of the recorded events in emission order.
func (b *Bundle) Events() []RecordedEvent {
	if b == nil {
		return nil
	}
	out := make([]RecordedEvent, len(b.events))
	copy(out, b.events)
	return out
}

// ReportEvents strips recording metadata so the log can be rendered or compared.
func (b *Bundle) ReportEvents() []report.Event {
	if b == nil {
		return nil
	}
	out := make([]report.Event, 0, len(b.events))
	for _, recorded := range b.events {
		out = append(out, recorded.Event)
	}
	return out
}

// Frames returns a copy of the snapshot frames in order.
func (b *Bundle) Frames() []Frame {
	if b == nil {
		return nil
	}
	out := make([]Frame, len(b.frames))
	copy(out, b.frames)
	return out
}

// Replay feeds every event to apply in order, stopping at the first error.
func (b *Bundle) Replay(apply func(RecordedEvent) error) error {
	if b == nil {
		return fmt.Errorf("bundle not loaded")
	}
	if apply == nil {
		return fmt.Errorf("replay callback must be provided")
	}
	for _, recorded := range b.events {
		if err := apply(recorded); err != nil {
			return err
		}
	}
	return nil
}
