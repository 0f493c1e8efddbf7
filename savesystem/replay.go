package savesystem

import (
	"bytes"
	"crypto/sha256"
	"io"
)

const replayMaxEvents = 4096

type replayState struct {
	events   []replayEvent
	lastHash [32]byte
}

type replayEvent struct {
	Frame      uint32
	ActionCode uint32
	Value      int32
}

// ReplayReset clears the recorded event log.
func (m *Manager) ReplayReset() {
	m.replay.events = nil
	m.replay.lastHash = [32]byte{}
}

// ReplayRecordInput appends one input event to the replay log. Returns
// false when the log is full.
func (m *Manager) ReplayRecordInput(frame, actionCode uint32, value int32) bool {
	if len(m.replay.events) >= replayMaxEvents {
		return false
	}
	m.replay.events = append(m.replay.events, replayEvent{Frame: frame, ActionCode: actionCode, Value: value})
	return true
}

// ReplayEventCount returns the recorded event count.
func (m *Manager) ReplayEventCount() int { return len(m.replay.events) }

// LastReplayHash returns the digest from the last replay write or load.
func (m *Manager) LastReplayHash() [32]byte { return m.replay.lastHash }

func (rs *replayState) packEvents() []byte {
	var buf bytes.Buffer
	for _, e := range rs.events {
		_ = writeU32(&buf, e.Frame)
		_ = writeU32(&buf, e.ActionCode)
		_ = writeI32(&buf, e.Value)
	}
	return buf.Bytes()
}

func (rs *replayState) computeHash() [32]byte {
	return sha256.Sum256(rs.packEvents())
}

// writeReplayComponent emits u32 count + packed events + SHA-256 digest.
func (m *Manager) writeReplayComponent(w io.Writer) error {
	if err := writeU32(w, uint32(len(m.replay.events))); err != nil {
		return err
	}
	packed := m.replay.packEvents()
	if _, err := w.Write(packed); err != nil {
		return err
	}
	digest := m.replay.computeHash()
	m.replay.lastHash = digest
	_, err := w.Write(digest[:])
	return err
}

// readReplayComponent restores the event log and fails the load when the
// recomputed digest differs from the stored one.
func (m *Manager) readReplayComponent(r io.Reader, size int) error {
	count, err := readU32(r)
	if err != nil {
		return err
	}
	if count > replayMaxEvents {
		count = replayMaxEvents
	}
	events := make([]replayEvent, 0, count)
	for i := uint32(0); i < count; i++ {
		var e replayEvent
		if e.Frame, err = readU32(r); err != nil {
			return err
		}
		if e.ActionCode, err = readU32(r); err != nil {
			return err
		}
		if e.Value, err = readI32(r); err != nil {
			return err
		}
		events = append(events, e)
	}
	var stored [32]byte
	if _, err := io.ReadFull(r, stored[:]); err != nil {
		return err
	}
	m.replay.events = events
	recomputed := m.replay.computeHash()
	if recomputed != stored {
		return ErrSHA256
	}
	m.replay.lastHash = stored
	return nil
}
