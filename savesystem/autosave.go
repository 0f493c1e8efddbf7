package savesystem

import (
	"io"
	"os"
	"sort"
	"strings"

	"rogue_core/gamelog"
)

// SetAutosaveInterval configures the autosave cadence; <=0 disables.
func (m *Manager) SetAutosaveInterval(ms int) {
	if ms < 0 {
		ms = 0
	}
	m.autosaveIntervalMs = ms
}

// SetAutosaveThrottle enforces a minimum gap after any save before an
// autosave may fire.
func (m *Manager) SetAutosaveThrottle(ms int) {
	if ms < 0 {
		ms = 0
	}
	m.autosaveThrottleMs = ms
}

// AutosaveCount returns the number of successful autosaves.
func (m *Manager) AutosaveCount() uint32 { return m.autosaveCount }

// Update drives the autosave scheduler. An autosave fires when the
// interval has elapsed, the player is out of combat, and the throttle gap
// since any save is satisfied. Ring files rotate by autosave count.
func (m *Manager) Update(nowMs uint32, inCombat bool) {
	if m.autosaveIntervalMs <= 0 || inCombat {
		return
	}
	if nowMs-m.lastAutosaveTime < uint32(m.autosaveIntervalMs) {
		return
	}
	if m.autosaveThrottleMs > 0 && m.lastAnySaveTime != 0 &&
		nowMs-m.lastAnySaveTime < uint32(m.autosaveThrottleMs) {
		return
	}
	if err := m.Autosave(int(m.autosaveCount)); err != nil {
		gamelog.Warn("autosave failed", "err", err)
		return
	}
	m.autosaveCount++
	m.lastAutosaveTime = nowMs
	m.lastAnySaveTime = nowMs
}

// BackupRotate copies the slot file to a timestamped .bak and prunes the
// oldest backups beyond maxBackups.
func (m *Manager) BackupRotate(slot, maxBackups int) error {
	src := m.slotPath(slot)
	in, err := os.Open(src)
	if err != nil {
		return ErrOpen
	}
	defer in.Close()
	desc, err := m.ReadDescriptor(slot)
	if err != nil {
		return err
	}
	dst := m.backupPath(slot, desc.TimestampUnix)
	out, err := os.Create(dst)
	if err != nil {
		return ErrOpen
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return ErrPayload
	}
	if err := out.Close(); err != nil {
		return ErrPayload
	}
	if maxBackups > 0 {
		m.pruneBackups(slot, maxBackups)
	}
	return nil
}

func (m *Manager) pruneBackups(slot, maxBackups int) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return
	}
	prefix := strings.TrimSuffix(m.backupPath(slot, 0), "0.bak")
	var names []string
	for _, e := range entries {
		full := m.dir + string(os.PathSeparator) + e.Name()
		if strings.HasPrefix(full, prefix) && strings.HasSuffix(e.Name(), ".bak") {
			names = append(names, full)
		}
	}
	if len(names) <= maxBackups {
		return
	}
	sort.Strings(names)
	for _, n := range names[:len(names)-maxBackups] {
		os.Remove(n)
	}
}

// DeleteSlot removes a slot file.
func (m *Manager) DeleteSlot(slot int) error {
	path := m.slotPath(slot)
	if err := os.Remove(path); err != nil {
		return ErrOpen
	}
	return nil
}
