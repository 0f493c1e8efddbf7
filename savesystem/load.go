package savesystem

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"hash/crc32"
	"os"
	"time"

	"rogue_core/config"
	"rogue_core/gamelog"
)

// parsedFile is the outcome of loadAndValidate: the descriptor plus the
// raw section region with integrity already verified.
type parsedFile struct {
	desc     Descriptor
	sections []byte
}

// section is one framed region inside the payload.
type section struct {
	id         int
	compressed bool
	stored     []byte
	crc        uint32
	hasCRC     bool
}

// loadAndValidate reads a save file and verifies descriptor CRC, the SHA
// footer, and (when present and a provider is installed) the signature.
// Tamper flags accumulate on m for the attempt.
func (m *Manager) loadAndValidate(path string) (*parsedFile, error) {
	m.lastTamperFlags = 0
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrOpen
	}
	desc, ok := unmarshalDescriptor(raw)
	if !ok {
		return nil, ErrReadHeader
	}
	if uint64(len(raw)) != desc.TotalSize {
		return nil, ErrInvalidSize
	}
	rest := raw[descriptorSize:]

	_, footerAt, err := walkSections(rest, desc)
	if err != nil {
		return nil, err
	}
	crcRegion := rest[:footerAt]
	if crc32.ChecksumIEEE(crcRegion) != desc.Checksum {
		m.lastTamperFlags |= TamperDescriptorCRC
		return nil, ErrDescriptorCRC
	}
	if desc.Version >= versionIntegrity {
		footer := rest[footerAt:]
		if len(footer) < 4+32 || string(footer[:4]) != "SH32" {
			m.lastTamperFlags |= TamperSHA256
			return nil, ErrSHA256
		}
		digest := sha256.Sum256(crcRegion)
		if !bytes.Equal(digest[:], footer[4:36]) {
			m.lastTamperFlags |= TamperSHA256
			return nil, ErrSHA256
		}
		copy(m.lastSHA256[:], footer[4:36])
		if desc.Version >= versionSignature && len(footer) > 36 {
			sigBlock := footer[36:]
			if len(sigBlock) >= 6 {
				sigLen := int(binary.LittleEndian.Uint16(sigBlock[:2]))
				if string(sigBlock[2:6]) == "SGN0" && len(sigBlock) >= 6+sigLen {
					if m.sigProvider != nil {
						signed := rest[:footerAt+4+32]
						if m.sigProvider.Verify(signed, sigBlock[6:6+sigLen]) != nil {
							m.lastTamperFlags |= TamperSignature
							return nil, ErrSignature
						}
					}
				}
			}
		}
	}
	return &parsedFile{desc: desc, sections: crcRegion}, nil
}

// walkSections frames the section list and returns where the footer
// begins. Versions before section headers store a single opaque region.
func walkSections(rest []byte, desc Descriptor) ([]section, int, error) {
	if desc.Version < versionSectionHeaders {
		return nil, len(rest), nil
	}
	var out []section
	pos := 0
	for s := uint32(0); s < desc.SectionCount; s++ {
		if pos+6 > len(rest) {
			return nil, 0, ErrSectionRead
		}
		id := int(binary.LittleEndian.Uint16(rest[pos:]))
		sizeField := binary.LittleEndian.Uint32(rest[pos+2:])
		pos += 6
		compressed := desc.Version >= versionCompression && sizeField&compressedFlag != 0
		stored := int(sizeField &^ compressedFlag)
		if pos+stored > len(rest) {
			return nil, 0, ErrSectionRead
		}
		sec := section{id: id, compressed: compressed, stored: rest[pos : pos+stored]}
		pos += stored
		if desc.Version >= versionIntegrity {
			if pos+4 > len(rest) {
				return nil, 0, ErrSectionRead
			}
			sec.crc = binary.LittleEndian.Uint32(rest[pos:])
			sec.hasCRC = true
			pos += 4
		}
		out = append(out, sec)
	}
	return out, pos, nil
}

// runMigrations advances the payload through the chain from the file's
// version to current, recording metrics. A missing step fails closed; a
// failing step restores the rollback copy.
func (m *Manager) runMigrations(payload []byte, fromVersion uint32) error {
	m.lastMigrationSteps = 0
	m.lastMigrationFailed = false
	m.lastMigrationMs = 0
	if fromVersion == CurrentVersion {
		return nil
	}
	rollback := make([]byte, len(payload))
	copy(rollback, payload)
	t0 := time.Now()
	cur := fromVersion
	for cur < CurrentVersion {
		advanced := false
		for i := range m.migrations {
			mig := &m.migrations[i]
			if mig.FromVersion != cur || mig.ToVersion != cur+1 {
				continue
			}
			if err := mig.Apply(payload); err != nil {
				copy(payload, rollback)
				m.lastMigrationFailed = true
				m.lastMigrationMs = float64(time.Since(t0).Microseconds()) / 1000.0
				gamelog.Warn("migration step failed", "step", mig.Name, "from", cur)
				return ErrMigrationFail
			}
			m.lastMigrationSteps++
			cur++
			advanced = true
			break
		}
		if !advanced {
			copy(payload, rollback)
			m.lastMigrationFailed = true
			m.lastMigrationMs = float64(time.Since(t0).Microseconds()) / 1000.0
			return ErrMigrationChain
		}
	}
	m.lastMigrationMs = float64(time.Since(t0).Microseconds()) / 1000.0
	return nil
}

// dispatchSections decompresses flagged payloads, verifies per-section
// CRCs, and feeds each section to its component reader through an
// in-memory reader.
func (m *Manager) dispatchSections(pf *parsedFile) error {
	m.activeReadVersion = pf.desc.Version
	sections, _, err := walkSections(pf.sections, pf.desc)
	if err != nil {
		return err
	}
	for i := range sections {
		sec := &sections[i]
		if sec.hasCRC {
			if crc32.ChecksumIEEE(sec.stored) != sec.crc {
				m.lastTamperFlags |= TamperSectionCRC
				return ErrSectionCRC
			}
		}
		payload := sec.stored
		if sec.compressed {
			if len(payload) < 4 {
				return ErrSectionRead
			}
			uncompressedSize := int(binary.LittleEndian.Uint32(payload[:4]))
			payload, err = m.codec.Decode(payload[4:], uncompressedSize)
			if err != nil {
				return ErrSectionRead
			}
		}
		comp := m.findComponent(sec.id)
		if comp == nil || comp.Read == nil {
			gamelog.Debug("skipping unknown save section", "id", sec.id)
			continue
		}
		if err := comp.Read(bytes.NewReader(payload), len(payload)); err != nil {
			return ErrComponentRead
		}
	}
	return nil
}

// LoadSlot loads and applies a numbered slot file: integrity validation,
// migration chain when the version is older, then section dispatch.
func (m *Manager) LoadSlot(slot int) error {
	if slot < 0 || slot >= config.SaveSlotCount {
		return ErrBadSlot
	}
	return m.loadPath(m.slotPath(slot))
}

func (m *Manager) loadPath(path string) error {
	pf, err := m.loadAndValidate(path)
	if err != nil {
		return err
	}
	if pf.desc.Version > CurrentVersion || pf.desc.Version == 0 {
		return ErrVersionNewer
	}
	if pf.desc.Version < CurrentVersion {
		if err := m.runMigrations(pf.sections, pf.desc.Version); err != nil {
			return err
		}
	}
	return m.dispatchSections(pf)
}

// LoadSlotWithRecovery loads a slot; on integrity failures it scans the
// autosave ring for the newest same-version file and loads that instead,
// preserving and ORing the original tamper flags.
func (m *Manager) LoadSlotWithRecovery(slot int) error {
	m.lastRecoveryUsed = false
	rc := m.LoadSlot(slot)
	if rc == nil {
		return nil
	}
	switch Code(rc) {
	case CodeDescriptorCRC, CodeSHA256, CodeSectionCRC, CodeSectionRead:
	default:
		return rc
	}
	prevFlags := m.lastTamperFlags
	bestIndex := -1
	var bestTS uint32
	for i := 0; i < config.AutosaveRing; i++ {
		raw, err := os.ReadFile(m.autosavePath(i))
		if err != nil {
			continue
		}
		desc, ok := unmarshalDescriptor(raw)
		if !ok || desc.Version != CurrentVersion {
			continue
		}
		if desc.TimestampUnix >= bestTS {
			bestTS = desc.TimestampUnix
			bestIndex = i
		}
	}
	if bestIndex < 0 {
		m.lastTamperFlags |= prevFlags
		return rc
	}
	if err := m.loadPath(m.autosavePath(bestIndex)); err != nil {
		m.lastTamperFlags |= prevFlags
		return rc
	}
	m.lastTamperFlags |= prevFlags
	m.lastRecoveryUsed = true
	gamelog.Warn("primary slot failed integrity, recovered from autosave", "slot", slot, "autosave", bestIndex)
	return nil
}

// ReadDescriptor returns a slot's descriptor without loading it.
func (m *Manager) ReadDescriptor(slot int) (Descriptor, error) {
	var d Descriptor
	if slot < 0 || slot >= config.SaveSlotCount {
		return d, ErrBadSlot
	}
	raw, err := os.ReadFile(m.slotPath(slot))
	if err != nil {
		return d, ErrOpen
	}
	d, ok := unmarshalDescriptor(raw)
	if !ok {
		return d, ErrReadHeader
	}
	return d, nil
}

// SectionIterFn visits one section during ForEachSection.
type SectionIterFn func(id int, compressed bool, payload []byte) error

// ForEachSection validates a slot and visits each decompressed section
// without dispatching to component readers.
func (m *Manager) ForEachSection(slot int, fn SectionIterFn) error {
	if slot < 0 || slot >= config.SaveSlotCount {
		return ErrBadSlot
	}
	pf, err := m.loadAndValidate(m.slotPath(slot))
	if err != nil {
		return err
	}
	sections, _, err := walkSections(pf.sections, pf.desc)
	if err != nil {
		return err
	}
	for i := range sections {
		sec := &sections[i]
		payload := sec.stored
		if sec.compressed {
			if len(payload) < 4 {
				return ErrSectionRead
			}
			n := int(binary.LittleEndian.Uint32(payload[:4]))
			payload, err = m.codec.Decode(payload[4:], n)
			if err != nil {
				return ErrSectionRead
			}
		}
		if err := fn(sec.id, sec.compressed, payload); err != nil {
			return err
		}
	}
	return nil
}

// ReloadComponentFromSlot re-reads a single component's section from a
// validated slot file.
func (m *Manager) ReloadComponentFromSlot(slot, componentID int) error {
	found := false
	err := m.ForEachSection(slot, func(id int, _ bool, payload []byte) error {
		if id != componentID || found {
			return nil
		}
		found = true
		comp := m.findComponent(id)
		if comp == nil || comp.Read == nil {
			return ErrComponentRead
		}
		if comp.Read(bytes.NewReader(payload), len(payload)) != nil {
			return ErrComponentRead
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !found {
		return ErrSectionRead
	}
	return nil
}
