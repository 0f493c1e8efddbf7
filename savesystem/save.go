package savesystem

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"time"

	"rogue_core/config"
	"rogue_core/gamelog"
)

const compressedFlag = 0x80000000

// internalSaveTo serializes every registered component into a sectioned
// payload, appends integrity footers, and atomically renames a unique temp
// file over the target. Non-reentrant: a save during a save fails with
// ErrInSave without touching state.
func (m *Manager) internalSaveTo(finalPath string) error {
	if m.inSave {
		return ErrInSave
	}
	m.inSave = true
	defer func() { m.inSave = false }()
	t0 := time.Now()
	m.sortComponents()

	desc := Descriptor{
		Version:       CurrentVersion,
		TimestampUnix: uint32(time.Now().Unix()),
	}
	m.activeWriteVersion = desc.Version

	var payload bytes.Buffer
	m.lastSectionsReused = 0
	m.lastSectionsWritten = 0
	for i := range m.components {
		c := &m.components[i]
		if err := m.writeSection(&payload, c, desc.Version); err != nil {
			m.lastSaveRC = Code(err)
			return err
		}
		desc.SectionCount++
		desc.ComponentMask |= 1 << uint(c.ID)
	}
	if m.incrementalEnabled {
		m.dirtyMask = 0
	}

	payloadBytes := payload.Bytes()
	desc.Checksum = crc32.ChecksumIEEE(payloadBytes)

	var footer bytes.Buffer
	digest := sha256.Sum256(payloadBytes)
	m.lastSHA256 = digest
	if desc.Version >= versionIntegrity {
		footer.WriteString("SH32")
		footer.Write(digest[:])
		if desc.Version >= versionSignature && m.sigProvider != nil {
			signed := make([]byte, 0, len(payloadBytes)+4+32)
			signed = append(signed, payloadBytes...)
			signed = append(signed, []byte("SH32")...)
			signed = append(signed, digest[:]...)
			sig, err := m.sigProvider.Sign(signed)
			if err != nil {
				m.lastSaveRC = CodePayload
				return ErrPayload
			}
			_ = writeU16(&footer, uint16(len(sig)))
			footer.WriteString("SGN0")
			footer.Write(sig)
		}
	}
	desc.TotalSize = uint64(descriptorSize + len(payloadBytes) + footer.Len())

	// Unique temp path avoids collisions between parallel test processes.
	tmpPath := fmt.Sprintf("%s.tmp_%d_%d", finalPath, os.Getpid(), time.Now().UnixNano())
	f, err := os.Create(tmpPath)
	if err != nil {
		m.lastSaveRC = CodeOpen
		return ErrOpen
	}
	ok := false
	defer func() {
		if !ok {
			f.Close()
			os.Remove(tmpPath)
		}
	}()
	if _, err := f.Write(desc.marshal()); err != nil {
		m.lastSaveRC = CodePayload
		return ErrPayload
	}
	if _, err := f.Write(payloadBytes); err != nil {
		m.lastSaveRC = CodePayload
		return ErrPayload
	}
	if _, err := f.Write(footer.Bytes()); err != nil {
		m.lastSaveRC = CodePayload
		return ErrPayload
	}
	if m.durableWrites {
		if err := f.Sync(); err != nil {
			m.lastSaveRC = CodePayload
			return ErrPayload
		}
	}
	if err := f.Close(); err != nil {
		m.lastSaveRC = CodePayload
		return ErrPayload
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		m.lastSaveRC = CodePayload
		return ErrPayload
	}
	ok = true
	m.lastSaveRC = CodeOK
	m.lastSaveBytes = uint32(desc.TotalSize)
	m.lastSaveMs = float64(time.Since(t0).Microseconds()) / 1000.0
	m.lastAnySaveTime = m.NowMs()
	gamelog.Debug("save complete", "path", finalPath, "bytes", m.lastSaveBytes, "sections", desc.SectionCount)
	return nil
}

// writeSection frames one component: u16 id + u32 size (high bit set for
// compressed payloads) + payload + per-section CRC (v>=7). Clean cached
// sections are reused verbatim on the incremental path.
func (m *Manager) writeSection(out *bytes.Buffer, c *Component, version uint32) error {
	_ = writeU16(out, uint16(c.ID))
	sizePos := out.Len()
	_ = writeU32(out, 0)

	if m.incrementalEnabled && m.dirtyMask&(1<<uint(c.ID)) == 0 {
		if cs, okc := m.cachedSections[c.ID]; okc && cs.valid {
			out.Write(cs.data)
			binary.LittleEndian.PutUint32(out.Bytes()[sizePos:], cs.sizeField())
			if version >= versionIntegrity {
				_ = writeU32(out, cs.crc)
			}
			m.lastSectionsReused++
			return nil
		}
	}
	m.lastSectionsWritten++

	var raw bytes.Buffer
	if err := c.Write(&raw); err != nil {
		return ErrPayload
	}
	uncompressed := raw.Bytes()
	sectionBytes := uncompressed
	compressed := false
	if version >= versionCompression && m.compressEnabled && len(uncompressed) >= m.compressMinBytes {
		enc := m.codec.Encode(uncompressed)
		if len(enc) < len(uncompressed) {
			var cbuf bytes.Buffer
			_ = writeU32(&cbuf, uint32(len(uncompressed)))
			cbuf.Write(enc)
			sectionBytes = cbuf.Bytes()
			compressed = true
		}
	}
	out.Write(sectionBytes)
	sizeField := uint32(len(sectionBytes))
	if compressed {
		sizeField |= compressedFlag
	}
	binary.LittleEndian.PutUint32(out.Bytes()[sizePos:], sizeField)

	var crc uint32
	if version >= versionIntegrity {
		// Section CRC covers the stored payload bytes as written.
		crc = crc32.ChecksumIEEE(sectionBytes)
		_ = writeU32(out, crc)
	}
	if m.incrementalEnabled {
		data := make([]byte, len(sectionBytes))
		copy(data, sectionBytes)
		m.cachedSections[c.ID] = &cachedSection{valid: true, data: data, crc: crc}
		if compressed {
			m.cachedSections[c.ID].compressed = true
		}
	}
	return nil
}

func (cs *cachedSection) sizeField() uint32 {
	f := uint32(len(cs.data))
	if cs.compressed {
		f |= compressedFlag
	}
	return f
}

// SaveSlot writes the numbered slot file.
func (m *Manager) SaveSlot(slot int) error {
	if slot < 0 || slot >= config.SaveSlotCount {
		return ErrBadSlot
	}
	return m.internalSaveTo(m.slotPath(slot))
}

// Quicksave writes the fixed quicksave file.
func (m *Manager) Quicksave() error {
	return m.internalSaveTo(m.quicksavePath())
}

// Autosave writes one ring file; the logical index wraps over the ring.
func (m *Manager) Autosave(logical int) error {
	return m.internalSaveTo(m.autosavePath(logical))
}
