package savesystem

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rogue_core/inventory"
	"rogue_core/loot"
	"rogue_core/playerstate"
)

func testState(t *testing.T) (*Manager, CoreState) {
	t.Helper()
	defs := loot.NewDefRegistry()
	for _, d := range []loot.ItemDef{
		{ID: "long_sword", Name: "Long Sword", Category: loot.CategoryWeapon, StackMax: 1, BaseDamageMin: 6, BaseDamageMax: 11},
		{ID: "arcane_dust", Name: "Arcane Dust", Category: loot.CategoryMaterial, StackMax: 50},
	} {
		_, err := defs.Add(d)
		require.NoError(t, err)
	}
	defs.BuildIndex()
	affixes := loot.NewAffixRegistry()
	_, err := affixes.Add(loot.AffixDef{ID: "sharp", Type: loot.AffixPrefix, Stat: loot.StatDamageFlat,
		MinValue: 1, MaxValue: 5, WeightPerRarity: [5]int{10, 10, 10, 10, 10}})
	require.NoError(t, err)
	pool := loot.NewPool(defs, affixes)
	entries := inventory.NewEntries()
	tags := inventory.NewTags()
	rules := inventory.NewTagRules(defs, tags)
	query := inventory.NewQuery(entries, tags, defs, pool)
	state := playerstate.NewState()

	m := NewManager(t.TempDir())
	m.RegisterCoreMigrations()
	cs := CoreState{Pool: pool, Entries: entries, Tags: tags, Rules: rules, Query: query, State: state}
	RegisterCoreComponents(m, cs)
	return m, cs
}

type instTuple struct {
	def, qty, rarity, pidx, pval, sidx, sval, dcur, dmax, enchant int
}

func poolTuples(pool *loot.Pool) map[instTuple]int {
	out := make(map[instTuple]int)
	for i := 0; i < pool.Cap(); i++ {
		it := pool.At(i)
		if it == nil {
			continue
		}
		out[instTuple{it.DefIndex, it.Quantity, it.Rarity, it.PrefixIndex, it.PrefixValue,
			it.SuffixIndex, it.SuffixValue, it.DurabilityCur, it.DurabilityMax, it.EnchantLevel}]++
	}
	return out
}

func TestVaruintRoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 127, 128, 300, 1 << 20, 0xFFFFFFFF} {
		var buf bytes.Buffer
		require.NoError(t, WriteVaruint(&buf, v))
		got, err := ReadVaruint(&buf)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestRLECodecRoundTrip(t *testing.T) {
	c := RLECodec{}
	src := bytes.Repeat([]byte{7}, 300)
	src = append(src, 1, 2, 3)
	enc := c.Encode(src)
	assert.Less(t, len(enc), len(src))
	dec, err := c.Decode(enc, len(src))
	require.NoError(t, err)
	assert.Equal(t, src, dec)
}

func TestSnappyCodecRoundTrip(t *testing.T) {
	c := SnappyCodec{}
	src := bytes.Repeat([]byte("abcabc"), 100)
	dec, err := c.Decode(c.Encode(src), len(src))
	require.NoError(t, err)
	assert.Equal(t, src, dec)
}

func seedContent(t *testing.T, cs CoreState) {
	t.Helper()
	for i := 0; i < 12; i++ {
		slot, err := cs.Pool.Spawn(i%2, 1+i%3, float32(i), 0)
		require.NoError(t, err)
		require.NoError(t, cs.Pool.ApplyAffixes(slot, i%5, 0, 1+i%4, -1, 0))
	}
	require.NoError(t, cs.Entries.RegisterPickup(0, 3))
	require.NoError(t, cs.Entries.RegisterPickup(1, 40))
	cs.Tags.SetFlags(0, inventory.FlagFavorite)
	cs.Tags.AddTag(0, "keeper")
	cs.Rules.Add(inventory.TagRule{MinRarity: 2, Tag: "rare", AccentColor: 0xAA0000FF})
	cs.Query.StoreSavedSearch("rares", "rarity >= 2", "-rarity")
	cs.State.Player.Level = 14
	cs.State.Player.Gold = 777
	cs.State.Skills = append(cs.State.Skills, playerstate.Skill{ID: 4, Rank: 2})
	cs.State.Buffs = append(cs.State.Buffs, playerstate.Buff{ID: 1, Magnitude: 5, RemainingMs: 900})
	cs.State.Vendor = append(cs.State.Vendor, playerstate.VendorItem{DefIndex: 1, Quantity: 9, Price: 25})
	cs.State.World = playerstate.WorldMeta{WorldSeed: 0xABCD, RegionID: 2, PlayTimeMs: 123456, GenVersion: 3}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m, cs := testState(t)
	seedContent(t, cs)
	want := poolTuples(cs.Pool)

	require.NoError(t, m.SaveSlot(0))

	// Fresh registries over the same save dir.
	m2, cs2 := testState(t)
	m2.dir = m.dir
	require.NoError(t, m2.LoadSlot(0))

	assert.Equal(t, want, poolTuples(cs2.Pool))
	assert.Equal(t, uint64(3), cs2.Entries.Quantity(0))
	assert.Equal(t, uint64(40), cs2.Entries.Quantity(1))
	assert.Equal(t, inventory.FlagFavorite, cs2.Tags.Flags(0))
	assert.True(t, cs2.Tags.Has(0, "keeper"))
	assert.Equal(t, 1, cs2.Rules.Count())
	s, ok := cs2.Query.SavedSearch("rares")
	require.True(t, ok)
	assert.Equal(t, "rarity >= 2", s.Query)
	assert.Equal(t, int32(14), cs2.State.Player.Level)
	assert.Equal(t, int64(777), cs2.State.Player.Gold)
	require.Len(t, cs2.State.Skills, 1)
	assert.Equal(t, int32(4), cs2.State.Skills[0].ID)
	require.Len(t, cs2.State.Vendor, 1)
	assert.Equal(t, playerstate.WorldMeta{WorldSeed: 0xABCD, RegionID: 2, PlayTimeMs: 123456, GenVersion: 3}, cs2.State.World)
	assert.Zero(t, m2.LastTamperFlags())
}

func TestSaveLoadCompressedRLE(t *testing.T) {
	m, cs := testState(t)
	m.SetCompression(true, 16)
	seedContent(t, cs)
	want := poolTuples(cs.Pool)
	require.NoError(t, m.SaveSlot(1))

	m2, cs2 := testState(t)
	m2.dir = m.dir
	m2.SetCompression(true, 16)
	require.NoError(t, m2.LoadSlot(1))
	assert.Equal(t, want, poolTuples(cs2.Pool))
}

func TestSaveLoadSnappyCodec(t *testing.T) {
	m, cs := testState(t)
	m.SetCompression(true, 16)
	m.SetCodec(SnappyCodec{})
	seedContent(t, cs)
	want := poolTuples(cs.Pool)
	require.NoError(t, m.SaveSlot(2))

	m2, cs2 := testState(t)
	m2.dir = m.dir
	m2.SetCompression(true, 16)
	m2.SetCodec(SnappyCodec{})
	require.NoError(t, m2.LoadSlot(2))
	assert.Equal(t, want, poolTuples(cs2.Pool))
}

func TestTamperDetection(t *testing.T) {
	m, cs := testState(t)
	seedContent(t, cs)
	require.NoError(t, m.SaveSlot(0))

	// Flip a payload byte: descriptor CRC must catch it.
	path := m.slotPath(0)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[descriptorSize+10] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0644))

	m2, _ := testState(t)
	m2.dir = m.dir
	err = m2.LoadSlot(0)
	require.Error(t, err)
	assert.Equal(t, CodeDescriptorCRC, Code(err))
	assert.NotZero(t, m2.LastTamperFlags()&TamperDescriptorCRC)
}

func TestRecoveryFromAutosave(t *testing.T) {
	m, cs := testState(t)
	seedContent(t, cs)
	want := poolTuples(cs.Pool)
	require.NoError(t, m.SaveSlot(0))
	require.NoError(t, m.Autosave(0))

	// Corrupt the primary slot.
	path := m.slotPath(0)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[descriptorSize+10] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0644))

	m2, cs2 := testState(t)
	m2.dir = m.dir
	require.NoError(t, m2.LoadSlotWithRecovery(0))
	assert.True(t, m2.LastRecoveryUsed())
	assert.NotZero(t, m2.LastTamperFlags()&TamperDescriptorCRC)
	assert.Equal(t, want, poolTuples(cs2.Pool))
}

func TestRecoveryWithoutAutosaveFails(t *testing.T) {
	m, cs := testState(t)
	seedContent(t, cs)
	require.NoError(t, m.SaveSlot(0))
	path := m.slotPath(0)
	raw, _ := os.ReadFile(path)
	raw[descriptorSize+10] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0644))

	m2, _ := testState(t)
	m2.dir = m.dir
	err := m2.LoadSlotWithRecovery(0)
	require.Error(t, err)
	assert.False(t, m2.LastRecoveryUsed())
}

func TestIncrementalSectionReuse(t *testing.T) {
	m, cs := testState(t)
	m.SetIncremental(true)
	seedContent(t, cs)
	require.NoError(t, m.SaveSlot(0))
	_, written := m.LastSectionReuse()
	assert.Equal(t, uint(12), written, "cold cache writes every section")

	// Nothing changed: everything reuses.
	require.NoError(t, m.SaveSlot(0))
	reused, written := m.LastSectionReuse()
	assert.Equal(t, uint(12), reused)
	assert.Zero(t, written)

	// Dirtying one component rewrites exactly that section.
	require.NoError(t, m.MarkComponentDirty(CompPlayer))
	require.NoError(t, m.SaveSlot(0))
	reused, written = m.LastSectionReuse()
	assert.Equal(t, uint(11), reused)
	assert.Equal(t, uint(1), written)
}

func TestIncrementalSaveMatchesColdSave(t *testing.T) {
	m, cs := testState(t)
	m.SetIncremental(true)
	seedContent(t, cs)
	require.NoError(t, m.SaveSlot(0))
	require.NoError(t, m.SaveSlot(1))

	a, err := os.ReadFile(m.slotPath(0))
	require.NoError(t, err)
	b, err := os.ReadFile(m.slotPath(1))
	require.NoError(t, err)
	// Timestamps may differ; compare payloads after the descriptor.
	assert.Equal(t, a[descriptorSize:], b[descriptorSize:])
}

func TestInventoryDiffMetrics(t *testing.T) {
	m, cs := testState(t)
	m.SetIncremental(true)
	seedContent(t, cs)
	require.NoError(t, m.SaveSlot(0))
	_, rewritten := m.InventoryDiffMetrics()
	assert.Equal(t, uint(12), rewritten)

	// An unchanged pool reuses every record. The section itself is clean,
	// so force a rewrite to exercise the diff.
	require.NoError(t, m.MarkComponentDirty(CompInventory))
	require.NoError(t, m.SaveSlot(0))
	reused, rewritten := m.InventoryDiffMetrics()
	assert.Equal(t, uint(12), reused)
	assert.Zero(t, rewritten)
}

func TestReentrantSaveRejected(t *testing.T) {
	m, _ := testState(t)
	var inner error
	require.NoError(t, m.Register(Component{
		ID: 20, Name: "reentrant",
		Write: func(w io.Writer) error {
			inner = m.SaveSlot(1)
			return nil
		},
		Read: func(r io.Reader, size int) error { return nil },
	}))
	require.NoError(t, m.SaveSlot(0))
	require.Error(t, inner)
	assert.Equal(t, CodeInSave, Code(inner))
}

func TestVersionNewerRejected(t *testing.T) {
	m, cs := testState(t)
	seedContent(t, cs)
	require.NoError(t, m.SaveSlot(0))
	// Bump the version field; CRC covers only the payload, so the
	// descriptor edit is visible as a version gate failure.
	path := m.slotPath(0)
	raw, _ := os.ReadFile(path)
	raw[0] = CurrentVersion + 1
	require.NoError(t, os.WriteFile(path, raw, 0644))
	m2, _ := testState(t)
	m2.dir = m.dir
	err := m2.LoadSlot(0)
	require.Error(t, err)
}

func TestAutosaveSchedulerAndThrottle(t *testing.T) {
	m, cs := testState(t)
	seedContent(t, cs)
	m.SetAutosaveInterval(1000)
	m.SetAutosaveThrottle(500)

	m.Update(500, false)
	assert.Zero(t, m.AutosaveCount(), "interval not yet elapsed")

	m.Update(1200, true)
	assert.Zero(t, m.AutosaveCount(), "no autosave in combat")

	m.NowMs = func() uint32 { return 1200 }
	m.Update(1200, false)
	assert.Equal(t, uint32(1), m.AutosaveCount())

	// Throttle blocks a fire even past the interval.
	m.SetAutosaveThrottle(2000)
	m.NowMs = func() uint32 { return 2300 }
	m.Update(2300, false)
	assert.Equal(t, uint32(1), m.AutosaveCount())

	// With the throttle satisfied it fires again.
	m.SetAutosaveThrottle(500)
	m.NowMs = func() uint32 { return 2400 }
	m.Update(2400, false)
	assert.Equal(t, uint32(2), m.AutosaveCount())
}

func TestBackupRotate(t *testing.T) {
	m, cs := testState(t)
	seedContent(t, cs)
	require.NoError(t, m.SaveSlot(0))
	require.NoError(t, m.BackupRotate(0, 3))
	entries, err := os.ReadDir(m.dir)
	require.NoError(t, err)
	found := false
	for _, e := range entries {
		if len(e.Name()) > 4 && e.Name()[len(e.Name())-4:] == ".bak" {
			found = true
		}
	}
	assert.True(t, found, "backup file missing")
}

func TestStatusAndMetrics(t *testing.T) {
	m, cs := testState(t)
	seedContent(t, cs)
	require.NoError(t, m.SaveSlot(0))
	assert.Equal(t, CodeOK, m.LastSaveRC())
	assert.NotZero(t, m.LastSaveBytes())
	assert.Contains(t, m.StatusString(), "rc=0")
	desc, err := m.ReadDescriptor(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(CurrentVersion), desc.Version)
	assert.Equal(t, uint32(12), desc.SectionCount)
}

func TestReplayComponentHashVerified(t *testing.T) {
	m, cs := testState(t)
	m.ReplayRecordInput(1, 10, 1)
	m.ReplayRecordInput(2, 11, -1)
	require.NoError(t, m.SaveSlot(0))

	m2, _ := testState(t)
	m2.dir = m.dir
	require.NoError(t, m2.LoadSlot(0))
	assert.Equal(t, 2, m2.ReplayEventCount())
	assert.Equal(t, m.LastReplayHash(), m2.LastReplayHash())
	_ = cs
}

func TestInternStrings(t *testing.T) {
	m, _ := testState(t)
	a := m.InternString("fireball")
	b := m.InternString("fireball")
	assert.Equal(t, a, b)
	c := m.InternString("frostbolt")
	assert.NotEqual(t, a, c)
	require.NoError(t, m.SaveSlot(0))

	m2, _ := testState(t)
	m2.dir = m.dir
	require.NoError(t, m2.LoadSlot(0))
	assert.Equal(t, 2, m2.InternCount())
	assert.Equal(t, "fireball", m2.InternGet(a))
}

type fakeSigner struct{ key byte }

func (f fakeSigner) Sign(data []byte) ([]byte, error) {
	sig := byte(0)
	for _, b := range data {
		sig ^= b
	}
	return []byte{sig ^ f.key, 0x5A}, nil
}

func (f fakeSigner) Verify(data, sig []byte) error {
	want, _ := f.Sign(data)
	if !bytes.Equal(want, sig) {
		return ErrSignature
	}
	return nil
}

func TestSignatureRoundTripAndMismatch(t *testing.T) {
	m, cs := testState(t)
	m.SetSignatureProvider(fakeSigner{key: 0x11})
	seedContent(t, cs)
	require.NoError(t, m.SaveSlot(0))

	m2, _ := testState(t)
	m2.dir = m.dir
	m2.SetSignatureProvider(fakeSigner{key: 0x11})
	require.NoError(t, m2.LoadSlot(0))

	// A different key fails verification.
	m3, _ := testState(t)
	m3.dir = m.dir
	m3.SetSignatureProvider(fakeSigner{key: 0x22})
	err := m3.LoadSlot(0)
	require.Error(t, err)
	assert.NotZero(t, m3.LastTamperFlags()&TamperSignature)

	// No provider installed: the signature block is skipped.
	m4, _ := testState(t)
	m4.dir = m.dir
	require.NoError(t, m4.LoadSlot(0))
}
