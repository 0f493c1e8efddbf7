package enemy

import "rogue_core/randgen"

// RoomDimensions bounds the placeable area of a room.
type RoomDimensions struct {
	MinX, MinY float32
	MaxX, MaxY float32
}

// ObstacleZone is a circular exclusion region.
type ObstacleZone struct {
	X, Y   float32
	Radius float32
}

// SpawnSolution is the output of the spatial solver.
type SpawnSolution struct {
	Positions   [][2]float32
	MinDistance float32
	Success     bool
}

const spawnMaxAttempts = 50

// SolveSpawnPositions places unitCount units inside the room: a boss at
// room center first when the depth warrants one, then bounded random
// attempts respecting obstacle zones and a minimum inter-unit distance
// (2.0 for small groups, 1.5 otherwise). The stream is xorshift-seeded so
// placement reproduces from the encounter seed.
func SolveSpawnPositions(info *RoomEncounterInfo, dims *RoomDimensions, unitCount int, obstacles []ObstacleZone, seed uint32) *SpawnSolution {
	out := &SpawnSolution{}
	if info == nil || dims == nil || unitCount <= 0 {
		return out
	}
	if unitCount > 16 {
		unitCount = 16
	}
	out.MinDistance = 1.5
	if unitCount <= 4 {
		out.MinDistance = 2.0
	}
	state := seed
	if state == 0 {
		state = info.EncounterSeed | 1
	}
	hasBoss := info.DepthLevel >= 5
	if hasBoss {
		cx := (dims.MinX + dims.MaxX) / 2
		cy := (dims.MinY + dims.MaxY) / 2
		if validSpawnPosition(cx, cy, dims, obstacles, out) {
			out.Positions = append(out.Positions, [2]float32{cx, cy})
		}
	}
	start := len(out.Positions)
	allPlaced := true
	for unit := start; unit < unitCount; unit++ {
		placed := false
		for attempt := 0; attempt < spawnMaxAttempts && !placed; attempt++ {
			const padding = 1.0
			w := dims.MaxX - dims.MinX - 2*padding
			h := dims.MaxY - dims.MinY - 2*padding
			x := dims.MinX + padding + float32(randgen.XorshiftRange(&state, 1000))/1000*w
			y := dims.MinY + padding + float32(randgen.XorshiftRange(&state, 1000))/1000*h
			if validSpawnPosition(x, y, dims, obstacles, out) {
				out.Positions = append(out.Positions, [2]float32{x, y})
				placed = true
			}
		}
		if !placed {
			allPlaced = false
		}
	}
	out.Success = len(out.Positions) > 0 && allPlaced
	return out
}

func validSpawnPosition(x, y float32, dims *RoomDimensions, obstacles []ObstacleZone, sol *SpawnSolution) bool {
	if x < dims.MinX || x > dims.MaxX || y < dims.MinY || y > dims.MaxY {
		return false
	}
	for _, o := range obstacles {
		dx := x - o.X
		dy := y - o.Y
		if dx*dx+dy*dy < o.Radius*o.Radius {
			return false
		}
	}
	minD2 := sol.MinDistance * sol.MinDistance
	for _, p := range sol.Positions {
		dx := x - p[0]
		dy := y - p[1]
		if dx*dx+dy*dy < minD2 {
			return false
		}
	}
	return true
}
