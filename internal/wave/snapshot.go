package wave

// SpawnPointSnapshot is the serialized form of one spawn point.
type SpawnPointSnapshot struct {
	ID     int     `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Active bool    `json:"active"`
}

// WaveSnapshot is the serialized form of one wave's state.
type WaveSnapshot struct {
	WaveID        int                `json:"wave_id"`
	Number        int                `json:"number"`
	SpawnPoints   []int              `json:"spawn_points"`
	Archetypes    []string           `json:"archetypes"`
	TotalEnemies  int                `json:"total_enemies"`
	SpawnInterval float64            `json:"spawn_interval"`
	Spawned       int                `json:"spawned"`
	Elapsed       float64            `json:"elapsed"`
	Active        bool               `json:"active"`
	Completed     bool               `json:"completed"`
	Distribution  map[string]float64 `json:"distribution"`
}

// Snapshot bundles everything the director owns, in creation order.
type Snapshot struct {
	SpawnPoints []SpawnPointSnapshot `json:"spawn_points"`
	Waves       []WaveSnapshot       `json:"waves"`
	AllDone     bool                 `json:"all_done"`
}

func (d *Director) Snapshot() Snapshot {
	s := Snapshot{AllDone: d.allDone}
	for _, sp := range d.spawnPoints {
		s.SpawnPoints = append(s.SpawnPoints, SpawnPointSnapshot{
			ID: sp.ID, X: sp.X, Y: sp.Y, Active: sp.Active,
		})
	}
	for _, w := range d.waves {
		dist := make(map[string]float64, len(w.dist))
		for _, ap := range w.dist {
			dist[ap.name] = ap.p
		}
		s.Waves = append(s.Waves, WaveSnapshot{
			WaveID:        w.ID,
			Number:        w.Number,
			SpawnPoints:   append([]int(nil), w.SpawnPoints...),
			Archetypes:    append([]string(nil), w.Archetypes...),
			TotalEnemies:  w.TotalEnemies,
			SpawnInterval: w.SpawnInterval,
			Spawned:       w.Spawned,
			Elapsed:       w.elapsed,
			Active:        w.Active,
			Completed:     w.Completed,
			Distribution:  dist,
		})
	}
	return s
}

// Restore replaces the director's spawn points and waves with the
// snapshotted state. Distribution order follows each wave's archetype list.
func (d *Director) Restore(s Snapshot) {
	d.spawnPoints = d.spawnPoints[:0]
	d.waves = d.waves[:0]
	d.nextSpawnID = 0
	d.nextWaveID = 0
	d.allDone = s.AllDone

	for _, sp := range s.SpawnPoints {
		d.spawnPoints = append(d.spawnPoints, &SpawnPoint{
			ID: sp.ID, X: sp.X, Y: sp.Y, Active: sp.Active,
		})
		if sp.ID > d.nextSpawnID {
			d.nextSpawnID = sp.ID
		}
	}
	for _, ws := range s.Waves {
		dist := make([]archetypeProb, 0, len(ws.Archetypes))
		for _, name := range ws.Archetypes {
			dist = append(dist, archetypeProb{name: name, p: ws.Distribution[name]})
		}
		d.waves = append(d.waves, &Wave{
			ID:            ws.WaveID,
			Number:        ws.Number,
			SpawnPoints:   append([]int(nil), ws.SpawnPoints...),
			Archetypes:    append([]string(nil), ws.Archetypes...),
			TotalEnemies:  ws.TotalEnemies,
			SpawnInterval: ws.SpawnInterval,
			Spawned:       ws.Spawned,
			elapsed:       ws.Elapsed,
			Active:        ws.Active,
			Completed:     ws.Completed,
			dist:          dist,
		})
		if ws.WaveID > d.nextWaveID {
			d.nextWaveID = ws.WaveID
		}
	}
}
