package component

// Transform is an entity's world-space position. The arena maps world units
// to grid cells 1:1, so truncating a Transform yields a nav.Cell.
type Transform struct {
	X float64
	Y float64
}

// Health tracks hit points and armor. Armor feeds the scripted damage
// formula; it does not gate death.
type Health struct {
	HP    float64
	MaxHP float64
	Armor float64
}

// Faction names the side an entity fights for ("enemy", "player", ...).
// Target acquisition only ever crosses faction lines.
type Faction struct {
	Name string
}

// Unit carries per-archetype tuning resolved at spawn time plus transient
// combat flags maintained by the combat system.
type Unit struct {
	Archetype    string
	MoveSpeed    float64 // world units per second
	AttackRange  float64
	AttackDamage float64
	InCombat     bool // true while an attack order is active
}
