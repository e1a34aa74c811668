package models

// ItemKind discriminates schema items.
type ItemKind string

const (
	KindTable    ItemKind = "TABLE"
	KindWall     ItemKind = "WALL"
	KindWallItem ItemKind = "WALL_ITEM"
	KindItem     ItemKind = "ITEM"
)

// Position is the item anchor on the floor grid.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Details holds the item geometry.
type Details struct {
	Width    int `json:"width"`
	Height   int `json:"height"`
	Rotation int `json:"rotation"`
}

// SchemaItem is a positioned element on a floor. SubType carries the table type
// for tables (e.g. "SQUARE_4") and the fixture type for the others ("DOOR", "BAR").
// Only tables link a spot.
type SchemaItem struct {
	ID       int64    `json:"id"`
	FloorID  int64    `json:"floorId"`
	Kind     ItemKind `json:"kind"`
	Position Position `json:"position"`
	Details  Details  `json:"details"`
	SubType  string   `json:"subType,omitempty"`
	SpotID   *int64   `json:"spotId,omitempty"`
}

// IsTable reports whether the item is a table linked to a spot.
func (i SchemaItem) IsTable() bool {
	return i.Kind == KindTable
}
