package models

// Spot is a physical seating unit.
type Spot struct {
	ID              int64 `json:"id"`
	Number          int   `json:"number"`
	Capacity        int   `json:"capacity"`
	MinPeopleNumber int   `json:"minPeopleNumber"`
	FloorID         int64 `json:"floorId"`
}

// Fits reports whether the spot seats partyOf within its bounds.
func (s Spot) Fits(partyOf int) bool {
	return s.Capacity >= partyOf && s.MinPeopleNumber <= partyOf
}

// FitsLoosely reports whether the spot is big enough but sized for a larger party.
func (s Spot) FitsLoosely(partyOf int) bool {
	return s.Capacity >= partyOf && s.MinPeopleNumber > partyOf
}

// Floor groups schema items.
type Floor struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
