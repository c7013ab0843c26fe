package domain

import "time"

// AssetRef points at a blob held by the asset store. ID and URL are set
// together or not at all.
type AssetRef struct {
	ID   string
	URL  string
	Name string
}

// IsZero reports whether no asset is bound.
func (a AssetRef) IsZero() bool {
	return a.ID == "" && a.URL == ""
}

type House struct {
	ID        int64
	Name      string
	Image     AssetRef
	HostIDs   []int64
	AlarmIDs  []int64
	AuthorID  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Host struct {
	ID        int64
	Name      string
	HouseID   int64
	CreatedAt time.Time
}

type Alarm struct {
	ID       int64
	Name     string
	Hour     int
	Minute   int
	Dow      []time.Weekday
	Sound    AssetRef
	HostIDs  []int64
	HouseID  int64
	AuthorID string
	Active   bool
	Created  time.Time
}

// ContainsID reports whether id is present in ids.
func ContainsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// AppendID returns ids with id appended unless it is already present.
func AppendID(ids []int64, id int64) []int64 {
	if ContainsID(ids, id) {
		return ids
	}
	return append(ids, id)
}

// RemoveID returns a copy of ids without any occurrence of id.
func RemoveID(ids []int64, id int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
