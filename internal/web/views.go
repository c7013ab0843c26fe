package web

import (
	"time"

	"github.com/vbonduro/homealarm/internal/domain"
	"github.com/vbonduro/homealarm/internal/service"
)

type assetView struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

type houseView struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Image     *assetView `json:"image,omitempty"`
	HostIDs   []int64    `json:"host_ids"`
	AlarmIDs  []int64    `json:"alarm_ids"`
	AuthorID  string     `json:"author_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type houseDetailView struct {
	houseView
	Hosts  []hostView  `json:"hosts"`
	Alarms []alarmView `json:"alarms"`
}

type hostView struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	HouseID   int64     `json:"house_id"`
	CreatedAt time.Time `json:"created_at"`
}

type alarmView struct {
	ID       int64      `json:"id"`
	Name     string     `json:"name"`
	Hour     int        `json:"hour"`
	Minute   int        `json:"minute"`
	Dow      []int      `json:"dow"`
	Sound    *assetView `json:"sound,omitempty"`
	HostIDs  []int64    `json:"host_ids"`
	Hosts    []hostView `json:"hosts,omitempty"`
	HouseID  int64      `json:"house_id"`
	AuthorID string     `json:"author_id"`
	Active   bool       `json:"active"`
	Created  time.Time  `json:"created"`
}

type cascadeView struct {
	HouseID        int64    `json:"house_id"`
	DeletedHosts   []int64  `json:"deleted_hosts"`
	DeletedAlarms  []int64  `json:"deleted_alarms"`
	OrphanedAssets []string `json:"orphaned_assets,omitempty"`
}

func toAssetView(a domain.AssetRef) *assetView {
	if a.IsZero() {
		return nil
	}
	return &assetView{ID: a.ID, URL: a.URL, Name: a.Name}
}

func toHouseView(h *domain.House) houseView {
	return houseView{
		ID:        h.ID,
		Name:      h.Name,
		Image:     toAssetView(h.Image),
		HostIDs:   nonNil(h.HostIDs),
		AlarmIDs:  nonNil(h.AlarmIDs),
		AuthorID:  h.AuthorID,
		CreatedAt: h.CreatedAt,
		UpdatedAt: h.UpdatedAt,
	}
}

func toHouseDetailView(d *service.HouseDetail) houseDetailView {
	v := houseDetailView{
		houseView: toHouseView(d.House),
		Hosts:     toHostViews(d.Hosts),
		Alarms:    make([]alarmView, 0, len(d.Alarms)),
	}
	for _, a := range d.Alarms {
		v.Alarms = append(v.Alarms, toAlarmDetailView(a))
	}
	return v
}

func toHostView(h *domain.Host) hostView {
	return hostView{ID: h.ID, Name: h.Name, HouseID: h.HouseID, CreatedAt: h.CreatedAt}
}

func toHostViews(hosts []*domain.Host) []hostView {
	out := make([]hostView, 0, len(hosts))
	for _, h := range hosts {
		out = append(out, toHostView(h))
	}
	return out
}

func toAlarmView(a *domain.Alarm) alarmView {
	dow := make([]int, 0, len(a.Dow))
	for _, d := range a.Dow {
		dow = append(dow, int(d))
	}
	return alarmView{
		ID:       a.ID,
		Name:     a.Name,
		Hour:     a.Hour,
		Minute:   a.Minute,
		Dow:      dow,
		Sound:    toAssetView(a.Sound),
		HostIDs:  nonNil(a.HostIDs),
		HouseID:  a.HouseID,
		AuthorID: a.AuthorID,
		Active:   a.Active,
		Created:  a.Created,
	}
}

func toAlarmDetailView(d *service.AlarmDetail) alarmView {
	v := toAlarmView(d.Alarm)
	v.Hosts = toHostViews(d.Hosts)
	return v
}

func toCascadeView(r *service.CascadeResult) cascadeView {
	return cascadeView{
		HouseID:        r.HouseID,
		DeletedHosts:   nonNil(r.DeletedHosts),
		DeletedAlarms:  nonNil(r.DeletedAlarms),
		OrphanedAssets: r.OrphanedAssets,
	}
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
