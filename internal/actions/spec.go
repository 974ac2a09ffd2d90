package actions

import (
	"strings"

	"github.com/matalai-travel/chat-backend/internal/catalog"
	"github.com/matalai-travel/chat-backend/internal/intent"
	"github.com/matalai-travel/chat-backend/internal/store"
)

// Kind is the handler strategy family an action dispatches to.
type Kind int

const (
	KindUnknown Kind = iota
	KindKnowledge
	KindListLodges
	KindFilterLodges
	KindFilterRooms
	KindLodgeDetail
)

func (k Kind) String() string {
	switch k {
	case KindKnowledge:
		return "knowledge"
	case KindListLodges:
		return "list_lodges"
	case KindFilterLodges:
		return "filter_lodges"
	case KindFilterRooms:
		return "filter_rooms"
	case KindLodgeDetail:
		return "lodge_detail"
	default:
		return "unknown"
	}
}

// DetailKind is the per-lodge attribute a detail action answers about.
type DetailKind int

const (
	DetailAirport DetailKind = iota
	DetailRooms
	DetailChildren
	DetailActivities
	DetailRoomList
)

// Spec is the parsed, typed form of an action identifier. Dispatch runs
// on Kind, not on string prefixes.
type Spec struct {
	Kind      Kind
	Topic     string          // KindKnowledge
	Country   string          // KindListLodges; empty lists all
	Predicate store.Predicate // filter kinds
	Label     string          // filter kinds: phrase used in replies
	Detail    DetailKind      // KindLodgeDetail
	LodgeName string          // KindLodgeDetail: display-cased name
}

var listCountries = map[string]string{
	"south_africa": "South Africa",
	"botswana":     "Botswana",
	"mozambique":   "Mozambique",
}

var filterSpecs = map[string]Spec{
	"filter_malaria_free": {
		Kind:      KindFilterLodges,
		Predicate: store.BoolEq("malaria_zone", false),
		Label:     "malaria-free lodges",
	},
	"filter_family_friendly": {
		Kind:      KindFilterLodges,
		Predicate: store.BoolEq("family_friendly", true),
		Label:     "family-friendly lodges",
	},
	"filter_spa": {
		Kind:      KindFilterLodges,
		Predicate: store.BoolEq("spa", true),
		Label:     "lodges with a spa",
	},
	"filter_photography": {
		Kind:      KindFilterLodges,
		Predicate: store.BoolEq("photography_focused", true),
		Label:     "lodges geared towards photography",
	},
	"filter_honeymoon": {
		Kind:      KindFilterLodges,
		Predicate: store.ListContains("ideal_for", "honeymoon"),
		Label:     "lodges ideal for a honeymoon",
	},
	"filter_private_pool": {
		Kind:      KindFilterRooms,
		Predicate: store.BoolEq("private_pool", true),
		Label:     "rooms with a private pool",
	},
	"filter_family_suite": {
		Kind:      KindFilterRooms,
		Predicate: store.BoolEq("family_suite", true),
		Label:     "family suites",
	},
	"filter_outdoor_shower": {
		Kind:      KindFilterRooms,
		Predicate: store.BoolEq("outdoor_shower", true),
		Label:     "rooms with an outdoor shower",
	},
}

var detailPrefixes = map[string]DetailKind{
	"lodge_airport_":    DetailAirport,
	"lodge_rooms_":      DetailRooms,
	"lodge_children_":   DetailChildren,
	"lodge_activities_": DetailActivities,
	"lodge_roomlist_":   DetailRoomList,
}

// ParseSpec resolves an action identifier into its typed Spec.
func ParseSpec(id intent.ActionID) (Spec, bool) {
	s := string(id)

	if topic, ok := strings.CutPrefix(s, "kb_"); ok && topic != "" {
		return Spec{Kind: KindKnowledge, Topic: topic}, true
	}

	if s == "list_lodges" {
		return Spec{Kind: KindListLodges}, true
	}
	if slug, ok := strings.CutPrefix(s, "list_lodges_"); ok {
		country, known := listCountries[slug]
		if !known {
			return Spec{}, false
		}
		return Spec{Kind: KindListLodges, Country: country}, true
	}

	if spec, ok := filterSpecs[s]; ok {
		return spec, true
	}

	for prefix, detail := range detailPrefixes {
		if slug, ok := strings.CutPrefix(s, prefix); ok && slug != "" {
			return Spec{
				Kind:      KindLodgeDetail,
				Detail:    detail,
				LodgeName: catalog.TitleFromSlug(slug),
			}, true
		}
	}

	return Spec{}, false
}
