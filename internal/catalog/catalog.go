// Package catalog holds the deployed configuration tables the chat
// pipeline matches against: intent rules, known lodge name variants and
// the stop-word list. The built-in defaults mirror the production lodge
// roster; a JSON file can replace any of the three tables without code
// changes.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Rule maps a set of phrase patterns to one action identifier. A
// pattern containing '*' is treated as a wildcard pattern, anything
// else as a literal substring.
type Rule struct {
	Action   string   `json:"action"`
	Patterns []string `json:"patterns"`
}

// LodgeName is a display name plus the variants guests actually type.
type LodgeName struct {
	Display  string   `json:"display"`
	Variants []string `json:"variants"`
}

type Catalog struct {
	Rules     []Rule      `json:"rules"`
	Lodges    []LodgeName `json:"lodges"`
	StopWords []string    `json:"stop_words"`
}

// Load reads a catalog override from path, falling back to the built-in
// defaults for any table the file leaves empty. An empty path returns
// the defaults unchanged.
func Load(path string) (*Catalog, error) {
	cat := Default()
	if path == "" {
		return cat, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var override Catalog
	if err := json.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	if len(override.Rules) > 0 {
		cat.Rules = override.Rules
	}
	if len(override.Lodges) > 0 {
		cat.Lodges = override.Lodges
	}
	if len(override.StopWords) > 0 {
		cat.StopWords = override.StopWords
	}

	return cat, nil
}

// StopWordSet returns the stop words as a lookup set.
func (c *Catalog) StopWordSet() map[string]bool {
	set := make(map[string]bool, len(c.StopWords))
	for _, w := range c.StopWords {
		set[strings.ToLower(w)] = true
	}
	return set
}

func Default() *Catalog {
	return &Catalog{
		Rules:     defaultRules(),
		Lodges:    defaultLodges(),
		StopWords: defaultStopWords(),
	}
}

func defaultLodges() []LodgeName {
	return []LodgeName{
		{Display: "Marula Grove Lodge", Variants: []string{"marula grove lodge", "marula grove", "marula"}},
		{Display: "Leadwood House", Variants: []string{"leadwood house", "leadwood"}},
		{Display: "Rhino Ridge Camp", Variants: []string{"rhino ridge camp", "rhino ridge"}},
		{Display: "Khwai River Lodge", Variants: []string{"khwai river lodge", "khwai river", "khwai"}},
		{Display: "Savuti Plains Camp", Variants: []string{"savuti plains camp", "savuti plains", "savuti"}},
		{Display: "Baobab Point", Variants: []string{"baobab point", "baobab"}},
		{Display: "Okavango Trails", Variants: []string{"okavango trails"}},
		{Display: "Coral Coast Lodge", Variants: []string{"coral coast lodge", "coral coast"}},
		{Display: "Bazaruto Blue Villa", Variants: []string{"bazaruto blue villa", "bazaruto blue", "bazaruto"}},
		{Display: "Mangrove Creek Camp", Variants: []string{"mangrove creek camp", "mangrove creek", "mangrove"}},
	}
}

func defaultRules() []Rule {
	rules := []Rule{
		// Direct knowledge topics.
		{Action: "kb_lodge_count", Patterns: []string{"how many lodges", "number of lodges", "how many camps", "*how many lodges do you have*", "*how many camps do you have*"}},
		{Action: "kb_policy_kids_family", Patterns: []string{"*are children allowed*", "*can i bring my kids*", "*child policy*", "*age limit*"}},
		{Action: "kb_malaria_precautions", Patterns: []string{"*malaria precautions*", "*malaria risk*", "*malaria tablets*", "is there malaria"}},
		{Action: "kb_what_to_pack_safari", Patterns: []string{"*what should i pack*", "*what to pack*", "*packing list*", "*what to wear*"}},
		{Action: "kb_connectivity_wifi", Patterns: []string{"*wifi*", "*wi-fi*", "*internet*", "*phone signal*"}},
		{Action: "kb_food_beverage_philosophy", Patterns: []string{"*what is the food like*", "*dining*", "*meals*", "*dietary*"}},
		{Action: "kb_conservation_efforts", Patterns: []string{"*conservation*", "*community projects*", "*sustainability*"}},
		{Action: "kb_best_time_south_africa", Patterns: []string{"*best time*south africa*", "*when to visit*south africa*"}},
		{Action: "kb_best_time_botswana", Patterns: []string{"*best time*botswana*", "*when to visit*botswana*"}},
		{Action: "kb_best_time_mozambique", Patterns: []string{"*best time*mozambique*", "*when to visit*mozambique*"}},

		// Listing actions; country-specific patterns are strict
		// supersets of the generic ones so longest-match routing picks
		// the specific action.
		{Action: "list_lodges", Patterns: []string{"list lodges", "which lodges", "*list your lodges*", "*all of your lodges*", "*lodges do you have*"}},
		{Action: "list_lodges_south_africa", Patterns: []string{"lodges in south africa", "*list lodges in south africa*", "*lodges*in south africa*", "*lodges do you have*south africa*"}},
		{Action: "list_lodges_botswana", Patterns: []string{"lodges in botswana", "*list lodges in botswana*", "*lodges*in botswana*", "*lodges do you have*botswana*"}},
		{Action: "list_lodges_mozambique", Patterns: []string{"lodges in mozambique", "*list lodges in mozambique*", "*lodges*in mozambique*", "*lodges do you have*mozambique*"}},

		// Feature filters.
		{Action: "filter_malaria_free", Patterns: []string{"malaria free", "*malaria-free*", "*without malaria*", "*no malaria*"}},
		{Action: "filter_family_friendly", Patterns: []string{"*family friendly*", "*family-friendly*", "*good for kids*", "*with kids*", "*with children*"}},
		{Action: "filter_spa", Patterns: []string{"*which lodges have a spa*", "*lodges with a spa*", "*have a spa*"}},
		{Action: "filter_photography", Patterns: []string{"*photography*", "*photographic safari*", "*photo hide*"}},
		{Action: "filter_honeymoon", Patterns: []string{"*honeymoon*", "*romantic*"}},
		{Action: "filter_private_pool", Patterns: []string{"*private pool*", "*plunge pool*", "*own pool*"}},
		{Action: "filter_family_suite", Patterns: []string{"*family suite*", "*family room*"}},
		{Action: "filter_outdoor_shower", Patterns: []string{"*outdoor shower*"}},
	}

	// Per-lodge detail rules are generated from the roster so adding a
	// lodge to the table wires up all five detail intents at once.
	for _, lodge := range defaultLodges() {
		slug := Slug(lodge.Display)
		for _, variant := range lodge.Variants {
			rules = append(rules,
				Rule{Action: "lodge_airport_" + slug, Patterns: []string{
					"*how far*airport*" + variant + "*",
					"*airport*" + variant + "*",
					"*transfer*" + variant + "*",
					"*how do i get to " + variant + "*",
				}},
				Rule{Action: "lodge_rooms_" + slug, Patterns: []string{
					"*how many rooms*" + variant + "*",
					"*how many suites*" + variant + "*",
					"*how big is " + variant + "*",
				}},
				Rule{Action: "lodge_children_" + slug, Patterns: []string{
					"*children*" + variant + "*",
					"*kids*" + variant + "*",
					"*family*" + variant + "*",
				}},
				Rule{Action: "lodge_activities_" + slug, Patterns: []string{
					"*activities*" + variant + "*",
					"*what can i do*" + variant + "*",
					"*things to do*" + variant + "*",
				}},
				Rule{Action: "lodge_roomlist_" + slug, Patterns: []string{
					"*what rooms*" + variant + "*",
					"*room types*" + variant + "*",
					"*accommodation at " + variant + "*",
				}},
			)
		}
	}

	return rules
}

func defaultStopWords() []string {
	return []string{
		"the", "a", "an", "and", "or", "but", "is", "are", "was", "were",
		"do", "does", "did", "have", "has", "had", "can", "could", "will",
		"would", "should", "about", "tell", "me", "you", "your", "our",
		"what", "when", "where", "which", "who", "how", "why", "there",
		"this", "that", "for", "with", "from", "not", "any", "all",
		"please", "like", "want", "know", "need", "get", "more", "some",
		// Generic domain words that match every knowledge entry.
		"lodge", "lodges", "camp", "camps", "safari", "safaris", "stay",
		"visit", "trip", "matalai",
	}
}

// Slug converts a display name to its identifier form
// ("Rhino Ridge Camp" -> "rhino_ridge_camp").
func Slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// TitleFromSlug converts an identifier back to display casing
// ("rhino_ridge" -> "Rhino Ridge").
func TitleFromSlug(slug string) string {
	words := strings.Split(slug, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
