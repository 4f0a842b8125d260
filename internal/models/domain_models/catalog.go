package domain_models

type CatalogEntry struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"-"`
	StyleNotes  string   `json:"-"`
}

const AISelectedID = "ai-selected"

// AISelectedEntry stands in for a hairline or hairstyle the model chose itself.
var AISelectedEntry = CatalogEntry{
	ID:          AISelectedID,
	Title:       "AI Selected",
	Description: "Selected by AI based on facial analysis",
}

type Catalog struct {
	Hairlines  []CatalogEntry `json:"hairlines"`
	Hairstyles []CatalogEntry `json:"hairstyles"`
}

func DefaultCatalog() Catalog {
	return Catalog{
		Hairlines: []CatalogEntry{
			{
				ID:          "arch",
				Title:       "Arch",
				Description: "Natural rounded hairline, suitable for most face shapes",
				Keywords:    []string{"gently rounded", "natural temple points", "soft arch across the forehead"},
			},
			{
				ID:          "v-shape",
				Title:       "V-Shape",
				Description: "Angular hairline with a defined widow's peak",
				Keywords:    []string{"defined widow's peak", "angular temples", "central point"},
			},
			{
				ID:          "oval",
				Title:       "Oval",
				Description: "Soft, curved hairline that frames the face",
				Keywords:    []string{"soft curve", "face-framing", "smooth temple transition"},
			},
			{
				ID:          "semi-v",
				Title:       "Semi-V",
				Description: "Balanced between arch and V-shape, versatile option",
				Keywords:    []string{"subtle central point", "balanced temples", "moderate peak"},
			},
		},
		Hairstyles: []CatalogEntry{
			{
				ID:          "textured-quiff",
				Title:       "Textured Quiff",
				Description: "Volume on top swept up and back with a textured finish",
				Keywords:    []string{"lifted front", "textured top", "short tapered sides"},
				StyleNotes:  "Top kept at 4-6cm and lifted at the front, sides tapered short.",
			},
			{
				ID:          "angular-fringe",
				Title:       "Angular Fringe",
				Description: "Fringe cut at an angle across the forehead",
				Keywords:    []string{"angled fringe", "forward styled", "piecey texture"},
				StyleNotes:  "Top kept at 4-6cm and brushed forward into an angled fringe.",
			},
			{
				ID:          "slicked-back-undercut",
				Title:       "Slicked Back Undercut",
				Description: "Longer top combed back over short or shaved sides",
				Keywords:    []string{"combed back", "sleek finish", "disconnected undercut"},
				StyleNotes:  "Top kept at 4-6cm and combed straight back, sides undercut.",
			},
		},
	}
}

func (c Catalog) Hairline(id string) (CatalogEntry, bool) {
	return findEntry(c.Hairlines, id)
}

func (c Catalog) Hairstyle(id string) (CatalogEntry, bool) {
	return findEntry(c.Hairstyles, id)
}

func findEntry(entries []CatalogEntry, id string) (CatalogEntry, bool) {
	for _, e := range entries {
		if e.ID == id {
			return e, true
		}
	}
	return CatalogEntry{}, false
}
