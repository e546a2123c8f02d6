// Package territory maps electoral zone numbers to human-readable region
// names. The table is fixed reference data; it is never derived from input.
package territory

import "sort"

// Fallback is the label used for zones that are not in the table.
const Fallback = "Unmapped region"

// Table is an immutable zone → region lookup.
type Table struct {
	labels map[int]string
}

// Entry is one zone/label pair, used for configuration and listing.
type Entry struct {
	Zone  int    `json:"zone"  mapstructure:"zone"  yaml:"zone"`
	Label string `json:"label" mapstructure:"label" yaml:"label"`
}

// FederalDistrict returns the built-in Federal District (DF) zone table.
func FederalDistrict() *Table {
	return New([]Entry{
		{1, "Asa Sul"},
		{2, "Paranoá, Varjão, Itapoã, Lago Norte"},
		{3, "Taguatinga"},
		{4, "Santa Maria"},
		{5, "Sobradinho"},
		{6, "Planaltina"},
		{8, "Ceilândia Centro"},
		{9, "Guará"},
		{10, "N. Bandeirante, R. Fundo, Park Way"},
		{11, "Cruzeiro, Sudoeste"},
		{13, "Samambaia"},
		{14, "Asa Norte"},
		{15, "Águas Claras"},
		{16, "Ceilândia Norte, Brazlândia"},
		{17, "Gama"},
		{18, "Lago Sul, J. Botânico, S. Sebastião"},
		{19, "Taguatinga Norte"},
		{20, "Ceilândia Sul"},
		{21, "Recanto das Emas"},
	})
}

// New builds a table from entries. Later entries win on duplicate zones.
func New(entries []Entry) *Table {
	t := &Table{labels: make(map[int]string, len(entries))}
	for _, e := range entries {
		if e.Label == "" {
			continue
		}
		t.labels[e.Zone] = e.Label
	}
	return t
}

// Label resolves a zone, falling back to Fallback for unknown zones.
func (t *Table) Label(zone int) string {
	if l, ok := t.Lookup(zone); ok {
		return l
	}
	return Fallback
}

// Lookup reports whether the zone is mapped.
func (t *Table) Lookup(zone int) (string, bool) {
	if t == nil {
		return "", false
	}
	l, ok := t.labels[zone]
	return l, ok
}

// Entries lists the table sorted by zone.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	out := make([]Entry, 0, len(t.labels))
	for z, l := range t.labels {
		out = append(out, Entry{Zone: z, Label: l})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Zone < out[j].Zone })
	return out
}
