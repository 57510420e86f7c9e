package routing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PatternEntry maps one text pattern to a destination queue. Entries are
// evaluated in declared order.
type PatternEntry struct {
	Pattern string `yaml:"pattern"`
	Queue   string `yaml:"queue"`
}

// Tables holds the static routing configuration: text patterns, library
// codes and form pickup points, each mapped to destination queues. An
// empty queue value for a known library code is a deliberate no-op entry,
// distinct from an unknown code.
type Tables struct {
	Patterns     []PatternEntry    `yaml:"patterns"`
	LibraryCodes map[string]string `yaml:"library_codes"`
	PickupPoints []PatternEntry    `yaml:"pickup_points"`
}

// QueueForLibraryCode resolves a catalog library code. The second return
// distinguishes "unknown code" (false) from a known code mapped to no
// destination (true with empty queue).
func (t *Tables) QueueForLibraryCode(code string) (string, bool) {
	queue, ok := t.LibraryCodes[code]
	return queue, ok
}

// Destinations returns the set of queues reachable through any table.
func (t *Tables) Destinations() map[string]struct{} {
	out := make(map[string]struct{})
	for _, entry := range t.Patterns {
		if entry.Queue != "" {
			out[entry.Queue] = struct{}{}
		}
	}
	for _, queue := range t.LibraryCodes {
		if queue != "" {
			out[queue] = struct{}{}
		}
	}
	for _, entry := range t.PickupPoints {
		if entry.Queue != "" {
			out[entry.Queue] = struct{}{}
		}
	}
	return out
}

// Validate rejects tables with pattern or pickup-point entries that carry
// no destination.
func (t *Tables) Validate() error {
	for _, entry := range t.Patterns {
		if entry.Pattern == "" || entry.Queue == "" {
			return fmt.Errorf("invalid pattern entry: %q -> %q", entry.Pattern, entry.Queue)
		}
	}
	for _, entry := range t.PickupPoints {
		if entry.Pattern == "" || entry.Queue == "" {
			return fmt.Errorf("invalid pickup point entry: %q -> %q", entry.Pattern, entry.Queue)
		}
	}
	return nil
}

// LoadTables returns the routing tables from the given YAML file, or the
// compiled-in defaults when path is empty.
func LoadTables(path string) (*Tables, error) {
	if path == "" {
		return DefaultTables(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read routing tables: %w", err)
	}
	tables := &Tables{}
	if err := yaml.Unmarshal(raw, tables); err != nil {
		return nil, fmt.Errorf("parse routing tables: %w", err)
	}
	if err := tables.Validate(); err != nil {
		return nil, err
	}
	return tables, nil
}

// DefaultTables returns the compiled-in routing tables.
func DefaultTables() *Tables {
	return &Tables{
		Patterns: []PatternEntry{
			{Pattern: "Arkeologisk bibliotek", Queue: "ub-humsam-biblioteket"},
			{Pattern: "Etnografisk bibliotek", Queue: "ub-humsam-biblioteket"},
			{Pattern: "HumSam-biblioteket", Queue: "ub-humsam-biblioteket"},
			{Pattern: "Ibsensenteret", Queue: "ub-ujur"},
			{Pattern: "Informatikkbiblioteket", Queue: "ub-realfagsbiblioteket-ifi"},
			{Pattern: "Juridisk bibliotek", Queue: "ub-ujur"},
			{Pattern: "Kriminologibiblioteket", Queue: "ub-ujur"},
			{Pattern: "Læringssenteret DN", Queue: "ub-ujur"},
			{Pattern: "Medisinsk bibliotek Odontologi", Queue: "ub-umed"},
			{Pattern: "Medisinsk bibliotek Rikshospitalet", Queue: "ub-umed"},
			{Pattern: "Medisinsk bibliotek Ullevål sykehus", Queue: "ub-umed"},
			{Pattern: "Menneskerettighetsbiblioteket", Queue: "ub-ujur"},
			{Pattern: "NSSF Selvmordsforskning og forebygging", Queue: "ub-ujur"},
			{Pattern: "Naturhistorisk museum biblioteket", Queue: "ub-realfagsbiblioteket"},
			{Pattern: "Offentligrettsbiblioteket", Queue: "ub-ujur"},
			{Pattern: "Petroleums- og EU-rettsbiblioteket", Queue: "ub-ujur"},
			{Pattern: "Privatrettsbiblioteket", Queue: "ub-ujur"},
			{Pattern: "Realfagsbiblioteket", Queue: "ub-realfagsbiblioteket"},
			{Pattern: "Rettshistorisk samling", Queue: "ub-ujur"},
			{Pattern: "Rettsinformatikkbiblioteket", Queue: "ub-ujur"},
			{Pattern: "Sjørettsbiblioteket", Queue: "ub-ujur"},
			{Pattern: "Sophus Bugge", Queue: "ub-humsam-biblioteket"},
			{Pattern: "Teologisk bibliotek", Queue: "ub-humsam-biblioteket"},
		},
		LibraryCodes: map[string]string{
			"1030011": "ub-humsam-biblioteket",
			"1030010": "ub-humsam-biblioteket",
			"1030012": "ub-humsam-biblioteket",
			"1030300": "ub-humsam-biblioteket",
			"1030305": "ub-humsam-biblioteket",
			"1030104": "",
			"1030317": "ub-realfagsbiblioteket-ifi",
			"1030000": "ub-ujur",
			"1030002": "ub-ujur",
			"1030009": "ub-ujur",
			"1030307": "ub-umed",
			"1032300": "ub-umed",
			"1030338": "ub-umed",
			"1030048": "ub-ujur",
			"1032304": "ub-umed",
			"1030500": "ub-realfagsbiblioteket",
			"1030003": "ub-ujur",
			"1030005": "ub-ujur",
			"1030001": "ub-ujur",
			"1030310": "ub-realfagsbiblioteket",
			"1030015": "ub-ujur",
			"1030004": "ub-ujur",
			"1030006": "ub-ujur",
			"1030303": "ub-humsam-biblioteket",
			"1030301": "ub-humsam-biblioteket",
		},
		PickupPoints: []PatternEntry{
			{Pattern: "Humanities and Social Sciences Library (GSH)", Queue: "ub-humsam-biblioteket"},
			{Pattern: "Law Library (Domus Juridica)", Queue: "ub-ujur"},
			{Pattern: "Medical Library (Rikshospitalet)", Queue: "ub-umed"},
			{Pattern: "Science Library (VB)", Queue: "ub-realfagsbiblioteket"},
			{Pattern: "HumSam-biblioteket (GSH)", Queue: "ub-humsam-biblioteket"},
			{Pattern: "Juridisk bibliotek (Domus Juridica)", Queue: "ub-ujur"},
			{Pattern: "Medisinsk bibliotek (Rikshospitalet)", Queue: "ub-umed"},
			{Pattern: "Realfagsbiblioteket (VB)", Queue: "ub-realfagsbiblioteket"},
		},
	}
}
