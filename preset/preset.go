// Package preset builds the ordered bank/program table that defines the
// host-visible program index of a loaded sound bank.
//
// The instrument runtime and the offline bundle generator both obtain their
// tables from Build. The position of an entry in the table IS the program
// number hosts see; if the two enumerations ever diverged, presets would be
// silently mislabeled. Keeping a single implementation makes them agree by
// construction.
package preset

// Scan bounds. Bank 128 holds percussion sets in the SoundFont convention
// and is included in the scan.
const (
	MaxBank    = 128
	MaxProgram = 127
)

// Source reports which bank/program coordinates hold a preset.
type Source interface {
	PresetExists(bank, program int) bool
}

// Namer labels presets. Sources may implement it in addition to Source;
// the bundle generator uses it for human-readable program names.
type Namer interface {
	PresetName(bank, program int) (string, bool)
}

// Entry identifies one preset in the loaded sound bank.
type Entry struct {
	Bank    int
	Program int
}

// Table is the dense program index: entries ordered by ascending bank,
// then ascending program, at positions 0..Len()-1 with no gaps. A Table is
// read-only after Build.
type Table struct {
	entries []Entry
}

// Build scans banks 0 through MaxBank and, within each bank, programs 0
// through MaxProgram, appending every coordinate src reports present. The
// nested ascending scan order is the contract; see the package comment.
func Build(src Source) *Table {
	var entries []Entry
	for bank := 0; bank <= MaxBank; bank++ {
		for program := 0; program <= MaxProgram; program++ {
			if src.PresetExists(bank, program) {
				entries = append(entries, Entry{Bank: bank, Program: program})
			}
		}
	}
	return &Table{entries: entries}
}

// Len returns the number of presets found.
func (t *Table) Len() int { return len(t.entries) }

// At returns the entry at program index i. Like a slice access, it panics
// when i is out of range.
func (t *Table) At(i int) Entry { return t.entries[i] }

// Entries returns the backing slice in index order. Callers must not modify it.
func (t *Table) Entries() []Entry { return t.entries }
