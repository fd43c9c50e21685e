// Package symbol implements the assembler's label tables.
//
// Each translation unit has its own local table. Labels declared global
// are moved to a table shared by all units; lookups check the local table
// first, then the global table.
package symbol

import (
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/ezrec/mipsim/translate"
)

var f = translate.From

var ErrSymbolMissing = errors.New(f("symbol missing"))

// ErrLabelDuplicate is raised when a label is defined twice in a table.
type ErrLabelDuplicate string

func (err ErrLabelDuplicate) Error() string {
	return f("label \"%v\" already defined", string(err))
}

// Symbol is a label bound to an address.
type Symbol struct {
	Name    string
	Address uint32
	IsData  bool // True if the label is in a data segment.
}

func (sym Symbol) String() string {
	kind := "text"
	if sym.IsData {
		kind = "data"
	}
	return fmt.Sprintf("%v %#08x (%v)", sym.Name, sym.Address, kind)
}

// Table is an ordered label table.
type Table struct {
	Name   string // Name of the translation unit, or "(global)".
	Global *Table // Table consulted when a label is not found locally.

	symbols []Symbol
	index   map[string]int
}

// NewTable creates a table.
func NewTable(name string, global *Table) *Table {
	return &Table{
		Name:   name,
		Global: global,
		index:  make(map[string]int),
	}
}

// Add defines a new label. Redefinition is an error.
func (table *Table) Add(name string, address uint32, isData bool) (err error) {
	if _, ok := table.index[name]; ok {
		err = ErrLabelDuplicate(name)
		return
	}

	table.index[name] = len(table.symbols)
	table.symbols = append(table.symbols, Symbol{Name: name, Address: address, IsData: isData})
	return
}

// Remove removes a label. Removing a missing label does nothing.
func (table *Table) Remove(name string) {
	n, ok := table.index[name]
	if !ok {
		return
	}

	table.symbols = slices.Delete(table.symbols, n, n+1)
	delete(table.index, name)
	for i := n; i < len(table.symbols); i++ {
		table.index[table.symbols[i].Name] = i
	}
}

// Lookup finds a label in this table only.
func (table *Table) Lookup(name string) (sym Symbol, ok bool) {
	n, ok := table.index[name]
	if !ok {
		return
	}
	return table.symbols[n], true
}

// Address gets the address of a label in this table only.
func (table *Table) Address(name string) (address uint32, ok bool) {
	sym, ok := table.Lookup(name)
	return sym.Address, ok
}

// LocalOrGlobal finds a label in this table, then in the global table.
func (table *Table) LocalOrGlobal(name string) (sym Symbol, ok bool) {
	sym, ok = table.Lookup(name)
	if ok || table.Global == nil {
		return
	}
	return table.Global.Lookup(name)
}

// FixAddress rebinds every label at address 'from' to address 'to'.
func (table *Table) FixAddress(from, to uint32) {
	for n := range table.symbols {
		if table.symbols[n].Address == from {
			table.symbols[n].Address = to
		}
	}
}

// Len returns the number of labels.
func (table *Table) Len() int {
	return len(table.symbols)
}

// All iterates the labels in definition order.
func (table *Table) All() iter.Seq[Symbol] {
	return slices.Values(table.symbols)
}

// Clear removes all labels.
func (table *Table) Clear() {
	table.symbols = table.symbols[:0]
	clear(table.index)
}

// At finds the first label bound to an address.
func (table *Table) At(address uint32) (sym Symbol, ok bool) {
	for _, sym = range table.symbols {
		if sym.Address == address {
			return sym, true
		}
	}
	return Symbol{}, false
}
