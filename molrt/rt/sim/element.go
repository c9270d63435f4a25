package sim

type Element int

const (
	Null Element = iota
	Hydrogen
	Helium
	Lithium
	Beryllium
	Boron
	Carbon
	Nitrogen
	Oxygen
	Fluorine
	Neon
)

// NumElements counts the real elements; Null is excluded.
const NumElements = 10

// AtomicRadii is indexed by Element. Index 0 is reserved.
var AtomicRadii = [NumElements + 1]float32{
	0.0,   // Null
	0.025, // Hydrogen
	0.120, // Helium
	0.145, // Lithium
	0.105, // Beryllium
	0.085, // Boron
	0.070, // Carbon
	0.065, // Nitrogen
	0.060, // Oxygen
	0.050, // Fluorine
	0.160, // Neon
}

var elementNames = [NumElements + 1]string{
	"None",
	"Hydrogen",
	"Helium",
	"Lithium",
	"Beryllium",
	"Boron",
	"Carbon",
	"Nitrogen",
	"Oxygen",
	"Fluorine",
	"Neon",
}

func (e Element) Valid() bool {
	return e > Null && e <= Neon
}

func (e Element) String() string {
	if e < Null || e > Neon {
		return "Unrecognized"
	}
	return elementNames[e]
}

// Radius returns 0 for Null and for values outside the table.
func (e Element) Radius() float32 {
	if e < Null || e > Neon {
		return 0
	}
	return AtomicRadii[e]
}

// MaterialIndex maps an element to its slot in the materials array.
func (e Element) MaterialIndex() uint32 {
	if !e.Valid() {
		return 0
	}
	return uint32(e - 1)
}

func ParseElement(name string) (Element, bool) {
	for i, n := range elementNames {
		if i > 0 && n == name {
			return Element(i), true
		}
	}
	return Null, false
}
