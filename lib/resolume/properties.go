package resolume

// PropKind tags the value held by a Property.
type PropKind int

const (
	PropFloat PropKind = iota
	PropInt
	PropString
)

// Property is a tagged union of the three argument types Resolume sends.
type Property struct {
	Kind  PropKind
	Float float32
	Int   int32
	Str   string
}

// Properties stores engine parameters that have no specialized field on
// the owning entity. Keys are the remaining address path joined with "/".
// Setting a key always overwrites; no history is kept.
type Properties map[string]Property

func (p Properties) SetFloat(key string, v float32) {
	p[key] = Property{Kind: PropFloat, Float: v}
}

func (p Properties) SetInt(key string, v int32) {
	p[key] = Property{Kind: PropInt, Int: v}
}

func (p Properties) SetString(key string, v string) {
	p[key] = Property{Kind: PropString, Str: v}
}

// SetFromArgs stores the first argument of whichever type is present,
// floats taking precedence, then ints, then strings. Messages with no
// arguments are ignored.
func (p Properties) SetFromArgs(key string, floats []float32, ints []int32, strings []string) {
	switch {
	case len(floats) > 0:
		p.SetFloat(key, floats[0])
	case len(ints) > 0:
		p.SetInt(key, ints[0])
	case len(strings) > 0:
		p.SetString(key, strings[0])
	}
}

// Float returns the value at key as a float, converting a stored int.
func (p Properties) Float(key string, def float32) float32 {
	v, ok := p[key]
	if !ok {
		return def
	}
	switch v.Kind {
	case PropFloat:
		return v.Float
	case PropInt:
		return float32(v.Int)
	}
	return def
}

// Int returns the value at key as an int, converting a stored float.
func (p Properties) Int(key string, def int32) int32 {
	v, ok := p[key]
	if !ok {
		return def
	}
	switch v.Kind {
	case PropInt:
		return v.Int
	case PropFloat:
		return int32(v.Float)
	}
	return def
}

func (p Properties) String(key string, def string) string {
	if v, ok := p[key]; ok && v.Kind == PropString {
		return v.Str
	}
	return def
}

func (p Properties) Has(key string) bool {
	_, ok := p[key]
	return ok
}
