package timecodedef

// Known, named timecode definitions, per the vendor records in wide
// use. Each is built lazily on first Lookup/Build call, not at package
// init, so importing this package never pays the lookup-table cost for
// definitions a given process doesn't use.

var (
	Serato2A = New("serato_2a", 1000, 20, 0x59017, 0x361E4, 712000, 707000, Flags{})

	Serato2B = New("serato_2b", 1000, 20, 0x8F3C6, 0x4F0D8, 922000, 917000, Flags{})

	SeratoCD = New("serato_cd", 1000, 20, 0x84C0C, 0x34D54, 940000, 930000, Flags{})

	TraktorA = New("traktor_a", 2000, 23, 0x134503, 0x041040, 1500000, 1480000, Flags{
		SwitchPrimary:  true,
		SwitchPolarity: true,
		SwitchPhase:    true,
	})

	TraktorB = New("traktor_b", 2000, 23, 0x32066C, 0x041040, 2110000, 2090000, Flags{
		SwitchPrimary:  true,
		SwitchPolarity: true,
		SwitchPhase:    true,
	})

	MixvibesV2 = New("mixvibes_v2", 1300, 20, 0x22C90, 0x00008, 950000, 923000, Flags{
		SwitchPhase: true,
	})
)

// byName is populated in init, once all package vars above are
// assigned, and is immutable thereafter.
var byName map[string]*Def

func init() {
	byName = map[string]*Def{
		Serato2A.Name:   Serato2A,
		Serato2B.Name:   Serato2B,
		SeratoCD.Name:   SeratoCD,
		TraktorA.Name:   TraktorA,
		TraktorB.Name:   TraktorB,
		MixvibesV2.Name: MixvibesV2,
	}
}

// ByName looks up one of the well-known definitions above by its
// conventional name (e.g. "serato_2a"). Returns nil, false if the name
// is not recognized.
func ByName(name string) (*Def, bool) {
	d, ok := byName[name]
	return d, ok
}

// All returns every known definition, in a stable order.
func All() []*Def {
	return []*Def{Serato2A, Serato2B, SeratoCD, TraktorA, TraktorB, MixvibesV2}
}
