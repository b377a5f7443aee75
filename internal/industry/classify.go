package industry

import (
	"fmt"
	"sort"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
)

// Scheme is a Fama-French industry classification (number of industries)
type Scheme int

const (
	FF5  Scheme = 5
	FF10 Scheme = 10
	FF12 Scheme = 12
)

// span is an inclusive SIC range
type span struct {
	lo, hi int
}

// group is one industry and the SIC ranges that map to it
type group struct {
	name  string
	spans []span
}

// table maps SIC codes to industries; 첫 번째로 일치하는 그룹이 우선, 나머지는 fallback
type table struct {
	groups   []group
	fallback string
}

// 공통 SIC 구간
var (
	nonDurables = []span{{100, 999}, {2000, 2399}, {2700, 2749}, {2770, 2799}, {3100, 3199}, {3940, 3989}}
	durables    = []span{{2500, 2519}, {2590, 2599}, {3630, 3659}, {3710, 3711}, {3714, 3714}, {3716, 3716}, {3750, 3751}, {3792, 3792}, {3900, 3939}, {3990, 3999}}
	manufFF10   = []span{{2520, 2589}, {2600, 2699}, {2750, 2769}, {2800, 2829}, {2840, 2899}, {3000, 3099}, {3200, 3569}, {3580, 3621}, {3623, 3629}, {3700, 3709}, {3712, 3713}, {3715, 3715}, {3717, 3749}, {3752, 3791}, {3793, 3799}, {3860, 3899}}
	energy      = []span{{1200, 1399}, {2900, 2999}}
	hiTec       = []span{{3570, 3579}, {3622, 3622}, {3660, 3692}, {3694, 3699}, {3810, 3839}, {7370, 7379}, {7391, 7391}, {8730, 8734}}
	telecom     = []span{{4800, 4899}}
	shops       = []span{{5000, 5999}, {7200, 7299}, {7600, 7699}}
	health      = []span{{2830, 2839}, {3693, 3693}, {3840, 3859}, {8000, 8099}}
	utilities   = []span{{4900, 4949}}
)

func concat(parts ...[]span) []span {
	var out []span
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// ⭐ SSOT: SIC → 산업 분류표
var tables = map[Scheme]table{
	FF5: {
		groups: []group{
			{"Cnsmr", concat(nonDurables, durables, shops)},
			{"Manuf", concat(manufFF10, energy, utilities)},
			{"HiTec", concat(hiTec, telecom)},
			{"Hlth", health},
		},
		fallback: "Other",
	},
	FF10: {
		groups: []group{
			{"NoDur", nonDurables},
			{"Durbl", durables},
			{"Manuf", manufFF10},
			{"Enrgy", energy},
			{"HiTec", hiTec},
			{"Telcm", telecom},
			{"Shops", shops},
			{"Hlth", health},
			{"Utils", utilities},
		},
		fallback: "Other",
	},
	FF12: {
		groups: []group{
			{"NoDur", nonDurables},
			{"Durbl", durables},
			{"Manuf", []span{{2520, 2589}, {2600, 2699}, {2750, 2769}, {3000, 3099}, {3200, 3569}, {3580, 3629}, {3700, 3709}, {3712, 3713}, {3715, 3715}, {3717, 3749}, {3752, 3791}, {3793, 3799}, {3830, 3839}, {3860, 3899}}},
			{"Enrgy", energy},
			{"Chems", []span{{2800, 2829}, {2840, 2899}}},
			{"BusEq", []span{{3570, 3579}, {3660, 3692}, {3694, 3699}, {3810, 3829}, {7370, 7379}}},
			{"Telcm", telecom},
			{"Utils", utilities},
			{"Shops", shops},
			{"Hlth", health},
			{"Money", []span{{6000, 6999}}},
		},
		fallback: "Other",
	},
}

// ParseScheme validates a scheme number
func ParseScheme(n int) (Scheme, error) {
	s := Scheme(n)
	if _, ok := tables[s]; !ok {
		return 0, fmt.Errorf("%w: %d (supported: %v)", contracts.ErrUnknownScheme, n, Schemes())
	}
	return s, nil
}

// Schemes returns the supported schemes in ascending order
func Schemes() []Scheme {
	out := make([]Scheme, 0, len(tables))
	for s := range tables {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Classify maps a SIC code to its industry name under the scheme
func Classify(scheme Scheme, sic int) (string, error) {
	t, ok := tables[scheme]
	if !ok {
		return "", fmt.Errorf("%w: %d", contracts.ErrUnknownScheme, int(scheme))
	}
	return t.classify(sic), nil
}

// Industries returns the industry names of the scheme, fallback last
func Industries(scheme Scheme) ([]string, error) {
	t, ok := tables[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %d", contracts.ErrUnknownScheme, int(scheme))
	}
	names := make([]string, 0, len(t.groups)+1)
	for _, g := range t.groups {
		names = append(names, g.name)
	}
	return append(names, t.fallback), nil
}

func (t table) classify(sic int) string {
	for _, g := range t.groups {
		for _, s := range g.spans {
			if sic >= s.lo && sic <= s.hi {
				return g.name
			}
		}
	}
	return t.fallback
}

// Assign returns the industry label of every observation
func Assign(scheme Scheme, rows []contracts.Observation) ([]string, error) {
	t, ok := tables[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %d", contracts.ErrUnknownScheme, int(scheme))
	}
	out := make([]string, len(rows))
	for i, o := range rows {
		out[i] = t.classify(o.SIC)
	}
	return out, nil
}
