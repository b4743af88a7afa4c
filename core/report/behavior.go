package report

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/pondokpesantren/sipondok/core"
	"github.com/pondokpesantren/sipondok/core/academic"
)

// behavior rating keys
const (
	KeyKerajinan    = "kerajinan"    // diligence
	KeyKedisiplinan = "kedisiplinan" // discipline
	KeyKebersihan   = "kebersihan"   // cleanliness, Diniyah only
	KeyKerapian     = "kerapian"     // tidiness, Tahfidz only
)

// Behavior holds the behavior ratings of a report. The third rating depends on the program,
// so each program has its own variant.
type Behavior interface {
	Program() academic.Program
	// Values returns the ratings keyed by their persisted name.
	Values() map[string]string
	sealed()
}

type DiniyahBehavior struct {
	Kerajinan    string `json:"kerajinan"`
	Kedisiplinan string `json:"kedisiplinan"`
	Kebersihan   string `json:"kebersihan"`
}

type TahfidzBehavior struct {
	Kerajinan    string `json:"kerajinan"`
	Kedisiplinan string `json:"kedisiplinan"`
	Kerapian     string `json:"kerapian"`
}

var (
	_ Behavior = DiniyahBehavior{}
	_ Behavior = TahfidzBehavior{}
)

func (DiniyahBehavior) Program() academic.Program { return academic.ProgramDiniyah }
func (DiniyahBehavior) sealed()                   {}

func (b DiniyahBehavior) Values() map[string]string {
	return map[string]string{KeyKerajinan: b.Kerajinan, KeyKedisiplinan: b.Kedisiplinan, KeyKebersihan: b.Kebersihan}
}

func (TahfidzBehavior) Program() academic.Program { return academic.ProgramTahfidz }
func (TahfidzBehavior) sealed()                   {}

func (b TahfidzBehavior) Values() map[string]string {
	return map[string]string{KeyKerajinan: b.Kerajinan, KeyKedisiplinan: b.Kedisiplinan, KeyKerapian: b.Kerapian}
}

// BehaviorKeys returns the rating keys of a program, in display order.
func BehaviorKeys(p academic.Program) []string {
	switch p {
	case academic.ProgramDiniyah:
		return []string{KeyKerajinan, KeyKedisiplinan, KeyKebersihan}
	case academic.ProgramTahfidz:
		return []string{KeyKerajinan, KeyKedisiplinan, KeyKerapian}
	}
	return nil
}

// IsBehaviorKey reports whether key is a rating of program p.
func IsBehaviorKey(p academic.Program, key string) bool {
	for _, k := range BehaviorKeys(p) {
		if k == key {
			return true
		}
	}
	return false
}

// NewBehavior builds the variant of program p from free-form ratings.
// Keys are matched case-insensitively; keys that are not ratings of p are ignored.
func NewBehavior(p academic.Program, values map[string]string) (Behavior, error) {
	clean := make(map[string]string, len(values))
	for k, v := range values {
		clean[core.CleanString(k, true /* lower */)] = core.CleanString(v)
	}
	switch p {
	case academic.ProgramDiniyah:
		return DiniyahBehavior{
			Kerajinan:    clean[KeyKerajinan],
			Kedisiplinan: clean[KeyKedisiplinan],
			Kebersihan:   clean[KeyKebersihan],
		}, nil
	case academic.ProgramTahfidz:
		return TahfidzBehavior{
			Kerajinan:    clean[KeyKerajinan],
			Kedisiplinan: clean[KeyKedisiplinan],
			Kerapian:     clean[KeyKerapian],
		}, nil
	}
	return nil, academic.ErrInvalidProgram
}

// EmptyBehavior is the behavior of a santri without a saved report.
func EmptyBehavior(p academic.Program) Behavior {
	b, _ := NewBehavior(p, nil)
	return b
}

// UnmarshalBehavior decodes persisted ratings into the variant of program p.
func UnmarshalBehavior(p academic.Program, data []byte) (Behavior, error) {
	var values map[string]string
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(data, &values); err != nil {
			return nil, errors.Wrap(err, "decoding behavior")
		}
	}
	return NewBehavior(p, values)
}
