package apps

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/scratchsim/scratchsim/sim"
)

// DataRate is a transmission rate in bits per second.
type DataRate uint64

// Common data rates.
const (
	BitPerSecond  DataRate = 1
	KbitPerSecond          = 1000 * BitPerSecond
	MbitPerSecond          = 1000 * KbitPerSecond
	GbitPerSecond          = 1000 * MbitPerSecond
)

var rateUnits = []struct {
	suffix string
	scale  float64
}{
	{"Gbps", 1e9},
	{"Gb/s", 1e9},
	{"Mbps", 1e6},
	{"Mb/s", 1e6},
	{"kbps", 1e3},
	{"Kbps", 1e3},
	{"kb/s", 1e3},
	{"Kb/s", 1e3},
	{"GBps", 8e9},
	{"MBps", 8e6},
	{"kBps", 8e3},
	{"KBps", 8e3},
	{"Bps", 8},
	{"bps", 1},
	{"b/s", 1},
}

// ParseDataRate parses rates such as "1Mbps", "100kbps", "5Gbps", "2MBps"
// or a bare number of bits per second.
func ParseDataRate(s string) (DataRate, error) {
	str := strings.TrimSpace(s)
	scale := 1.0

	for _, u := range rateUnits {
		if strings.HasSuffix(str, u.suffix) {
			str = strings.TrimSpace(strings.TrimSuffix(str, u.suffix))
			scale = u.scale
			break
		}
	}

	v, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDataRate, s)
	}

	// Rates below one bit per second would truncate to zero.
	bits := v * scale
	if math.IsNaN(bits) || bits < 1 || bits >= math.MaxUint64 {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidDataRate, s)
	}

	return DataRate(bits), nil
}

// MustParseDataRate is ParseDataRate that panics on error.
func MustParseDataRate(s string) DataRate {
	r, err := ParseDataRate(s)
	if err != nil {
		panic(err)
	}

	return r
}

// TxTime returns how long it takes to put size bytes on the wire.
func (r DataRate) TxTime(size uint32) sim.VTimeInSec {
	return sim.VTimeInSec(float64(size) * 8 / float64(r))
}

func (r DataRate) String() string {
	switch {
	case r >= GbitPerSecond && r%GbitPerSecond == 0:
		return fmt.Sprintf("%dGbps", r/GbitPerSecond)
	case r >= MbitPerSecond && r%MbitPerSecond == 0:
		return fmt.Sprintf("%dMbps", r/MbitPerSecond)
	case r >= KbitPerSecond && r%KbitPerSecond == 0:
		return fmt.Sprintf("%dkbps", r/KbitPerSecond)
	default:
		return fmt.Sprintf("%dbps", uint64(r))
	}
}

// UnmarshalYAML accepts both strings like "1Mbps" and plain numbers.
func (r *DataRate) UnmarshalYAML(value *yaml.Node) error {
	rate, err := ParseDataRate(value.Value)
	if err != nil {
		return err
	}

	*r = rate

	return nil
}

// MarshalYAML writes the rate in its shortest string form.
func (r DataRate) MarshalYAML() (any, error) {
	return r.String(), nil
}
