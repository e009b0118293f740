package eventid

import (
	"encoding/hex"
	"regexp"
	"time"

	"github.com/google/uuid"
)

const (
	Prefix = "evt"
	// SuffixLen is the number of hex characters taken from a random UUID.
	SuffixLen = 10
)

// Pattern matches ids minted by Generator.
var Pattern = regexp.MustCompile(`^evt_[0-9]{8}_[0-9a-f]{10}$`)

// Generator mints ids of the form evt_<YYYYMMDD>_<10 hex chars>.
// The date is the UTC day of the instant passed in; the suffix comes from a
// version 4 UUID. Storage uniqueness is the real guarantee, not this generator.
type Generator struct {
	random func() uuid.UUID
}

func NewGenerator() *Generator { return &Generator{random: uuid.New} }

// NewID returns a fresh id stamped with now's UTC date.
func (g *Generator) NewID(now time.Time) string {
	u := g.random()
	return Prefix + "_" + now.UTC().Format("20060102") + "_" + hex.EncodeToString(u[:])[:SuffixLen]
}
