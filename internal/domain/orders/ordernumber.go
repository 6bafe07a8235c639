package orders

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/speps/go-hashids/v2"
)

const orderAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

type NumberGenerator struct {
	h *hashids.HashID
}

func NewNumberGenerator(salt string) (*NumberGenerator, error) {
	hd := hashids.NewData()
	hd.Salt = salt
	hd.Alphabet = orderAlphabet
	hd.MinLength = 10

	h, err := hashids.NewWithData(hd)
	if err != nil {
		return nil, fmt.Errorf("order number generator: %w", err)
	}
	return &NumberGenerator{h: h}, nil
}

// Generate returns a short public order number. The millisecond clock keeps
// numbers roughly sortable, the random part keeps them unique across nodes.
func (g *NumberGenerator) Generate() (string, error) {
	code, err := g.h.EncodeInt64([]int64{time.Now().UnixMilli(), int64(uuid.New().ID())})
	if err != nil {
		return "", fmt.Errorf("encode order number: %w", err)
	}
	return "SUN-" + code, nil
}
