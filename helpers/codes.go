package helpers

import (
	"log"

	"github.com/jaevor/go-nanoid"
)

var orderCode func() string

func init() {
	gen, err := nanoid.CustomASCII("0123456789ABCDEFGHJKLMNPQRSTUVWXYZ", 12)
	if err != nil {
		log.Fatal("❌ Failed to init order code generator:", err)
	}
	orderCode = gen
}

// GenerateOrderCode returns a short public order identifier.
func GenerateOrderCode() string {
	return orderCode()
}
