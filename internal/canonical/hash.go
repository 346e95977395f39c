package canonical

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

func sumString(s string) string {
	h := blake3.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}
