package domain

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// SecondsPerDay is the width of a day bucket.
const SecondsPerDay = 86400

// EventID = "<chain_id>:<tx_hash>:<log_index>"; used by the deduper, never persisted as an entity key
func MakeEventID(chainID uint32, txHash string, logIndex uint32) string {
	return fmt.Sprintf("%d:%s:%d", chainID, NormalizeHex(txHash), logIndex)
}

// NormalizeHex lower-cases and 0x-prefixes an address or hash
func NormalizeHex(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	return s
}

// FactID is the id of an immutable per-log record (Trade, Tip): tx hash bytes followed by
// the log index as 4 little-endian bytes, hex encoded.
func FactID(txHash string, logIndex uint32) string {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], logIndex)
	return NormalizeHex(txHash) + hex.EncodeToString(b[:])
}

// HoldingID concatenates holder and subject bytes; (a, b) and (b, a) are distinct
func HoldingID(holder, subject string) string {
	return NormalizeHex(holder) + strings.TrimPrefix(NormalizeHex(subject), "0x")
}

// DailyID = "<owner_id>-<day>"; owner is an account address or the protocol id
func DailyID(ownerID string, day uint64) string {
	return ownerID + "-" + strconv.FormatUint(day, 10)
}

// DayIndex returns the UTC day bucket of a unix timestamp
func DayIndex(timestamp uint64) uint64 {
	return timestamp / SecondsPerDay
}
