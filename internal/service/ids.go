package service

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

// newTransactionID returns TXN-<YYYYmmddHHMMSS>-<6 hex chars>
func newTransactionID(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("TXN-%s-%s", at.Format("20060102150405"), suffix)
}

// newReceiptNumber returns RCP-<YYYYmmddHHMMSS>-<4 digits>
func newReceiptNumber(at time.Time) string {
	return fmt.Sprintf("RCP-%s-%04d", at.Format("20060102150405"), 1000+rand.Intn(9000))
}
