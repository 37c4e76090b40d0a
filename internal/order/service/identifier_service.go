package service

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

const (
	orderNumberPrefix = "ORD-"
	barcodePrefix     = "CB"
)

// IdentifierService issues order numbers and barcodes. Order numbers look
// like ORD-20261016-121502-0042; the barcode is the same digits behind a CB
// prefix. Both contain letters, so neither can equal a numeric id, and the
// two forms never equal each other. Collisions on the random suffix are left
// to the unique indexes.
type IdentifierService struct {
	mu  sync.Mutex
	now func() time.Time
	rnd *rand.Rand
}

func NewIdentifierService() *IdentifierService {
	return NewIdentifierServiceWith(time.Now, rand.New(rand.NewSource(time.Now().UnixNano())))
}

func NewIdentifierServiceWith(now func() time.Time, rnd *rand.Rand) *IdentifierService {
	return &IdentifierService{now: now, rnd: rnd}
}

func (s *IdentifierService) Next() (orderNumber, barcode string) {
	s.mu.Lock()
	t := s.now().UTC()
	suffix := s.rnd.Intn(10000)
	s.mu.Unlock()

	orderNumber = fmt.Sprintf("%s%s-%s-%04d", orderNumberPrefix, t.Format("20060102"), t.Format("150405"), suffix)
	return orderNumber, BarcodeFor(orderNumber)
}

// BarcodeFor derives the scannable barcode from an order number.
func BarcodeFor(orderNumber string) string {
	digits := strings.ReplaceAll(strings.TrimPrefix(orderNumber, orderNumberPrefix), "-", "")
	return barcodePrefix + digits
}
