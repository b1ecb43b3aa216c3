package match

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/octobees/payadvice/internal/entity"
)

func record(index int, kv ...string) entity.Record {
	r := entity.NewRecord()
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(kv[i], kv[i+1])
	}
	r.Index = index
	return r
}

func TestParseAmount(t *testing.T) {
	d, ok := ParseAmount("HKD 13,000.00")
	assert.True(t, ok)
	assert.Equal(t, "13000", d.String())

	d, ok = ParseAmount("13000")
	assert.True(t, ok)
	assert.Equal(t, "13000", d.String())

	_, ok = ParseAmount("n/a")
	assert.False(t, ok)
}

func TestScore(t *testing.T) {
	page := entity.PageInfo{Invoice: "25-AVS-RES-00109-RN", Amount: "HKD 13,000.00", Payer: "Acme Trading"}

	full := record(1, "Invoice", "25-avs-res-00109-rn", "Fee", "13,000.00", "Company", "ACME TRADING LIMITED")
	assert.Equal(t, 100, Score(page, full))

	partial := record(1, "Invoice", "25-AVS-RES-00110-RN", "Fee", "500.00")
	assert.Equal(t, 0, Score(page, partial))

	amountOnly := record(1, "Fee", "13000")
	assert.Equal(t, 30, Score(page, amountOnly))
}

func TestScoreParty(t *testing.T) {
	page := entity.PageInfo{Payee: "Hong Kong Telecommunications Ltd"}

	unrelated := record(1, "Opportunity", "Unrelated Renewal", "Stage", "Lost", "Owner", "Tom")
	assert.Equal(t, 0, Score(page, unrelated))

	region := record(1, "Region", "Hong Kong")
	assert.Equal(t, 0, Score(page, region), "a cell naming only part of the party is not a hit")

	ocrTypo := record(1, "Account", "Hong Kong Telecomunications Limited")
	assert.Equal(t, 20, Score(page, ocrTypo))

	assert.False(t, partyMatches("Ltd", "Acme Ltd"), "a party made only of suffixes never matches")
	assert.False(t, partyMatches("Acme Trading", "Acme"))
	assert.True(t, partyMatches("acme trading", "ACME TRADING (HK) LIMITED"))
}

func TestRank(t *testing.T) {
	pages := []entity.PageInfo{
		{Invoice: "A-1"},
		{Amount: "500.00"},
	}
	records := []entity.Record{
		record(2, "Fee", "100.00"),
		record(1, "Invoice", "B-2"),
		record(2, "Fee", "500.00"),
		record(1, "Invoice", "A-1"),
		record(0, "Orphan", "x"),
	}

	ranked := Rank(pages, records)
	assert.Equal(t, 0, ranked[0].Index)
	assert.Equal(t, "A-1", ranked[1].Get("Invoice"))
	assert.Equal(t, 50, ranked[1].Score)
	assert.Equal(t, "B-2", ranked[2].Get("Invoice"))
	assert.Equal(t, "500.00", ranked[3].Get("Fee"))
	assert.Equal(t, 30, ranked[3].Score)
	assert.Equal(t, 0, records[3].Score, "input must not be modified")
}
