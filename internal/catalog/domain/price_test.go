package domain

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
)

func int64p(v int64) *int64 { return &v }

func TestResolvePrice(t *testing.T) {
	lunch := snowflake.ID(1)
	dinner := snowflake.ID(2)
	happy := snowflake.ID(3)

	rows := []PriceRow{
		{PriceGroupID: lunch, Price: int64p(1200)},
		{PriceGroupID: dinner, Price: int64p(1500)},
		{PriceGroupID: happy, Price: nil},
	}

	price, ok := ResolvePrice(lunch, rows)
	assert.True(t, ok)
	assert.Equal(t, int64(1200), price)

	price, ok = ResolvePrice(dinner, rows)
	assert.True(t, ok)
	assert.Equal(t, int64(1500), price)
}

func TestResolvePrice_NullPriceIsUnavailable(t *testing.T) {
	group := snowflake.ID(7)
	rows := []PriceRow{{PriceGroupID: group, Price: nil}}

	_, ok := ResolvePrice(group, rows)
	assert.False(t, ok)
}

func TestResolvePrice_NoRowForGroup(t *testing.T) {
	rows := []PriceRow{{PriceGroupID: snowflake.ID(1), Price: int64p(900)}}

	_, ok := ResolvePrice(snowflake.ID(2), rows)
	assert.False(t, ok)
}

func TestResolvePrice_ZeroPriceIsSellable(t *testing.T) {
	group := snowflake.ID(4)
	rows := []PriceRow{{PriceGroupID: group, Price: int64p(0)}}

	price, ok := ResolvePrice(group, rows)
	assert.True(t, ok)
	assert.Equal(t, int64(0), price)
}
